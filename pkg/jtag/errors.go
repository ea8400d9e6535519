package jtag

import (
	"errors"
	"fmt"
)

// Kind classifies every failure a bring-up session can hit. All kinds are
// fatal to the session.
type Kind uint8

const (
	// KindArgument marks malformed or out-of-range input, detected before
	// any device I/O.
	KindArgument Kind = iota + 1
	// KindCapability marks a feature the attached adapter does not offer.
	KindCapability
	// KindDevice marks a failed transport call.
	KindDevice
	// KindProtocol marks an unexpected answer from the scan chain.
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindArgument:
		return "invalid argument"
	case KindCapability:
		return "unsupported capability"
	case KindDevice:
		return "device error"
	case KindProtocol:
		return "protocol error"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Error is the single result type crossing package boundaries. Code carries
// an adapter-specific status when the transport reports one.
type Error struct {
	Kind Kind
	Op   string
	Code int
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	if e.Code != 0 {
		msg = fmt.Sprintf("%s, erc = %d", msg, e.Code)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrNotImplemented lets backends signal that a requested capability is
	// not available without building a new error each time.
	ErrNotImplemented = errors.New("jtag: not implemented")

	// ErrNoDevices reports an enumeration pass that found no IDCODE.
	ErrNoDevices = errors.New("0 devices detected in scan chain")

	// ErrClosed reports use of a transport after Close.
	ErrClosed = errors.New("jtag: transport closed")
)

// Errorf builds an *Error of the given kind with a formatted cause.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches kind and op to err. A nil err stays nil. An err that already
// is an *Error keeps its kind and code and gains op as context.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var je *Error
	if errors.As(err, &je) {
		return &Error{Kind: je.Kind, Op: op, Code: je.Code, Err: err}
	}
	code := 0
	var coded interface{ ErrorCode() int }
	if errors.As(err, &coded) {
		code = coded.ErrorCode()
	}
	return &Error{Kind: kind, Op: op, Code: code, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var je *Error
	if errors.As(err, &je) {
		return je.Kind
	}
	return 0
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
