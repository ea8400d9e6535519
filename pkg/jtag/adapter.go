package jtag

import (
	"fmt"
	"strings"
)

// Capabilities is the feature set a TAP.7 adapter port reports.
type Capabilities uint32

const (
	// CapResetEscape marks a port able to issue the TAP.7 reset escape.
	CapResetEscape Capabilities = 1 << iota
	// CapReadyCount marks a port that can program the expected ready bit count.
	CapReadyCount
	// CapDelayCount marks a port that can insert delay clocks between packets.
	CapDelayCount
	// CapAdvancedFormats marks a port that can frame MScan and OScan packets.
	CapAdvancedFormats
)

var capabilityNames = []struct {
	flag Capabilities
	name string
}{
	{CapResetEscape, "escape"},
	{CapReadyCount, "ready"},
	{CapDelayCount, "delay"},
	{CapAdvancedFormats, "advanced"},
}

// Has reports whether every flag in want is present.
func (c Capabilities) Has(want Capabilities) bool {
	return c&want == want
}

func (c Capabilities) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, n := range capabilityNames {
		if c&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Transport is the byte-oriented two-wire port a TAP.7 session drives. All
// patterns are packed LSB-first and bits is authoritative over len(buf).
type Transport interface {
	Capabilities() (Capabilities, error)
	Enable() error
	Disable() error
	SetClockFrequency(hz uint32) (uint32, error)
	ResetEscape() error
	ShiftTMS(tms []byte, bits int) error
	// ShiftTDO clocks bits cycles with TMS and TDI held at zero and returns
	// the captured TDO bits.
	ShiftTDO(bits int) ([]byte, error)
	SetReadyCount(count int) (int, error)
	DelayCount() (int, error)
	SetDelayCount(count int) (int, error)
	SetScanFormat(f ScanFormat) error
	CheckPacket(nopBits int, loopback, abort bool) error
	Close() error
}

// PairShifter is implemented by transports that accept combined (TDI, TMS)
// bit pairs, TDI in the lower bit of each pair.
type PairShifter interface {
	ShiftTMSTDI(pairs []byte, bits int) error
}

// Opener resolves a device name to an open transport.
type Opener func(device string) (Transport, error)

// ValidateShiftBuffer ensures buf carries at least bits bits and returns the
// number of bytes they occupy.
func ValidateShiftBuffer(buf []byte, bits int) (int, error) {
	if bits <= 0 {
		return 0, fmt.Errorf("jtag: bits must be positive, got %d", bits)
	}
	required := (bits + 7) / 8
	if len(buf) < required {
		return 0, fmt.Errorf("jtag: buffer too short, need %d bytes for %d bits", required, bits)
	}
	return required, nil
}

// ValidatePairBuffer is ValidateShiftBuffer for pair-encoded streams.
func ValidatePairBuffer(buf []byte, bits int) (int, error) {
	if bits <= 0 {
		return 0, fmt.Errorf("jtag: bits must be positive, got %d", bits)
	}
	required := (bits*2 + 7) / 8
	if len(buf) < required {
		return 0, fmt.Errorf("jtag: pair buffer too short, need %d bytes for %d clocks", required, bits)
	}
	return required, nil
}

func bitAt(buf []byte, i int) bool {
	return buf[i/8]&(1<<(uint(i)%8)) != 0
}
