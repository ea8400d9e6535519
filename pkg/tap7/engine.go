// Package tap7 drives the IEEE 1149.7 control protocol of an ADTAPC over a
// two-wire transport: zero-bit scans to select a control level, two-part
// commands to write its registers, and check packets to close each command.
package tap7

import (
	"io"
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/jtag"
	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/tap"
)

// commandPartMask covers the bits a command part may not use: a part is
// signalled by the number of Shift-DR clocks, at most 31.
const commandPartMask = 0xE0

// Zero-bit scan and command framing patterns, all starting and ending in
// Run-Test/Idle unless noted.
var (
	// zbsRepeat is one DR scan without a Shift-DR clock, ending in Update-DR
	// so the next scan follows without returning to idle.
	zbsRepeat = tap.MustPattern([]byte{0x0D}, 4)
	// zbsFinal is zbsRepeat plus one clock back to Run-Test/Idle.
	zbsFinal = tap.MustPattern([]byte{0x0D}, 5)
	// lockPattern is a DR scan with a single Shift-DR clock.
	lockPattern = tap.MustPattern([]byte{0x19}, 6)
	// partEnter moves from Run-Test/Idle to Shift-DR.
	partEnter = tap.MustPattern([]byte{0x01}, 3)
	// partExit leaves Shift-DR, clocking one more shift, back to idle.
	partExit = tap.MustPattern([]byte{0x03}, 3)
	// dummyPacket is the single idle clock an advanced-format link needs
	// between a command and its check packet.
	dummyPacket = tap.Zeros(1)
)

// Engine issues TAP.7 control sequences on a transport. It holds the
// session's advanced-protocol flag, which is set once the link switches to
// an advanced scan format and never cleared.
type Engine struct {
	t        jtag.Transport
	log      *slog.Logger
	advanced bool
}

// NewEngine binds an engine to t. A nil logger discards diagnostics.
func NewEngine(t jtag.Transport, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{t: t, log: logger}
}

// Advanced reports whether commands are closed with the advanced-format
// dummy packet sequence.
func (e *Engine) Advanced() bool {
	return e.advanced
}

// EnterAdvancedProtocol marks the link as running an advanced scan format.
func (e *Engine) EnterAdvancedProtocol() {
	if !e.advanced {
		e.log.Debug("advanced protocol enabled")
	}
	e.advanced = true
}

func (e *Engine) shift(step string, p tap.Pattern) error {
	if p.Len() == 0 {
		return nil
	}
	e.log.Debug("shift", "step", step, "tms", p.String())
	if err := e.t.ShiftTMS(p.Bytes(), p.Len()); err != nil {
		return jtag.Wrap(jtag.KindDevice, step, err)
	}
	return nil
}

// Navigate walks a canonical transition. Once the advanced protocol is on
// and the transport accepts TDI/TMS pairs, the pair-encoded table is used.
func (e *Engine) Navigate(tr tap.Transition) error {
	if e.advanced {
		if ps, ok := e.t.(jtag.PairShifter); ok {
			p := tap.AdvancedTable.Pattern(tr)
			e.log.Debug("navigate", "transition", tr.String(), "table", tap.AdvancedTable.Name())
			if err := ps.ShiftTMSTDI(p.Bytes(), p.Len()); err != nil {
				return jtag.Wrap(jtag.KindDevice, tr.String(), err)
			}
			return nil
		}
	}
	e.log.Debug("navigate", "transition", tr.String(), "table", tap.StandardTable.Name())
	return e.shift(tr.String(), tap.StandardTable.Pattern(tr))
}

// SendZeroBitScan issues count zero-bit scans from Run-Test/Idle and returns
// there. The last scan is one clock longer than the others.
func (e *Engine) SendZeroBitScan(count uint8) error {
	if count == 0 {
		return jtag.Errorf(jtag.KindArgument, "zero-bit scan", "count must be at least 1")
	}
	for i := uint8(1); i < count; i++ {
		if err := e.shift("zero-bit scan", zbsRepeat); err != nil {
			return err
		}
	}
	return e.shift("zero-bit scan", zbsFinal)
}

// LockZeroBitScanCount ends a zero-bit scan sequence so the ADTAPC latches
// the count as its control level.
func (e *Engine) LockZeroBitScanCount() error {
	return e.shift("lock zero-bit scan count", lockPattern)
}

// SendTwoPartCommand writes operator then operand, each as a DR scan of that
// many Shift-DR clocks, and closes the command with a check packet.
func (e *Engine) SendTwoPartCommand(operator, operand uint8) error {
	if operator&commandPartMask != 0 || operand&commandPartMask != 0 {
		return jtag.Errorf(jtag.KindArgument, "two-part command",
			"command parts must be below 32, got operator %d operand %d", operator, operand)
	}
	e.log.Debug("two-part command", "operator", operator, "operand", operand, "advanced", e.advanced)

	for _, part := range [...]uint8{operator, operand} {
		if err := e.sendCommandPart(part); err != nil {
			return err
		}
	}
	if e.advanced {
		if err := e.sendDummyPacket(); err != nil {
			return err
		}
	}
	if err := e.t.CheckPacket(0, false, false); err != nil {
		return jtag.Wrap(jtag.KindDevice, "check packet", err)
	}
	return nil
}

func (e *Engine) sendCommandPart(part uint8) error {
	if part == 0 {
		return e.shift("command part", zbsFinal)
	}
	if err := e.shift("command part", partEnter); err != nil {
		return err
	}
	if err := e.shift("command part", tap.Zeros(int(part)-1)); err != nil {
		return err
	}
	return e.shift("command part", partExit)
}

// sendDummyPacket clocks the idle packet an advanced-format link expects
// before a check packet. It must go out with no delay clocks inserted, so a
// nonzero delay count is cleared around it and restored afterwards.
func (e *Engine) sendDummyPacket() error {
	delay, err := e.t.DelayCount()
	if err != nil {
		return jtag.Wrap(jtag.KindDevice, "get delay count", err)
	}
	if delay != 0 {
		set, err := e.t.SetDelayCount(0)
		if err != nil {
			return jtag.Wrap(jtag.KindDevice, "clear delay count", err)
		}
		if set != 0 {
			return jtag.Errorf(jtag.KindDevice, "clear delay count", "adapter kept delay count %d", set)
		}
	}
	if err := e.shift("dummy scan packet", dummyPacket); err != nil {
		return err
	}
	if delay != 0 {
		if _, err := e.t.SetDelayCount(delay); err != nil {
			return jtag.Wrap(jtag.KindDevice, "restore delay count", err)
		}
	}
	return nil
}
