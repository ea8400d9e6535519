package jtag

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/tap"
)

// Two-part command operators and operands the simulator decodes.
const (
	simOpStoreMiscControl = 0
	simOpStoreFormat      = 3

	simOperandExitControlLevel = 1
	simOperandConditionalGroup = 7
)

var (
	_ Transport   = (*Sim)(nil)
	_ PairShifter = (*Sim)(nil)
)

// SimOp records one transport call made against a Sim.
type SimOp struct {
	Name string
	Bits int
	Arg  int
	Data []byte
}

// SimCommand is a two-part command decoded by the simulated ADTAPC.
type SimCommand struct {
	Operator uint8
	Operand  uint8
}

// Sim is an in-memory TAP.7 adapter with a single ADTAPC in front of a chain
// of IEEE 1149.1 targets. It follows the TAP state for every clock, counts
// zero-bit scans, decodes two-part commands at control level 2 and above, and
// enforces the check-packet rules an advanced-format link imposes.
//
// Protocol violations are latched and returned by the next CheckPacket.
type Sim struct {
	// Caps is reported by Capabilities and gates the optional operations.
	Caps Capabilities
	// RetryCount is returned by SetReadyCount as the applied retry count.
	RetryCount int
	// MaxFrequency bounds SetClockFrequency.
	MaxFrequency uint32
	// StuckHigh forces TDO to one, as a floating or unpowered link reads.
	StuckHigh bool

	chain []uint32

	state     tap.State
	enabled   bool
	closed    bool
	frequency uint32

	level      int
	zbs        int
	drShifts   int
	drVisible  bool
	drPos      int
	parts      []int
	cgm        bool
	targetRdy  int
	targetDly  int
	target     ScanFormat
	format     ScanFormat
	readyCount int
	delayCount int

	dummyPending bool
	fault        error

	ops      []SimOp
	commands []SimCommand
	failOn   map[string]error
}

// NewSim returns a simulator with every capability and the given IDCODEs,
// ordered from TDO towards TDI.
func NewSim(ids ...uint32) *Sim {
	return &Sim{
		Caps:         CapResetEscape | CapReadyCount | CapDelayCount | CapAdvancedFormats,
		RetryCount:   3,
		MaxFrequency: 30_000_000,
		chain:        append([]uint32(nil), ids...),
		state:        tap.StateTestLogicReset,
		frequency:    1_000_000,
	}
}

// FailOn makes every later call to the named operation return err. A nil err
// clears the injection.
func (s *Sim) FailOn(op string, err error) {
	if s.failOn == nil {
		s.failOn = make(map[string]error)
	}
	if err == nil {
		delete(s.failOn, op)
		return
	}
	s.failOn[op] = err
}

// Ops returns a copy of every call recorded so far.
func (s *Sim) Ops() []SimOp {
	out := make([]SimOp, len(s.ops))
	copy(out, s.ops)
	return out
}

// OpNames lists the names of the recorded calls in order.
func (s *Sim) OpNames() []string {
	out := make([]string, len(s.ops))
	for i, op := range s.ops {
		out[i] = op.Name
	}
	return out
}

// Commands returns the two-part commands decoded so far.
func (s *Sim) Commands() []SimCommand {
	return append([]SimCommand(nil), s.commands...)
}

// TAPState reports the simulated 1149.1 state.
func (s *Sim) TAPState() tap.State { return s.state }

// ControlLevel reports the ADTAPC control level.
func (s *Sim) ControlLevel() int { return s.level }

// TargetFormat reports the scan format stored in the ADTAPC.
func (s *Sim) TargetFormat() ScanFormat { return s.target }

// TargetReadyCount reports the ready bit count stored in the ADTAPC.
func (s *Sim) TargetReadyCount() int { return s.targetRdy }

// TargetDelayCode reports the delay control code stored in the ADTAPC.
func (s *Sim) TargetDelayCode() int { return s.targetDly }

// Enabled reports whether the port is enabled.
func (s *Sim) Enabled() bool { return s.enabled }

// Closed reports whether Close has been called.
func (s *Sim) Closed() bool { return s.closed }

func (s *Sim) record(op SimOp) error {
	s.ops = append(s.ops, op)
	if s.closed && op.Name != "Close" {
		return &Error{Kind: KindDevice, Op: op.Name, Err: ErrClosed}
	}
	if err := s.failOn[op.Name]; err != nil {
		return err
	}
	return nil
}

func (s *Sim) requireEnabled(op string) error {
	if !s.enabled {
		return Errorf(KindDevice, op, "port not enabled")
	}
	return nil
}

func (s *Sim) Capabilities() (Capabilities, error) {
	if err := s.record(SimOp{Name: "Capabilities"}); err != nil {
		return 0, err
	}
	return s.Caps, nil
}

func (s *Sim) Enable() error {
	if err := s.record(SimOp{Name: "Enable"}); err != nil {
		return err
	}
	s.enabled = true
	return nil
}

func (s *Sim) Disable() error {
	if err := s.record(SimOp{Name: "Disable"}); err != nil {
		return err
	}
	s.enabled = false
	return nil
}

func (s *Sim) SetClockFrequency(hz uint32) (uint32, error) {
	if err := s.record(SimOp{Name: "SetClockFrequency", Arg: int(hz)}); err != nil {
		return 0, err
	}
	if hz == 0 {
		return 0, Errorf(KindArgument, "SetClockFrequency", "frequency must be positive")
	}
	if s.MaxFrequency != 0 && hz > s.MaxFrequency {
		hz = s.MaxFrequency
	}
	s.frequency = hz
	return hz, nil
}

// ResetEscape returns the ADTAPC and the TAP to their power-on state.
func (s *Sim) ResetEscape() error {
	if err := s.record(SimOp{Name: "ResetEscape"}); err != nil {
		return err
	}
	if !s.Caps.Has(CapResetEscape) {
		return Errorf(KindCapability, "ResetEscape", "reset escape not supported")
	}
	if err := s.requireEnabled("ResetEscape"); err != nil {
		return err
	}
	s.state = tap.StateTestLogicReset
	s.level, s.zbs, s.parts = 0, 0, nil
	s.cgm = false
	s.targetRdy, s.targetDly = 0, 0
	s.target, s.format = JScan0, JScan0
	s.dummyPending = false
	s.fault = nil
	return nil
}

func (s *Sim) ShiftTMS(tms []byte, bits int) error {
	if err := s.record(SimOp{Name: "ShiftTMS", Bits: bits, Data: append([]byte(nil), tms...)}); err != nil {
		return err
	}
	if _, err := ValidateShiftBuffer(tms, bits); err != nil {
		return &Error{Kind: KindArgument, Op: "ShiftTMS", Err: err}
	}
	if err := s.requireEnabled("ShiftTMS"); err != nil {
		return err
	}
	for i := 0; i < bits; i++ {
		s.clock(bitAt(tms, i))
	}
	return nil
}

// ShiftTMSTDI consumes a pair-encoded stream; TDI values are ignored.
func (s *Sim) ShiftTMSTDI(pairs []byte, bits int) error {
	if err := s.record(SimOp{Name: "ShiftTMSTDI", Bits: bits, Data: append([]byte(nil), pairs...)}); err != nil {
		return err
	}
	if _, err := ValidatePairBuffer(pairs, bits); err != nil {
		return &Error{Kind: KindArgument, Op: "ShiftTMSTDI", Err: err}
	}
	if err := s.requireEnabled("ShiftTMSTDI"); err != nil {
		return err
	}
	for i := 0; i < bits; i++ {
		s.clock(bitAt(pairs, 2*i+1))
	}
	return nil
}

func (s *Sim) ShiftTDO(bits int) ([]byte, error) {
	if err := s.record(SimOp{Name: "ShiftTDO", Bits: bits}); err != nil {
		return nil, err
	}
	if bits <= 0 {
		return nil, Errorf(KindArgument, "ShiftTDO", "bits must be positive, got %d", bits)
	}
	if err := s.requireEnabled("ShiftTDO"); err != nil {
		return nil, err
	}
	out := make([]byte, (bits+7)/8)
	for i := 0; i < bits; i++ {
		if s.clock(false) {
			out[i/8] |= 1 << (uint(i) % 8)
		}
	}
	return out, nil
}

func (s *Sim) SetReadyCount(count int) (int, error) {
	if err := s.record(SimOp{Name: "SetReadyCount", Arg: count}); err != nil {
		return 0, err
	}
	if !s.Caps.Has(CapReadyCount) {
		return 0, Errorf(KindCapability, "SetReadyCount", "ready count not supported")
	}
	if count < 1 || count > 4 {
		return 0, Errorf(KindArgument, "SetReadyCount", "ready count %d out of range", count)
	}
	s.readyCount = count
	return s.RetryCount, nil
}

func (s *Sim) DelayCount() (int, error) {
	if err := s.record(SimOp{Name: "DelayCount"}); err != nil {
		return 0, err
	}
	return s.delayCount, nil
}

func (s *Sim) SetDelayCount(count int) (int, error) {
	if err := s.record(SimOp{Name: "SetDelayCount", Arg: count}); err != nil {
		return 0, err
	}
	if !s.Caps.Has(CapDelayCount) {
		return 0, Errorf(KindCapability, "SetDelayCount", "delay count not supported")
	}
	if count < 0 {
		return 0, Errorf(KindArgument, "SetDelayCount", "negative delay count %d", count)
	}
	s.delayCount = count
	return count, nil
}

func (s *Sim) SetScanFormat(f ScanFormat) error {
	if err := s.record(SimOp{Name: "SetScanFormat", Arg: int(f)}); err != nil {
		return err
	}
	if f.IsAdvanced() && !s.Caps.Has(CapAdvancedFormats) {
		return Errorf(KindCapability, "SetScanFormat", "%s framing not supported", f)
	}
	s.format = f
	return nil
}

// CheckPacket closes a command sequence. It reports any violation latched
// since the previous check.
func (s *Sim) CheckPacket(nopBits int, loopback, abort bool) error {
	if err := s.record(SimOp{Name: "CheckPacket", Arg: nopBits}); err != nil {
		return err
	}
	if nopBits < 0 {
		return Errorf(KindArgument, "CheckPacket", "negative nop count %d", nopBits)
	}
	if err := s.requireEnabled("CheckPacket"); err != nil {
		return err
	}
	if s.dummyPending {
		s.dummyPending = false
		s.latch("check packet issued without a dummy scan packet")
	}
	err := s.fault
	s.fault = nil
	return err
}

func (s *Sim) Close() error {
	if err := s.record(SimOp{Name: "Close"}); err != nil {
		return err
	}
	s.enabled = false
	s.closed = true
	return nil
}

func (s *Sim) latch(format string, args ...any) {
	if s.fault == nil {
		s.fault = Errorf(KindProtocol, "CheckPacket", format, args...)
	}
}

// clock advances the simulated TAP by one TCK and returns the TDO bit
// presented during that cycle.
func (s *Sim) clock(tms bool) bool {
	tdo := true
	switch s.state {
	case tap.StateShiftDR:
		s.drShifts++
		tdo = s.drBit()
		s.drPos++
	case tap.StateRunTestIdle:
		if !tms && s.dummyPending {
			if s.delayCount != 0 {
				s.latch("dummy scan packet sent with delay count %d", s.delayCount)
			}
			s.dummyPending = false
		}
	}
	if s.StuckHigh {
		tdo = true
	}

	prev := s.state
	s.state = tap.NextState(prev, tms)

	switch s.state {
	case tap.StateTestLogicReset:
		s.level, s.zbs, s.parts = 0, 0, nil
	case tap.StateCaptureDR:
		s.drShifts = 0
		s.drPos = 0
		s.drVisible = s.level < 2 && s.format == s.target
	case tap.StateUpdateDR:
		s.endDRScan(s.drShifts)
	}
	return tdo
}

func (s *Sim) drBit() bool {
	if !s.drVisible {
		return true
	}
	word, bit := s.drPos/32, s.drPos%32
	if word >= len(s.chain) {
		return false
	}
	return s.chain[word]&(1<<uint(bit)) != 0
}

func (s *Sim) endDRScan(shifts int) {
	if s.level >= 2 {
		s.parts = append(s.parts, shifts)
		if len(s.parts) == 2 {
			s.execute(uint8(s.parts[0]), uint8(s.parts[1]))
			s.parts = nil
		}
		return
	}
	if shifts == 0 {
		s.zbs++
		return
	}
	if s.zbs > 0 {
		s.level = min(s.zbs, 7)
	}
	s.zbs = 0
}

func (s *Sim) execute(op, operand uint8) {
	s.commands = append(s.commands, SimCommand{Operator: op, Operand: operand})
	if s.format.IsAdvanced() && s.format == s.target {
		s.dummyPending = true
	}

	switch op {
	case simOpStoreMiscControl:
		switch {
		case operand == simOperandExitControlLevel:
			s.level = 0
			s.zbs = 0
		case operand == simOperandConditionalGroup:
			s.cgm = true
		case operand&0b11100 == 0b01000:
			if s.requireCGM("ready control") {
				s.targetRdy = int(operand&0b11) + 1
			}
		case operand&0b11100 == 0b01100:
			if s.requireCGM("delay control") {
				s.targetDly = int(operand & 0b11)
			}
		}
	case simOpStoreFormat:
		if !s.requireCGM("store format") {
			return
		}
		switch operand {
		case 16:
			s.target = MScan
		case 8:
			s.target = OScan0
		case 9:
			s.target = OScan1
		default:
			s.latch("unsupported format operand %d", operand)
		}
	}
}

func (s *Sim) requireCGM(what string) bool {
	if !s.cgm {
		s.latch("%s issued without conditional group membership", what)
		return false
	}
	return true
}

// String summarizes the simulator state for debug logs.
func (s *Sim) String() string {
	return fmt.Sprintf("sim(state=%s level=%d target=%s adapter=%s devices=%d)",
		s.state, s.level, s.target, s.format, len(s.chain))
}
