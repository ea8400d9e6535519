package tap7

import "github.com/OpenTraceLab/OpenTraceTAP7/pkg/jtag"

// Operators
const (
	OpStoreMiscControl uint8 = 0 // STMC
	OpStoreFormat      uint8 = 3 // STFMT
)

// STMC operands
const (
	OperandExitControlLevel       uint8 = 1
	OperandConditionalGroupMember uint8 = 7

	readyControlBase uint8 = 0b01000
	delayControlBase uint8 = 0b01100
)

// Largest expected ready bit count an ADTAPC can be told to wait for.
const MaxReadyCount = 4

// ReadyControlOperand encodes an expected ready bit count of 1..4.
func ReadyControlOperand(count int) (uint8, error) {
	if count < 1 || count > MaxReadyCount {
		return 0, jtag.Errorf(jtag.KindArgument, "ready control", "ready count %d outside 1..%d", count, MaxReadyCount)
	}
	return readyControlBase | uint8(count-1), nil
}

// DelayControlOperand encodes a delay count. One and two are fixed delays;
// anything larger selects a variable delay.
func DelayControlOperand(count int) (uint8, error) {
	switch {
	case count < 1:
		return 0, jtag.Errorf(jtag.KindArgument, "delay control", "delay count %d must be positive", count)
	case count <= 2:
		return delayControlBase | uint8(count), nil
	default:
		return delayControlBase | 3, nil
	}
}

// FormatOperand returns the STFMT operand of the scan formats this engine
// can select.
func FormatOperand(f jtag.ScanFormat) (uint8, error) {
	switch f {
	case jtag.MScan:
		return 16, nil
	case jtag.OScan0:
		return 8, nil
	case jtag.OScan1:
		return 9, nil
	}
	return 0, jtag.Errorf(jtag.KindProtocol, "store format", "no operand for scan format %s", f)
}

// EnterControlLevel selects a control level with a zero-bit scan sequence
// and locks it.
func (e *Engine) EnterControlLevel(level uint8) error {
	if err := e.SendZeroBitScan(level); err != nil {
		return err
	}
	return e.LockZeroBitScanCount()
}

// SetConditionalGroupMember makes the ADTAPC a conditional group member.
func (e *Engine) SetConditionalGroupMember() error {
	return e.SendTwoPartCommand(OpStoreMiscControl, OperandConditionalGroupMember)
}

// ExitControlLevel returns the ADTAPC to control level 0.
func (e *Engine) ExitControlLevel() error {
	return e.SendTwoPartCommand(OpStoreMiscControl, OperandExitControlLevel)
}

// SetReadyControl stores the expected ready bit count in the ADTAPC.
func (e *Engine) SetReadyControl(count int) error {
	operand, err := ReadyControlOperand(count)
	if err != nil {
		return err
	}
	return e.SendTwoPartCommand(OpStoreMiscControl, operand)
}

// SetDelayControl stores the delay control code for count in the ADTAPC.
func (e *Engine) SetDelayControl(count int) error {
	operand, err := DelayControlOperand(count)
	if err != nil {
		return err
	}
	return e.SendTwoPartCommand(OpStoreMiscControl, operand)
}

// StoreFormat selects the ADTAPC scan format.
func (e *Engine) StoreFormat(f jtag.ScanFormat) error {
	operand, err := FormatOperand(f)
	if err != nil {
		return err
	}
	return e.SendTwoPartCommand(OpStoreFormat, operand)
}
