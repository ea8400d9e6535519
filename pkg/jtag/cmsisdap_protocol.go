package jtag

import (
	"encoding/binary"
	"fmt"
)

// CMSIS-DAP command IDs used by the two-wire backend.
const (
	CmdInfo         = 0x00
	CmdConnect      = 0x02
	CmdDisconnect   = 0x03
	CmdSWJPins      = 0x10
	CmdSWJClock     = 0x11
	CmdJTAGSequence = 0x14
)

// DAP_Info IDs
const (
	InfoVendorID    = 0x01
	InfoProductID   = 0x02
	InfoSerialNum   = 0x03
	InfoFirmwareVer = 0x04
	InfoPacketSize  = 0xFF
)

// Connection ports
const (
	PortDefault = 0
	PortSWD     = 1
	PortJTAG    = 2
)

// Status codes
const (
	StatusOK    = 0x00
	StatusError = 0xFF
)

// DAP_SWJ_Pins bit positions. On a two-wire link TCK drives TCKC and TMS
// drives TMSC.
const (
	PinTCK    = 1 << 0
	PinTMS    = 1 << 1
	PinTDI    = 1 << 2
	PinTDO    = 1 << 3
	PinNTRST  = 1 << 5
	PinNRESET = 1 << 7
)

// JTAG sequence info flags
const (
	JTAGSeqTCKMask = 0x3F // bits [5:0] = TCK count, 0 means 64
	JTAGSeqTMS     = 0x40
	JTAGSeqTDO     = 0x80

	maxSequenceBits = 64
)

// DAPError is a non-OK status returned by the probe.
type DAPError struct {
	Command byte
	Status  byte
}

func (e *DAPError) Error() string {
	return fmt.Sprintf("cmsis-dap: command 0x%02X failed with status 0x%02X", e.Command, e.Status)
}

// ErrorCode exposes the probe status to jtag.Wrap.
func (e *DAPError) ErrorCode() int {
	return int(e.Status)
}

func checkResponse(cmd byte, resp []byte, minLen int) error {
	if len(resp) < minLen {
		return fmt.Errorf("cmsis-dap: response to 0x%02X too short (%d bytes)", cmd, len(resp))
	}
	if resp[0] != cmd {
		return fmt.Errorf("cmsis-dap: response ID 0x%02X, want 0x%02X", resp[0], cmd)
	}
	return nil
}

func checkStatus(cmd byte, resp []byte) error {
	if err := checkResponse(cmd, resp, 2); err != nil {
		return err
	}
	if resp[1] != StatusOK {
		return &DAPError{Command: cmd, Status: resp[1]}
	}
	return nil
}

func encodeInfo(id byte) []byte {
	return []byte{CmdInfo, id}
}

func decodeInfo(resp []byte) (string, error) {
	if err := checkResponse(CmdInfo, resp, 2); err != nil {
		return "", err
	}
	n := int(resp[1])
	if len(resp) < 2+n {
		return "", fmt.Errorf("cmsis-dap: info string truncated")
	}
	s := resp[2 : 2+n]
	// Strings are NUL terminated inside the declared length.
	for i, c := range s {
		if c == 0 {
			s = s[:i]
			break
		}
	}
	return string(s), nil
}

func decodeInfoPacketSize(resp []byte) (int, error) {
	if err := checkResponse(CmdInfo, resp, 4); err != nil {
		return 0, err
	}
	if resp[1] != 2 {
		return 0, fmt.Errorf("cmsis-dap: packet size info length %d", resp[1])
	}
	return int(binary.LittleEndian.Uint16(resp[2:4])), nil
}

func encodeConnect(port byte) []byte {
	return []byte{CmdConnect, port}
}

func decodeConnect(resp []byte) (byte, error) {
	if err := checkResponse(CmdConnect, resp, 2); err != nil {
		return 0, err
	}
	if resp[1] == PortDefault {
		return 0, &DAPError{Command: CmdConnect, Status: resp[1]}
	}
	return resp[1], nil
}

func encodeDisconnect() []byte {
	return []byte{CmdDisconnect}
}

func encodeSWJClock(hz uint32) []byte {
	cmd := make([]byte, 5)
	cmd[0] = CmdSWJClock
	binary.LittleEndian.PutUint32(cmd[1:], hz)
	return cmd
}

// encodeSWJPins drives the pins selected by sel to the levels in out and
// waits up to waitUS microseconds for them to settle.
func encodeSWJPins(out, sel byte, waitUS uint32) []byte {
	cmd := make([]byte, 7)
	cmd[0] = CmdSWJPins
	cmd[1] = out
	cmd[2] = sel
	binary.LittleEndian.PutUint32(cmd[3:], waitUS)
	return cmd
}

func decodeSWJPins(resp []byte) (byte, error) {
	if err := checkResponse(CmdSWJPins, resp, 2); err != nil {
		return 0, err
	}
	return resp[1], nil
}

// JTAGSequence is one DAP_JTAG_Sequence entry: up to 64 clocks at a fixed
// TMS level.
type JTAGSequence struct {
	Info byte
	TDI  []byte
}

// NewJTAGSequence builds a sequence of tck clocks. tck must be in [1,64].
func NewJTAGSequence(tck int, tms, captureTDO bool, tdi []byte) JTAGSequence {
	info := byte(tck & JTAGSeqTCKMask)
	if tms {
		info |= JTAGSeqTMS
	}
	if captureTDO {
		info |= JTAGSeqTDO
	}
	data := make([]byte, (tck+7)/8)
	copy(data, tdi)
	return JTAGSequence{Info: info, TDI: data}
}

// TCKCount returns the number of clocks in the sequence.
func (seq JTAGSequence) TCKCount() int {
	if n := int(seq.Info & JTAGSeqTCKMask); n != 0 {
		return n
	}
	return maxSequenceBits
}

func (seq JTAGSequence) TMS() bool {
	return seq.Info&JTAGSeqTMS != 0
}

func (seq JTAGSequence) CaptureTDO() bool {
	return seq.Info&JTAGSeqTDO != 0
}

// requestSize is the encoded length of the sequence.
func (seq JTAGSequence) requestSize() int {
	return 1 + len(seq.TDI)
}

// responseSize is the number of TDO bytes the probe returns for it.
func (seq JTAGSequence) responseSize() int {
	if !seq.CaptureTDO() {
		return 0
	}
	return len(seq.TDI)
}

func encodeJTAGSequence(seqs []JTAGSequence) []byte {
	size := 2
	for _, seq := range seqs {
		size += seq.requestSize()
	}
	cmd := make([]byte, 0, size)
	cmd = append(cmd, CmdJTAGSequence, byte(len(seqs)))
	for _, seq := range seqs {
		cmd = append(cmd, seq.Info)
		cmd = append(cmd, seq.TDI...)
	}
	return cmd
}

// decodeJTAGSequence returns the captured TDO bytes of each capturing
// sequence, in order.
func decodeJTAGSequence(resp []byte, seqs []JTAGSequence) ([][]byte, error) {
	if err := checkStatus(CmdJTAGSequence, resp); err != nil {
		return nil, err
	}
	var out [][]byte
	offset := 2
	for _, seq := range seqs {
		n := seq.responseSize()
		if n == 0 {
			continue
		}
		if offset+n > len(resp) {
			return nil, fmt.Errorf("cmsis-dap: TDO data truncated")
		}
		out = append(out, append([]byte(nil), resp[offset:offset+n]...))
		offset += n
	}
	return out, nil
}
