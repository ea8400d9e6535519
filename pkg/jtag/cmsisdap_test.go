package jtag

import (
	"bytes"
	"errors"
	"testing"
)

// fakeLink answers CMSIS-DAP commands the way a healthy probe does and
// records every request.
type fakeLink struct {
	packetSize int
	requests   [][]byte
	tdo        byte
	failCmd    int
	closed     bool
}

func newFakeLink() *fakeLink {
	return &fakeLink{packetSize: 64, failCmd: -1}
}

func (l *fakeLink) WriteRead(cmd []byte) ([]byte, error) {
	l.requests = append(l.requests, append([]byte(nil), cmd...))
	if int(cmd[0]) == l.failCmd {
		return nil, errors.New("usb: pipe error")
	}
	switch cmd[0] {
	case CmdInfo:
		s := "Fake"
		return append([]byte{CmdInfo, byte(len(s))}, s...), nil
	case CmdConnect:
		return []byte{CmdConnect, cmd[1]}, nil
	case CmdSWJPins:
		return []byte{CmdSWJPins, cmd[1]}, nil
	case CmdJTAGSequence:
		resp := []byte{CmdJTAGSequence, StatusOK}
		off := 2
		for i := 0; i < int(cmd[1]); i++ {
			seq := JTAGSequence{Info: cmd[off]}
			n := (seq.TCKCount() + 7) / 8
			if seq.CaptureTDO() {
				for j := 0; j < n; j++ {
					resp = append(resp, l.tdo)
				}
			}
			off += 1 + n
		}
		return resp, nil
	default:
		return []byte{cmd[0], StatusOK}, nil
	}
}

func (l *fakeLink) PacketSize() int { return l.packetSize }

func (l *fakeLink) Close() error {
	l.closed = true
	return nil
}

func (l *fakeLink) commands() []byte {
	out := make([]byte, len(l.requests))
	for i, r := range l.requests {
		out[i] = r[0]
	}
	return out
}

func newTestCMSISDAP(t *testing.T) (*CMSISDAPAdapter, *fakeLink) {
	t.Helper()
	link := newFakeLink()
	a, err := newCMSISDAPAdapter(link)
	if err != nil {
		t.Fatalf("newCMSISDAPAdapter: %v", err)
	}
	if a.Info().Vendor != "Fake" {
		t.Fatalf("vendor = %q", a.Info().Vendor)
	}
	link.requests = nil
	return a, link
}

func TestCMSISDAPCapabilities(t *testing.T) {
	a, _ := newTestCMSISDAP(t)
	caps, err := a.Capabilities()
	if err != nil || caps != CapResetEscape {
		t.Fatalf("Capabilities = %s, %v", caps, err)
	}
	if _, err := a.SetReadyCount(2); !IsKind(err, KindCapability) || !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("SetReadyCount error = %v", err)
	}
	if _, err := a.SetDelayCount(1); !IsKind(err, KindCapability) {
		t.Fatalf("SetDelayCount error = %v", err)
	}
	if err := a.SetScanFormat(OScan1); !IsKind(err, KindCapability) {
		t.Fatalf("SetScanFormat(OScan1) error = %v", err)
	}
	if err := a.SetScanFormat(JScan3); err != nil {
		t.Fatalf("SetScanFormat(JScan3) error = %v", err)
	}
}

func TestCMSISDAPEnableDisable(t *testing.T) {
	a, link := newTestCMSISDAP(t)
	if err := a.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := a.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !bytes.Equal(link.commands(), []byte{CmdConnect, CmdDisconnect}) {
		t.Fatalf("commands = % X", link.commands())
	}
	if !link.closed {
		t.Fatalf("link not closed")
	}
	if err := a.Enable(); !errors.Is(err, ErrClosed) {
		t.Fatalf("Enable after Close = %v", err)
	}
}

func TestCMSISDAPClockClamp(t *testing.T) {
	a, link := newTestCMSISDAP(t)
	hz, err := a.SetClockFrequency(50_000_000)
	if err != nil || hz != cmsisDAPMaxFrequency {
		t.Fatalf("SetClockFrequency = %d, %v", hz, err)
	}
	if !bytes.Equal(link.requests[0], encodeSWJClock(cmsisDAPMaxFrequency)) {
		t.Fatalf("request = % X", link.requests[0])
	}
	if _, err := a.SetClockFrequency(0); !IsKind(err, KindArgument) {
		t.Fatalf("zero frequency error = %v", err)
	}
}

func TestCMSISDAPResetEscapeTogglesTMSWithTCKHigh(t *testing.T) {
	a, link := newTestCMSISDAP(t)
	if err := a.ResetEscape(); err != nil {
		t.Fatalf("ResetEscape: %v", err)
	}
	edges := 0
	prevTMS := byte(0)
	for i, req := range link.requests {
		if req[0] != CmdSWJPins {
			t.Fatalf("request %d is 0x%02X", i, req[0])
		}
		out := req[1]
		tms := out & PinTMS
		if tms != prevTMS {
			if out&PinTCK == 0 {
				t.Fatalf("TMS edge %d with TCK low", edges)
			}
			edges++
		}
		prevTMS = tms
	}
	if edges != escapeEdges {
		t.Fatalf("got %d TMS edges, want %d", edges, escapeEdges)
	}
	if last := link.requests[len(link.requests)-1][1]; last&PinTCK != 0 {
		t.Fatalf("escape must end with TCK low")
	}
}

func TestCMSISDAPShiftTDO(t *testing.T) {
	a, link := newTestCMSISDAP(t)
	link.tdo = 0xA5
	tdo, err := a.ShiftTDO(32)
	if err != nil {
		t.Fatalf("ShiftTDO: %v", err)
	}
	if !bytes.Equal(tdo, []byte{0xA5, 0xA5, 0xA5, 0xA5}) {
		t.Fatalf("tdo = % X", tdo)
	}
	if !bytes.Equal(link.requests[0], []byte{CmdJTAGSequence, 1, 0x80 | 32, 0, 0, 0, 0}) {
		t.Fatalf("request = % X", link.requests[0])
	}
}

func TestCMSISDAPShiftTMSTDIDeinterleaves(t *testing.T) {
	a, link := newTestCMSISDAP(t)
	// TLR->RTI in pair encoding.
	if err := a.ShiftTMSTDI([]byte{0xAA, 0x02}, 6); err != nil {
		t.Fatalf("ShiftTMSTDI: %v", err)
	}
	want := []byte{CmdJTAGSequence, 2, 0x40 | 5, 0x00, 0x01, 0x00}
	if !bytes.Equal(link.requests[0], want) {
		t.Fatalf("request = % X, want % X", link.requests[0], want)
	}
}

func TestCMSISDAPCheckPacket(t *testing.T) {
	a, link := newTestCMSISDAP(t)
	if err := a.CheckPacket(2, false, false); err != nil {
		t.Fatalf("CheckPacket: %v", err)
	}
	if !bytes.Equal(link.requests[0], []byte{CmdJTAGSequence, 1, 6, 0}) {
		t.Fatalf("request = % X", link.requests[0])
	}
	if err := a.CheckPacket(0, true, false); !IsKind(err, KindCapability) {
		t.Fatalf("loopback error = %v", err)
	}
}

func TestCMSISDAPLinkFailureIsDeviceError(t *testing.T) {
	a, link := newTestCMSISDAP(t)
	link.failCmd = CmdJTAGSequence
	err := a.ShiftTMS([]byte{0x1F}, 5)
	if !IsKind(err, KindDevice) {
		t.Fatalf("error kind = %v (%v)", KindOf(err), err)
	}
}
