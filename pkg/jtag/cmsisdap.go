package jtag

import (
	"fmt"
	"sync"
)

const (
	cmsisDAPMinFrequency = 1_000
	cmsisDAPMaxFrequency = 10_000_000

	// escapeEdges is the number of TMSC edges, with TCKC held high, that an
	// ADTAPC decodes as a reset escape.
	escapeEdges = 8
	// checkPacketClocks is the length of a standard-framing check packet.
	checkPacketClocks = 4
)

var (
	_ Transport   = (*CMSISDAPAdapter)(nil)
	_ PairShifter = (*CMSISDAPAdapter)(nil)
)

// dapLink is the command/response channel to a probe.
type dapLink interface {
	WriteRead(cmd []byte) ([]byte, error)
	PacketSize() int
	Close() error
}

// DAPInfo holds the identification strings a probe reports.
type DAPInfo struct {
	Vendor   string
	Product  string
	Serial   string
	Firmware string
}

// CMSISDAPAdapter drives a two-wire link through a CMSIS-DAP probe. The
// probe frames standard JScan packets only, so ready count, delay count and
// the advanced formats are reported as unsupported.
type CMSISDAPAdapter struct {
	link dapLink
	info DAPInfo

	speedHz   uint32
	connected bool
	format    ScanFormat
	closed    bool

	mu sync.Mutex
}

// OpenCMSISDAP opens the probe with the given USB identifiers.
func OpenCMSISDAP(vid, pid uint16) (*CMSISDAPAdapter, error) {
	link, err := NewUSBLink(vid, pid)
	if err != nil {
		return nil, &Error{Kind: KindDevice, Op: "open cmsis-dap", Err: err}
	}
	a, err := newCMSISDAPAdapter(link)
	if err != nil {
		link.Close()
		return nil, err
	}
	return a, nil
}

func newCMSISDAPAdapter(link dapLink) (*CMSISDAPAdapter, error) {
	a := &CMSISDAPAdapter{link: link, speedHz: 1_000_000, format: JScan0}
	if err := a.queryInfo(); err != nil {
		return nil, Wrap(KindDevice, "query probe info", err)
	}
	return a, nil
}

func (a *CMSISDAPAdapter) queryInfo() error {
	fields := []struct {
		id  byte
		dst *string
	}{
		{InfoVendorID, &a.info.Vendor},
		{InfoProductID, &a.info.Product},
		{InfoSerialNum, &a.info.Serial},
		{InfoFirmwareVer, &a.info.Firmware},
	}
	for i, f := range fields {
		resp, err := a.link.WriteRead(encodeInfo(f.id))
		if err != nil {
			return err
		}
		s, err := decodeInfo(resp)
		if err != nil {
			// Only the vendor query is mandatory; the rest are optional.
			if i == 0 {
				return err
			}
			continue
		}
		*f.dst = s
	}
	return nil
}

// Info returns the identification strings read at open.
func (a *CMSISDAPAdapter) Info() DAPInfo {
	return a.info
}

func (a *CMSISDAPAdapter) transact(op string, cmd []byte) ([]byte, error) {
	if a.closed {
		return nil, &Error{Kind: KindDevice, Op: op, Err: ErrClosed}
	}
	resp, err := a.link.WriteRead(cmd)
	if err != nil {
		return nil, Wrap(KindDevice, op, err)
	}
	return resp, nil
}

func (a *CMSISDAPAdapter) Capabilities() (Capabilities, error) {
	return CapResetEscape, nil
}

// Enable connects the probe's JTAG port, which drives TCKC and TMSC.
func (a *CMSISDAPAdapter) Enable() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	resp, err := a.transact("Enable", encodeConnect(PortJTAG))
	if err != nil {
		return err
	}
	port, err := decodeConnect(resp)
	if err != nil {
		return Wrap(KindDevice, "Enable", err)
	}
	if port != PortJTAG {
		return Errorf(KindDevice, "Enable", "probe connected port %d, want JTAG", port)
	}
	a.connected = true
	return nil
}

func (a *CMSISDAPAdapter) Disable() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.connected {
		return nil
	}
	resp, err := a.transact("Disable", encodeDisconnect())
	if err != nil {
		return err
	}
	a.connected = false
	return Wrap(KindDevice, "Disable", checkStatus(CmdDisconnect, resp))
}

func (a *CMSISDAPAdapter) SetClockFrequency(hz uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if hz == 0 {
		return 0, Errorf(KindArgument, "SetClockFrequency", "frequency must be positive")
	}
	hz = max(cmsisDAPMinFrequency, min(hz, cmsisDAPMaxFrequency))
	resp, err := a.transact("SetClockFrequency", encodeSWJClock(hz))
	if err != nil {
		return 0, err
	}
	if err := checkStatus(CmdSWJClock, resp); err != nil {
		return 0, Wrap(KindDevice, "SetClockFrequency", err)
	}
	a.speedHz = hz
	return hz, nil
}

// ResetEscape holds TCKC high and toggles TMSC escapeEdges times.
func (a *CMSISDAPAdapter) ResetEscape() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	const sel = PinTCK | PinTMS
	steps := []byte{PinTCK}
	tms := byte(0)
	for i := 0; i < escapeEdges; i++ {
		tms ^= PinTMS
		steps = append(steps, PinTCK|tms)
	}
	steps = append(steps, tms)

	for _, out := range steps {
		resp, err := a.transact("ResetEscape", encodeSWJPins(out, sel, 0))
		if err != nil {
			return err
		}
		if _, err := decodeSWJPins(resp); err != nil {
			return Wrap(KindDevice, "ResetEscape", err)
		}
	}
	return nil
}

func (a *CMSISDAPAdapter) ShiftTMS(tms []byte, bits int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := ValidateShiftBuffer(tms, bits); err != nil {
		return &Error{Kind: KindArgument, Op: "ShiftTMS", Err: err}
	}
	_, err := a.run("ShiftTMS", buildSequences(tms, nil, bits, false), bits)
	return err
}

// ShiftTMSTDI splits the pair stream into per-clock TMS and TDI and shifts
// it as JTAG sequences.
func (a *CMSISDAPAdapter) ShiftTMSTDI(pairs []byte, bits int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := ValidatePairBuffer(pairs, bits); err != nil {
		return &Error{Kind: KindArgument, Op: "ShiftTMSTDI", Err: err}
	}
	tms := make([]byte, (bits+7)/8)
	tdi := make([]byte, (bits+7)/8)
	for i := 0; i < bits; i++ {
		if bitAt(pairs, 2*i) {
			tdi[i/8] |= 1 << (uint(i) % 8)
		}
		if bitAt(pairs, 2*i+1) {
			tms[i/8] |= 1 << (uint(i) % 8)
		}
	}
	_, err := a.run("ShiftTMSTDI", buildSequences(tms, tdi, bits, false), bits)
	return err
}

func (a *CMSISDAPAdapter) ShiftTDO(bits int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if bits <= 0 {
		return nil, Errorf(KindArgument, "ShiftTDO", "bits must be positive, got %d", bits)
	}
	return a.run("ShiftTDO", buildSequences(nil, nil, bits, true), bits)
}

func (a *CMSISDAPAdapter) SetReadyCount(count int) (int, error) {
	return 0, &Error{Kind: KindCapability, Op: "SetReadyCount", Err: ErrNotImplemented}
}

// DelayCount reports zero: the probe never inserts delay clocks.
func (a *CMSISDAPAdapter) DelayCount() (int, error) {
	return 0, nil
}

func (a *CMSISDAPAdapter) SetDelayCount(count int) (int, error) {
	return 0, &Error{Kind: KindCapability, Op: "SetDelayCount", Err: ErrNotImplemented}
}

func (a *CMSISDAPAdapter) SetScanFormat(f ScanFormat) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if f.IsAdvanced() {
		return &Error{Kind: KindCapability, Op: "SetScanFormat", Err: fmt.Errorf("%s framing: %w", f, ErrNotImplemented)}
	}
	a.format = f
	return nil
}

// CheckPacket clocks a standard-framing check packet followed by nopBits
// idle clocks.
func (a *CMSISDAPAdapter) CheckPacket(nopBits int, loopback, abort bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if nopBits < 0 {
		return Errorf(KindArgument, "CheckPacket", "negative nop count %d", nopBits)
	}
	if loopback || abort {
		return &Error{Kind: KindCapability, Op: "CheckPacket", Err: ErrNotImplemented}
	}
	bits := checkPacketClocks + nopBits
	_, err := a.run("CheckPacket", buildSequences(nil, nil, bits, false), bits)
	return err
}

func (a *CMSISDAPAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	if a.connected {
		a.link.WriteRead(encodeDisconnect())
		a.connected = false
	}
	a.closed = true
	return a.link.Close()
}

// run sends seqs in as few DAP_JTAG_Sequence packets as the probe's packet
// size allows and returns the captured TDO packed LSB-first.
func (a *CMSISDAPAdapter) run(op string, seqs []JTAGSequence, bits int) ([]byte, error) {
	tdo := make([]byte, (bits+7)/8)
	pos := 0
	for _, batch := range batchSequences(seqs, a.link.PacketSize()) {
		resp, err := a.transact(op, encodeJTAGSequence(batch))
		if err != nil {
			return nil, err
		}
		captured, err := decodeJTAGSequence(resp, batch)
		if err != nil {
			return nil, Wrap(KindDevice, op, err)
		}
		i := 0
		for _, seq := range batch {
			n := seq.TCKCount()
			if seq.CaptureTDO() {
				for b := 0; b < n; b++ {
					if bitAt(captured[i], b) {
						tdo[(pos+b)/8] |= 1 << (uint(pos+b) % 8)
					}
				}
				i++
			}
			pos += n
		}
	}
	return tdo, nil
}

// batchSequences groups seqs so that every request and its response fit in
// one packet.
func batchSequences(seqs []JTAGSequence, packetSize int) [][]JTAGSequence {
	var batches [][]JTAGSequence
	var cur []JTAGSequence
	req, resp := 2, 2
	for _, seq := range seqs {
		if len(cur) > 0 && (req+seq.requestSize() > packetSize || resp+seq.responseSize() > packetSize || len(cur) == 255) {
			batches = append(batches, cur)
			cur, req, resp = nil, 2, 2
		}
		cur = append(cur, seq)
		req += seq.requestSize()
		resp += seq.responseSize()
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

// buildSequences splits a shift into runs of constant TMS of at most 64
// clocks each. A nil tms holds TMS low; a nil tdi shifts zeros.
func buildSequences(tms, tdi []byte, bits int, capture bool) []JTAGSequence {
	var seqs []JTAGSequence
	for pos := 0; pos < bits; {
		level := tms != nil && bitAt(tms, pos)
		n := 0
		for pos+n < bits && n < maxSequenceBits {
			if (tms != nil && bitAt(tms, pos+n)) != level {
				break
			}
			n++
		}
		seqs = append(seqs, NewJTAGSequence(n, level, capture, extractBits(tdi, pos, n)))
		pos += n
	}
	return seqs
}

// extractBits copies n bits of src starting at bit offset into a new
// LSB-first buffer.
func extractBits(src []byte, offset, n int) []byte {
	out := make([]byte, (n+7)/8)
	if src == nil {
		return out
	}
	for i := 0; i < n; i++ {
		if bitAt(src, offset+i) {
			out[i/8] |= 1 << (uint(i) % 8)
		}
	}
	return out
}
