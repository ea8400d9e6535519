package jtag

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeInfo(t *testing.T) {
	tests := []struct {
		name    string
		resp    []byte
		want    string
		wantErr bool
	}{
		{name: "vendor", resp: []byte{0x00, 0x04, 'T', 'e', 's', 't'}, want: "Test"},
		{name: "nul terminated", resp: []byte{0x00, 0x05, 'R', 'P', 0, 0, 0}, want: "RP"},
		{name: "too short", resp: []byte{0x00}, wantErr: true},
		{name: "wrong command", resp: []byte{0x01, 0x04, 'T', 'e', 's', 't'}, wantErr: true},
		{name: "truncated", resp: []byte{0x00, 0x10, 'T', 'e', 's', 't'}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeInfo(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeInfo() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("decodeInfo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeInfoPacketSize(t *testing.T) {
	size, err := decodeInfoPacketSize([]byte{0x00, 0x02, 0x00, 0x02})
	if err != nil || size != 512 {
		t.Fatalf("decodeInfoPacketSize = %d, %v; want 512", size, err)
	}
	if _, err := decodeInfoPacketSize([]byte{0x00, 0x01, 0x40}); err == nil {
		t.Fatalf("expected error for short length field")
	}
}

func TestDecodeConnect(t *testing.T) {
	tests := []struct {
		name    string
		resp    []byte
		want    byte
		wantErr bool
	}{
		{name: "JTAG", resp: []byte{0x02, 0x02}, want: PortJTAG},
		{name: "SWD", resp: []byte{0x02, 0x01}, want: PortSWD},
		{name: "refused", resp: []byte{0x02, 0x00}, wantErr: true},
		{name: "too short", resp: []byte{0x02}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeConnect(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeConnect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("decodeConnect() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEncodeSWJClock(t *testing.T) {
	tests := []struct {
		hz   uint32
		want []byte
	}{
		{1_000_000, []byte{0x11, 0x40, 0x42, 0x0F, 0x00}},
		{10_000_000, []byte{0x11, 0x80, 0x96, 0x98, 0x00}},
	}
	for _, tt := range tests {
		if got := encodeSWJClock(tt.hz); !bytes.Equal(got, tt.want) {
			t.Errorf("encodeSWJClock(%d) = % X, want % X", tt.hz, got, tt.want)
		}
	}
}

func TestEncodeSWJPins(t *testing.T) {
	got := encodeSWJPins(PinTCK|PinTMS, PinTCK|PinTMS, 0x0102)
	want := []byte{0x10, 0x03, 0x03, 0x02, 0x01, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("encodeSWJPins = % X, want % X", got, want)
	}
	in, err := decodeSWJPins([]byte{0x10, 0x09})
	if err != nil || in != PinTCK|PinTDO {
		t.Fatalf("decodeSWJPins = %02X, %v", in, err)
	}
}

func TestNewJTAGSequence(t *testing.T) {
	tests := []struct {
		name     string
		tck      int
		tms      bool
		capture  bool
		wantInfo byte
	}{
		{"8 clocks TMS=0", 8, false, false, 0x08},
		{"8 clocks TMS=1 capture", 8, true, true, 0x08 | 0x40 | 0x80},
		{"64 clocks encodes as 0", 64, false, false, 0x00},
		{"5 clocks TMS=1", 5, true, false, 0x05 | 0x40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := NewJTAGSequence(tt.tck, tt.tms, tt.capture, nil)
			if seq.Info != tt.wantInfo {
				t.Errorf("Info = 0x%02X, want 0x%02X", seq.Info, tt.wantInfo)
			}
			if seq.TMS() != tt.tms || seq.CaptureTDO() != tt.capture || seq.TCKCount() != tt.tck {
				t.Errorf("accessors = %v/%v/%d", seq.TMS(), seq.CaptureTDO(), seq.TCKCount())
			}
			if len(seq.TDI) != (tt.tck+7)/8 {
				t.Errorf("TDI length = %d", len(seq.TDI))
			}
		})
	}
}

func TestEncodeJTAGSequence(t *testing.T) {
	seqs := []JTAGSequence{
		NewJTAGSequence(8, false, true, []byte{0xAA}),
		NewJTAGSequence(5, true, false, []byte{0x1F}),
	}
	want := []byte{0x14, 0x02, 0x88, 0xAA, 0x45, 0x1F}
	if got := encodeJTAGSequence(seqs); !bytes.Equal(got, want) {
		t.Fatalf("encodeJTAGSequence = % X, want % X", got, want)
	}
}

func TestDecodeJTAGSequence(t *testing.T) {
	seqs := []JTAGSequence{
		NewJTAGSequence(8, false, true, nil),
		NewJTAGSequence(5, true, false, nil),
		NewJTAGSequence(16, false, true, nil),
	}

	got, err := decodeJTAGSequence([]byte{0x14, 0x00, 0xFF, 0x34, 0x12}, seqs)
	if err != nil {
		t.Fatalf("decodeJTAGSequence: %v", err)
	}
	if len(got) != 2 || !bytes.Equal(got[0], []byte{0xFF}) || !bytes.Equal(got[1], []byte{0x34, 0x12}) {
		t.Fatalf("decodeJTAGSequence = % X", got)
	}

	if _, err := decodeJTAGSequence([]byte{0x14, 0x00, 0xFF}, seqs); err == nil {
		t.Fatalf("expected truncation error")
	}

	_, err = decodeJTAGSequence([]byte{0x14, 0xFF}, seqs)
	var dapErr *DAPError
	if !errors.As(err, &dapErr) || dapErr.ErrorCode() != StatusError {
		t.Fatalf("expected DAPError with status 0xFF, got %v", err)
	}
}

func TestBuildSequencesSplitsOnTMS(t *testing.T) {
	// 0x1F/6: five clocks TMS=1 then one TMS=0.
	seqs := buildSequences([]byte{0x1F}, nil, 6, false)
	if len(seqs) != 2 {
		t.Fatalf("got %d sequences, want 2", len(seqs))
	}
	if seqs[0].TCKCount() != 5 || !seqs[0].TMS() {
		t.Errorf("seq 0 = %d clocks TMS=%v", seqs[0].TCKCount(), seqs[0].TMS())
	}
	if seqs[1].TCKCount() != 1 || seqs[1].TMS() {
		t.Errorf("seq 1 = %d clocks TMS=%v", seqs[1].TCKCount(), seqs[1].TMS())
	}
}

func TestBuildSequencesChunksLongRuns(t *testing.T) {
	seqs := buildSequences(nil, nil, 100, true)
	if len(seqs) != 2 || seqs[0].TCKCount() != 64 || seqs[1].TCKCount() != 36 {
		t.Fatalf("unexpected chunking: %d sequences", len(seqs))
	}
	for _, seq := range seqs {
		if seq.TMS() || !seq.CaptureTDO() {
			t.Fatalf("TDO read must hold TMS low and capture")
		}
	}
}

func TestBuildSequencesCarriesMisalignedTDI(t *testing.T) {
	// TMS: 3 clocks high, 10 low. TDI bits 3..12 of 0xF8,0x1F are all ones.
	seqs := buildSequences([]byte{0x07, 0x00}, []byte{0xF8, 0x1F}, 13, false)
	if len(seqs) != 2 {
		t.Fatalf("got %d sequences", len(seqs))
	}
	if !bytes.Equal(seqs[0].TDI, []byte{0x00}) {
		t.Errorf("seq 0 TDI = % X", seqs[0].TDI)
	}
	if !bytes.Equal(seqs[1].TDI, []byte{0xFF, 0x03}) {
		t.Errorf("seq 1 TDI = % X, want FF 03", seqs[1].TDI)
	}
}

func TestBatchSequencesRespectsPacketSize(t *testing.T) {
	var seqs []JTAGSequence
	for i := 0; i < 10; i++ {
		seqs = append(seqs, NewJTAGSequence(64, false, true, nil))
	}
	// Each sequence needs 9 request and 8 response bytes.
	batches := batchSequences(seqs, 64)
	total := 0
	for _, b := range batches {
		if len(encodeJTAGSequence(b)) > 64 {
			t.Fatalf("batch of %d exceeds packet", len(b))
		}
		total += len(b)
	}
	if total != 10 || len(batches) != 2 {
		t.Fatalf("got %d batches with %d sequences", len(batches), total)
	}
}
