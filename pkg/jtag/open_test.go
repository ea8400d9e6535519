package jtag

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseDeviceSpec(t *testing.T) {
	tests := []struct {
		in      string
		want    DeviceSpec
		wantErr bool
	}{
		{in: "sim", want: DeviceSpec{Kind: DeviceSim, Chain: DefaultSimChain}},
		{in: "SIM:4ba00477,0x0362d093", want: DeviceSpec{Kind: DeviceSim, Chain: []uint32{0x4BA00477, 0x0362D093}}},
		{in: "sim:", want: DeviceSpec{Kind: DeviceSim}},
		{in: "cmsisdap", want: DeviceSpec{Kind: DeviceCMSISDAP, VendorID: 0x2E8A, ProductID: 0x000C}},
		{in: "cmsisdap:0d28:0204", want: DeviceSpec{Kind: DeviceCMSISDAP, VendorID: 0x0D28, ProductID: 0x0204}},
		{in: "cmsisdap:0d28", wantErr: true},
		{in: "cmsisdap:zz:0204", wantErr: true},
		{in: "sim:nothex", wantErr: true},
		{in: "JtagHs2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDeviceSpec(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDeviceSpec(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !IsKind(err, KindArgument) {
					t.Fatalf("error kind = %v", KindOf(err))
				}
				return
			}
			if got.Kind != tt.want.Kind || got.VendorID != tt.want.VendorID || got.ProductID != tt.want.ProductID {
				t.Fatalf("ParseDeviceSpec(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if fmt.Sprint(got.Chain) != fmt.Sprint(tt.want.Chain) {
				t.Fatalf("chain = %08X, want %08X", got.Chain, tt.want.Chain)
			}
		})
	}
}

func TestDeviceSpecString(t *testing.T) {
	spec := DeviceSpec{Kind: DeviceSim, Chain: []uint32{0x4BA00477}}
	if spec.String() != "sim:4ba00477" {
		t.Fatalf("String() = %q", spec.String())
	}
	spec = DeviceSpec{Kind: DeviceCMSISDAP, VendorID: 0x2E8A, ProductID: 0x000C}
	if spec.String() != "cmsisdap:2e8a:000c" {
		t.Fatalf("String() = %q", spec.String())
	}
}

func TestOpenSim(t *testing.T) {
	tr, err := Open("sim:12345678")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := tr.(*Sim); !ok {
		t.Fatalf("Open returned %T", tr)
	}
}

func TestClassifyVIDPID(t *testing.T) {
	info, ok := classifyVIDPID(0x0d28, 0x0204)
	if !ok || info.Kind != InterfaceKindCMSISDAP || info.Spec != "cmsisdap:0d28:0204" {
		t.Fatalf("classifyVIDPID = %+v, %v", info, ok)
	}
	if _, ok := classifyVIDPID(0x1234, 0x5678); ok {
		t.Fatalf("unknown device classified")
	}
	if (InterfaceInfo{Kind: InterfaceKindSim, VendorID: 1, ProductID: 2}).Label() != "simulator (0001:0002)" {
		t.Fatalf("Label fallback changed")
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := &DAPError{Command: CmdSWJClock, Status: StatusError}
	err := Wrap(KindDevice, "SetClockFrequency", cause)

	var je *Error
	if !errors.As(err, &je) || je.Code != StatusError || je.Kind != KindDevice {
		t.Fatalf("Wrap = %#v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost")
	}
	if got := err.Error(); got != "SetClockFrequency: cmsis-dap: command 0x11 failed with status 0xFF, erc = 255" {
		t.Fatalf("Error() = %q", got)
	}

	outer := Wrap(KindProtocol, "configure", err)
	if KindOf(outer) != KindDevice {
		t.Fatalf("rewrapping must keep the inner kind, got %s", KindOf(outer))
	}
	if Wrap(KindDevice, "noop", nil) != nil {
		t.Fatalf("Wrap(nil) != nil")
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Fatalf("plain error has a kind")
	}
}

func TestCapabilitiesString(t *testing.T) {
	caps := CapResetEscape | CapDelayCount
	if caps.String() != "escape|delay" {
		t.Fatalf("String() = %q", caps.String())
	}
	if Capabilities(0).String() != "none" {
		t.Fatalf("empty set = %q", Capabilities(0).String())
	}
	if !caps.Has(CapResetEscape) || caps.Has(CapReadyCount|CapResetEscape) {
		t.Fatalf("Has misreports")
	}
}

func TestScanFormat(t *testing.T) {
	if OScan1.String() != "OScan1" || SScan3.String() != "SScan3" {
		t.Fatalf("names: %s %s", OScan1, SScan3)
	}
	if JScan3.IsAdvanced() || !MScan.IsAdvanced() || ScanFormat(99).IsAdvanced() {
		t.Fatalf("IsAdvanced misclassifies")
	}
}
