package jtag

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceKind selects the backend a device spec opens.
type DeviceKind string

const (
	DeviceSim      DeviceKind = "sim"
	DeviceCMSISDAP DeviceKind = "cmsisdap"
)

// DefaultSimChain is the chain behind the plain "sim" device: an ARM debug
// port, a Xilinx FPGA and a second ARM TAP.
var DefaultSimChain = []uint32{0x4BA00477, 0x0362D093, 0x4BA00477}

// DeviceSpec is a parsed device name.
//
//	sim                  simulator with DefaultSimChain
//	sim:<id>[,<id>...]   simulator with the given hex IDCODEs
//	cmsisdap             first Raspberry Pi CMSIS-DAP probe
//	cmsisdap:<vid>:<pid> CMSIS-DAP probe by hex USB identifiers
type DeviceSpec struct {
	Kind      DeviceKind
	Chain     []uint32
	VendorID  uint16
	ProductID uint16
}

// ParseDeviceSpec parses a device name.
func ParseDeviceSpec(s string) (DeviceSpec, error) {
	kind, rest, hasArgs := strings.Cut(s, ":")
	switch DeviceKind(strings.ToLower(kind)) {
	case DeviceSim:
		spec := DeviceSpec{Kind: DeviceSim, Chain: append([]uint32(nil), DefaultSimChain...)}
		if !hasArgs {
			return spec, nil
		}
		spec.Chain = nil
		if rest == "" {
			return spec, nil
		}
		for _, field := range strings.Split(rest, ",") {
			id, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(field), "0x"), 16, 32)
			if err != nil {
				return DeviceSpec{}, Errorf(KindArgument, "parse device", "invalid IDCODE %q", field)
			}
			spec.Chain = append(spec.Chain, uint32(id))
		}
		return spec, nil

	case DeviceCMSISDAP:
		spec := DeviceSpec{Kind: DeviceCMSISDAP, VendorID: VendorIDRaspberryPi, ProductID: ProductIDCMSISDAP}
		if !hasArgs {
			return spec, nil
		}
		v, p, ok := strings.Cut(rest, ":")
		if !ok {
			return DeviceSpec{}, Errorf(KindArgument, "parse device", "want cmsisdap:<vid>:<pid>, got %q", s)
		}
		vid, err := strconv.ParseUint(v, 16, 16)
		if err != nil {
			return DeviceSpec{}, Errorf(KindArgument, "parse device", "invalid vendor ID %q", v)
		}
		pid, err := strconv.ParseUint(p, 16, 16)
		if err != nil {
			return DeviceSpec{}, Errorf(KindArgument, "parse device", "invalid product ID %q", p)
		}
		spec.VendorID, spec.ProductID = uint16(vid), uint16(pid)
		return spec, nil
	}
	return DeviceSpec{}, Errorf(KindArgument, "parse device", "unknown device %q", s)
}

func (d DeviceSpec) String() string {
	switch d.Kind {
	case DeviceSim:
		ids := make([]string, len(d.Chain))
		for i, id := range d.Chain {
			ids[i] = fmt.Sprintf("%08x", id)
		}
		return "sim:" + strings.Join(ids, ",")
	case DeviceCMSISDAP:
		return fmt.Sprintf("cmsisdap:%04x:%04x", d.VendorID, d.ProductID)
	}
	return string(d.Kind)
}

// Open parses device and opens the matching transport. It satisfies Opener.
func Open(device string) (Transport, error) {
	spec, err := ParseDeviceSpec(device)
	if err != nil {
		return nil, err
	}
	switch spec.Kind {
	case DeviceSim:
		return NewSim(spec.Chain...), nil
	default:
		a, err := OpenCMSISDAP(spec.VendorID, spec.ProductID)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}
