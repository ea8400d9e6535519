package session

import (
	"strings"

	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/jtag"
	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/tap7"
)

// MaxDeviceNameLength bounds Options.Device.
const MaxDeviceNameLength = 255

// Options configures one bring-up session.
type Options struct {
	// Device names the adapter port; required.
	Device string
	// Frequency is applied only when FrequencySet is true.
	Frequency    uint32
	FrequencySet bool
	// ReadyCount is the expected ready bit count, 1..4; zero leaves it unset.
	ReadyCount int
	// DelayCount inserts delay clocks: 1, 2, or any larger value for a
	// variable delay. Zero leaves it unset.
	DelayCount int
	// ScanFormat is the two-wire format selected before exiting the control
	// level: MScan, OScan0 or OScan1.
	ScanFormat jtag.ScanFormat
	// Verbose appends the decoded manufacturer to each IDCODE line.
	Verbose bool
	// Parts, when set, adds the part name to verbose IDCODE lines.
	Parts PartCatalog
}

// PartCatalog resolves an IDCODE to a part name. *bsdl.Catalog implements
// it.
type PartCatalog interface {
	DeviceName(id uint32) (string, bool)
}

// DefaultOptions returns options with the OScan1 format selected.
func DefaultOptions() Options {
	return Options{ScanFormat: jtag.OScan1}
}

var supportedFormats = map[string]jtag.ScanFormat{
	jtag.MScan.String():  jtag.MScan,
	jtag.OScan0.String(): jtag.OScan0,
	jtag.OScan1.String(): jtag.OScan1,
}

// ParseScanFormat maps an exact format name to its value.
func ParseScanFormat(s string) (jtag.ScanFormat, error) {
	if f, ok := supportedFormats[s]; ok {
		return f, nil
	}
	return 0, jtag.Errorf(jtag.KindArgument, "scan format", "unsupported scan format %q (want MScan, OScan0 or OScan1)", s)
}

// Validate checks o before any device I/O.
func (o Options) Validate() error {
	switch {
	case o.Device == "":
		return jtag.Errorf(jtag.KindArgument, "device", "no device name specified")
	case len(o.Device) > MaxDeviceNameLength:
		return jtag.Errorf(jtag.KindArgument, "device", "device name longer than %d characters", MaxDeviceNameLength)
	case strings.HasPrefix(o.Device, "-"):
		return jtag.Errorf(jtag.KindArgument, "device", "invalid device name %q", o.Device)
	case o.FrequencySet && o.Frequency == 0:
		return jtag.Errorf(jtag.KindArgument, "frequency", "frequency must be positive")
	case o.ReadyCount < 0 || o.ReadyCount > tap7.MaxReadyCount:
		return jtag.Errorf(jtag.KindArgument, "ready count", "invalid ready count %d, must be between 1 and %d", o.ReadyCount, tap7.MaxReadyCount)
	case o.DelayCount < 0:
		return jtag.Errorf(jtag.KindArgument, "delay count", "invalid delay count %d", o.DelayCount)
	}
	if _, ok := supportedFormats[o.ScanFormat.String()]; !ok {
		return jtag.Errorf(jtag.KindArgument, "scan format", "unsupported scan format %s", o.ScanFormat)
	}
	return nil
}
