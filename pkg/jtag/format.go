package jtag

import "fmt"

// ScanFormat selects the packet framing used on the two-wire link.
type ScanFormat uint8

const (
	JScan0 ScanFormat = iota
	JScan1
	JScan2
	JScan3
	MScan
	OScan0
	OScan1
	OScan2
	OScan3
	OScan4
	OScan5
	OScan6
	OScan7
	SScan0
	SScan1
	SScan2
	SScan3
)

var scanFormatNames = [...]string{
	JScan0: "JScan0",
	JScan1: "JScan1",
	JScan2: "JScan2",
	JScan3: "JScan3",
	MScan:  "MScan",
	OScan0: "OScan0",
	OScan1: "OScan1",
	OScan2: "OScan2",
	OScan3: "OScan3",
	OScan4: "OScan4",
	OScan5: "OScan5",
	OScan6: "OScan6",
	OScan7: "OScan7",
	SScan0: "SScan0",
	SScan1: "SScan1",
	SScan2: "SScan2",
	SScan3: "SScan3",
}

func (f ScanFormat) String() string {
	if int(f) < len(scanFormatNames) {
		return scanFormatNames[f]
	}
	return fmt.Sprintf("ScanFormat(%d)", f)
}

// IsAdvanced reports whether f belongs to the two-wire MScan/OScan/SScan
// families rather than the four-wire compatible JScan ones.
func (f ScanFormat) IsAdvanced() bool {
	return f >= MScan && int(f) < len(scanFormatNames)
}
