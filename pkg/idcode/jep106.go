package idcode

import "fmt"

// Manufacturer is one JEP106 entry.
type Manufacturer struct {
	Code uint16 // bank<<7 | id
	Name string
}

// Bank is the number of continuation codes preceding the ID.
func (m Manufacturer) Bank() int { return int(m.Code >> 7) }

// ID is the seven-bit identifier within the bank.
func (m Manufacturer) ID() uint8 { return uint8(m.Code & 0x7F) }

// Manufacturers seen on TAP.7 capable boards and the parts commonly chained
// behind them.
var manufacturers = map[uint16]string{
	0x001: "AMD",
	0x004: "Fujitsu",
	0x007: "Hitachi",
	0x009: "Intel",
	0x00E: "Freescale (Motorola)",
	0x00F: "National Semiconductor",
	0x010: "NEC",
	0x015: "NXP (Philips)",
	0x017: "Texas Instruments",
	0x018: "Toshiba",
	0x01F: "Atmel",
	0x020: "STMicroelectronics",
	0x021: "Lattice Semiconductor",
	0x029: "Microchip Technology",
	0x034: "Cypress Semiconductor",
	0x041: "Infineon",
	0x049: "Xilinx",
	0x065: "Analog Devices",
	0x06E: "Altera",
	0x23B: "ARM Ltd",
	0x489: "SiFive",
	0x493: "Raspberry Pi",
}

// LookupManufacturer resolves a manufacturer field. Unknown codes yield a
// placeholder name and false.
func LookupManufacturer(code uint16) (Manufacturer, bool) {
	code &= 0x7FF
	if name, ok := manufacturers[code]; ok {
		return Manufacturer{Code: code, Name: name}, true
	}
	return Manufacturer{Code: code, Name: fmt.Sprintf("Unknown (bank %d, 0x%02X)", code>>7, code&0x7F)}, false
}
