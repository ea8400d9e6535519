// Package idcode decodes IEEE 1149.1 IDCODE register values for reporting.
package idcode

import "fmt"

// IDCode is a 32-bit IDCODE split into its fields.
type IDCode struct {
	Raw          uint32
	Version      uint8        // [31:28]
	PartNumber   uint16       // [27:12]
	Manufacturer Manufacturer // [11:1]
}

// Parse splits raw into its fields and resolves the manufacturer.
func Parse(raw uint32) IDCode {
	m, _ := LookupManufacturer(ManufacturerField(raw))
	return IDCode{
		Raw:          raw,
		Version:      uint8(raw >> 28),
		PartNumber:   uint16(raw >> 12),
		Manufacturer: m,
	}
}

// ManufacturerField returns bits [11:1] of an IDCODE: the JEP106 bank in the
// upper four bits and the ID without parity in the lower seven.
func ManufacturerField(raw uint32) uint16 {
	return uint16(raw>>1) & 0x7FF
}

// Valid reports whether raw can be a real IDCODE: bit 0 must be set and the
// manufacturer ID 0x7F is reserved for the continuation code.
func Valid(raw uint32) bool {
	return raw&1 == 1 && ManufacturerField(raw)&0x7F != 0x7F
}

func (c IDCode) String() string {
	return fmt.Sprintf("%08X (%s, part 0x%04X, version %d)", c.Raw, c.Manufacturer.Name, c.PartNumber, c.Version)
}
