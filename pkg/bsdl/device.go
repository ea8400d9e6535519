package bsdl

import (
	"fmt"
	"strings"
)

// Device is the identification a BSDL entity declares.
type Device struct {
	Entity            string
	InstructionLength int
	// IDCode is the IDCODE_REGISTER pattern, MSB first, with X for
	// don't-care bits.
	IDCode string
	// Value and Mask hold IDCode decoded; mask bits are clear for X.
	Value uint32
	Mask  uint32
	Path  string
}

// Matches reports whether id fits the device's IDCODE pattern.
func (d *Device) Matches(id uint32) bool {
	return id&d.Mask == d.Value&d.Mask
}

// DeviceFromFile extracts the identity of a parsed file. The entity must
// declare a 32-bit IDCODE_REGISTER.
func DeviceFromFile(f *File) (*Device, error) {
	if f == nil || f.Entity == nil {
		return nil, fmt.Errorf("bsdl: no entity")
	}
	d := &Device{Entity: f.Entity.Name}
	if attr := f.Entity.Attribute("INSTRUCTION_LENGTH"); attr != nil {
		d.InstructionLength, _ = attr.Value.Integer()
	}
	attr := f.Entity.Attribute("IDCODE_REGISTER")
	if attr == nil {
		return nil, fmt.Errorf("bsdl: %s has no IDCODE_REGISTER", d.Entity)
	}
	d.IDCode = strings.Join(strings.Fields(attr.Value.String()), "")

	value, mask, err := ParseIDCodePattern(d.IDCode)
	if err != nil {
		return nil, fmt.Errorf("bsdl: %s: %w", d.Entity, err)
	}
	d.Value, d.Mask = value, mask
	return d, nil
}

// ParseIDCodePattern decodes a 32-character IDCODE pattern of 0, 1 and X.
func ParseIDCodePattern(s string) (value, mask uint32, err error) {
	if len(s) != 32 {
		return 0, 0, fmt.Errorf("IDCODE must be 32 bits, got %d", len(s))
	}
	for _, ch := range s {
		value <<= 1
		mask <<= 1
		switch ch {
		case '1':
			value |= 1
			mask |= 1
		case '0':
			mask |= 1
		case 'X', 'x':
		default:
			return 0, 0, fmt.Errorf("invalid IDCODE bit %q", ch)
		}
	}
	if mask == 0 {
		return 0, 0, fmt.Errorf("IDCODE mask is zero")
	}
	return value, mask, nil
}
