package bsdl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const artixBSDL = `
-- Trimmed Artix-7 description
entity XC7A35T_CPG236 is

generic (PHYSICAL_PIN_MAP : string := "CPG236");

port (
	TCK: in bit;
	TDI: in bit;
	TDO: out bit;
	TMS: in bit;
	IO_BANK: inout bit_vector(1 to 4)
);

use STD_1149_1_2001.all;

attribute COMPONENT_CONFORMANCE of XC7A35T_CPG236 : entity is "STD_1149_1_2001";
attribute PIN_MAP of XC7A35T_CPG236 : entity is PHYSICAL_PIN_MAP;

constant CPG236: PIN_MAP_STRING :=
	"TCK:V8," &
	"TDI:W8," &
	"TDO:W9," &
	"TMS:V9";

attribute TAP_SCAN_CLOCK of TCK : signal is (66.0e6, BOTH);
attribute INSTRUCTION_LENGTH of XC7A35T_CPG236 : entity is 6;
attribute INSTRUCTION_OPCODE of XC7A35T_CPG236 : entity is
	"IDCODE (001001)," &
	"BYPASS (111111)";
attribute IDCODE_REGISTER of XC7A35T_CPG236 : entity is
	"XXXX" &               -- version
	"0011011000101101" &   -- part number
	"00001001001" &        -- Xilinx
	"1";                   -- required by 1149.1

end XC7A35T_CPG236;
`

func TestParseEntity(t *testing.T) {
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	f, err := p.ParseString("artix.bsd", artixBSDL)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if f.Entity.Name != "XC7A35T_CPG236" || f.Entity.EndName != "XC7A35T_CPG236" {
		t.Fatalf("entity = %q / %q", f.Entity.Name, f.Entity.EndName)
	}

	attrs := 0
	for _, st := range f.Entity.Statements {
		if st.Attribute != nil {
			attrs++
		}
	}
	if attrs != 6 {
		t.Errorf("got %d attributes, want 6", attrs)
	}

	clock := f.Entity.Attribute("tap_scan_clock")
	if clock == nil || clock.Target != "signal" || clock.Value.Terms[0].Tuple == nil {
		t.Fatalf("TAP_SCAN_CLOCK not decoded as a tuple: %+v", clock)
	}
	if got := f.Entity.Attribute("INSTRUCTION_OPCODE").Value.String(); got != "IDCODE (001001),BYPASS (111111)" {
		t.Errorf("opcode string = %q", got)
	}
}

func TestParseRejectsMissingEnd(t *testing.T) {
	p, err := NewParser()
	if err != nil {
		t.Fatal(err)
	}
	src := strings.Replace(artixBSDL, "end XC7A35T_CPG236;", "", 1)
	if _, err := p.ParseString("broken.bsd", src); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDeviceFromFile(t *testing.T) {
	p, _ := NewParser()
	f, err := p.ParseString("artix.bsd", artixBSDL)
	if err != nil {
		t.Fatal(err)
	}
	d, err := DeviceFromFile(f)
	if err != nil {
		t.Fatalf("DeviceFromFile: %v", err)
	}
	if d.InstructionLength != 6 {
		t.Errorf("InstructionLength = %d, want 6", d.InstructionLength)
	}
	if d.Mask != 0x0FFFFFFF || d.Value != 0x0362D093 {
		t.Errorf("value/mask = %08X/%08X", d.Value, d.Mask)
	}
	for _, id := range []uint32{0x0362D093, 0x1362D093, 0xF362D093} {
		if !d.Matches(id) {
			t.Errorf("Matches(%08X) = false", id)
		}
	}
	if d.Matches(0x0362C093) {
		t.Error("different part number must not match")
	}
}

func TestParseIDCodePattern(t *testing.T) {
	tests := []struct {
		in        string
		value     uint32
		mask      uint32
		wantError bool
	}{
		{in: "01001011101000000000010001110111", value: 0x4BA00477, mask: 0xFFFFFFFF},
		{in: "XXXX1011101000000000010001110111", value: 0x0BA00477, mask: 0x0FFFFFFF},
		{in: "0101", wantError: true},
		{in: strings.Repeat("X", 32), wantError: true},
		{in: strings.Repeat("2", 32), wantError: true},
	}
	for _, tt := range tests {
		value, mask, err := ParseIDCodePattern(tt.in)
		if (err != nil) != tt.wantError {
			t.Errorf("ParseIDCodePattern(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantError && (value != tt.value || mask != tt.mask) {
			t.Errorf("ParseIDCodePattern(%q) = %08X/%08X, want %08X/%08X", tt.in, value, mask, tt.value, tt.mask)
		}
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	exact := strings.NewReplacer("XC7A35T_CPG236", "ARM_DAP", `"XXXX" &`, `"0100" &`,
		`"0011011000101101"`, `"1011101000000000"`, `"00001001001"`, `"01000111011"`).Replace(artixBSDL)
	files := map[string]string{
		"artix.bsd":         artixBSDL,
		"sub/dap.BSDL":      exact,
		"notes.txt":         "not bsdl",
		"broken.bsm":        "entity X is",
		"sub/no_idcode.bsd": "entity NOID is attribute INSTRUCTION_LENGTH of NOID : entity is 4; end NOID;",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	c, err := LoadDir(dir)
	if err == nil {
		t.Fatal("expected skipped-file error")
	}
	if !strings.Contains(err.Error(), "broken.bsm") || !strings.Contains(err.Error(), "no IDCODE_REGISTER") {
		t.Errorf("error = %v", err)
	}
	if c == nil || c.Len() != 2 {
		t.Fatalf("catalog = %+v", c)
	}

	if name, ok := c.DeviceName(0x4BA00477); !ok || name != "ARM_DAP" {
		t.Errorf("DeviceName(4BA00477) = %q, %v", name, ok)
	}
	if name, ok := c.DeviceName(0x2362D093); !ok || name != "XC7A35T_CPG236" {
		t.Errorf("DeviceName(2362D093) = %q, %v", name, ok)
	}
	if _, ok := c.Lookup(0x12345679); ok {
		t.Error("unexpected match")
	}
}

func TestLoadDirMissingRoot(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error")
	}
}
