package tap

import (
	"fmt"
	"strings"
)

// Pattern is an ordered TMS bit sequence packed LSB-first, paired with the
// exact number of TCK cycles it describes. The count is authoritative: bits
// beyond it in the last byte are padding and are cleared on construction.
//
// A pattern is either plain (one TMS bit per clock) or pair encoded, where
// every clock carries a (TDI, TMS) bit pair with TDI in the lower position.
type Pattern struct {
	data   []byte
	clocks int
	width  int
}

// NewPattern builds a plain TMS pattern of exactly clocks bits from buf.
func NewPattern(buf []byte, clocks int) (Pattern, error) {
	return newPattern(buf, clocks, 1)
}

// MustPattern is NewPattern for package-level tables; it panics on a
// malformed definition.
func MustPattern(buf []byte, clocks int) Pattern {
	p, err := NewPattern(buf, clocks)
	if err != nil {
		panic(err)
	}
	return p
}

// PatternFromBits packs a bool slice into a plain TMS pattern.
func PatternFromBits(bits []bool) Pattern {
	buf := make([]byte, (len(bits)+7)/8)
	for i, bit := range bits {
		if bit {
			buf[i/8] |= 1 << (uint(i) % 8)
		}
	}
	return Pattern{data: buf, clocks: len(bits), width: 1}
}

// Zeros returns a plain pattern of n TMS=0 clocks.
func Zeros(n int) Pattern {
	if n < 0 {
		n = 0
	}
	return Pattern{data: make([]byte, (n+7)/8), clocks: n, width: 1}
}

func newPattern(buf []byte, clocks, width int) (Pattern, error) {
	if clocks < 0 {
		return Pattern{}, fmt.Errorf("tap: negative clock count %d", clocks)
	}
	bits := clocks * width
	need := (bits + 7) / 8
	if len(buf) < need {
		return Pattern{}, fmt.Errorf("tap: %d clocks need %d bytes, got %d", clocks, need, len(buf))
	}
	data := make([]byte, need)
	copy(data, buf)
	if rem := bits % 8; rem != 0 {
		data[need-1] &= byte(1<<rem) - 1
	}
	return Pattern{data: data, clocks: clocks, width: width}, nil
}

// Len returns the number of TCK cycles in the pattern.
func (p Pattern) Len() int {
	return p.clocks
}

// Paired reports whether the pattern carries (TDI, TMS) pairs.
func (p Pattern) Paired() bool {
	return p.width == 2
}

// Bit returns the TMS value of clock i.
func (p Pattern) Bit(i int) bool {
	if i < 0 || i >= p.clocks {
		panic(fmt.Sprintf("tap: bit %d out of range [0,%d)", i, p.clocks))
	}
	pos := i*p.width + p.width - 1
	return p.data[pos/8]&(1<<(uint(pos)%8)) != 0
}

// Bits unpacks the TMS values, one per clock.
func (p Pattern) Bits() []bool {
	out := make([]bool, p.clocks)
	for i := range out {
		out[i] = p.Bit(i)
	}
	return out
}

// Bytes returns a copy of the packed buffer.
func (p Pattern) Bytes() []byte {
	return append([]byte(nil), p.data...)
}

// Interleave converts a plain pattern to the pair encoding with TDI held at
// zero. Paired patterns are returned unchanged.
func (p Pattern) Interleave() Pattern {
	if p.width == 2 {
		return p
	}
	out := Pattern{data: make([]byte, (p.clocks*2+7)/8), clocks: p.clocks, width: 2}
	for i := 0; i < p.clocks; i++ {
		if p.Bit(i) {
			pos := 2*i + 1
			out.data[pos/8] |= 1 << (uint(pos) % 8)
		}
	}
	return out
}

// Equal reports whether both patterns describe the same clocks in the same
// encoding.
func (p Pattern) Equal(o Pattern) bool {
	if p.clocks != o.clocks || p.width != o.width || len(p.data) != len(o.data) {
		return false
	}
	for i := range p.data {
		if p.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

func (p Pattern) String() string {
	var b strings.Builder
	for i := 0; i < p.clocks; i++ {
		if p.Bit(i) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return fmt.Sprintf("%s/%d", b.String(), p.clocks)
}
