package session

import (
	"encoding/binary"

	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/jtag"
)

// MaxChainLength bounds an enumeration pass. A chain that keeps returning
// IDCODEs past it is treated as broken.
const MaxChainLength = 32

const (
	idcodeBits     = 32
	terminatorZero = 0x00000000
	terminatorOnes = 0xFFFFFFFF
)

// Enumerate reads 32-bit words from a transport already parked in
// Shift-DR until it sees all zeros or all ones, and returns the words read
// before the terminator. Reading more than max words fails.
func Enumerate(t jtag.Transport, max int) ([]uint32, error) {
	var ids []uint32
	for {
		buf, err := t.ShiftTDO(idcodeBits)
		if err != nil {
			return ids, jtag.Wrap(jtag.KindDevice, "read IDCODE", err)
		}
		if len(buf) < idcodeBits/8 {
			return ids, jtag.Errorf(jtag.KindDevice, "read IDCODE", "short read of %d bytes", len(buf))
		}
		id := binary.LittleEndian.Uint32(buf)
		if id == terminatorZero || id == terminatorOnes {
			return ids, nil
		}
		if len(ids) == max {
			return ids, jtag.Errorf(jtag.KindProtocol, "enumerate", "scan chain did not terminate after %d devices", max)
		}
		ids = append(ids, id)
	}
}
