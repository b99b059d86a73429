package soc

import (
	"encoding/binary"
	"fmt"
)

// RAM is flat little-endian byte-addressable memory behind a word
// port with byte strobes.
type RAM struct {
	data []byte
}

func NewRAM(size uint32) *RAM {
	return &RAM{data: make([]byte, size)}
}

func (r *RAM) Size() uint32 { return uint32(len(r.data)) }

// Bytes exposes the backing store for snapshots and image loads.
func (r *RAM) Bytes() []byte { return r.data }

func (r *RAM) Read32(offset uint32) uint32 {
	offset &^= 3
	if int(offset)+4 > len(r.data) {
		return DontCare
	}
	return binary.LittleEndian.Uint32(r.data[offset:])
}

func (r *RAM) Write32(offset, val uint32, strobe uint8) {
	offset &^= 3
	if int(offset)+4 > len(r.data) {
		return
	}
	for lane := uint32(0); lane < 4; lane++ {
		if strobe&(1<<lane) != 0 {
			r.data[offset+lane] = byte(val >> (8 * lane))
		}
	}
}

// LoadImage copies a flat binary into memory at offset.
func (r *RAM) LoadImage(offset uint32, image []byte) error {
	if int(offset)+len(image) > len(r.data) {
		return fmt.Errorf("image of %d bytes does not fit at offset %#x", len(image), offset)
	}
	copy(r.data[offset:], image)
	return nil
}
