package peripherals

import (
	"image"
	"image/png"
	"io"
)

// VGA framebuffer geometry and registers.
const (
	VGAWidth  = 320
	VGAHeight = 240

	VGAVsyncOffset = 0x1FFFF // status byte, bit 0 toggles per frame
	VGAVsyncBit    = 1 << 0
)

// VGA models the linear RGB332 framebuffer with its vsync status
// byte. The guest writes pixel bytes anywhere in the VRAM window;
// byte strobes are honoured so SB plots single pixels.
type VGA struct {
	VRAM [VGAWidth * VGAHeight]byte

	// FramePeriod is the number of clock cycles between vsync
	// toggles. Zero leaves vsync static (useful in unit tests).
	FramePeriod int

	cycles int
	vsync  bool
}

func (v *VGA) readByte(off uint32) byte {
	if off < uint32(len(v.VRAM)) {
		return v.VRAM[off]
	}
	if off == VGAVsyncOffset {
		if v.vsync {
			return VGAVsyncBit
		}
		return 0
	}
	return 0
}

// Read32 implements the bus device contract, assembling the word from
// byte lanes so the vsync byte is reachable with LB/LBU.
func (v *VGA) Read32(offset uint32) uint32 {
	var w uint32
	for i := uint32(0); i < 4; i++ {
		w |= uint32(v.readByte(offset+i)) << (8 * i)
	}
	return w
}

// Write32 implements the bus device contract.
func (v *VGA) Write32(offset, val uint32, strobe uint8) {
	for i := uint32(0); i < 4; i++ {
		if strobe&(1<<i) == 0 {
			continue
		}
		if a := offset + i; a < uint32(len(v.VRAM)) {
			v.VRAM[a] = byte(val >> (8 * i))
		}
	}
}

// Step advances the frame counter.
func (v *VGA) Step() {
	if v.FramePeriod <= 0 {
		return
	}
	v.cycles++
	if v.cycles >= v.FramePeriod {
		v.cycles = 0
		v.vsync = !v.vsync
	}
}

// rgb332ToRGBA expands an RGB332 byte to four RGBA bytes using
// bit-replication so full-scale channels map to 0xFF.
func rgb332ToRGBA(c byte) (r, g, b, a byte) {
	r3 := c >> 5 & 0x7
	g3 := c >> 2 & 0x7
	b2 := c & 0x3
	r = r3<<5 | r3<<2 | r3>>1
	g = g3<<5 | g3<<2 | g3>>1
	b = b2<<6 | b2<<4 | b2<<2 | b2
	a = 0xFF
	return
}

// FramebufferRGBA decodes the framebuffer into a 320×240 RGBA8888
// byte slice ready for display (length 320*240*4).
func (v *VGA) FramebufferRGBA() []byte {
	pixels := make([]byte, VGAWidth*VGAHeight*4)
	for i, c := range v.VRAM {
		r, g, b, a := rgb332ToRGBA(c)
		pixels[i*4+0] = r
		pixels[i*4+1] = g
		pixels[i*4+2] = b
		pixels[i*4+3] = a
	}
	return pixels
}

// FramebufferImage returns the framebuffer as an *image.RGBA.
func (v *VGA) FramebufferImage() *image.RGBA {
	return &image.RGBA{
		Pix:    v.FramebufferRGBA(),
		Stride: VGAWidth * 4,
		Rect:   image.Rect(0, 0, VGAWidth, VGAHeight),
	}
}

// Screenshot encodes the framebuffer as PNG.
func (v *VGA) Screenshot(w io.Writer) error {
	return png.Encode(w, v.FramebufferImage())
}
