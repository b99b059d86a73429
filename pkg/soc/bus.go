// Package soc assembles the processor core, interconnect and
// memory-mapped devices into one steppable system.
package soc

// DontCare is what the interconnect drives for reads nothing claims.
const DontCare = 0xDEADBEEF

// Device is one memory-mapped peripheral. Offsets are relative to the
// device's bus window; writes carry a 4-bit byte-enable strobe.
type Device interface {
	Read32(offset uint32) uint32
	Write32(offset, val uint32, strobe uint8)
}

type window struct {
	base, size uint32
	dev        Device
}

// Bus decodes 32-bit physical addresses onto device windows. Accesses
// that miss every window read back the don't-care pattern and bump the
// fault counter; writes to nowhere are dropped.
type Bus struct {
	windows []window

	// Faults counts accesses that decoded to no device.
	Faults int
}

// Map attaches dev to the address range [base, base+size).
func (b *Bus) Map(base, size uint32, dev Device) {
	b.windows = append(b.windows, window{base: base, size: size, dev: dev})
}

func (b *Bus) decode(addr uint32) (Device, uint32, bool) {
	for _, w := range b.windows {
		if addr >= w.base && addr-w.base < w.size {
			return w.dev, addr - w.base, true
		}
	}
	return nil, 0, false
}

func (b *Bus) Read32(addr uint32) uint32 {
	dev, off, ok := b.decode(addr)
	if !ok {
		b.Faults++
		return DontCare
	}
	return dev.Read32(off)
}

func (b *Bus) Write32(addr, val uint32, strobe uint8) {
	dev, off, ok := b.decode(addr)
	if !ok {
		b.Faults++
		return
	}
	dev.Write32(off, val, strobe)
}
