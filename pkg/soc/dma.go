package soc

// DMA register offsets and control bits.
const (
	DMASrc  = 0x00
	DMADst  = 0x04
	DMACnt  = 0x08
	DMACtrl = 0x0C

	DMACtrlStart    = 1 << 0 // write: kick off; read: busy
	DMACtrlFixedDst = 1 << 1 // destination does not advance (FIFO bursts)
)

// DMA copies one word per granted bus cycle from SRC to DST. With the
// fixed-destination bit set the destination address stays put, which
// is how activation bursts feed the accelerator FIFO. Completion
// raises IRQ (PLIC source 3).
type DMA struct {
	IRQ func()

	bus      *Bus
	src, dst uint32
	cnt      uint32
	busy     bool
	fixedDst bool
}

func NewDMA(bus *Bus) *DMA {
	return &DMA{bus: bus}
}

func (d *DMA) Busy() bool { return d.busy }

// DMAState is the serializable engine state.
type DMAState struct {
	Src      uint32 `json:"src"`
	Dst      uint32 `json:"dst"`
	Cnt      uint32 `json:"cnt"`
	Busy     bool   `json:"busy"`
	FixedDst bool   `json:"fixed_dst"`
}

func (d *DMA) State() DMAState {
	return DMAState{Src: d.src, Dst: d.dst, Cnt: d.cnt, Busy: d.busy, FixedDst: d.fixedDst}
}

func (d *DMA) Restore(s DMAState) {
	d.src, d.dst, d.cnt = s.Src, s.Dst, s.Cnt
	d.busy, d.fixedDst = s.Busy, s.FixedDst
}

func (d *DMA) Read32(offset uint32) uint32 {
	switch offset {
	case DMASrc:
		return d.src
	case DMADst:
		return d.dst
	case DMACnt:
		return d.cnt
	case DMACtrl:
		var v uint32
		if d.busy {
			v |= DMACtrlStart
		}
		if d.fixedDst {
			v |= DMACtrlFixedDst
		}
		return v
	}
	return 0
}

func (d *DMA) Write32(offset, val uint32, _ uint8) {
	switch offset {
	case DMASrc:
		d.src = val &^ 3
	case DMADst:
		d.dst = val &^ 3
	case DMACnt:
		d.cnt = val
	case DMACtrl:
		d.fixedDst = val&DMACtrlFixedDst != 0
		if val&DMACtrlStart != 0 && !d.busy {
			d.busy = true
			if d.cnt == 0 {
				d.complete()
			}
		}
	}
}

func (d *DMA) complete() {
	d.busy = false
	if d.IRQ != nil {
		d.IRQ()
	}
}

// Tick advances the engine by one clock. The arbiter passes granted
// false on cycles the processor owns the data port.
func (d *DMA) Tick(granted bool) {
	if !d.busy || !granted {
		return
	}
	d.bus.Write32(d.dst, d.bus.Read32(d.src), 0xF)
	d.src += 4
	if !d.fixedDst {
		d.dst += 4
	}
	d.cnt--
	if d.cnt == 0 {
		d.complete()
	}
}
