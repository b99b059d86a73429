// Package npu is the host-side driver for the 4×4 systolic
// matrix-vector accelerator. It speaks the accelerator's register
// protocol over the system bus: weights stream into a shift register
// row 3 first, activations advance the array one beat per word, and a
// dump beat drains the quantized result through the output FIFO.
package npu

import (
	"errors"

	"rvsoc/pkg/peripherals"
)

// DefaultBase is where the accelerator register file sits on the bus.
const DefaultBase = 0x90000000

// ErrPollTimeout is returned when a bounded Execute gives up waiting
// for the output-ready flag.
var ErrPollTimeout = errors.New("npu: result not ready within poll budget")

// Vec4 is one activation or result tile.
type Vec4 [4]int8

// Mat4 is one 4×4 weight tile in row, column order.
type Mat4 [4][4]int8

// MMIO is the slice of the system bus the driver talks through.
type MMIO interface {
	Read32(addr uint32) uint32
	Write32(addr, val uint32, strobe uint8)
}

// Driver drives one accelerator instance. It is not goroutine-safe;
// callers serialise inference themselves.
type Driver struct {
	Bus  MMIO
	Base uint32

	// PollBudget bounds how many status reads Execute issues before
	// giving up with ErrPollTimeout. Zero polls until ready.
	PollBudget int

	// SettleDelay is the number of idle status reads after a weight
	// stream or an accumulator clear, covering the array's internal
	// propagation before the next beat.
	SettleDelay int

	flags   uint32 // sticky ctrl bits (ReLU), set by Configure
	pending int    // dump beats whose results have not been consumed
}

// New returns a driver for the accelerator at base.
func New(bus MMIO, base uint32) *Driver {
	return &Driver{Bus: bus, Base: base}
}

func (d *Driver) read(off uint32) uint32 {
	return d.Bus.Read32(d.Base + off)
}

func (d *Driver) write(off, val uint32) {
	d.Bus.Write32(d.Base+off, val, 0xF)
}

func (d *Driver) setCtrl(bits uint32) { d.write(peripherals.NPUCtrl, bits) }

func (d *Driver) writeInput(v Vec4) {
	for d.read(peripherals.NPUStatus)&peripherals.NPUStatusInFull != 0 {
	}
	d.write(peripherals.NPUFifoAct, pack4(v))
}

func (d *Driver) writeWeights(v Vec4) {
	for d.read(peripherals.NPUStatus)&peripherals.NPUStatusWFull != 0 {
	}
	d.write(peripherals.NPUFifoWeights, pack4(v))
}

func pack4(v Vec4) uint32 {
	return uint32(uint8(v[0])) |
		uint32(uint8(v[1]))<<8 |
		uint32(uint8(v[2]))<<16 |
		uint32(uint8(v[3]))<<24
}

func unpack4(w uint32) Vec4 {
	return Vec4{int8(w), int8(w >> 8), int8(w >> 16), int8(w >> 24)}
}

func (d *Driver) resultReady() bool {
	return d.read(peripherals.NPUStatus)&peripherals.NPUStatusOutRdy != 0
}

// drainOutput consumes every outstanding result. A dump from a
// timed-out Execute may still be inside the output drain latency when
// the ready flag reads low, so the loop keeps polling (each status
// read is one drain tick) until all issued dumps have surfaced.
func (d *Driver) drainOutput() {
	for d.pending > 0 {
		if d.resultReady() {
			d.read(peripherals.NPUFifoOut)
			d.pending--
		}
	}
	for d.resultReady() {
		d.read(peripherals.NPUFifoOut)
	}
}

func (d *Driver) settle() {
	for i := 0; i < d.SettleDelay; i++ {
		d.read(peripherals.NPUStatus)
	}
}

func (d *Driver) flushPipeline() {
	for i := 0; i < 8; i++ {
		d.writeInput(Vec4{})
	}
}

// Reset brings the accelerator to a known state: biases zeroed, raw
// scaling (multiplier 1, no shift), weight paths flushed and the
// output FIFO drained.
func (d *Driver) Reset() {
	for i := uint32(0); i < 4; i++ {
		d.write(peripherals.NPUBias0+i*4, 0)
	}
	d.write(peripherals.NPUQuant, 0)
	d.write(peripherals.NPUMult, 1)
	d.flags = 0

	d.setCtrl(peripherals.NPUCtrlClear | peripherals.NPUCtrlLoad)
	d.flushPipeline()
	d.setCtrl(peripherals.NPUCtrlClear)
	d.writeInput(Vec4{})
	d.settle()
	d.setCtrl(0)

	d.drainOutput()
}

// Configure sets the post-accumulation scaling (v*mult >> shift), the
// per-lane biases latched on the next accumulator clear, and whether
// results pass through ReLU.
func (d *Driver) Configure(shift uint8, mult int32, bias [4]int32, relu bool) {
	d.write(peripherals.NPUQuant, uint32(shift)&0x1F)
	d.write(peripherals.NPUMult, uint32(mult))
	for i, b := range bias {
		d.write(peripherals.NPUBias0+uint32(i)*4, uint32(b))
	}
	d.flags = 0
	if relu {
		d.flags = peripherals.NPUCtrlRelu
	}
}

// LoadWeights streams one weight tile into the array, handling the
// reversed row order the shift register expects.
func (d *Driver) LoadWeights(w Mat4) {
	d.setCtrl(peripherals.NPUCtrlLoad)
	for r := 3; r >= 0; r-- {
		d.writeWeights(Vec4(w[r]))
	}
	d.settle()
	d.setCtrl(0)
}

// Execute runs one 4-vector through the loaded tile and returns the
// quantized result. Lane k of the result is the column-k dot product
// plus the latched bias, scaled, optionally rectified and clamped to
// int8.
func (d *Driver) Execute(in Vec4) (Vec4, error) {
	d.drainOutput()

	// Clear beat latches the biases into the accumulator.
	d.setCtrl(d.flags | peripherals.NPUCtrlClear)
	d.writeInput(Vec4{})
	d.settle()
	d.setCtrl(d.flags)

	d.writeInput(in)
	d.flushPipeline()

	d.setCtrl(d.flags | peripherals.NPUCtrlDump)
	d.writeInput(Vec4{})
	d.pending++

	for polls := 0; !d.resultReady(); polls++ {
		if d.PollBudget > 0 && polls+1 >= d.PollBudget {
			d.setCtrl(d.flags)
			return Vec4{}, ErrPollTimeout
		}
	}
	raw := d.read(peripherals.NPUFifoOut)
	d.pending--
	d.setCtrl(d.flags)
	return unpack4(raw), nil
}
