package peripherals

// NPU register offsets and bits, relative to the accelerator base.
const (
	NPUCtrl        = 0x00
	NPUQuant       = 0x04
	NPUMult        = 0x08
	NPUStatus      = 0x0C
	NPUFifoWeights = 0x10
	NPUFifoAct     = 0x14
	NPUFifoOut     = 0x18
	NPUBias0       = 0x20 // four 32-bit bias registers

	NPUCtrlRelu  = 1 << 0
	NPUCtrlLoad  = 1 << 1
	NPUCtrlClear = 1 << 2
	NPUCtrlDump  = 1 << 3

	NPUStatusInFull = 1 << 0
	NPUStatusWFull  = 1 << 1
	NPUStatusOutRdy = 1 << 3
)

// NPU models the 4×4 systolic matrix-vector unit behind the
// accelerator register file. Weight words pushed while load-mode is
// asserted shift in as rows front-most, so streaming rows 3..0 leaves
// row 0 on top. Each activation push is one pipeline beat: with clear
// asserted the accumulator reloads from the bias registers, otherwise
// lane k accumulates the column-k dot product. A beat with dump
// asserted latches the quantized packed result into the output FIFO,
// which becomes visible after a fixed drain latency.
type NPU struct {
	// OutputLatency is the number of status polls (or cycles) between
	// a dump beat and the output-ready flag rising.
	OutputLatency int

	// IRQ fires when a result becomes readable (PLIC source 4).
	IRQ func()

	ctrl    uint32
	quant   uint32 // shift in bits [4:0], zero point in [15:8]
	mult    uint32
	bias    [4]int32
	weights [4][4]int8
	acc     [4]int32

	out     []uint32
	readyIn int
}

func unpack4(w uint32) [4]int8 {
	return [4]int8{
		int8(w), int8(w >> 8), int8(w >> 16), int8(w >> 24),
	}
}

// Weights returns the currently loaded matrix (row, column order).
func (n *NPU) Weights() [4][4]int8 { return n.weights }

func (n *NPU) pushWeights(word uint32) {
	if n.ctrl&NPUCtrlLoad == 0 {
		return // the weight gateway only shifts in load mode
	}
	row := unpack4(word)
	copy(n.weights[1:], n.weights[:3])
	n.weights[0] = row
}

func (n *NPU) pushInput(word uint32) {
	switch {
	case n.ctrl&NPUCtrlLoad != 0:
		// Load mode: activation beats only advance the array.
	case n.ctrl&NPUCtrlClear != 0:
		n.acc = n.bias
	default:
		x := unpack4(word)
		for col := 0; col < 4; col++ {
			for row := 0; row < 4; row++ {
				n.acc[col] += int32(n.weights[row][col]) * int32(x[row])
			}
		}
	}

	if n.ctrl&NPUCtrlDump != 0 {
		n.out = append(n.out, n.packResult())
		if len(n.out) == 1 {
			n.readyIn = n.OutputLatency
			if n.readyIn == 0 && n.IRQ != nil {
				n.IRQ()
			}
		}
	}
}

func clampI8(x int64) int8 {
	if x > 127 {
		return 127
	}
	if x < -128 {
		return -128
	}
	return int8(x)
}

// packResult applies the post-accumulation scaling (multiplier then
// arithmetic right shift), optional ReLU and int8 clamp, and packs the
// four lanes little-endian.
func (n *NPU) packResult() uint32 {
	shift := n.quant & 0x1F
	var packed uint32
	for lane := 0; lane < 4; lane++ {
		v := int64(n.acc[lane]) * int64(int32(n.mult))
		v >>= shift
		if n.ctrl&NPUCtrlRelu != 0 && v < 0 {
			v = 0
		}
		packed |= uint32(uint8(clampI8(v))) << (8 * lane)
	}
	return packed
}

func (n *NPU) outReady() bool {
	return len(n.out) > 0 && n.readyIn == 0
}

// Read32 implements the bus device contract. Status reads model time
// passing while firmware polls: each one drains a unit of the output
// latency.
func (n *NPU) Read32(offset uint32) uint32 {
	switch offset {
	case NPUCtrl:
		return n.ctrl
	case NPUQuant:
		return n.quant
	case NPUMult:
		return n.mult
	case NPUStatus:
		n.tickLatency()
		var s uint32
		if n.outReady() {
			s |= NPUStatusOutRdy
		}
		return s
	case NPUFifoOut:
		if !n.outReady() {
			return 0
		}
		v := n.out[0]
		n.out = n.out[1:]
		return v
	}
	if offset >= NPUBias0 && offset < NPUBias0+16 {
		return uint32(n.bias[(offset-NPUBias0)/4])
	}
	return 0
}

// Write32 implements the bus device contract.
func (n *NPU) Write32(offset, val uint32, _ uint8) {
	switch offset {
	case NPUCtrl:
		n.ctrl = val
	case NPUQuant:
		n.quant = val
	case NPUMult:
		n.mult = val
	case NPUFifoWeights:
		n.pushWeights(val)
	case NPUFifoAct:
		n.pushInput(val)
	}
	if offset >= NPUBias0 && offset < NPUBias0+16 {
		n.bias[(offset-NPUBias0)/4] = int32(val)
	}
}

func (n *NPU) tickLatency() {
	if len(n.out) > 0 && n.readyIn > 0 {
		n.readyIn--
		if n.readyIn == 0 && n.IRQ != nil {
			n.IRQ()
		}
	}
}

// Step advances the internal drain latency by one clock cycle.
func (n *NPU) Step() { n.tickLatency() }

// NPUState is the serializable accelerator state.
type NPUState struct {
	Ctrl    uint32     `json:"ctrl"`
	Quant   uint32     `json:"quant"`
	Mult    uint32     `json:"mult"`
	Bias    [4]int32   `json:"bias"`
	Weights [4][4]int8 `json:"weights"`
	Acc     [4]int32   `json:"acc"`
	Out     []uint32   `json:"out"`
	ReadyIn int        `json:"ready_in"`
}

func (n *NPU) State() NPUState {
	return NPUState{
		Ctrl: n.ctrl, Quant: n.quant, Mult: n.mult,
		Bias: n.bias, Weights: n.weights, Acc: n.acc,
		Out: append([]uint32(nil), n.out...), ReadyIn: n.readyIn,
	}
}

func (n *NPU) Restore(s NPUState) {
	n.ctrl, n.quant, n.mult = s.Ctrl, s.Quant, s.Mult
	n.bias, n.weights, n.acc = s.Bias, s.Weights, s.Acc
	n.out = append([]uint32(nil), s.Out...)
	n.readyIn = s.ReadyIn
}
