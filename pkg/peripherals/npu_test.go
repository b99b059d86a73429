package peripherals

import "testing"

// loadIdentity streams the identity matrix row 3 first, the order the
// shift register expects.
func loadIdentity(n *NPU) {
	n.Write32(NPUCtrl, NPUCtrlLoad, 0xF)
	for row := 3; row >= 0; row-- {
		n.Write32(NPUFifoWeights, 1<<(8*row), 0xF)
		n.Write32(NPUFifoAct, 0, 0xF)
	}
	n.Write32(NPUCtrl, 0, 0xF)
}

func npuPoll(t *testing.T, n *NPU, budget int) uint32 {
	t.Helper()
	for i := 0; i < budget; i++ {
		if n.Read32(NPUStatus)&NPUStatusOutRdy != 0 {
			return n.Read32(NPUFifoOut)
		}
	}
	t.Fatal("output never became ready")
	return 0
}

func TestNPUWeightOrder(t *testing.T) {
	n := &NPU{}
	loadIdentity(n)
	w := n.Weights()
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			want := int8(0)
			if r == c {
				want = 1
			}
			if w[r][c] != want {
				t.Fatalf("weights[%d][%d] = %d, want %d", r, c, w[r][c], want)
			}
		}
	}
}

func TestNPUIdentityRoundTrip(t *testing.T) {
	n := &NPU{OutputLatency: 2}
	loadIdentity(n)
	n.Write32(NPUMult, 1, 0xF)
	n.Write32(NPUQuant, 0, 0xF)

	n.Write32(NPUCtrl, NPUCtrlClear, 0xF)
	n.Write32(NPUFifoAct, 0, 0xF) // accumulator loads the (zero) bias
	n.Write32(NPUCtrl, 0, 0xF)

	in := uint32(0x6407FD05) // lanes 5, -3, 7, 100
	n.Write32(NPUFifoAct, in, 0xF)
	for i := 0; i < 8; i++ { // flush beats carry zeros through
		n.Write32(NPUFifoAct, 0, 0xF)
	}
	n.Write32(NPUCtrl, NPUCtrlDump, 0xF)
	n.Write32(NPUFifoAct, 0, 0xF)

	if n.Read32(NPUStatus)&NPUStatusOutRdy != 0 {
		t.Fatal("result visible before the drain latency elapsed")
	}
	if got := npuPoll(t, n, 8); got != in {
		t.Fatalf("identity result = %#08x, want %#08x", got, in)
	}
	if n.Read32(NPUStatus)&NPUStatusOutRdy != 0 {
		t.Fatal("ready should drop after the FIFO drains")
	}
}

func TestNPUBiasQuantizeClamp(t *testing.T) {
	n := &NPU{}
	loadIdentity(n)
	n.Write32(NPUMult, 3, 0xF)
	n.Write32(NPUQuant, 1, 0xF) // >>1 after the multiply
	n.Write32(NPUBias0+0, 100, 0xF)
	n.Write32(NPUBias0+4, uint32(0xFFFFFFFF), 0xF) // -1
	n.Write32(NPUBias0+8, 1000, 0xF)               // will clamp high
	n.Write32(NPUBias0+12, ^uint32(999), 0xF)      // -1000, clamps low

	n.Write32(NPUCtrl, NPUCtrlClear, 0xF)
	n.Write32(NPUFifoAct, 0, 0xF)
	n.Write32(NPUCtrl, NPUCtrlDump, 0xF)
	n.Write32(NPUFifoAct, 0, 0xF)

	got := npuPoll(t, n, 4)
	// (100*3)>>1 = 150 -> 127, (-1*3)>>1 = -2, 1000*3>>1 -> 127,
	// -1000*3>>1 -> -128.
	want := uint32(0x80)<<24 | uint32(0x7F)<<16 | uint32(0xFE)<<8 | 0x7F
	if got != want {
		t.Fatalf("result = %#08x, want %#08x", got, want)
	}
}

func TestNPUReLU(t *testing.T) {
	n := &NPU{}
	loadIdentity(n)
	n.Write32(NPUMult, 1, 0xF)
	n.Write32(NPUBias0+0, uint32(0xFFFFFFD8), 0xF) // -40
	n.Write32(NPUBias0+4, 40, 0xF)

	n.Write32(NPUCtrl, NPUCtrlRelu|NPUCtrlClear, 0xF)
	n.Write32(NPUFifoAct, 0, 0xF)
	n.Write32(NPUCtrl, NPUCtrlRelu|NPUCtrlDump, 0xF)
	n.Write32(NPUFifoAct, 0, 0xF)

	if got, want := npuPoll(t, n, 4), uint32(0x2800); got != want {
		t.Fatalf("relu result = %#08x, want %#08x", got, want)
	}
}

func TestNPUColumnAccumulate(t *testing.T) {
	n := &NPU{}
	// Row r is all r+1, streamed in reverse.
	n.Write32(NPUCtrl, NPUCtrlLoad, 0xF)
	for row := 3; row >= 0; row-- {
		v := uint32(row + 1)
		n.Write32(NPUFifoWeights, v|v<<8|v<<16|v<<24, 0xF)
	}
	n.Write32(NPUMult, 1, 0xF)

	n.Write32(NPUCtrl, NPUCtrlClear, 0xF)
	n.Write32(NPUFifoAct, 0, 0xF)
	n.Write32(NPUCtrl, 0, 0xF)
	n.Write32(NPUFifoAct, 0x01010101, 0xF) // x = (1,1,1,1)
	n.Write32(NPUCtrl, NPUCtrlDump, 0xF)
	n.Write32(NPUFifoAct, 0, 0xF)

	// Every column sums 1+2+3+4 = 10.
	if got, want := npuPoll(t, n, 4), uint32(0x0A0A0A0A); got != want {
		t.Fatalf("result = %#08x, want %#08x", got, want)
	}
}

func TestNPUIRQOnReady(t *testing.T) {
	fired := 0
	n := &NPU{OutputLatency: 3}
	n.IRQ = func() { fired++ }
	loadIdentity(n)
	n.Write32(NPUMult, 1, 0xF)
	n.Write32(NPUCtrl, NPUCtrlDump, 0xF)
	n.Write32(NPUFifoAct, 0, 0xF)
	for i := 0; i < 3; i++ {
		if fired != 0 {
			t.Fatal("IRQ fired before the latency elapsed")
		}
		n.Step()
	}
	if fired != 1 {
		t.Fatalf("IRQ fired %d times, want 1", fired)
	}
}
