package peripherals

import "testing"

func TestGPIOLEDs(t *testing.T) {
	g := &GPIO{}
	g.Write32(GPIOLEDs, 0xA5, 0xF)
	if g.LEDs != 0xA5 {
		t.Fatalf("LEDs = %#x, want 0xA5", g.LEDs)
	}
	if got := g.Read32(GPIOLEDs); got != 0xA5 {
		t.Fatalf("read back = %#x, want 0xA5", got)
	}
}

func TestGPIOSwitchesReadOnly(t *testing.T) {
	g := &GPIO{}
	g.SetSwitches(0x3)
	g.Write32(GPIOSwitches, 0xFF, 0xF) // guest writes are ignored
	if got := g.Read32(GPIOSwitches); got != 0x3 {
		t.Fatalf("switches = %#x, want 0x3", got)
	}
}

func TestGPIOSwitchIRQ(t *testing.T) {
	fired := 0
	g := &GPIO{IRQ: func() { fired++ }}
	g.SetSwitches(1)
	g.SetSwitches(1) // no change, no interrupt
	g.SetSwitches(2)
	if fired != 2 {
		t.Fatalf("IRQ fired %d times, want 2", fired)
	}
}
