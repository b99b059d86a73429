package peripherals

// GPIO register offsets.
const (
	GPIOLEDs     = 0x00 // R/W
	GPIOSwitches = 0x04 // read-only from the guest
)

// GPIO models the LED bank and switch inputs.
type GPIO struct {
	LEDs uint32

	// IRQ, when set, fires on a switch change (PLIC source 2).
	IRQ func()

	switches uint32
}

// SetSwitches updates the switch inputs from the host side and raises
// the interrupt line when the value actually changes.
func (g *GPIO) SetSwitches(v uint32) {
	if v == g.switches {
		return
	}
	g.switches = v
	if g.IRQ != nil {
		g.IRQ()
	}
}

// Switches returns the current switch inputs.
func (g *GPIO) Switches() uint32 { return g.switches }

// Read32 implements the bus device contract.
func (g *GPIO) Read32(offset uint32) uint32 {
	switch offset {
	case GPIOLEDs:
		return g.LEDs
	case GPIOSwitches:
		return g.switches
	}
	return 0
}

// Write32 implements the bus device contract. Writes to the switch
// register are dropped; it is input-only.
func (g *GPIO) Write32(offset, val uint32, _ uint8) {
	if offset == GPIOLEDs {
		g.LEDs = val
	}
}

// Step is a clock tick; the port has no per-cycle behaviour.
func (g *GPIO) Step() {}

// Restore sets both ports without raising the switch-change interrupt.
func (g *GPIO) Restore(leds, switches uint32) {
	g.LEDs = leds
	g.switches = switches
}
