package soc

import (
	"rvsoc/pkg/peripherals"
	"rvsoc/pkg/plic"
	"rvsoc/pkg/rv32"
)

// Physical memory map.
const (
	PLICBase = 0x0C000000
	UARTBase = 0x10000000
	GPIOBase = 0x20000000
	VGABase  = 0x30000000
	DMABase  = 0x40000000
	RAMBase  = 0x80000000
	NPUBase  = 0x90000000

	// LoadBase is where the boot loader deposits program images,
	// leaving the first 2 KiB of RAM for vectors and boot scratch.
	LoadBase = RAMBase + 0x800

	DefaultRAMSize = 1 << 20

	// McauseExternal is the machine external interrupt cause code.
	McauseExternal = 0x8000000B
)

// Machine is the full system: core, interconnect, memory and devices,
// advanced one clock cycle at a time.
type Machine struct {
	Core *rv32.Core
	Bus  *Bus
	RAM  *RAM
	UART *peripherals.UART
	GPIO *peripherals.GPIO
	VGA  *peripherals.VGA
	NPU  *peripherals.NPU
	PLIC *plic.Controller
	DMA  *DMA

	// MIE is the machine-level master interrupt enable. Traps are
	// only taken at an instruction fetch boundary.
	MIE    bool
	Mepc   uint32
	Mcause uint32

	Cycles uint64
}

// NewMachine wires the standard system: every device on the bus, every
// interrupt line into the PLIC.
func NewMachine() *Machine {
	m := &Machine{
		Bus:  &Bus{},
		RAM:  NewRAM(DefaultRAMSize),
		UART: &peripherals.UART{},
		GPIO: &peripherals.GPIO{},
		VGA:  &peripherals.VGA{},
		NPU:  &peripherals.NPU{OutputLatency: 4},
		PLIC: plic.New(),
	}
	m.DMA = NewDMA(m.Bus)
	m.Core = rv32.NewCore(m.Bus)

	m.UART.IRQ = func() { m.PLIC.Raise(plic.SourceUART) }
	m.GPIO.IRQ = func() { m.PLIC.Raise(plic.SourceGPIO) }
	m.DMA.IRQ = func() { m.PLIC.Raise(plic.SourceDMA) }
	m.NPU.IRQ = func() { m.PLIC.Raise(plic.SourceNPU) }

	m.Bus.Map(PLICBase, 0x1000, m.PLIC)
	m.Bus.Map(UARTBase, 0x1000, m.UART)
	m.Bus.Map(GPIOBase, 0x1000, m.GPIO)
	m.Bus.Map(VGABase, 0x20000, m.VGA)
	m.Bus.Map(DMABase, 0x1000, m.DMA)
	m.Bus.Map(RAMBase, m.RAM.Size(), m.RAM)
	m.Bus.Map(NPUBase, 0x1000, m.NPU)
	return m
}

// LoadImage copies a flat binary to the load base and points the core
// at it.
func (m *Machine) LoadImage(image []byte) error {
	return m.LoadImageAt(image, LoadBase)
}

// LoadImageAt loads an image at an arbitrary RAM address and resets
// the core to execute from it.
func (m *Machine) LoadImageAt(image []byte, entry uint32) error {
	if err := m.RAM.LoadImage(entry-RAMBase, image); err != nil {
		return err
	}
	m.Core.Reset(entry)
	return nil
}

// Step advances the whole system one clock cycle: pending-interrupt
// check at the fetch boundary, one core cycle, one DMA grant decision,
// one tick of every free-running device.
func (m *Machine) Step() error {
	if m.MIE && m.Core.State == rv32.IFAddr && m.PLIC.HasClaimable() {
		m.Mepc = m.Core.PC
		m.Mcause = McauseExternal
		m.PLIC.Dispatch()
	}

	// Arbitration: the core's data-port cycles win; DMA moves a word
	// on every other cycle.
	granted := !m.Core.State.DataMemCycle()
	err := m.Core.StepCycle()
	m.DMA.Tick(granted)

	m.UART.Step()
	m.VGA.Step()
	m.NPU.Step()
	m.Cycles++
	return err
}

// Halted reports whether the core is spinning on a jump-to-self, the
// conventional firmware idle/exit loop.
func (m *Machine) Halted() bool {
	return m.Cycles > 0 && m.Core.State == rv32.IFAddr && m.Core.PC == m.Core.OldPC
}

// Run steps until halt, fault, or the cycle cap (0 = no cap). It
// returns the number of cycles executed in this call.
func (m *Machine) Run(maxCycles uint64) (uint64, error) {
	var n uint64
	for maxCycles == 0 || n < maxCycles {
		if m.Halted() {
			break
		}
		if err := m.Step(); err != nil {
			return n + 1, err
		}
		n++
	}
	return n, nil
}
