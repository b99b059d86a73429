// Package peripherals holds the memory-mapped device models hung off
// the system bus: UART, GPIO, VGA framebuffer and the NPU co-processor.
package peripherals

import (
	"io"
	"os"
	"sync"
)

// UART register offsets and bits.
const (
	UARTData = 0x00
	UARTCtrl = 0x04

	UARTStatusTXBusy  = 1 << 0 // read
	UARTStatusRXValid = 1 << 1 // read
	UARTCmdRXPop      = 1 << 0 // write: drop the RX head byte
	UARTCmdRXFlush    = 1 << 2 // write: discard the whole RX FIFO
)

// UART models the serial port. TX bytes go to Output; RX bytes are fed
// from the host side with PushByte. Reads of the data register peek
// the RX head; firmware pops it explicitly via the control register.
type UART struct {
	// Output receives transmitted bytes. os.Stdout if nil.
	Output io.Writer

	// TxTime is how many cycles the TX-busy bit stays up per byte.
	// Zero means transmission completes instantly.
	TxTime int

	// IRQ, when set, is invoked each time an RX byte arrives
	// (typically wired to the PLIC pending bit for source 1).
	IRQ func()

	mu     sync.Mutex
	rx     []byte
	txBusy int
}

func (u *UART) sink() io.Writer {
	if u.Output != nil {
		return u.Output
	}
	return os.Stdout
}

// PushByte appends a byte to the RX FIFO, as if it arrived on the
// wire. Safe to call from another goroutine (monitor, TCP bridge).
func (u *UART) PushByte(b byte) {
	u.mu.Lock()
	u.rx = append(u.rx, b)
	irq := u.IRQ
	u.mu.Unlock()
	if irq != nil {
		irq()
	}
}

// Read32 implements the bus device contract.
func (u *UART) Read32(offset uint32) uint32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	switch offset {
	case UARTData:
		if len(u.rx) > 0 {
			return uint32(u.rx[0]) // peek; POP discards
		}
		return 0
	case UARTCtrl:
		var s uint32
		if u.txBusy > 0 {
			s |= UARTStatusTXBusy
		}
		if len(u.rx) > 0 {
			s |= UARTStatusRXValid
		}
		return s
	}
	return 0
}

// Write32 implements the bus device contract.
func (u *UART) Write32(offset, val uint32, _ uint8) {
	u.mu.Lock()
	switch offset {
	case UARTData:
		u.txBusy = u.TxTime
		w := u.sink()
		u.mu.Unlock()
		w.Write([]byte{byte(val)})
		return
	case UARTCtrl:
		if val&UARTCmdRXFlush != 0 {
			u.rx = nil
		} else if val&UARTCmdRXPop != 0 && len(u.rx) > 0 {
			u.rx = u.rx[1:]
		}
	}
	u.mu.Unlock()
}

// Step advances the transmitter timing by one cycle.
func (u *UART) Step() {
	u.mu.Lock()
	if u.txBusy > 0 {
		u.txBusy--
	}
	u.mu.Unlock()
}

// UARTState is the serializable channel state.
type UARTState struct {
	RX     []byte `json:"rx"`
	TXBusy int    `json:"tx_busy"`
}

func (u *UART) State() UARTState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return UARTState{RX: append([]byte(nil), u.rx...), TXBusy: u.txBusy}
}

func (u *UART) Restore(s UARTState) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rx = append([]byte(nil), s.RX...)
	u.txBusy = s.TXBusy
}
