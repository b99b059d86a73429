// Package boot implements the serial bootstrap protocol: a magic
// sequence announces an image, the device acks, the host streams a
// little-endian length and the raw payload, and the device deposits
// it at the fixed load base before handing over control.
package boot

import (
	"encoding/binary"
	"errors"
	"fmt"

	"rvsoc/pkg/peripherals"
	"rvsoc/pkg/soc"
)

// Magic is the image announcement sequence, sent byte-for-byte.
var Magic = [4]byte{0xCA, 0xFE, 0xBA, 0xBE}

// ErrPollTimeout is returned when a bounded receiver exhausts its
// poll budget waiting on the serial port.
var ErrPollTimeout = errors.New("boot: serial port not ready within poll budget")

// Bus is the memory port the receiver deposits the image through.
type Bus interface {
	Read32(addr uint32) uint32
	Write32(addr, val uint32, strobe uint8)
}

// Receiver is the device-side boot routine. It drives the UART
// register window directly, the way the boot ROM does.
type Receiver struct {
	Bus      Bus
	UARTBase uint32
	LoadBase uint32

	// PollBudget bounds each register busy-wait. Zero polls forever,
	// matching the real ROM.
	PollBudget int

	// Tick, when set, is called once per poll iteration so the
	// surrounding machine can keep advancing while the ROM waits.
	Tick func()
}

// NewReceiver returns a receiver wired to the standard memory map.
func NewReceiver(bus Bus) *Receiver {
	return &Receiver{Bus: bus, UARTBase: soc.UARTBase, LoadBase: soc.LoadBase}
}

func (r *Receiver) poll(ready func() bool) error {
	for i := 0; r.PollBudget == 0 || i < r.PollBudget; i++ {
		if ready() {
			return nil
		}
		if r.Tick != nil {
			r.Tick()
		}
	}
	return ErrPollTimeout
}

func (r *Receiver) readByte() (byte, error) {
	err := r.poll(func() bool {
		return r.Bus.Read32(r.UARTBase+peripherals.UARTCtrl)&peripherals.UARTStatusRXValid != 0
	})
	if err != nil {
		return 0, err
	}
	b := byte(r.Bus.Read32(r.UARTBase + peripherals.UARTData))
	r.Bus.Write32(r.UARTBase+peripherals.UARTCtrl, peripherals.UARTCmdRXPop, 0xF)
	return b, nil
}

func (r *Receiver) writeByte(b byte) error {
	err := r.poll(func() bool {
		return r.Bus.Read32(r.UARTBase+peripherals.UARTCtrl)&peripherals.UARTStatusTXBusy == 0
	})
	if err != nil {
		return err
	}
	r.Bus.Write32(r.UARTBase+peripherals.UARTData, uint32(b), 0xF)
	return nil
}

// Receive runs one full download: scan for the magic, ack, read the
// length, deposit the payload at the load base with a progress dot per
// KiB, and close with the prompt. It returns the entry point.
func (r *Receiver) Receive() (entry, size uint32, err error) {
	// Resynchronizing scan: a garbled byte restarts the match, and a
	// byte that re-opens the sequence is not thrown away.
	matched := 0
	for matched < len(Magic) {
		b, err := r.readByte()
		if err != nil {
			return 0, 0, err
		}
		switch b {
		case Magic[matched]:
			matched++
		case Magic[0]:
			matched = 1
		default:
			matched = 0
		}
	}

	if err := r.writeByte('!'); err != nil {
		return 0, 0, err
	}

	var lenBuf [4]byte
	for i := range lenBuf {
		if lenBuf[i], err = r.readByte(); err != nil {
			return 0, 0, err
		}
	}
	size = binary.LittleEndian.Uint32(lenBuf[:])

	for i := uint32(0); i < size; i++ {
		b, err := r.readByte()
		if err != nil {
			return 0, 0, err
		}
		word := r.Bus.Read32(r.LoadBase + i)
		lane := (r.LoadBase + i) & 3
		word = word&^(0xFF<<(8*lane)) | uint32(b)<<(8*lane)
		r.Bus.Write32(r.LoadBase+i, word, 1<<lane)
		if (i+1)%1024 == 0 {
			if err := r.writeByte('.'); err != nil {
				return 0, 0, err
			}
		}
	}

	for _, b := range []byte{'>', '\r', '\n'} {
		if err := r.writeByte(b); err != nil {
			return 0, 0, err
		}
	}
	return r.LoadBase, size, nil
}

// Boot downloads one image into the machine and points the core at
// it. The machine keeps stepping while the ROM polls, so transmit
// timing and interrupts stay live during the download.
func Boot(m *soc.Machine) (uint32, error) {
	r := NewReceiver(m.Bus)
	r.Tick = func() { m.Step() }
	entry, _, err := r.Receive()
	if err != nil {
		return 0, fmt.Errorf("boot receive: %w", err)
	}
	m.Core.Reset(entry)
	return entry, nil
}
