// Package plic models a platform-level interrupt controller with the
// claim/complete handshake, plus the handler registry firmware hangs
// off it.
package plic

import (
	"errors"
	"fmt"
)

// Interrupt source ids. Source 0 means "none" and is never claimable.
const (
	SourceNone = 0
	SourceUART = 1
	SourceGPIO = 2
	SourceDMA  = 3
	SourceNPU  = 4

	MaxSources  = 32
	MaxPriority = 7 // 3-bit priority field
)

// ErrBadSource reports an interrupt source id outside [0, MaxSources).
var ErrBadSource = errors.New("interrupt source out of range")

// Handler is an interrupt service callback.
type Handler func()

// Controller holds the interrupt controller state and the ISR table.
// Pending bits may be raised at any time by device models; they are
// observed by the core only at its trap-check points, so dispatch is
// synchronous-sampled rather than preemptive.
type Controller struct {
	priority  [MaxSources]uint8
	enable    uint32
	threshold uint8
	pending   uint32
	claimed   uint32

	handlers [MaxSources]Handler
}

// New returns a controller with every source disabled, all priorities
// zero and the threshold at zero.
func New() *Controller {
	return &Controller{}
}

// Enable sets the enable bit for a source. Source 0 and out-of-range
// ids are ignored, matching the hardware gateway.
func (c *Controller) Enable(source uint32) {
	if source == 0 || source >= MaxSources {
		return
	}
	c.enable |= 1 << source
}

// Disable clears the enable bit for a source; a no-op for bad ids.
func (c *Controller) Disable(source uint32) {
	if source == 0 || source >= MaxSources {
		return
	}
	c.enable &^= 1 << source
}

// SetPriority assigns a source priority, clamped to the 3-bit range.
func (c *Controller) SetPriority(source uint32, priority uint8) {
	if source == 0 || source >= MaxSources {
		return
	}
	if priority > MaxPriority {
		priority = MaxPriority
	}
	c.priority[source] = priority
}

// SetThreshold sets the minimum priority an interrupt must exceed to
// be claimable, clamped to the 3-bit range.
func (c *Controller) SetThreshold(threshold uint8) {
	if threshold > MaxPriority {
		threshold = MaxPriority
	}
	c.threshold = threshold
}

// Raise marks a source pending. Device models call this; bad ids are
// dropped.
func (c *Controller) Raise(source uint32) {
	if source == 0 || source >= MaxSources {
		return
	}
	c.pending |= 1 << source
}

// best returns the claimable source with the highest priority strictly
// above the threshold, ties broken by lowest id; 0 if none.
func (c *Controller) best() uint32 {
	var winner uint32
	var winPrio uint8
	for id := uint32(1); id < MaxSources; id++ {
		bit := uint32(1) << id
		if c.pending&bit == 0 || c.enable&bit == 0 {
			continue
		}
		p := c.priority[id]
		if p <= c.threshold {
			continue
		}
		if winner == 0 || p > winPrio {
			winner, winPrio = id, p
		}
	}
	return winner
}

// HasClaimable reports whether Claim would return a non-zero source.
// The core's trap check polls this each instruction boundary.
func (c *Controller) HasClaimable() bool {
	return c.best() != 0
}

// Claim returns the winning pending source and clears its pending bit,
// marking it claimed until Complete. Returns 0 when nothing qualifies.
func (c *Controller) Claim() uint32 {
	id := c.best()
	if id == 0 {
		return 0
	}
	c.pending &^= 1 << id
	c.claimed |= 1 << id
	return id
}

// Complete finishes the handshake for a claimed source. Completing
// source 0, an unclaimed source or an out-of-range id is a no-op,
// never an error.
func (c *Controller) Complete(source uint32) {
	if source == 0 || source >= MaxSources {
		return
	}
	c.claimed &^= 1 << source
}

// Register installs the service callback for a source. Unregistered
// sources dispatch to a no-op. Out-of-range ids are rejected.
func (c *Controller) Register(source uint32, h Handler) error {
	if source >= MaxSources {
		return fmt.Errorf("%w: %d", ErrBadSource, source)
	}
	c.handlers[source] = h
	return nil
}

// Dispatch runs one full external-interrupt service cycle: claim the
// winning source, invoke its handler, complete. It returns the source
// serviced, 0 if none was pending.
func (c *Controller) Dispatch() uint32 {
	source := c.Claim()
	if source == 0 {
		return 0
	}
	if h := c.handlers[source]; h != nil {
		h()
	}
	c.Complete(source)
	return source
}
