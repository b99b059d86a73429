package plic

// Memory-mapped register view of the controller, offsets relative to
// the PLIC base address.
const (
	RegPriorityBase = 0x00 // +4*source, sources 1..31
	RegPending      = 0x80 // read-only pending bitset
	RegEnable       = 0x84
	RegThreshold    = 0x88
	RegClaim        = 0x8C // read claims, write completes
)

// Read32 implements the bus device contract.
func (c *Controller) Read32(offset uint32) uint32 {
	switch {
	case offset < RegPending:
		return uint32(c.priority[(offset/4)%MaxSources])
	case offset == RegPending:
		return c.pending
	case offset == RegEnable:
		return c.enable
	case offset == RegThreshold:
		return uint32(c.threshold)
	case offset == RegClaim:
		return c.Claim()
	}
	return 0
}

// Write32 implements the bus device contract; the strobe is ignored,
// PLIC registers are whole-word.
func (c *Controller) Write32(offset, val uint32, _ uint8) {
	switch {
	case offset < RegPending:
		c.SetPriority((offset/4)%MaxSources, uint8(val))
	case offset == RegEnable:
		// Read-modify-write from firmware lands here as the full set.
		c.enable = val &^ 1 // source 0 is never enabled
	case offset == RegThreshold:
		c.SetThreshold(uint8(val))
	case offset == RegClaim:
		c.Complete(val)
	}
}

// Step satisfies the bus device contract; the controller has no
// per-cycle behaviour of its own.
func (c *Controller) Step() {}
