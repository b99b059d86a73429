package plic

// State is the serializable controller state. Handlers are host-side
// callbacks and are not part of it; callers re-register them after a
// restore.
type State struct {
	Priority  [MaxSources]uint8 `json:"priority"`
	Enable    uint32            `json:"enable"`
	Pending   uint32            `json:"pending"`
	Claimed   uint32            `json:"claimed"`
	Threshold uint8             `json:"threshold"`
}

func (c *Controller) State() State {
	return State{
		Priority:  c.priority,
		Enable:    c.enable,
		Pending:   c.pending,
		Claimed:   c.claimed,
		Threshold: c.threshold,
	}
}

func (c *Controller) Restore(s State) {
	c.priority = s.Priority
	c.enable = s.Enable &^ 1
	c.pending = s.Pending &^ 1
	c.claimed = s.Claimed
	c.threshold = s.Threshold
	if c.threshold > MaxPriority {
		c.threshold = MaxPriority
	}
}
