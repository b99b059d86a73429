package plic

import (
	"errors"
	"testing"
)

func TestClaimEmpty(t *testing.T) {
	c := New()
	if got := c.Claim(); got != 0 {
		t.Errorf("Claim() on empty pending set = %d, want 0", got)
	}
}

func TestClaimCompleteCycle(t *testing.T) {
	c := New()
	c.SetPriority(3, 5)
	c.SetThreshold(3)
	c.Enable(3)
	c.Raise(3)

	if got := c.Claim(); got != 3 {
		t.Fatalf("Claim() = %d, want 3", got)
	}
	c.Complete(3)
	if got := c.Claim(); got != 0 {
		t.Errorf("Claim() after complete = %d, want 0", got)
	}
}

func TestThresholdMasks(t *testing.T) {
	c := New()
	c.SetPriority(2, 3)
	c.SetThreshold(3) // priority must be strictly greater
	c.Enable(2)
	c.Raise(2)

	if got := c.Claim(); got != 0 {
		t.Errorf("Claim() with priority == threshold = %d, want 0", got)
	}
	c.SetThreshold(2)
	if got := c.Claim(); got != 2 {
		t.Errorf("Claim() with priority > threshold = %d, want 2", got)
	}
}

func TestDisabledSourceNotClaimable(t *testing.T) {
	c := New()
	c.SetPriority(4, 7)
	c.Raise(4)
	if got := c.Claim(); got != 0 {
		t.Errorf("Claim() on disabled source = %d, want 0", got)
	}
	c.Enable(4)
	c.Disable(4)
	c.Raise(4)
	if got := c.Claim(); got != 0 {
		t.Errorf("Claim() after disable = %d, want 0", got)
	}
}

func TestPriorityOrderAndTieBreak(t *testing.T) {
	c := New()
	for _, id := range []uint32{1, 2, 9} {
		c.Enable(id)
		c.Raise(id)
	}
	c.SetPriority(1, 2)
	c.SetPriority(2, 6)
	c.SetPriority(9, 6)

	// 2 and 9 tie at 6: lowest id wins.
	if got := c.Claim(); got != 2 {
		t.Fatalf("first Claim() = %d, want 2", got)
	}
	if got := c.Claim(); got != 9 {
		t.Fatalf("second Claim() = %d, want 9", got)
	}
	if got := c.Claim(); got != 1 {
		t.Fatalf("third Claim() = %d, want 1", got)
	}
}

func TestPriorityClamp(t *testing.T) {
	c := New()
	c.SetPriority(1, 200)
	if got := c.priority[1]; got != MaxPriority {
		t.Errorf("priority clamped to %d, want %d", got, MaxPriority)
	}
	c.SetThreshold(99)
	if c.threshold != MaxPriority {
		t.Errorf("threshold clamped to %d, want %d", c.threshold, MaxPriority)
	}
}

func TestOutOfRangeSources(t *testing.T) {
	c := New()
	// All of these must be harmless no-ops.
	c.Enable(0)
	c.Enable(32)
	c.Disable(99)
	c.SetPriority(32, 1)
	c.Raise(0)
	c.Raise(1000)
	c.Complete(0)
	c.Complete(32)
	c.Complete(5) // never claimed

	if c.pending != 0 || c.enable != 0 || c.claimed != 0 {
		t.Errorf("out-of-range operations mutated state: %+v", c)
	}

	if err := c.Register(32, func() {}); !errors.Is(err, ErrBadSource) {
		t.Errorf("Register(32): error = %v, want ErrBadSource", err)
	}
}

func TestDispatchRunsHandler(t *testing.T) {
	c := New()
	c.Enable(SourceUART)
	c.SetPriority(SourceUART, 1)

	fired := 0
	if err := c.Register(SourceUART, func() { fired++ }); err != nil {
		t.Fatalf("Register: %v", err)
	}

	c.Raise(SourceUART)
	if got := c.Dispatch(); got != SourceUART {
		t.Fatalf("Dispatch() = %d, want %d", got, SourceUART)
	}
	if fired != 1 {
		t.Errorf("handler fired %d times, want 1", fired)
	}
	// Complete happened inside Dispatch: source is claimable again.
	c.Raise(SourceUART)
	if got := c.Dispatch(); got != SourceUART {
		t.Errorf("second Dispatch() = %d, want %d", got, SourceUART)
	}
}

func TestDispatchUnregisteredIsNoop(t *testing.T) {
	c := New()
	c.Enable(7)
	c.SetPriority(7, 1)
	c.Raise(7)
	if got := c.Dispatch(); got != 7 {
		t.Errorf("Dispatch() = %d, want 7", got)
	}
}

func TestMMIOView(t *testing.T) {
	c := New()
	c.Write32(RegPriorityBase+4*SourceDMA, 5, 0xF)
	c.Write32(RegEnable, 1<<SourceDMA|1, 0xF) // bit 0 must be ignored
	c.Write32(RegThreshold, 2, 0xF)
	c.Raise(SourceDMA)

	if got := c.Read32(RegPriorityBase + 4*SourceDMA); got != 5 {
		t.Errorf("priority readback = %d, want 5", got)
	}
	if got := c.Read32(RegPending); got != 1<<SourceDMA {
		t.Errorf("pending = %#x, want %#x", got, 1<<SourceDMA)
	}
	if got := c.Read32(RegEnable); got != 1<<SourceDMA {
		t.Errorf("enable = %#x, want %#x (source 0 stripped)", got, 1<<SourceDMA)
	}

	// Reading the claim register performs the claim.
	if got := c.Read32(RegClaim); got != SourceDMA {
		t.Fatalf("claim read = %d, want %d", got, SourceDMA)
	}
	// Writing it completes.
	c.Write32(RegClaim, SourceDMA, 0xF)
	if c.claimed != 0 {
		t.Errorf("claimed bits = %#x after complete, want 0", c.claimed)
	}
}
