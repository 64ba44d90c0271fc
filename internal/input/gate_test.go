package input

import (
	"testing"
	"time"
)

func TestGateAcceptsFreshOrderedFrames(t *testing.T) {
	now := time.Unix(1000, 0)
	gate := NewGate(GateConfig{MaxAge: time.Second, MinInterval: 0}, WithClock(func() time.Time { return now }))

	//1.- Increasing sequence numbers pass.
	for seq := uint64(1); seq <= 3; seq++ {
		decision := gate.Admit(Frame{ClientID: "c1", SequenceID: seq, SentAt: now})
		if !decision.Accepted {
			t.Fatalf("fresh frame %d rejected: %v", seq, decision.Reason)
		}
	}
}

func TestGateRejectsReplayedSequence(t *testing.T) {
	now := time.Unix(1000, 0)
	gate := NewGate(GateConfig{}, WithClock(func() time.Time { return now }))

	gate.Admit(Frame{ClientID: "c1", SequenceID: 5})
	decision := gate.Admit(Frame{ClientID: "c1", SequenceID: 5})
	if decision.Accepted || decision.Reason != DropReasonSequence {
		t.Fatalf("replayed sequence should be dropped, got %v", decision)
	}
	//1.- Drop counters record the rejection.
	if gate.Drops("c1").Sequence != 1 {
		t.Fatalf("sequence drop not counted")
	}
}

func TestGateRejectsStaleFrames(t *testing.T) {
	now := time.Unix(1000, 0)
	gate := NewGate(GateConfig{MaxAge: 100 * time.Millisecond}, WithClock(func() time.Time { return now }))

	decision := gate.Admit(Frame{ClientID: "c1", SequenceID: 1, SentAt: now.Add(-time.Second)})
	if decision.Accepted || decision.Reason != DropReasonStale {
		t.Fatalf("stale frame should be dropped, got %v", decision)
	}
}

func TestGateRateLimits(t *testing.T) {
	now := time.Unix(1000, 0)
	gate := NewGate(GateConfig{MinInterval: 10 * time.Millisecond}, WithClock(func() time.Time { return now }))

	if !gate.Admit(Frame{ClientID: "c1", SequenceID: 1}).Accepted {
		t.Fatalf("first frame should pass")
	}
	//1.- A frame inside the minimum interval is rejected.
	decision := gate.Admit(Frame{ClientID: "c1", SequenceID: 2})
	if decision.Accepted || decision.Reason != DropReasonRateLimited {
		t.Fatalf("rate limit not applied, got %v", decision)
	}
	//2.- After the interval elapses the next frame passes.
	now = now.Add(20 * time.Millisecond)
	if !gate.Admit(Frame{ClientID: "c1", SequenceID: 3}).Accepted {
		t.Fatalf("frame after interval should pass")
	}
}

func TestGateForget(t *testing.T) {
	gate := NewGate(GateConfig{})
	gate.Admit(Frame{ClientID: "c1", SequenceID: 9})
	gate.Forget("c1")

	//1.- A forgotten client may reuse old sequence numbers.
	if !gate.Admit(Frame{ClientID: "c1", SequenceID: 1}).Accepted {
		t.Fatalf("forgotten client should start fresh")
	}
}
