package track

import (
	"fmt"
	"testing"
)

func TestSeenSetMarkAndHas(t *testing.T) {
	s := NewSeenSet(100, 50)
	s.Mark("a")
	if !s.Has("a") {
		t.Fatalf("expected 'a' to be present after Mark")
	}
	if s.Has("b") {
		t.Fatalf("did not expect 'b' to be present")
	}
}

func TestSeenSetMarkIdempotent(t *testing.T) {
	s := NewSeenSet(100, 50)
	s.Mark("a")
	s.Mark("a")
	s.Mark("a")
	if got := s.Len(); got != 1 {
		t.Fatalf("duplicate marks changed size: got %d, want 1", got)
	}
}

func TestSeenSetEmptyIDIgnored(t *testing.T) {
	s := NewSeenSet(100, 50)
	s.Mark("")
	if got := s.Len(); got != 0 {
		t.Fatalf("empty id should be ignored, got size %d", got)
	}
	if s.CheckAndMark("") {
		t.Fatalf("empty id should never report as duplicate")
	}
}

func TestSeenSetBoundedFIFOPrune(t *testing.T) {
	const capacity = 10
	const prune = 4
	s := NewSeenSet(capacity, prune)

	// Insert capacity+3 distinct elements one at a time. The first
	// overflow triggers one prune of the oldest batch.
	const extra = 3
	for i := 0; i < capacity+extra; i++ {
		s.Mark(fmt.Sprintf("id-%d", i))
	}

	if got, want := s.Len(), capacity+extra-prune; got != want {
		t.Fatalf("size after prune: got %d, want %d", got, want)
	}
	// The prune oldest-inserted entries must be gone.
	for i := 0; i < prune; i++ {
		if s.Has(fmt.Sprintf("id-%d", i)) {
			t.Errorf("expected oldest entry id-%d to be evicted", i)
		}
	}
	// The newest must survive.
	for i := prune; i < capacity+extra; i++ {
		if !s.Has(fmt.Sprintf("id-%d", i)) {
			t.Errorf("expected newer entry id-%d to be present", i)
		}
	}
}

func TestSeenSetDuplicateMarkKeepsInsertionOrder(t *testing.T) {
	s := NewSeenSet(4, 2)
	s.Mark("first")
	s.Mark("second")
	s.Mark("third")
	// Re-marking "first" must not move it to the back of the FIFO.
	s.Mark("first")
	s.Mark("fourth")
	s.Mark("fifth") // overflow: evicts "first" and "second"

	if s.Has("first") {
		t.Fatalf("re-marked entry should still be evicted in first-seen order")
	}
	if s.Has("second") {
		t.Fatalf("expected 'second' evicted")
	}
	if !s.Has("third") || !s.Has("fourth") || !s.Has("fifth") {
		t.Fatalf("expected newest three entries to survive")
	}
}

func TestSeenSetCheckAndMark(t *testing.T) {
	s := NewSeenSet(100, 50)
	if s.CheckAndMark("x") {
		t.Fatalf("first CheckAndMark should report new")
	}
	if !s.CheckAndMark("x") {
		t.Fatalf("second CheckAndMark should report duplicate")
	}
	if got := s.Len(); got != 1 {
		t.Fatalf("size: got %d, want 1", got)
	}
}
