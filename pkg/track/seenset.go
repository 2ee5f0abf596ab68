package track

import "sync"

// SeenSet is a bounded, insertion-ordered membership set of string IDs.
// When the set grows past its capacity, the oldest pruneBatch entries are
// evicted in one pass (FIFO). Marking an already-present ID is idempotent
// and does not change its insertion position.
type SeenSet struct {
	mu         sync.Mutex
	members    map[string]struct{}
	order      []string
	capacity   int
	pruneBatch int
}

// NewSeenSet returns a SeenSet with the given capacity and prune batch.
// A non-positive pruneBatch defaults to capacity/2.
func NewSeenSet(capacity, pruneBatch int) *SeenSet {
	if capacity <= 0 {
		capacity = DefaultMaxTracked
	}
	if pruneBatch <= 0 || pruneBatch > capacity {
		pruneBatch = capacity / 2
	}
	return &SeenSet{
		members:    make(map[string]struct{}),
		capacity:   capacity,
		pruneBatch: pruneBatch,
	}
}

// Mark records id as seen. Duplicate marks are no-ops.
func (s *SeenSet) Mark(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[id]; ok {
		return
	}
	s.members[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.members) > s.capacity {
		s.pruneLocked()
	}
}

// Has reports whether id was marked and not yet evicted.
func (s *SeenSet) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[id]
	return ok
}

// CheckAndMark marks id and reports whether it was already present.
// The check and the insert happen under one lock acquisition, so two
// sources racing on the same ID see exactly one "new" outcome.
func (s *SeenSet) CheckAndMark(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[id]; ok {
		return true
	}
	s.members[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.members) > s.capacity {
		s.pruneLocked()
	}
	return false
}

// Len reports the current number of members.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

func (s *SeenSet) pruneLocked() {
	n := s.pruneBatch
	if n > len(s.order) {
		n = len(s.order)
	}
	for _, id := range s.order[:n] {
		delete(s.members, id)
	}
	s.order = append([]string(nil), s.order[n:]...)
}
