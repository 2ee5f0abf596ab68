package track

import "testing"

func TestEngagementTrackerIndependentSets(t *testing.T) {
	tr := NewEngagementTracker()

	tr.MarkLiked("p1")
	if !tr.HasLiked("p1") {
		t.Fatalf("expected p1 liked")
	}
	if tr.HasReplied("p1") || tr.HasSeen("p1") {
		t.Fatalf("marking liked must not leak into other sets")
	}

	tr.MarkFollowed("alice")
	tr.MarkChallengeJoined("c1")
	tr.MarkDebated("d1")
	tr.MarkSeen("p2")
	tr.MarkReplied("p3")

	if !tr.HasFollowed("alice") || !tr.HasJoinedChallenge("c1") || !tr.HasDebated("d1") {
		t.Fatalf("expected all marks retrievable")
	}
	if !tr.HasSeen("p2") || !tr.HasReplied("p3") {
		t.Fatalf("expected seen/replied marks retrievable")
	}
}

func TestEngagementTrackerMarkIdempotent(t *testing.T) {
	tr := NewEngagementTracker()
	tr.MarkSeen("p1")
	tr.MarkSeen("p1")
	if got := tr.seen.Len(); got != 1 {
		t.Fatalf("duplicate MarkSeen changed size: got %d, want 1", got)
	}
}
