package waiver

import (
	"testing"
	"time"
)

func TestCompareClaims_FAABTiebreaker(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Claim{ID: "100", RosterID: "r1", BidAmount: 50, CreatedAt: now}
	b := Claim{ID: "200", RosterID: "r2", BidAmount: 50, CreatedAt: now}
	state := map[string]RosterSnapshot{
		"r1": {CurrentPriority: 1},
		"r2": {CurrentPriority: 1},
	}

	if !CompareClaims(a, b, TypeFAAB, state) {
		t.Fatalf("expected claim 100 to sort before claim 200 on id tiebreaker")
	}
	if CompareClaims(b, a, TypeFAAB, state) {
		t.Fatalf("comparator must be antisymmetric")
	}
}

func TestCompareClaims_FAABHigherBidWins(t *testing.T) {
	now := time.Now()
	a := Claim{ID: "1", RosterID: "r1", BidAmount: 60, CreatedAt: now}
	b := Claim{ID: "2", RosterID: "r2", BidAmount: 50, CreatedAt: now}
	state := map[string]RosterSnapshot{
		"r1": {CurrentPriority: 5},
		"r2": {CurrentPriority: 1},
	}

	if !CompareClaims(a, b, TypeFAAB, state) {
		t.Fatalf("expected higher bid to win regardless of priority")
	}
}

func TestCompareClaims_StandardLowerPriorityWins(t *testing.T) {
	now := time.Now()
	a := Claim{ID: "1", RosterID: "r1", CreatedAt: now}
	b := Claim{ID: "2", RosterID: "r2", CreatedAt: now}
	state := map[string]RosterSnapshot{
		"r1": {CurrentPriority: 1},
		"r2": {CurrentPriority: 2},
	}

	if !CompareClaims(a, b, TypeStandard, state) {
		t.Fatalf("expected roster with priority 1 to win")
	}
}

func TestCompareClaims_EarlierCreatedAtWins(t *testing.T) {
	earlier := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Minute)
	a := Claim{ID: "2", RosterID: "r1", CreatedAt: earlier}
	b := Claim{ID: "1", RosterID: "r2", CreatedAt: later}
	state := map[string]RosterSnapshot{
		"r1": {CurrentPriority: 1},
		"r2": {CurrentPriority: 1},
	}

	if !CompareClaims(a, b, TypeStandard, state) {
		t.Fatalf("expected earlier created_at to win despite higher id")
	}
}
