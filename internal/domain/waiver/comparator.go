package waiver

// RosterSnapshot is the live priority/budget view the comparator reads
// instead of the claim's own stale priority_at_claim.
type RosterSnapshot struct {
	CurrentPriority int
}

// CompareClaims returns true if a should be resolved before b under the
// league's waiver type, given each claim's roster's current live state.
// The ordering is a strict total order: ties always fall through to
// created_at then id, so results are deterministic regardless of input order.
func CompareClaims(a, b Claim, waiverType Type, rosterState map[string]RosterSnapshot) bool {
	if waiverType == TypeFAAB {
		if a.BidAmount != b.BidAmount {
			return a.BidAmount > b.BidAmount
		}
	}

	aPriority := rosterState[a.RosterID].CurrentPriority
	bPriority := rosterState[b.RosterID].CurrentPriority
	if aPriority != bPriority {
		return aPriority < bPriority
	}

	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}

	return a.ID < b.ID
}
