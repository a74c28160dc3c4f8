package waiver

import "errors"

// ErrInvalidClaim wraps a per-claim validation failure with a human-readable
// reason that becomes the claim's failure_reason when marked invalid.
var ErrInvalidClaim = errors.New("claim invalid")

// WireState is the subset of wire-gate information ValidateClaim needs for
// one candidate player, supplied by the processor from its preloaded state.
type WireState struct {
	OnWire              bool
	Expired             bool
	SubmittedBeforeGate bool // claim.CreatedAt is before WaiverExpiresAt
}

// ValidateClaim runs the in-memory per-round checks from the processor's
// validation step, in the fixed order the first failure decides. It never
// touches the database; all state is passed in by the caller.
func ValidateClaim(claim Claim, wire WireState, ownedByOtherRoster bool, roster *RosterState, settings LeagueSettings) error {
	if ownedByOtherRoster {
		allowedByWire := wire.OnWire && (wire.Expired || wire.SubmittedBeforeGate)
		if !allowedByWire {
			return invalid("Player already owned")
		}
	}

	if claim.DropPlayerID != nil {
		if !roster.Owns(*claim.DropPlayerID) {
			return invalid("Drop player no longer on roster")
		}
	}

	if settings.WaiverType == TypeFAAB && claim.BidAmount > roster.RemainingBudget {
		return invalid("Insufficient FAAB budget")
	}

	if claim.DropPlayerID == nil && roster.CurrentRosterSize >= settings.RosterSize {
		return invalid("Roster full")
	}

	return nil
}

func invalid(reason string) error {
	return &claimInvalidError{reason: reason}
}

type claimInvalidError struct {
	reason string
}

func (e *claimInvalidError) Error() string { return e.reason }

func (e *claimInvalidError) Unwrap() error { return ErrInvalidClaim }

// InvalidReason extracts the human-readable reason from an error returned
// by ValidateClaim, or "" if err is not such an error.
func InvalidReason(err error) string {
	var e *claimInvalidError
	if errors.As(err, &e) {
		return e.reason
	}
	return ""
}
