package waiver

import (
	"errors"
	"testing"
)

func TestValidateClaim(t *testing.T) {
	settings := DefaultLeagueSettings()
	settings.RosterSize = 15
	settings.WaiverType = TypeStandard

	baseRoster := func() *RosterState {
		return NewRosterState("r1", 100, 3, 10, map[string]struct{}{"50": {}})
	}

	dropTarget := "50"

	tests := []struct {
		name            string
		claim           Claim
		wire            WireState
		ownedByOther    bool
		roster          func() *RosterState
		settings        LeagueSettings
		wantReason      string
	}{
		{
			name:     "clean claim passes",
			claim:    Claim{RosterID: "r1", PlayerID: "99"},
			roster:   baseRoster,
			settings: settings,
		},
		{
			name:         "already owned by someone else",
			claim:        Claim{RosterID: "r1", PlayerID: "99"},
			ownedByOther: true,
			roster:       baseRoster,
			settings:     settings,
			wantReason:   "Player already owned",
		},
		{
			name:         "already owned but on expired wire is allowed",
			claim:        Claim{RosterID: "r1", PlayerID: "99"},
			ownedByOther: true,
			wire:         WireState{OnWire: true, Expired: true},
			roster:       baseRoster,
			settings:     settings,
		},
		{
			name:       "drop player no longer on roster",
			claim:      Claim{RosterID: "r1", PlayerID: "99", DropPlayerID: ptr("777")},
			roster:     baseRoster,
			settings:   settings,
			wantReason: "Drop player no longer on roster",
		},
		{
			name:     "drop player still on roster passes",
			claim:    Claim{RosterID: "r1", PlayerID: "99", DropPlayerID: &dropTarget},
			roster:   baseRoster,
			settings: settings,
		},
		{
			name:  "faab over budget",
			claim: Claim{RosterID: "r1", PlayerID: "99", BidAmount: 500},
			roster: baseRoster,
			settings: func() LeagueSettings {
				s := settings
				s.WaiverType = TypeFAAB
				return s
			}(),
			wantReason: "Insufficient FAAB budget",
		},
		{
			name:  "roster full without a drop",
			claim: Claim{RosterID: "r1", PlayerID: "99"},
			roster: func() *RosterState {
				return NewRosterState("r1", 100, 3, 15, map[string]struct{}{"50": {}})
			},
			settings:   settings,
			wantReason: "Roster full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateClaim(tt.claim, tt.wire, tt.ownedByOther, tt.roster(), tt.settings)
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidClaim) {
				t.Fatalf("expected ErrInvalidClaim, got %v", err)
			}
			if got := InvalidReason(err); got != tt.wantReason {
				t.Fatalf("expected reason %q, got %q", tt.wantReason, got)
			}
		})
	}
}

func ptr(s string) *string { return &s }
