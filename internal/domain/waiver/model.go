package waiver

import "time"

// Type selects which resolution rule a league uses for waiver claims.
type Type string

const (
	TypeStandard Type = "standard"
	TypeFAAB     Type = "faab"
	TypeNone     Type = "none"
)

// ClaimStatus is the lifecycle state of a WaiverClaim.
type ClaimStatus string

const (
	ClaimPending    ClaimStatus = "pending"
	ClaimSuccessful ClaimStatus = "successful"
	ClaimFailed     ClaimStatus = "failed"
	ClaimInvalid    ClaimStatus = "invalid"
	ClaimCancelled  ClaimStatus = "cancelled"
)

// TransactionType identifies how a player entered or left a roster.
type TransactionType string

const (
	TransactionAdd   TransactionType = "add"
	TransactionDrop  TransactionType = "drop"
	TransactionTrade TransactionType = "trade"
)

// LeagueSettings carries the waiver-relevant subset of a league's configuration.
// The rest of the league entity (fixtures, scoring, standings) is a different
// bounded context and is never referenced here.
type LeagueSettings struct {
	WaiverType       Type
	FaabBudget       int64
	WaiverDay        int // 0-6, Sunday-based
	WaiverHour       int // 0-23
	WaiverPeriodDays int
	RosterSize       int
	Timezone         string // IANA name, empty means UTC
}

func DefaultLeagueSettings() LeagueSettings {
	return LeagueSettings{
		WaiverType:       TypeStandard,
		FaabBudget:       100,
		WaiverDay:        2,
		WaiverHour:       3,
		WaiverPeriodDays: 2,
		RosterSize:       15,
	}
}

// LeagueContext is the narrow view of a league the waiver engine consumes.
// It is fetched from whatever owns league data; the waiver engine never
// mutates it.
type LeagueContext struct {
	ID                   string
	Season               int
	CurrentWeek          *int // nil means pre-season
	Settings             LeagueSettings
	ActiveLeagueSeasonID string
}

// Priority is a roster's standing order within a league-season. Priority 1 is best.
type Priority struct {
	LeagueID string
	RosterID string
	Season   int
	Priority int
}

// FaabBudget tracks a roster's remaining acquisition budget for a season.
type FaabBudget struct {
	LeagueID        string
	RosterID        string
	Season          int
	InitialBudget   int64
	RemainingBudget int64
}

// Claim is a single pending or resolved waiver claim.
type Claim struct {
	ID              string
	LeagueID        string
	RosterID        string
	PlayerID        string
	DropPlayerID    *string
	BidAmount       int64
	PriorityAtClaim int
	Status          ClaimStatus
	Season          int
	Week            int
	ClaimOrder      int
	ProcessingRunID *string
	IdempotencyKey  *string
	ProcessedAt     *time.Time
	FailureReason   *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WireEntry marks a player gated behind a claim until expiry.
type WireEntry struct {
	LeagueID          string
	PlayerID          string
	DroppedByRosterID *string
	WaiverExpiresAt   time.Time
	Season            int
	Week              int
}

// ProcessingRun is the append-only record of one scheduled or manual resolution
// pass. Its unique (league, season, week, window_start_at) index is the
// idempotence anchor that makes re-entrant scheduling safe.
type ProcessingRun struct {
	ID               string
	LeagueID         string
	Season           int
	Week             int
	WindowStartAt    time.Time
	ClaimsFound      int
	ClaimsSuccessful int
	RanAt            time.Time
}

// RosterState is the per-roster working set the processor mutates in memory
// across rounds of a single run. It is owned exclusively by the goroutine
// running ProcessLeagueClaims for one league and never shared across requests.
type RosterState struct {
	RosterID          string
	RemainingBudget   int64
	CurrentPriority   int
	OwnedPlayerIDs    map[string]struct{}
	ProcessedClaimIDs map[string]struct{}
	CurrentRosterSize int
}

func NewRosterState(rosterID string, budget int64, priority, rosterSize int, owned map[string]struct{}) *RosterState {
	if owned == nil {
		owned = make(map[string]struct{})
	}
	return &RosterState{
		RosterID:          rosterID,
		RemainingBudget:   budget,
		CurrentPriority:   priority,
		OwnedPlayerIDs:    owned,
		ProcessedClaimIDs: make(map[string]struct{}),
		CurrentRosterSize: rosterSize,
	}
}

func (s *RosterState) Owns(playerID string) bool {
	_, ok := s.OwnedPlayerIDs[playerID]
	return ok
}

func (s *RosterState) MarkProcessed(claimID string) {
	s.ProcessedClaimIDs[claimID] = struct{}{}
}

func (s *RosterState) IsProcessed(claimID string) bool {
	_, ok := s.ProcessedClaimIDs[claimID]
	return ok
}
