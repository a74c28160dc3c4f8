package waiver

import (
	"context"
	"time"
)

// Client is a scoped database handle passed down from a transaction runner.
// Repositories accept it so callers can compose several writes under one
// lock without each repository opening its own connection.
type Client interface{}

// ClaimsRepository is the persistence boundary for WaiverClaim.
type ClaimsRepository interface {
	Create(ctx context.Context, client Client, claim Claim) (Claim, error)
	FindByID(ctx context.Context, client Client, id string) (Claim, bool, error)
	FindByIdempotencyKey(ctx context.Context, client Client, leagueID, rosterID, key string) (Claim, bool, error)
	GetPendingByRoster(ctx context.Context, client Client, rosterID string) ([]Claim, error)
	GetPendingByProcessingRun(ctx context.Context, client Client, runID string) ([]Claim, error)
	SnapshotClaimsForProcessingRun(ctx context.Context, client Client, leagueID string, season, week int, runID string) (int, error)
	UpdateStatus(ctx context.Context, client Client, id string, status ClaimStatus, reason *string) error
	CancelIfPending(ctx context.Context, client Client, id string) (bool, error)
	UpdateBid(ctx context.Context, client Client, id string, bidAmount int64) error
	UpdateDropPlayer(ctx context.Context, client Client, id string, dropPlayerID *string) error
	ReorderClaims(ctx context.Context, client Client, rosterID string, orderedIDs []string) error
	GetNextClaimOrder(ctx context.Context, client Client, rosterID string, season, week int) (int, error)
	HasPendingClaim(ctx context.Context, client Client, rosterID, playerID string) (bool, error)
}

// PriorityRepository is the persistence boundary for standing-order priority.
type PriorityRepository interface {
	GetByRoster(ctx context.Context, client Client, leagueID, rosterID string, season int) (Priority, bool, error)
	GetByLeague(ctx context.Context, client Client, leagueID string, season int) ([]Priority, error)
	RotatePriority(ctx context.Context, client Client, leagueID, rosterID string, season int) error
	EnsureRosterPriority(ctx context.Context, client Client, leagueID, rosterID string, season int) (Priority, error)
	InitializeForLeague(ctx context.Context, client Client, leagueID string, season int, rosterIDs []string) error
	GetMaxPriority(ctx context.Context, client Client, leagueID string, season int) (int, error)
}

// FaabBudgetRepository is the persistence boundary for FAAB budgets.
type FaabBudgetRepository interface {
	GetByRoster(ctx context.Context, client Client, leagueID, rosterID string, season int) (FaabBudget, bool, error)
	GetByLeague(ctx context.Context, client Client, leagueID string, season int) ([]FaabBudget, error)
	DeductBudget(ctx context.Context, client Client, leagueID, rosterID string, season int, amount int64) error
	EnsureRosterBudget(ctx context.Context, client Client, leagueID, rosterID string, season int, defaultBudget int64) (FaabBudget, error)
	InitializeForLeague(ctx context.Context, client Client, leagueID string, season int, rosterIDs []string, defaultBudget int64) error
}

// WaiverWireRepository is the persistence boundary for wire-gated players.
type WaiverWireRepository interface {
	AddPlayer(ctx context.Context, client Client, entry WireEntry) error
	RemovePlayer(ctx context.Context, client Client, leagueID, playerID string) error
	IsOnWaivers(ctx context.Context, client Client, leagueID, playerID string) (bool, error)
	GetPlayerExpiration(ctx context.Context, client Client, leagueID, playerID string) (time.Time, bool, error)
	GetByLeague(ctx context.Context, client Client, leagueID string) ([]WireEntry, error)
}

// ProcessingRunsRepository is the persistence boundary for the re-entry guard.
type ProcessingRunsRepository interface {
	TryCreate(ctx context.Context, client Client, run ProcessingRun) (ProcessingRun, bool, error)
	UpdateResults(ctx context.Context, client Client, id string, found, successful int) error
	Delete(ctx context.Context, client Client, id string) error
}

// LeagueProvider resolves the narrow league view the waiver engine consumes.
// It is implemented by whatever owns league data; the waiver engine treats
// it purely as a read-only collaborator.
type LeagueProvider interface {
	GetLeagueContext(ctx context.Context, leagueID string) (LeagueContext, bool, error)
	// ListLeaguesWithActiveWaivers returns every league id the scheduled
	// sweep should consider: waivers enabled, season under way.
	ListLeaguesWithActiveWaivers(ctx context.Context) ([]string, error)
}
