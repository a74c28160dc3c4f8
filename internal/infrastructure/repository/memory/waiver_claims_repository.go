package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
)

// WaiverClaimsRepository is an in-memory fake of waiver.ClaimsRepository for
// use-case tests, grounded on memory.SquadRepository's mutex+map shape. It
// ignores the waiver.Client argument since there is no real transaction to
// participate in.
type WaiverClaimsRepository struct {
	mu    sync.Mutex
	items map[string]waiver.Claim
}

func NewWaiverClaimsRepository() *WaiverClaimsRepository {
	return &WaiverClaimsRepository{items: make(map[string]waiver.Claim)}
}

func (r *WaiverClaimsRepository) Create(_ context.Context, _ waiver.Client, claim waiver.Claim) (waiver.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[claim.ID] = claim
	return claim, nil
}

func (r *WaiverClaimsRepository) FindByID(_ context.Context, _ waiver.Client, id string) (waiver.Claim, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	claim, ok := r.items[id]
	return claim, ok, nil
}

func (r *WaiverClaimsRepository) FindByIdempotencyKey(_ context.Context, _ waiver.Client, leagueID, rosterID, key string) (waiver.Claim, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.LeagueID == leagueID && c.RosterID == rosterID && c.IdempotencyKey != nil && *c.IdempotencyKey == key {
			return c, true, nil
		}
	}
	return waiver.Claim{}, false, nil
}

func (r *WaiverClaimsRepository) GetPendingByRoster(_ context.Context, _ waiver.Client, rosterID string) ([]waiver.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []waiver.Claim
	for _, c := range r.items {
		if c.RosterID == rosterID && c.Status == waiver.ClaimPending {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClaimOrder < out[j].ClaimOrder })
	return out, nil
}

func (r *WaiverClaimsRepository) GetPendingByProcessingRun(_ context.Context, _ waiver.Client, runID string) ([]waiver.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []waiver.Claim
	for _, c := range r.items {
		if c.ProcessingRunID != nil && *c.ProcessingRunID == runID && c.Status == waiver.ClaimPending {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClaimOrder < out[j].ClaimOrder })
	return out, nil
}

func (r *WaiverClaimsRepository) SnapshotClaimsForProcessingRun(_ context.Context, _ waiver.Client, leagueID string, season, week int, runID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, c := range r.items {
		if c.LeagueID == leagueID && c.Season == season && c.Week == week &&
			c.Status == waiver.ClaimPending && c.ProcessingRunID == nil {
			run := runID
			c.ProcessingRunID = &run
			r.items[id] = c
			count++
		}
	}
	return count, nil
}

func (r *WaiverClaimsRepository) UpdateStatus(_ context.Context, _ waiver.Client, id string, status waiver.ClaimStatus, reason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return fmt.Errorf("claim=%s not found", id)
	}
	c.Status = status
	c.FailureReason = reason
	now := time.Now().UTC()
	c.ProcessedAt = &now
	c.UpdatedAt = now
	r.items[id] = c
	return nil
}

func (r *WaiverClaimsRepository) CancelIfPending(_ context.Context, _ waiver.Client, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok || c.Status != waiver.ClaimPending {
		return false, nil
	}
	c.Status = waiver.ClaimCancelled
	c.UpdatedAt = time.Now().UTC()
	r.items[id] = c
	return true, nil
}

func (r *WaiverClaimsRepository) UpdateBid(_ context.Context, _ waiver.Client, id string, bidAmount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return fmt.Errorf("claim=%s not found", id)
	}
	c.BidAmount = bidAmount
	r.items[id] = c
	return nil
}

func (r *WaiverClaimsRepository) UpdateDropPlayer(_ context.Context, _ waiver.Client, id string, dropPlayerID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return fmt.Errorf("claim=%s not found", id)
	}
	c.DropPlayerID = dropPlayerID
	r.items[id] = c
	return nil
}

func (r *WaiverClaimsRepository) ReorderClaims(_ context.Context, _ waiver.Client, rosterID string, orderedIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, id := range orderedIDs {
		c, ok := r.items[id]
		if !ok || c.RosterID != rosterID {
			return fmt.Errorf("claim=%s is not a pending claim on roster=%s", id, rosterID)
		}
		c.ClaimOrder = i + 1
		r.items[id] = c
	}
	return nil
}

func (r *WaiverClaimsRepository) GetNextClaimOrder(_ context.Context, _ waiver.Client, rosterID string, season, week int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, c := range r.items {
		if c.RosterID == rosterID && c.Season == season && c.Week == week && c.ClaimOrder > max {
			max = c.ClaimOrder
		}
	}
	return max + 1, nil
}

func (r *WaiverClaimsRepository) HasPendingClaim(_ context.Context, _ waiver.Client, rosterID, playerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.RosterID == rosterID && c.PlayerID == playerID && c.Status == waiver.ClaimPending {
			return true, nil
		}
	}
	return false, nil
}
