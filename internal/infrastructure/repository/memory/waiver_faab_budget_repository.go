package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
)

type WaiverFaabBudgetRepository struct {
	mu    sync.Mutex
	items map[string]waiver.FaabBudget
}

func NewWaiverFaabBudgetRepository() *WaiverFaabBudgetRepository {
	return &WaiverFaabBudgetRepository{items: make(map[string]waiver.FaabBudget)}
}

func budgetKey(leagueID, rosterID string, season int) string {
	return fmt.Sprintf("%s::%s::%d", leagueID, rosterID, season)
}

func (r *WaiverFaabBudgetRepository) GetByRoster(_ context.Context, _ waiver.Client, leagueID, rosterID string, season int) (waiver.FaabBudget, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[budgetKey(leagueID, rosterID, season)]
	return b, ok, nil
}

func (r *WaiverFaabBudgetRepository) GetByLeague(_ context.Context, _ waiver.Client, leagueID string, season int) ([]waiver.FaabBudget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []waiver.FaabBudget
	for _, b := range r.items {
		if b.LeagueID == leagueID && b.Season == season {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *WaiverFaabBudgetRepository) DeductBudget(_ context.Context, _ waiver.Client, leagueID, rosterID string, season int, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := budgetKey(leagueID, rosterID, season)
	b, ok := r.items[key]
	if !ok || b.RemainingBudget < amount {
		return fmt.Errorf("insufficient remaining budget for roster=%s", rosterID)
	}
	b.RemainingBudget -= amount
	r.items[key] = b
	return nil
}

func (r *WaiverFaabBudgetRepository) EnsureRosterBudget(_ context.Context, _ waiver.Client, leagueID, rosterID string, season int, defaultBudget int64) (waiver.FaabBudget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := budgetKey(leagueID, rosterID, season)
	if b, ok := r.items[key]; ok {
		return b, nil
	}
	b := waiver.FaabBudget{LeagueID: leagueID, RosterID: rosterID, Season: season, InitialBudget: defaultBudget, RemainingBudget: defaultBudget}
	r.items[key] = b
	return b, nil
}

func (r *WaiverFaabBudgetRepository) InitializeForLeague(_ context.Context, _ waiver.Client, leagueID string, season int, rosterIDs []string, defaultBudget int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rosterID := range rosterIDs {
		key := budgetKey(leagueID, rosterID, season)
		if _, ok := r.items[key]; ok {
			continue
		}
		r.items[key] = waiver.FaabBudget{LeagueID: leagueID, RosterID: rosterID, Season: season, InitialBudget: defaultBudget, RemainingBudget: defaultBudget}
	}
	return nil
}
