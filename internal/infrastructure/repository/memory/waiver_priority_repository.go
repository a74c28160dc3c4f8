package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
)

type WaiverPriorityRepository struct {
	mu    sync.Mutex
	items map[string]waiver.Priority
}

func NewWaiverPriorityRepository() *WaiverPriorityRepository {
	return &WaiverPriorityRepository{items: make(map[string]waiver.Priority)}
}

func priorityKey(leagueID, rosterID string, season int) string {
	return fmt.Sprintf("%s::%s::%d", leagueID, rosterID, season)
}

func (r *WaiverPriorityRepository) GetByRoster(_ context.Context, _ waiver.Client, leagueID, rosterID string, season int) (waiver.Priority, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[priorityKey(leagueID, rosterID, season)]
	return p, ok, nil
}

func (r *WaiverPriorityRepository) GetByLeague(_ context.Context, _ waiver.Client, leagueID string, season int) ([]waiver.Priority, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []waiver.Priority
	for _, p := range r.items {
		if p.LeagueID == leagueID && p.Season == season {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *WaiverPriorityRepository) RotatePriority(_ context.Context, _ waiver.Client, leagueID, rosterID string, season int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[priorityKey(leagueID, rosterID, season)]
	if !ok {
		return fmt.Errorf("priority for roster=%s not found", rosterID)
	}

	max := current.Priority
	for _, p := range r.items {
		if p.LeagueID == leagueID && p.Season == season && p.Priority > max {
			max = p.Priority
		}
	}

	for _, p := range r.items {
		if p.LeagueID == leagueID && p.Season == season && p.Priority > current.Priority {
			p.Priority--
			r.items[priorityKey(leagueID, p.RosterID, season)] = p
		}
	}

	current.Priority = max
	r.items[priorityKey(leagueID, rosterID, season)] = current
	return nil
}

func (r *WaiverPriorityRepository) EnsureRosterPriority(_ context.Context, _ waiver.Client, leagueID, rosterID string, season int) (waiver.Priority, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := priorityKey(leagueID, rosterID, season)
	if p, ok := r.items[key]; ok {
		return p, nil
	}
	max := 0
	for _, p := range r.items {
		if p.LeagueID == leagueID && p.Season == season && p.Priority > max {
			max = p.Priority
		}
	}
	p := waiver.Priority{LeagueID: leagueID, RosterID: rosterID, Season: season, Priority: max + 1}
	r.items[key] = p
	return p, nil
}

func (r *WaiverPriorityRepository) InitializeForLeague(_ context.Context, _ waiver.Client, leagueID string, season int, rosterIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, p := range r.items {
		if p.LeagueID == leagueID && p.Season == season && p.Priority > max {
			max = p.Priority
		}
	}
	for _, rosterID := range rosterIDs {
		key := priorityKey(leagueID, rosterID, season)
		if _, ok := r.items[key]; ok {
			continue
		}
		max++
		r.items[key] = waiver.Priority{LeagueID: leagueID, RosterID: rosterID, Season: season, Priority: max}
	}
	return nil
}

func (r *WaiverPriorityRepository) GetMaxPriority(_ context.Context, _ waiver.Client, leagueID string, season int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, p := range r.items {
		if p.LeagueID == leagueID && p.Season == season && p.Priority > max {
			max = p.Priority
		}
	}
	return max, nil
}
