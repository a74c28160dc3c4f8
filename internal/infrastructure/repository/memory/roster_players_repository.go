package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/fantasyplatform/waiver-engine/internal/domain/roster"
	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
)

// RosterPlayersRepository is an in-memory fake of roster.Repository.
type RosterPlayersRepository struct {
	mu      sync.Mutex
	rosters map[string]roster.Roster            // keyed by league::rosterID
	owned   map[string]map[string]struct{}       // rosterID -> set of playerIDs
	league  map[string]string                    // rosterID -> leagueID, for the owned-by-league scan
}

func NewRosterPlayersRepository() *RosterPlayersRepository {
	return &RosterPlayersRepository{
		rosters: make(map[string]roster.Roster),
		owned:   make(map[string]map[string]struct{}),
		league:  make(map[string]string),
	}
}

// Seed registers a roster and its starting player set, for test setup.
func (r *RosterPlayersRepository) Seed(ros roster.Roster, playerIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rosters[rosterKey(ros.LeagueID, ros.RosterID)] = ros
	r.league[ros.RosterID] = ros.LeagueID
	set := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		set[id] = struct{}{}
	}
	r.owned[ros.RosterID] = set
}

func rosterKey(leagueID, rosterID string) string {
	return leagueID + "::" + rosterID
}

func (r *RosterPlayersRepository) FindOwner(_ context.Context, _ waiver.Client, leagueID, playerID, _ string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for rosterID, players := range r.owned {
		if r.league[rosterID] != leagueID {
			continue
		}
		if _, ok := players[playerID]; ok {
			return rosterID, true, nil
		}
	}
	return "", false, nil
}

func (r *RosterPlayersRepository) FindByRosterAndPlayer(_ context.Context, _ waiver.Client, rosterID, playerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.owned[rosterID][playerID]
	return ok, nil
}

func (r *RosterPlayersRepository) AddPlayer(_ context.Context, _ waiver.Client, rosterID, playerID string, _ roster.AcquiredType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	leagueID := r.league[rosterID]
	for otherRoster, players := range r.owned {
		if otherRoster == rosterID || r.league[otherRoster] != leagueID {
			continue
		}
		if _, ok := players[playerID]; ok {
			return fmt.Errorf("%w: player=%s", waiver.ErrOwnershipConflict, playerID)
		}
	}
	if r.owned[rosterID] == nil {
		r.owned[rosterID] = make(map[string]struct{})
	}
	r.owned[rosterID][playerID] = struct{}{}
	return nil
}

func (r *RosterPlayersRepository) RemovePlayer(_ context.Context, _ waiver.Client, rosterID, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.owned[rosterID], playerID)
	return nil
}

func (r *RosterPlayersRepository) GetPlayerCount(_ context.Context, _ waiver.Client, rosterID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owned[rosterID]), nil
}

func (r *RosterPlayersRepository) GetPlayerIDsByRoster(_ context.Context, _ waiver.Client, rosterID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.owned[rosterID]))
	for id := range r.owned[rosterID] {
		out = append(out, id)
	}
	return out, nil
}

func (r *RosterPlayersRepository) GetOwnedPlayerIDsByLeague(_ context.Context, _ waiver.Client, leagueID, _ string) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]struct{})
	for rosterID, players := range r.owned {
		if r.league[rosterID] != leagueID {
			continue
		}
		for id := range players {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (r *RosterPlayersRepository) GetByRosterID(_ context.Context, leagueID, rosterID string) (roster.Roster, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ros, ok := r.rosters[rosterKey(leagueID, rosterID)]
	return ros, ok, nil
}
