package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
)

type WaiverWireRepository struct {
	mu    sync.Mutex
	items map[string]waiver.WireEntry
}

func NewWaiverWireRepository() *WaiverWireRepository {
	return &WaiverWireRepository{items: make(map[string]waiver.WireEntry)}
}

func wireKey(leagueID, playerID string) string {
	return leagueID + "::" + playerID
}

func (r *WaiverWireRepository) AddPlayer(_ context.Context, _ waiver.Client, entry waiver.WireEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[wireKey(entry.LeagueID, entry.PlayerID)] = entry
	return nil
}

func (r *WaiverWireRepository) RemovePlayer(_ context.Context, _ waiver.Client, leagueID, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, wireKey(leagueID, playerID))
	return nil
}

func (r *WaiverWireRepository) IsOnWaivers(_ context.Context, _ waiver.Client, leagueID, playerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[wireKey(leagueID, playerID)]
	return ok, nil
}

func (r *WaiverWireRepository) GetPlayerExpiration(_ context.Context, _ waiver.Client, leagueID, playerID string) (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.items[wireKey(leagueID, playerID)]
	if !ok {
		return time.Time{}, false, nil
	}
	return entry.WaiverExpiresAt, true, nil
}

func (r *WaiverWireRepository) GetByLeague(_ context.Context, _ waiver.Client, leagueID string) ([]waiver.WireEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []waiver.WireEntry
	for _, entry := range r.items {
		if entry.LeagueID == leagueID {
			out = append(out, entry)
		}
	}
	return out, nil
}
