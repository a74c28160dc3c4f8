package memory

import (
	"context"
	"sync"

	"github.com/fantasyplatform/waiver-engine/internal/domain/trade"
	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
)

// TradesRepository is an in-memory fake of trade.Repository.
type TradesRepository struct {
	mu      sync.Mutex
	trades  map[string]trade.PendingTrade
	players map[string][]string // tradeID -> player ids it references
}

func NewTradesRepository() *TradesRepository {
	return &TradesRepository{
		trades:  make(map[string]trade.PendingTrade),
		players: make(map[string][]string),
	}
}

// Seed registers a pending trade referencing the given players, for test setup.
func (r *TradesRepository) Seed(t trade.PendingTrade, playerIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades[t.ID] = t
	r.players[t.ID] = playerIDs
}

func (r *TradesRepository) FindPendingByPlayer(_ context.Context, _ waiver.Client, leagueID, playerID string) ([]trade.PendingTrade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []trade.PendingTrade
	for tradeID, players := range r.players {
		t := r.trades[tradeID]
		if t.LeagueID != leagueID {
			continue
		}
		if t.Status != trade.StatusPending && t.Status != trade.StatusAccepted && t.Status != trade.StatusInReview {
			continue
		}
		for _, id := range players {
			if id == playerID {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func (r *TradesRepository) ExpireTrade(_ context.Context, _ waiver.Client, tradeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trades[tradeID]
	if !ok {
		return false, nil
	}
	if t.Status != trade.StatusPending && t.Status != trade.StatusAccepted && t.Status != trade.StatusInReview {
		return false, nil
	}
	t.Status = trade.StatusExpired
	r.trades[tradeID] = t
	return true, nil
}
