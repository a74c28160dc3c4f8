package memory

import (
	"context"
	"sync"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
)

// WaiverLeagueProvider is a fixed-table fake of waiver.LeagueProvider for
// tests: leagues are registered up front rather than discovered from a
// real league-data service.
type WaiverLeagueProvider struct {
	mu      sync.Mutex
	leagues map[string]waiver.LeagueContext
}

func NewWaiverLeagueProvider() *WaiverLeagueProvider {
	return &WaiverLeagueProvider{leagues: make(map[string]waiver.LeagueContext)}
}

func (p *WaiverLeagueProvider) Register(ctx waiver.LeagueContext) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.leagues[ctx.ID] = ctx
}

func (p *WaiverLeagueProvider) GetLeagueContext(_ context.Context, leagueID string) (waiver.LeagueContext, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ctx, ok := p.leagues[leagueID]
	return ctx, ok, nil
}

func (p *WaiverLeagueProvider) ListLeaguesWithActiveWaivers(_ context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []string
	for id, ctx := range p.leagues {
		if ctx.Settings.WaiverType != waiver.TypeNone && ctx.CurrentWeek != nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
