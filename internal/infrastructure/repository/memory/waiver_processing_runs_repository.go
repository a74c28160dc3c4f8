package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
)

type WaiverProcessingRunsRepository struct {
	mu    sync.Mutex
	items map[string]waiver.ProcessingRun
	// windows tracks (league, season, week, window) keys already claimed,
	// mirroring the unique index TryCreate relies on in Postgres.
	windows map[string]struct{}
}

func NewWaiverProcessingRunsRepository() *WaiverProcessingRunsRepository {
	return &WaiverProcessingRunsRepository{
		items:   make(map[string]waiver.ProcessingRun),
		windows: make(map[string]struct{}),
	}
}

func runWindowKey(run waiver.ProcessingRun) string {
	return run.LeagueID + "::" + strconv.Itoa(run.Season) + "::" + strconv.Itoa(run.Week) + "::" + run.WindowStartAt.String()
}

func (r *WaiverProcessingRunsRepository) TryCreate(_ context.Context, _ waiver.Client, run waiver.ProcessingRun) (waiver.ProcessingRun, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := runWindowKey(run)
	if _, exists := r.windows[key]; exists {
		return waiver.ProcessingRun{}, false, nil
	}
	r.windows[key] = struct{}{}
	r.items[run.ID] = run
	return run, true, nil
}

func (r *WaiverProcessingRunsRepository) UpdateResults(_ context.Context, _ waiver.Client, id string, found, successful int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.items[id]
	if !ok {
		return nil
	}
	run.ClaimsFound = found
	run.ClaimsSuccessful = successful
	r.items[id] = run
	return nil
}

func (r *WaiverProcessingRunsRepository) Delete(_ context.Context, _ waiver.Client, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.items[id]; ok {
		delete(r.windows, runWindowKey(run))
	}
	delete(r.items, id)
	return nil
}
