package txrunner

import (
	"context"
	"fmt"
	"sync"

	"github.com/fantasyplatform/waiver-engine/internal/platform/eventbus"
)

// FakeRunner satisfies LockRunner without a database, for use-case tests
// built against the memory repositories. It keeps the real commit/rollback
// contract that matters to callers: events buffered by fn are only handed
// to bus when fn returns nil, and a per-key mutex reproduces RunWithLock's
// serialization of concurrent calls against the same domain+id.
type FakeRunner struct {
	Bus eventbus.Bus

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewFakeRunner(bus eventbus.Bus) *FakeRunner {
	return &FakeRunner{Bus: bus, locks: make(map[string]*sync.Mutex)}
}

func (r *FakeRunner) RunInTransaction(ctx context.Context, fn Fn) error {
	events := eventbus.NewBuffer()
	if err := fn(ctx, nil, events); err != nil {
		return err
	}
	events.Flush(ctx, r.Bus)
	return nil
}

func (r *FakeRunner) RunWithLock(ctx context.Context, domain Domain, id string, fn Fn) error {
	lock := r.lockFor(domain, id)
	lock.Lock()
	defer lock.Unlock()

	events := eventbus.NewBuffer()
	if err := fn(ctx, nil, events); err != nil {
		return err
	}
	events.Flush(ctx, r.Bus)
	return nil
}

func (r *FakeRunner) lockFor(domain Domain, id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%d::%s", domain, id)
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}
