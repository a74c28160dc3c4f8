package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fantasyplatform/waiver-engine/internal/domain/rostertx"
	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
)

// RosterTransactionsRepository is an in-memory fake of rostertx.Repository.
type RosterTransactionsRepository struct {
	mu    sync.Mutex
	items []rostertx.Transaction
}

func NewRosterTransactionsRepository() *RosterTransactionsRepository {
	return &RosterTransactionsRepository{}
}

func (r *RosterTransactionsRepository) Create(_ context.Context, _ waiver.Client, tx rostertx.Transaction) (rostertx.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx.CreatedAt = time.Now().UTC()
	r.items = append(r.items, tx)
	return tx, nil
}

// All returns every recorded transaction, for test assertions.
func (r *RosterTransactionsRepository) All() []rostertx.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]rostertx.Transaction(nil), r.items...)
}
