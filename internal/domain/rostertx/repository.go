package rostertx

import (
	"context"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
)

// Repository is the persistence boundary for roster transactions. Create
// inserts the transaction and returns it with its stored created_at; it does
// not look up or return an existing record with the same idempotency_key.
type Repository interface {
	Create(ctx context.Context, client waiver.Client, tx Transaction) (Transaction, error)
}
