package postgres

import (
	"context"
	"fmt"

	"github.com/fantasyplatform/waiver-engine/internal/domain/rostertx"
	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	"github.com/fantasyplatform/waiver-engine/internal/platform/txrunner"
)

// RosterTransactionsRepository is the Postgres-backed rostertx.Repository:
// the append-only audit trail of every add/drop/trade a roster makes.
type RosterTransactionsRepository struct{}

func NewRosterTransactionsRepository() *RosterTransactionsRepository {
	return &RosterTransactionsRepository{}
}

func (r *RosterTransactionsRepository) Create(ctx context.Context, client waiver.Client, tx rostertx.Transaction) (rostertx.Transaction, error) {
	sqlTx, err := txrunner.Tx(client)
	if err != nil {
		return rostertx.Transaction{}, err
	}

	const query = `
INSERT INTO roster_transactions (
    id, league_id, roster_id, player_id, type, season, week,
    related_transaction_id, idempotency_key, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
RETURNING created_at`

	var createdAt = tx.CreatedAt
	if err := sqlTx.GetContext(ctx, &createdAt, query,
		tx.ID, tx.LeagueID, tx.RosterID, tx.PlayerID, string(tx.Type), tx.Season, tx.Week,
		tx.RelatedTransactionID, tx.IdempotencyKey,
	); err != nil {
		return rostertx.Transaction{}, fmt.Errorf("record roster transaction: %w", err)
	}
	tx.CreatedAt = createdAt
	return tx, nil
}
