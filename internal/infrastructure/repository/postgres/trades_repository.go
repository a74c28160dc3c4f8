package postgres

import (
	"context"
	"fmt"

	"github.com/fantasyplatform/waiver-engine/internal/domain/trade"
	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	"github.com/fantasyplatform/waiver-engine/internal/platform/txrunner"
)

type tradeRow struct {
	ID       string `db:"id"`
	LeagueID string `db:"league_id"`
	Status   string `db:"status"`
}

func (r tradeRow) toDomain() trade.PendingTrade {
	return trade.PendingTrade{ID: r.ID, LeagueID: r.LeagueID, Status: trade.Status(r.Status)}
}

// TradesRepository is the Postgres-backed trade.Repository. It reads from
// trade_players, a junction table of every player named (offered or
// requested) by a trade, so a single player id lookup surfaces every trade
// a waiver move could invalidate.
type TradesRepository struct{}

func NewTradesRepository() *TradesRepository {
	return &TradesRepository{}
}

func (r *TradesRepository) FindPendingByPlayer(ctx context.Context, client waiver.Client, leagueID, playerID string) ([]trade.PendingTrade, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return nil, err
	}

	const query = `
SELECT DISTINCT t.id, t.league_id, t.status
FROM trades t
JOIN trade_players tp ON tp.trade_id = t.id
WHERE t.league_id = $1 AND tp.player_id = $2
  AND t.status IN ('pending', 'accepted', 'in_review')`

	var rows []tradeRow
	if err := tx.SelectContext(ctx, &rows, query, leagueID, playerID); err != nil {
		return nil, fmt.Errorf("find pending trades by player: %w", err)
	}
	out := make([]trade.PendingTrade, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *TradesRepository) ExpireTrade(ctx context.Context, client waiver.Client, tradeID string) (bool, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return false, err
	}

	const query = `
UPDATE trades
SET status = 'expired', updated_at = NOW()
WHERE id = $1 AND status IN ('pending', 'accepted', 'in_review')`

	result, err := tx.ExecContext(ctx, query, tradeID)
	if err != nil {
		return false, fmt.Errorf("expire trade: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("count expired trades: %w", err)
	}
	return affected > 0, nil
}
