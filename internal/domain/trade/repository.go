package trade

import (
	"context"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
)

// Repository is the optional collaborator the processor uses to find trades
// referencing a player moved by a waiver claim. ExpireTrade performs the
// conditional pending/accepted/in_review -> expired status update; the
// processor calls it inside the same transaction as the claim.
type Repository interface {
	FindPendingByPlayer(ctx context.Context, client waiver.Client, leagueID, playerID string) ([]PendingTrade, error)
	ExpireTrade(ctx context.Context, client waiver.Client, tradeID string) (bool, error)
}
