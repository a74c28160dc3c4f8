package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	"github.com/fantasyplatform/waiver-engine/internal/platform/txrunner"
)

type waiverClaimRow struct {
	ID              string     `db:"id"`
	LeagueID        string     `db:"league_id"`
	RosterID        string     `db:"roster_id"`
	PlayerID        string     `db:"player_id"`
	DropPlayerID    *string    `db:"drop_player_id"`
	BidAmount       int64      `db:"bid_amount"`
	PriorityAtClaim int        `db:"priority_at_claim"`
	Status          string     `db:"status"`
	Season          int        `db:"season"`
	Week            int        `db:"week"`
	ClaimOrder      int        `db:"claim_order"`
	ProcessingRunID *string    `db:"processing_run_id"`
	IdempotencyKey  *string    `db:"idempotency_key"`
	ProcessedAt     *time.Time `db:"processed_at"`
	FailureReason   *string    `db:"failure_reason"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (r waiverClaimRow) toDomain() waiver.Claim {
	return waiver.Claim{
		ID:              r.ID,
		LeagueID:        r.LeagueID,
		RosterID:        r.RosterID,
		PlayerID:        r.PlayerID,
		DropPlayerID:    r.DropPlayerID,
		BidAmount:       r.BidAmount,
		PriorityAtClaim: r.PriorityAtClaim,
		Status:          waiver.ClaimStatus(r.Status),
		Season:          r.Season,
		Week:            r.Week,
		ClaimOrder:      r.ClaimOrder,
		ProcessingRunID: r.ProcessingRunID,
		IdempotencyKey:  r.IdempotencyKey,
		ProcessedAt:     r.ProcessedAt,
		FailureReason:   r.FailureReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// WaiverClaimsRepository is the Postgres-backed waiver.ClaimsRepository.
// Writes always run against a client produced by txrunner.Runner; the
// plain read path (GetMyClaims) is called with a nil client and falls back
// to the pooled *sqlx.DB below.
type WaiverClaimsRepository struct {
	db *sqlx.DB
}

func NewWaiverClaimsRepository(db *sqlx.DB) *WaiverClaimsRepository {
	return &WaiverClaimsRepository{db: db}
}

func (r *WaiverClaimsRepository) Create(ctx context.Context, client waiver.Client, claim waiver.Claim) (waiver.Claim, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return waiver.Claim{}, err
	}

	const query = `
INSERT INTO waiver_claims (
    id, league_id, roster_id, player_id, drop_player_id, bid_amount,
    priority_at_claim, status, season, week, claim_order, idempotency_key
) VALUES (
    :id, :league_id, :roster_id, :player_id, :drop_player_id, :bid_amount,
    :priority_at_claim, :status, :season, :week, :claim_order, :idempotency_key
)
RETURNING id, league_id, roster_id, player_id, drop_player_id, bid_amount,
    priority_at_claim, status, season, week, claim_order, processing_run_id,
    idempotency_key, processed_at, failure_reason, created_at, updated_at`

	args := map[string]any{
		"id":                 claim.ID,
		"league_id":          claim.LeagueID,
		"roster_id":          claim.RosterID,
		"player_id":          claim.PlayerID,
		"drop_player_id":     claim.DropPlayerID,
		"bid_amount":         claim.BidAmount,
		"priority_at_claim":  claim.PriorityAtClaim,
		"status":             string(claim.Status),
		"season":             claim.Season,
		"week":               claim.Week,
		"claim_order":        claim.ClaimOrder,
		"idempotency_key":    claim.IdempotencyKey,
	}
	boundSQL, boundArgs, err := sqlx.Named(query, args)
	if err != nil {
		return waiver.Claim{}, fmt.Errorf("bind create claim query: %w", err)
	}
	boundSQL = tx.Rebind(boundSQL)

	var row waiverClaimRow
	if err := tx.GetContext(ctx, &row, boundSQL, boundArgs...); err != nil {
		return waiver.Claim{}, fmt.Errorf("create claim: %w", err)
	}
	return row.toDomain(), nil
}

func (r *WaiverClaimsRepository) FindByID(ctx context.Context, client waiver.Client, id string) (waiver.Claim, bool, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return waiver.Claim{}, false, err
	}

	const query = `
SELECT id, league_id, roster_id, player_id, drop_player_id, bid_amount,
    priority_at_claim, status, season, week, claim_order, processing_run_id,
    idempotency_key, processed_at, failure_reason, created_at, updated_at
FROM waiver_claims WHERE id = $1`

	var row waiverClaimRow
	if err := tx.GetContext(ctx, &row, query, id); err != nil {
		if isNotFound(err) {
			return waiver.Claim{}, false, nil
		}
		return waiver.Claim{}, false, fmt.Errorf("find claim: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *WaiverClaimsRepository) FindByIdempotencyKey(ctx context.Context, client waiver.Client, leagueID, rosterID, key string) (waiver.Claim, bool, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return waiver.Claim{}, false, err
	}

	const query = `
SELECT id, league_id, roster_id, player_id, drop_player_id, bid_amount,
    priority_at_claim, status, season, week, claim_order, processing_run_id,
    idempotency_key, processed_at, failure_reason, created_at, updated_at
FROM waiver_claims
WHERE league_id = $1 AND roster_id = $2 AND idempotency_key = $3`

	var row waiverClaimRow
	if err := tx.GetContext(ctx, &row, query, leagueID, rosterID, key); err != nil {
		if isNotFound(err) {
			return waiver.Claim{}, false, nil
		}
		return waiver.Claim{}, false, fmt.Errorf("find claim by idempotency key: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *WaiverClaimsRepository) GetPendingByRoster(ctx context.Context, client waiver.Client, rosterID string) ([]waiver.Claim, error) {
	db, err := r.handle(client)
	if err != nil {
		return nil, err
	}

	const query = `
SELECT id, league_id, roster_id, player_id, drop_player_id, bid_amount,
    priority_at_claim, status, season, week, claim_order, processing_run_id,
    idempotency_key, processed_at, failure_reason, created_at, updated_at
FROM waiver_claims
WHERE roster_id = $1 AND status = 'pending'
ORDER BY claim_order`

	var rows []waiverClaimRow
	if err := db.SelectContext(ctx, &rows, query, rosterID); err != nil {
		return nil, fmt.Errorf("list pending claims: %w", err)
	}
	out := make([]waiver.Claim, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *WaiverClaimsRepository) GetPendingByProcessingRun(ctx context.Context, client waiver.Client, runID string) ([]waiver.Claim, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return nil, err
	}

	const query = `
SELECT id, league_id, roster_id, player_id, drop_player_id, bid_amount,
    priority_at_claim, status, season, week, claim_order, processing_run_id,
    idempotency_key, processed_at, failure_reason, created_at, updated_at
FROM waiver_claims
WHERE processing_run_id = $1 AND status = 'pending'
ORDER BY claim_order`

	var rows []waiverClaimRow
	if err := tx.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("list claims for processing run: %w", err)
	}
	out := make([]waiver.Claim, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *WaiverClaimsRepository) SnapshotClaimsForProcessingRun(ctx context.Context, client waiver.Client, leagueID string, season, week int, runID string) (int, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return 0, err
	}

	const query = `
UPDATE waiver_claims
SET processing_run_id = $1
WHERE league_id = $2 AND season = $3 AND week = $4 AND status = 'pending'
  AND processing_run_id IS NULL`

	result, err := tx.ExecContext(ctx, query, runID, leagueID, season, week)
	if err != nil {
		return 0, fmt.Errorf("snapshot claims for processing run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count snapshotted claims: %w", err)
	}
	return int(affected), nil
}

func (r *WaiverClaimsRepository) UpdateStatus(ctx context.Context, client waiver.Client, id string, status waiver.ClaimStatus, reason *string) error {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return err
	}

	const query = `
UPDATE waiver_claims
SET status = $1, failure_reason = $2, processed_at = NOW(), updated_at = NOW()
WHERE id = $3`

	if _, err := tx.ExecContext(ctx, query, string(status), reason, id); err != nil {
		return fmt.Errorf("update claim status: %w", err)
	}
	return nil
}

func (r *WaiverClaimsRepository) CancelIfPending(ctx context.Context, client waiver.Client, id string) (bool, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return false, err
	}

	const query = `
UPDATE waiver_claims
SET status = 'cancelled', updated_at = NOW()
WHERE id = $1 AND status = 'pending'`

	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("cancel claim: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("count cancelled claims: %w", err)
	}
	return affected > 0, nil
}

func (r *WaiverClaimsRepository) UpdateBid(ctx context.Context, client waiver.Client, id string, bidAmount int64) error {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return err
	}
	const query = `UPDATE waiver_claims SET bid_amount = $1, updated_at = NOW() WHERE id = $2`
	if _, err := tx.ExecContext(ctx, query, bidAmount, id); err != nil {
		return fmt.Errorf("update claim bid: %w", err)
	}
	return nil
}

func (r *WaiverClaimsRepository) UpdateDropPlayer(ctx context.Context, client waiver.Client, id string, dropPlayerID *string) error {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return err
	}
	const query = `UPDATE waiver_claims SET drop_player_id = $1, updated_at = NOW() WHERE id = $2`
	if _, err := tx.ExecContext(ctx, query, dropPlayerID, id); err != nil {
		return fmt.Errorf("update claim drop player: %w", err)
	}
	return nil
}

func (r *WaiverClaimsRepository) ReorderClaims(ctx context.Context, client waiver.Client, rosterID string, orderedIDs []string) error {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return err
	}
	const query = `UPDATE waiver_claims SET claim_order = $1, updated_at = NOW() WHERE id = $2 AND roster_id = $3`
	for i, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx, query, i+1, id, rosterID); err != nil {
			return fmt.Errorf("reorder claim=%s: %w", id, err)
		}
	}
	return nil
}

func (r *WaiverClaimsRepository) GetNextClaimOrder(ctx context.Context, client waiver.Client, rosterID string, season, week int) (int, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return 0, err
	}
	const query = `
SELECT COALESCE(MAX(claim_order), 0) + 1
FROM waiver_claims
WHERE roster_id = $1 AND season = $2 AND week = $3`

	var next int
	if err := tx.GetContext(ctx, &next, query, rosterID, season, week); err != nil {
		return 0, fmt.Errorf("get next claim order: %w", err)
	}
	return next, nil
}

func (r *WaiverClaimsRepository) HasPendingClaim(ctx context.Context, client waiver.Client, rosterID, playerID string) (bool, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return false, err
	}
	const query = `
SELECT EXISTS(
    SELECT 1 FROM waiver_claims
    WHERE roster_id = $1 AND player_id = $2 AND status = 'pending'
)`
	var exists bool
	if err := tx.GetContext(ctx, &exists, query, rosterID, playerID); err != nil {
		return false, fmt.Errorf("check pending claim: %w", err)
	}
	return exists, nil
}

// handle lets GetPendingByRoster work whether it is called inside a
// transaction or from the plain read path (GetMyClaims calls it with a nil
// client).
func (r *WaiverClaimsRepository) handle(client waiver.Client) (sqlxQuerier, error) {
	if client == nil {
		return r.db, nil
	}
	tx, err := txrunner.Tx(client)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

type sqlxQuerier interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}
