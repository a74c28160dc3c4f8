package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	"github.com/fantasyplatform/waiver-engine/internal/platform/txrunner"
)

type waiverWireRow struct {
	LeagueID          string    `db:"league_id"`
	PlayerID          string    `db:"player_id"`
	DroppedByRosterID *string   `db:"dropped_by_roster_id"`
	WaiverExpiresAt   time.Time `db:"waiver_expires_at"`
	Season            int       `db:"season"`
	Week              int       `db:"week"`
}

func (r waiverWireRow) toDomain() waiver.WireEntry {
	return waiver.WireEntry{
		LeagueID:          r.LeagueID,
		PlayerID:          r.PlayerID,
		DroppedByRosterID: r.DroppedByRosterID,
		WaiverExpiresAt:   r.WaiverExpiresAt,
		Season:            r.Season,
		Week:              r.Week,
	}
}

// WaiverWireRepository is the Postgres-backed waiver.WaiverWireRepository.
type WaiverWireRepository struct{}

func NewWaiverWireRepository() *WaiverWireRepository {
	return &WaiverWireRepository{}
}

func (r *WaiverWireRepository) AddPlayer(ctx context.Context, client waiver.Client, entry waiver.WireEntry) error {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO waiver_wire (league_id, player_id, dropped_by_roster_id, waiver_expires_at, season, week)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (league_id, player_id) DO UPDATE SET
    dropped_by_roster_id = EXCLUDED.dropped_by_roster_id,
    waiver_expires_at = EXCLUDED.waiver_expires_at,
    season = EXCLUDED.season,
    week = EXCLUDED.week`

	if _, err := tx.ExecContext(ctx, query, entry.LeagueID, entry.PlayerID, entry.DroppedByRosterID, entry.WaiverExpiresAt, entry.Season, entry.Week); err != nil {
		return fmt.Errorf("add player to waiver wire: %w", err)
	}
	return nil
}

func (r *WaiverWireRepository) RemovePlayer(ctx context.Context, client waiver.Client, leagueID, playerID string) error {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return err
	}
	const query = `DELETE FROM waiver_wire WHERE league_id = $1 AND player_id = $2`
	if _, err := tx.ExecContext(ctx, query, leagueID, playerID); err != nil {
		return fmt.Errorf("remove player from waiver wire: %w", err)
	}
	return nil
}

func (r *WaiverWireRepository) IsOnWaivers(ctx context.Context, client waiver.Client, leagueID, playerID string) (bool, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return false, err
	}
	const query = `SELECT EXISTS(SELECT 1 FROM waiver_wire WHERE league_id = $1 AND player_id = $2)`
	var exists bool
	if err := tx.GetContext(ctx, &exists, query, leagueID, playerID); err != nil {
		return false, fmt.Errorf("check waiver wire membership: %w", err)
	}
	return exists, nil
}

func (r *WaiverWireRepository) GetPlayerExpiration(ctx context.Context, client waiver.Client, leagueID, playerID string) (time.Time, bool, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return time.Time{}, false, err
	}
	const query = `SELECT waiver_expires_at FROM waiver_wire WHERE league_id = $1 AND player_id = $2`
	var expiresAt time.Time
	if err := tx.GetContext(ctx, &expiresAt, query, leagueID, playerID); err != nil {
		if isNotFound(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("get waiver wire expiration: %w", err)
	}
	return expiresAt, true, nil
}

func (r *WaiverWireRepository) GetByLeague(ctx context.Context, client waiver.Client, leagueID string) ([]waiver.WireEntry, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return nil, err
	}
	const query = `
SELECT league_id, player_id, dropped_by_roster_id, waiver_expires_at, season, week
FROM waiver_wire WHERE league_id = $1
ORDER BY waiver_expires_at`

	var rows []waiverWireRow
	if err := tx.SelectContext(ctx, &rows, query, leagueID); err != nil {
		return nil, fmt.Errorf("list league waiver wire: %w", err)
	}
	out := make([]waiver.WireEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
