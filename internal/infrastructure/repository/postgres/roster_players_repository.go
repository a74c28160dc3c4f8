package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fantasyplatform/waiver-engine/internal/domain/roster"
	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	"github.com/fantasyplatform/waiver-engine/internal/platform/txrunner"
)

const pqUniqueViolation = "23505"

// RosterPlayersRepository is the Postgres-backed roster.Repository. It owns
// the roster_players join table: one row per (roster, player) that exists
// while a roster owns that player. GetByRosterID is the one read that runs
// outside any waiver transaction (it resolves roster ownership before a
// lock is ever acquired), so it falls back to the pooled db handle.
type RosterPlayersRepository struct {
	db *sqlx.DB
}

func NewRosterPlayersRepository(db *sqlx.DB) *RosterPlayersRepository {
	return &RosterPlayersRepository{db: db}
}

func (r *RosterPlayersRepository) FindOwner(ctx context.Context, client waiver.Client, leagueID, playerID, activeLeagueSeasonID string) (string, bool, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return "", false, err
	}
	const query = `
SELECT rp.roster_id
FROM roster_players rp
JOIN rosters r ON r.id = rp.roster_id
WHERE r.league_id = $1 AND rp.player_id = $2 AND r.league_season_id = $3`

	var rosterID string
	if err := tx.GetContext(ctx, &rosterID, query, leagueID, playerID, activeLeagueSeasonID); err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("find player owner: %w", err)
	}
	return rosterID, true, nil
}

func (r *RosterPlayersRepository) FindByRosterAndPlayer(ctx context.Context, client waiver.Client, rosterID, playerID string) (bool, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return false, err
	}
	const query = `SELECT EXISTS(SELECT 1 FROM roster_players WHERE roster_id = $1 AND player_id = $2)`
	var exists bool
	if err := tx.GetContext(ctx, &exists, query, rosterID, playerID); err != nil {
		return false, fmt.Errorf("check roster player ownership: %w", err)
	}
	return exists, nil
}

// AddPlayer relies on roster_players' unique index on player_id scoped to the
// league's active roster set to surface waiver.ErrOwnershipConflict when two
// rosters try to claim the same player inside the same transaction window.
func (r *RosterPlayersRepository) AddPlayer(ctx context.Context, client waiver.Client, rosterID, playerID string, acquired roster.AcquiredType) error {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO roster_players (roster_id, player_id, acquired_type, acquired_at)
VALUES ($1, $2, $3, NOW())`

	if _, err := tx.ExecContext(ctx, query, rosterID, playerID, string(acquired)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("%w: player=%s", waiver.ErrOwnershipConflict, playerID)
		}
		return fmt.Errorf("add roster player: %w", err)
	}
	return nil
}

func (r *RosterPlayersRepository) RemovePlayer(ctx context.Context, client waiver.Client, rosterID, playerID string) error {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return err
	}
	const query = `DELETE FROM roster_players WHERE roster_id = $1 AND player_id = $2`
	if _, err := tx.ExecContext(ctx, query, rosterID, playerID); err != nil {
		return fmt.Errorf("remove roster player: %w", err)
	}
	return nil
}

func (r *RosterPlayersRepository) GetPlayerCount(ctx context.Context, client waiver.Client, rosterID string) (int, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return 0, err
	}
	const query = `SELECT COUNT(*) FROM roster_players WHERE roster_id = $1`
	var count int
	if err := tx.GetContext(ctx, &count, query, rosterID); err != nil {
		return 0, fmt.Errorf("count roster players: %w", err)
	}
	return count, nil
}

func (r *RosterPlayersRepository) GetPlayerIDsByRoster(ctx context.Context, client waiver.Client, rosterID string) ([]string, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return nil, err
	}
	const query = `SELECT player_id FROM roster_players WHERE roster_id = $1`
	var ids []string
	if err := tx.SelectContext(ctx, &ids, query, rosterID); err != nil {
		return nil, fmt.Errorf("list roster player ids: %w", err)
	}
	return ids, nil
}

func (r *RosterPlayersRepository) GetOwnedPlayerIDsByLeague(ctx context.Context, client waiver.Client, leagueID, activeLeagueSeasonID string) (map[string]struct{}, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return nil, err
	}
	const query = `
SELECT rp.player_id
FROM roster_players rp
JOIN rosters r ON r.id = rp.roster_id
WHERE r.league_id = $1 AND r.league_season_id = $2`

	var ids []string
	if err := tx.SelectContext(ctx, &ids, query, leagueID, activeLeagueSeasonID); err != nil {
		return nil, fmt.Errorf("list league owned player ids: %w", err)
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (r *RosterPlayersRepository) GetByRosterID(ctx context.Context, leagueID, rosterID string) (roster.Roster, bool, error) {
	const query = `
SELECT id, league_id, user_id, roster_id, is_benched
FROM rosters WHERE league_id = $1 AND roster_id = $2`

	var row struct {
		ID        string `db:"id"`
		LeagueID  string `db:"league_id"`
		UserID    string `db:"user_id"`
		RosterID  string `db:"roster_id"`
		IsBenched bool   `db:"is_benched"`
	}
	if err := r.db.GetContext(ctx, &row, query, leagueID, rosterID); err != nil {
		if isNotFound(err) {
			return roster.Roster{}, false, nil
		}
		return roster.Roster{}, false, fmt.Errorf("get roster by roster id: %w", err)
	}
	return roster.Roster{
		ID:        row.ID,
		LeagueID:  row.LeagueID,
		UserID:    row.UserID,
		RosterID:  row.RosterID,
		IsBenched: row.IsBenched,
	}, true, nil
}
