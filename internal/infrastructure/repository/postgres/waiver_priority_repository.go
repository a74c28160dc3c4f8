package postgres

import (
	"context"
	"fmt"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	"github.com/fantasyplatform/waiver-engine/internal/platform/querybuilder"
	"github.com/fantasyplatform/waiver-engine/internal/platform/txrunner"
)

type waiverPriorityRow struct {
	LeagueID string `db:"league_id"`
	RosterID string `db:"roster_id"`
	Season   int    `db:"season"`
	Priority int    `db:"priority"`
}

func (r waiverPriorityRow) toDomain() waiver.Priority {
	return waiver.Priority{LeagueID: r.LeagueID, RosterID: r.RosterID, Season: r.Season, Priority: r.Priority}
}

// WaiverPriorityRepository is the Postgres-backed waiver.PriorityRepository.
type WaiverPriorityRepository struct{}

func NewWaiverPriorityRepository() *WaiverPriorityRepository {
	return &WaiverPriorityRepository{}
}

func (r *WaiverPriorityRepository) GetByRoster(ctx context.Context, client waiver.Client, leagueID, rosterID string, season int) (waiver.Priority, bool, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return waiver.Priority{}, false, err
	}
	const query = `
SELECT league_id, roster_id, season, priority
FROM waiver_priorities WHERE league_id = $1 AND roster_id = $2 AND season = $3`

	var row waiverPriorityRow
	if err := tx.GetContext(ctx, &row, query, leagueID, rosterID, season); err != nil {
		if isNotFound(err) {
			return waiver.Priority{}, false, nil
		}
		return waiver.Priority{}, false, fmt.Errorf("get roster priority: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *WaiverPriorityRepository) GetByLeague(ctx context.Context, client waiver.Client, leagueID string, season int) ([]waiver.Priority, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return nil, err
	}
	query, args, err := querybuilder.Select("league_id", "roster_id", "season", "priority").
		From("waiver_priorities").
		Where(querybuilder.Eq("league_id", leagueID), querybuilder.Eq("season", season)).
		OrderBy("priority").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build league priorities query: %w", err)
	}

	var rows []waiverPriorityRow
	if err := tx.SelectContext(ctx, &rows, tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list league priorities: %w", err)
	}
	out := make([]waiver.Priority, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// RotatePriority implements the standard waiver rule: the roster that just
// won a claim moves to last priority, and everyone previously behind it
// moves up one place.
func (r *WaiverPriorityRepository) RotatePriority(ctx context.Context, client waiver.Client, leagueID, rosterID string, season int) error {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return err
	}

	var current int
	const getQuery = `SELECT priority FROM waiver_priorities WHERE league_id = $1 AND roster_id = $2 AND season = $3`
	if err := tx.GetContext(ctx, &current, getQuery, leagueID, rosterID, season); err != nil {
		return fmt.Errorf("get current priority: %w", err)
	}

	var maxPriority int
	const maxQuery = `SELECT MAX(priority) FROM waiver_priorities WHERE league_id = $1 AND season = $2`
	if err := tx.GetContext(ctx, &maxPriority, maxQuery, leagueID, season); err != nil {
		return fmt.Errorf("get max priority: %w", err)
	}

	shiftQuery, shiftArgs, err := querybuilder.Update("waiver_priorities").
		SetExpr("priority", "priority - 1").
		Where(
			querybuilder.Eq("league_id", leagueID),
			querybuilder.Eq("season", season),
			querybuilder.Expr("priority > ?", current),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build shift priorities query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(shiftQuery), shiftArgs...); err != nil {
		return fmt.Errorf("shift priorities up: %w", err)
	}

	const demoteQuery = `
UPDATE waiver_priorities
SET priority = $1
WHERE league_id = $2 AND roster_id = $3 AND season = $4`
	if _, err := tx.ExecContext(ctx, demoteQuery, maxPriority, leagueID, rosterID, season); err != nil {
		return fmt.Errorf("demote roster priority: %w", err)
	}
	return nil
}

func (r *WaiverPriorityRepository) EnsureRosterPriority(ctx context.Context, client waiver.Client, leagueID, rosterID string, season int) (waiver.Priority, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return waiver.Priority{}, err
	}

	const query = `
INSERT INTO waiver_priorities (league_id, roster_id, season, priority)
VALUES ($1, $2, $3, (SELECT COALESCE(MAX(priority), 0) + 1 FROM waiver_priorities WHERE league_id = $1 AND season = $3))
ON CONFLICT (league_id, roster_id, season) DO UPDATE SET priority = waiver_priorities.priority
RETURNING league_id, roster_id, season, priority`

	var row waiverPriorityRow
	if err := tx.GetContext(ctx, &row, query, leagueID, rosterID, season); err != nil {
		return waiver.Priority{}, fmt.Errorf("ensure roster priority: %w", err)
	}
	return row.toDomain(), nil
}

func (r *WaiverPriorityRepository) InitializeForLeague(ctx context.Context, client waiver.Client, leagueID string, season int, rosterIDs []string) error {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO waiver_priorities (league_id, roster_id, season, priority)
VALUES ($1, $2, $3, (SELECT COALESCE(MAX(priority), 0) + 1 FROM waiver_priorities WHERE league_id = $1 AND season = $3))
ON CONFLICT (league_id, roster_id, season) DO NOTHING`

	for _, rosterID := range rosterIDs {
		if _, err := tx.ExecContext(ctx, query, leagueID, rosterID, season); err != nil {
			return fmt.Errorf("initialize priority for roster=%s: %w", rosterID, err)
		}
	}
	return nil
}

func (r *WaiverPriorityRepository) GetMaxPriority(ctx context.Context, client waiver.Client, leagueID string, season int) (int, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return 0, err
	}
	const query = `SELECT COALESCE(MAX(priority), 0) FROM waiver_priorities WHERE league_id = $1 AND season = $2`
	var max int
	if err := tx.GetContext(ctx, &max, query, leagueID, season); err != nil {
		return 0, fmt.Errorf("get max priority: %w", err)
	}
	return max, nil
}
