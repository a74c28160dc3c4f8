package postgres

import (
	"context"
	"fmt"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	"github.com/fantasyplatform/waiver-engine/internal/platform/txrunner"
)

type waiverFaabBudgetRow struct {
	LeagueID        string `db:"league_id"`
	RosterID        string `db:"roster_id"`
	Season          int    `db:"season"`
	InitialBudget   int64  `db:"initial_budget"`
	RemainingBudget int64  `db:"remaining_budget"`
}

func (r waiverFaabBudgetRow) toDomain() waiver.FaabBudget {
	return waiver.FaabBudget{
		LeagueID:        r.LeagueID,
		RosterID:        r.RosterID,
		Season:          r.Season,
		InitialBudget:   r.InitialBudget,
		RemainingBudget: r.RemainingBudget,
	}
}

// WaiverFaabBudgetRepository is the Postgres-backed waiver.FaabBudgetRepository.
type WaiverFaabBudgetRepository struct{}

func NewWaiverFaabBudgetRepository() *WaiverFaabBudgetRepository {
	return &WaiverFaabBudgetRepository{}
}

func (r *WaiverFaabBudgetRepository) GetByRoster(ctx context.Context, client waiver.Client, leagueID, rosterID string, season int) (waiver.FaabBudget, bool, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return waiver.FaabBudget{}, false, err
	}
	const query = `
SELECT league_id, roster_id, season, initial_budget, remaining_budget
FROM waiver_faab_budgets WHERE league_id = $1 AND roster_id = $2 AND season = $3`

	var row waiverFaabBudgetRow
	if err := tx.GetContext(ctx, &row, query, leagueID, rosterID, season); err != nil {
		if isNotFound(err) {
			return waiver.FaabBudget{}, false, nil
		}
		return waiver.FaabBudget{}, false, fmt.Errorf("get roster faab budget: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *WaiverFaabBudgetRepository) GetByLeague(ctx context.Context, client waiver.Client, leagueID string, season int) ([]waiver.FaabBudget, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return nil, err
	}
	const query = `
SELECT league_id, roster_id, season, initial_budget, remaining_budget
FROM waiver_faab_budgets WHERE league_id = $1 AND season = $2`

	var rows []waiverFaabBudgetRow
	if err := tx.SelectContext(ctx, &rows, query, leagueID, season); err != nil {
		return nil, fmt.Errorf("list league faab budgets: %w", err)
	}
	out := make([]waiver.FaabBudget, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *WaiverFaabBudgetRepository) DeductBudget(ctx context.Context, client waiver.Client, leagueID, rosterID string, season int, amount int64) error {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return err
	}
	const query = `
UPDATE waiver_faab_budgets
SET remaining_budget = remaining_budget - $1
WHERE league_id = $2 AND roster_id = $3 AND season = $4 AND remaining_budget >= $1`

	result, err := tx.ExecContext(ctx, query, amount, leagueID, rosterID, season)
	if err != nil {
		return fmt.Errorf("deduct faab budget: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("count deducted faab budget rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("deduct faab budget: insufficient remaining budget for roster=%s", rosterID)
	}
	return nil
}

func (r *WaiverFaabBudgetRepository) EnsureRosterBudget(ctx context.Context, client waiver.Client, leagueID, rosterID string, season int, defaultBudget int64) (waiver.FaabBudget, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return waiver.FaabBudget{}, err
	}
	const query = `
INSERT INTO waiver_faab_budgets (league_id, roster_id, season, initial_budget, remaining_budget)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (league_id, roster_id, season) DO UPDATE SET initial_budget = waiver_faab_budgets.initial_budget
RETURNING league_id, roster_id, season, initial_budget, remaining_budget`

	var row waiverFaabBudgetRow
	if err := tx.GetContext(ctx, &row, query, leagueID, rosterID, season, defaultBudget); err != nil {
		return waiver.FaabBudget{}, fmt.Errorf("ensure roster faab budget: %w", err)
	}
	return row.toDomain(), nil
}

func (r *WaiverFaabBudgetRepository) InitializeForLeague(ctx context.Context, client waiver.Client, leagueID string, season int, rosterIDs []string, defaultBudget int64) error {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO waiver_faab_budgets (league_id, roster_id, season, initial_budget, remaining_budget)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (league_id, roster_id, season) DO NOTHING`

	for _, rosterID := range rosterIDs {
		if _, err := tx.ExecContext(ctx, query, leagueID, rosterID, season, defaultBudget); err != nil {
			return fmt.Errorf("initialize faab budget for roster=%s: %w", rosterID, err)
		}
	}
	return nil
}
