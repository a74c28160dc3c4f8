package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	"github.com/fantasyplatform/waiver-engine/internal/platform/txrunner"
)

type waiverProcessingRunRow struct {
	ID               string    `db:"id"`
	LeagueID         string    `db:"league_id"`
	Season           int       `db:"season"`
	Week             int       `db:"week"`
	WindowStartAt    time.Time `db:"window_start_at"`
	ClaimsFound      int       `db:"claims_found"`
	ClaimsSuccessful int       `db:"claims_successful"`
	RanAt            time.Time `db:"ran_at"`
}

func (r waiverProcessingRunRow) toDomain() waiver.ProcessingRun {
	return waiver.ProcessingRun{
		ID:               r.ID,
		LeagueID:         r.LeagueID,
		Season:           r.Season,
		Week:             r.Week,
		WindowStartAt:    r.WindowStartAt,
		ClaimsFound:      r.ClaimsFound,
		ClaimsSuccessful: r.ClaimsSuccessful,
		RanAt:            r.RanAt,
	}
}

// WaiverProcessingRunsRepository is the Postgres-backed
// waiver.ProcessingRunsRepository. Its unique (league_id, season, week,
// window_start_at) index is what makes TryCreate the re-entry guard: a
// second scheduler tick for the same window hits the conflict branch and
// returns created=false instead of erroring.
type WaiverProcessingRunsRepository struct{}

func NewWaiverProcessingRunsRepository() *WaiverProcessingRunsRepository {
	return &WaiverProcessingRunsRepository{}
}

func (r *WaiverProcessingRunsRepository) TryCreate(ctx context.Context, client waiver.Client, run waiver.ProcessingRun) (waiver.ProcessingRun, bool, error) {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return waiver.ProcessingRun{}, false, err
	}

	const query = `
INSERT INTO waiver_processing_runs (id, league_id, season, week, window_start_at, ran_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (league_id, season, week, window_start_at) DO NOTHING
RETURNING id, league_id, season, week, window_start_at, claims_found, claims_successful, ran_at`

	var row waiverProcessingRunRow
	err = tx.GetContext(ctx, &row, query, run.ID, run.LeagueID, run.Season, run.Week, run.WindowStartAt, run.RanAt)
	if isNotFound(err) {
		return waiver.ProcessingRun{}, false, nil
	}
	if err != nil {
		return waiver.ProcessingRun{}, false, fmt.Errorf("try create processing run: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *WaiverProcessingRunsRepository) UpdateResults(ctx context.Context, client waiver.Client, id string, found, successful int) error {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return err
	}
	const query = `UPDATE waiver_processing_runs SET claims_found = $1, claims_successful = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, query, found, successful, id); err != nil {
		return fmt.Errorf("update processing run results: %w", err)
	}
	return nil
}

func (r *WaiverProcessingRunsRepository) Delete(ctx context.Context, client waiver.Client, id string) error {
	tx, err := txrunner.Tx(client)
	if err != nil {
		return err
	}
	const query = `DELETE FROM waiver_processing_runs WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete processing run: %w", err)
	}
	return nil
}
