package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
)

type leagueWaiverSettingsRow struct {
	LeagueID              string `db:"league_id"`
	Season                int    `db:"season"`
	CurrentWeek           *int   `db:"current_week"`
	WaiverType            string `db:"waiver_type"`
	FaabBudget            int64  `db:"faab_budget"`
	WaiverDay             int    `db:"waiver_day"`
	WaiverHour            int    `db:"waiver_hour"`
	WaiverPeriodDays      int    `db:"waiver_period_days"`
	RosterSize            int    `db:"roster_size"`
	Timezone              string `db:"timezone"`
	ActiveLeagueSeasonID  string `db:"active_league_season_id"`
}

// WaiverLeagueProvider is the Postgres-backed waiver.LeagueProvider. It
// reads from league_waiver_settings, a table dedicated to the waiver
// engine's view of a league rather than the teacher's football-fixtures
// leagues table, matching spec.md's treatment of league data as an
// external collaborator specified only by the interface it presents.
type WaiverLeagueProvider struct {
	db *sqlx.DB
}

func NewWaiverLeagueProvider(db *sqlx.DB) *WaiverLeagueProvider {
	return &WaiverLeagueProvider{db: db}
}

func (p *WaiverLeagueProvider) GetLeagueContext(ctx context.Context, leagueID string) (waiver.LeagueContext, bool, error) {
	const query = `
SELECT league_id, season, current_week, waiver_type, faab_budget, waiver_day,
    waiver_hour, waiver_period_days, roster_size, timezone, active_league_season_id
FROM league_waiver_settings WHERE league_id = $1`

	var row leagueWaiverSettingsRow
	if err := p.db.GetContext(ctx, &row, query, leagueID); err != nil {
		if isNotFound(err) {
			return waiver.LeagueContext{}, false, nil
		}
		return waiver.LeagueContext{}, false, fmt.Errorf("get league waiver settings: %w", err)
	}

	return waiver.LeagueContext{
		ID:          row.LeagueID,
		Season:      row.Season,
		CurrentWeek: row.CurrentWeek,
		Settings: waiver.LeagueSettings{
			WaiverType:       waiver.Type(row.WaiverType),
			FaabBudget:       row.FaabBudget,
			WaiverDay:        row.WaiverDay,
			WaiverHour:       row.WaiverHour,
			WaiverPeriodDays: row.WaiverPeriodDays,
			RosterSize:       row.RosterSize,
			Timezone:         row.Timezone,
		},
		ActiveLeagueSeasonID: row.ActiveLeagueSeasonID,
	}, true, nil
}

func (p *WaiverLeagueProvider) ListLeaguesWithActiveWaivers(ctx context.Context) ([]string, error) {
	const query = `
SELECT league_id FROM league_waiver_settings
WHERE waiver_type <> 'none' AND current_week IS NOT NULL`

	var ids []string
	if err := p.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list leagues with active waivers: %w", err)
	}
	return ids, nil
}
