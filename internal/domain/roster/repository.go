package roster

import (
	"context"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
)

// Repository describes roster-ownership persistence needs consumed by the
// waiver engine. Its storage encoding is owned elsewhere; this is only the
// interface the waiver engine presents its requirements through.
type Repository interface {
	FindOwner(ctx context.Context, client waiver.Client, leagueID, playerID, activeLeagueSeasonID string) (rosterID string, found bool, err error)
	FindByRosterAndPlayer(ctx context.Context, client waiver.Client, rosterID, playerID string) (bool, error)
	// AddPlayer must surface waiver.ErrOwnershipConflict if the player was
	// concurrently claimed onto another roster.
	AddPlayer(ctx context.Context, client waiver.Client, rosterID, playerID string, acquired AcquiredType) error
	RemovePlayer(ctx context.Context, client waiver.Client, rosterID, playerID string) error
	GetPlayerCount(ctx context.Context, client waiver.Client, rosterID string) (int, error)
	GetPlayerIDsByRoster(ctx context.Context, client waiver.Client, rosterID string) ([]string, error)
	GetOwnedPlayerIDsByLeague(ctx context.Context, client waiver.Client, leagueID, activeLeagueSeasonID string) (map[string]struct{}, error)
	GetByRosterID(ctx context.Context, leagueID, rosterID string) (Roster, bool, error)
}
