package usecase

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/fantasyplatform/waiver-engine/internal/domain/roster"
	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	idgen "github.com/fantasyplatform/waiver-engine/internal/platform/id"
	"github.com/fantasyplatform/waiver-engine/internal/infrastructure/repository/memory"
	"github.com/fantasyplatform/waiver-engine/internal/platform/eventbus"
	"github.com/fantasyplatform/waiver-engine/internal/platform/txrunner"
)

// sequentialIDGenerator hands out ascending ids so tests can assert ordering
// without depending on how a real Generator encodes ids.
type sequentialIDGenerator struct {
	prefix string
	next   int
}

func (g *sequentialIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("%s-%d", g.prefix, g.next), nil
}

const testLeagueID = "league-1"

func newSubmissionFixtures(t *testing.T, settings waiver.LeagueSettings) (*WaiverSubmissionService, *memory.WaiverClaimsRepository, *memory.RosterPlayersRepository) {
	t.Helper()

	claims := memory.NewWaiverClaimsRepository()
	priority := memory.NewWaiverPriorityRepository()
	budgets := memory.NewWaiverFaabBudgetRepository()
	wire := memory.NewWaiverWireRepository()
	rosters := memory.NewRosterPlayersRepository()

	leagues := memory.NewWaiverLeagueProvider()
	week := 3
	leagues.Register(waiver.LeagueContext{
		ID:                   testLeagueID,
		Season:               2026,
		CurrentWeek:          &week,
		Settings:             settings,
		ActiveLeagueSeasonID: "season-2026",
	})

	rosters.Seed(roster.Roster{ID: "r1", LeagueID: testLeagueID, UserID: "user-1", RosterID: "roster-1"})
	rosters.Seed(roster.Roster{ID: "r2", LeagueID: testLeagueID, UserID: "user-2", RosterID: "roster-2"})

	runner := txrunner.NewFakeRunner(eventbus.NewNoopBus())

	service := NewWaiverSubmissionService(
		claims, priority, budgets, wire, leagues, rosters,
		runner,
		&sequentialIDGenerator{prefix: "claim"},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return service, claims, rosters
}

func TestWaiverSubmissionService_SubmitClaim_Idempotent(t *testing.T) {
	service, claims, _ := newSubmissionFixtures(t, waiver.DefaultLeagueSettings())

	input := SubmitClaimInput{
		LeagueID:       testLeagueID,
		UserID:         "user-1",
		RosterID:       "roster-1",
		PlayerID:       "player-a",
		IdempotencyKey: "idem-1",
	}

	first, err := service.SubmitClaim(t.Context(), input)
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	second, err := service.SubmitClaim(t.Context(), input)
	if err != nil {
		t.Fatalf("second submit failed: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected idempotent resubmission to return the same claim id, got %s vs %s", first.ID, second.ID)
	}

	pending, err := claims.GetPendingByRoster(t.Context(), nil, "roster-1")
	if err != nil {
		t.Fatalf("get pending claims: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected exactly one stored claim, got %d", len(pending))
	}
}

func TestWaiverSubmissionService_SubmitClaim_OwnershipConflict(t *testing.T) {
	service, _, rosters := newSubmissionFixtures(t, waiver.DefaultLeagueSettings())
	rosters.Seed(roster.Roster{ID: "r2", LeagueID: testLeagueID, UserID: "user-2", RosterID: "roster-2"}, "player-a")

	_, err := service.SubmitClaim(t.Context(), SubmitClaimInput{
		LeagueID: testLeagueID,
		UserID:   "user-1",
		RosterID: "roster-1",
		PlayerID: "player-a",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for already-owned player, got %v", err)
	}
}

func TestWaiverSubmissionService_SubmitClaim_ClaimOrderIsMonotone(t *testing.T) {
	service, _, _ := newSubmissionFixtures(t, waiver.DefaultLeagueSettings())

	var claimOrders []int
	for _, playerID := range []string{"player-a", "player-b", "player-c"} {
		claim, err := service.SubmitClaim(t.Context(), SubmitClaimInput{
			LeagueID: testLeagueID,
			UserID:   "user-1",
			RosterID: "roster-1",
			PlayerID: playerID,
		})
		if err != nil {
			t.Fatalf("submit claim for %s failed: %v", playerID, err)
		}
		claimOrders = append(claimOrders, claim.ClaimOrder)
	}

	for i := 1; i < len(claimOrders); i++ {
		if claimOrders[i] <= claimOrders[i-1] {
			t.Fatalf("expected strictly increasing claim_order, got %v", claimOrders)
		}
	}
}

func TestWaiverSubmissionService_SubmitClaim_FAABBidExceedsBudget(t *testing.T) {
	settings := waiver.DefaultLeagueSettings()
	settings.WaiverType = waiver.TypeFAAB
	settings.FaabBudget = 50

	service, _, _ := newSubmissionFixtures(t, settings)

	_, err := service.SubmitClaim(t.Context(), SubmitClaimInput{
		LeagueID:  testLeagueID,
		UserID:    "user-1",
		RosterID:  "roster-1",
		PlayerID:  "player-a",
		BidAmount: 100,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bid exceeding budget, got %v", err)
	}
}

func TestWaiverSubmissionService_SubmitClaim_DropPlayerMustBeOwned(t *testing.T) {
	service, _, _ := newSubmissionFixtures(t, waiver.DefaultLeagueSettings())

	_, err := service.SubmitClaim(t.Context(), SubmitClaimInput{
		LeagueID:     testLeagueID,
		UserID:       "user-1",
		RosterID:     "roster-1",
		PlayerID:     "player-a",
		DropPlayerID: "not-owned",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for dropping an unowned player, got %v", err)
	}
}

func TestWaiverSubmissionService_ReorderClaims_RequiresExactPermutation(t *testing.T) {
	service, _, _ := newSubmissionFixtures(t, waiver.DefaultLeagueSettings())

	var claimIDs []string
	for _, playerID := range []string{"player-a", "player-b", "player-c"} {
		claim, err := service.SubmitClaim(t.Context(), SubmitClaimInput{
			LeagueID: testLeagueID,
			UserID:   "user-1",
			RosterID: "roster-1",
			PlayerID: playerID,
		})
		if err != nil {
			t.Fatalf("submit claim for %s failed: %v", playerID, err)
		}
		claimIDs = append(claimIDs, claim.ID)
	}

	if err := service.ReorderClaims(t.Context(), testLeagueID, ReorderClaimsInput{
		RosterID: "roster-1",
		ClaimIDs: claimIDs[:2],
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for a partial reorder set, got %v", err)
	}

	reversed := []string{claimIDs[2], claimIDs[1], claimIDs[0]}
	if err := service.ReorderClaims(t.Context(), testLeagueID, ReorderClaimsInput{
		RosterID: "roster-1",
		ClaimIDs: reversed,
	}); err != nil {
		t.Fatalf("expected full permutation reorder to succeed, got %v", err)
	}

	reordered, err := service.GetMyClaims(t.Context(), "roster-1")
	if err != nil {
		t.Fatalf("get my claims: %v", err)
	}
	if len(reordered) != 3 || reordered[0].ID != claimIDs[2] {
		t.Fatalf("expected claim %s to be first after reorder, got %+v", claimIDs[2], reordered)
	}
}

func TestWaiverSubmissionService_CancelClaim(t *testing.T) {
	service, _, _ := newSubmissionFixtures(t, waiver.DefaultLeagueSettings())

	claim, err := service.SubmitClaim(t.Context(), SubmitClaimInput{
		LeagueID: testLeagueID,
		UserID:   "user-1",
		RosterID: "roster-1",
		PlayerID: "player-a",
	})
	if err != nil {
		t.Fatalf("submit claim failed: %v", err)
	}

	if err := service.CancelClaim(t.Context(), testLeagueID, "roster-1", claim.ID); err != nil {
		t.Fatalf("cancel claim failed: %v", err)
	}

	if err := service.CancelClaim(t.Context(), testLeagueID, "roster-1", claim.ID); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput cancelling an already-cancelled claim, got %v", err)
	}
}

func TestWaiverSubmissionService_SubmitClaim_UnknownRosterOwnerRejected(t *testing.T) {
	service, _, _ := newSubmissionFixtures(t, waiver.DefaultLeagueSettings())

	_, err := service.SubmitClaim(t.Context(), SubmitClaimInput{
		LeagueID: testLeagueID,
		UserID:   "user-2", // roster-1 belongs to user-1
		RosterID: "roster-1",
		PlayerID: "player-a",
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for a roster the user doesn't own, got %v", err)
	}
}

var _ idgen.Generator = (*sequentialIDGenerator)(nil)
