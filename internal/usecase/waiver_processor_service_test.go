package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fantasyplatform/waiver-engine/internal/domain/roster"
	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	"github.com/fantasyplatform/waiver-engine/internal/infrastructure/repository/memory"
	"github.com/fantasyplatform/waiver-engine/internal/platform/eventbus"
	"github.com/fantasyplatform/waiver-engine/internal/platform/txrunner"
)

const (
	testSeason = 2026
	testWeek   = 3
)

type processorFixtures struct {
	claims   *memory.WaiverClaimsRepository
	priority *memory.WaiverPriorityRepository
	budgets  *memory.WaiverFaabBudgetRepository
	wire     *memory.WaiverWireRepository
	runs     *memory.WaiverProcessingRunsRepository
	leagues  *memory.WaiverLeagueProvider
	rosters  *memory.RosterPlayersRepository
	rosterTx *memory.RosterTransactionsRepository
	trades   *memory.TradesRepository
}

func newProcessorService(t *testing.T, settings waiver.LeagueSettings, rosterIDs []string) (*WaiverProcessorService, *processorFixtures) {
	t.Helper()

	f := &processorFixtures{
		claims:   memory.NewWaiverClaimsRepository(),
		priority: memory.NewWaiverPriorityRepository(),
		budgets:  memory.NewWaiverFaabBudgetRepository(),
		wire:     memory.NewWaiverWireRepository(),
		runs:     memory.NewWaiverProcessingRunsRepository(),
		leagues:  memory.NewWaiverLeagueProvider(),
		rosters:  memory.NewRosterPlayersRepository(),
		rosterTx: memory.NewRosterTransactionsRepository(),
		trades:   memory.NewTradesRepository(),
	}

	week := testWeek
	f.leagues.Register(waiver.LeagueContext{
		ID:                   testLeagueID,
		Season:               testSeason,
		CurrentWeek:          &week,
		Settings:             settings,
		ActiveLeagueSeasonID: "season-2026",
	})

	for _, rosterID := range rosterIDs {
		f.rosters.Seed(roster.Roster{ID: rosterID, LeagueID: testLeagueID, UserID: "user-" + rosterID, RosterID: rosterID})
	}
	if err := f.priority.InitializeForLeague(context.Background(), nil, testLeagueID, testSeason, rosterIDs); err != nil {
		t.Fatalf("initialize priority: %v", err)
	}
	if settings.WaiverType == waiver.TypeFAAB {
		if err := f.budgets.InitializeForLeague(context.Background(), nil, testLeagueID, testSeason, rosterIDs, settings.FaabBudget); err != nil {
			t.Fatalf("initialize budgets: %v", err)
		}
	}

	runner := txrunner.NewFakeRunner(eventbus.NewNoopBus())

	service := NewWaiverProcessorService(
		f.claims, f.priority, f.budgets, f.wire, f.runs, f.leagues, f.rosters, f.rosterTx, f.trades,
		runner,
		&sequentialIDGenerator{prefix: "run"},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	fixedNow := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return fixedNow }
	return service, f
}

func (f *processorFixtures) seedClaim(t *testing.T, id, rosterID, playerID string, bid int64, priorityAtClaim, claimOrder int) {
	t.Helper()
	_, err := f.claims.Create(context.Background(), nil, waiver.Claim{
		ID:              id,
		LeagueID:        testLeagueID,
		RosterID:        rosterID,
		PlayerID:        playerID,
		BidAmount:       bid,
		PriorityAtClaim: priorityAtClaim,
		Status:          waiver.ClaimPending,
		Season:          testSeason,
		Week:            testWeek,
		ClaimOrder:      claimOrder,
		CreatedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed claim %s: %v", id, err)
	}
}

func TestWaiverProcessorService_StandardPriorityDecidesWinner(t *testing.T) {
	service, f := newProcessorService(t, waiver.DefaultLeagueSettings(), []string{"roster-1", "roster-2"})

	// roster-1 has the better (lower) priority from InitializeForLeague's
	// insertion order.
	f.seedClaim(t, "claim-1", "roster-1", "player-x", 0, 1, 1)
	f.seedClaim(t, "claim-2", "roster-2", "player-x", 0, 2, 1)

	result, err := service.ProcessLeagueClaims(t.Context(), testLeagueID)
	if err != nil {
		t.Fatalf("process claims: %v", err)
	}
	if result.Processed != 2 || result.Successful != 1 {
		t.Fatalf("expected 2 processed / 1 successful, got %+v", result)
	}

	winner, _, err := f.claims.FindByID(t.Context(), nil, "claim-1")
	if err != nil {
		t.Fatalf("find claim-1: %v", err)
	}
	if winner.Status != waiver.ClaimSuccessful {
		t.Fatalf("expected roster-1's claim to succeed, got status=%s", winner.Status)
	}

	loser, _, err := f.claims.FindByID(t.Context(), nil, "claim-2")
	if err != nil {
		t.Fatalf("find claim-2: %v", err)
	}
	if loser.Status != waiver.ClaimFailed {
		t.Fatalf("expected roster-2's claim to fail as outbid, got status=%s", loser.Status)
	}
	if loser.FailureReason == nil || *loser.FailureReason != reasonOutbid {
		t.Fatalf("expected failure reason %q, got %v", reasonOutbid, loser.FailureReason)
	}

	owns, err := f.rosters.FindByRosterAndPlayer(t.Context(), nil, "roster-1", "player-x")
	if err != nil || !owns {
		t.Fatalf("expected roster-1 to own player-x, found=%v err=%v", owns, err)
	}
}

func TestWaiverProcessorService_FAABSupersedesPriority(t *testing.T) {
	settings := waiver.DefaultLeagueSettings()
	settings.WaiverType = waiver.TypeFAAB
	settings.FaabBudget = 100

	service, f := newProcessorService(t, settings, []string{"roster-1", "roster-2"})

	// roster-1 has the better priority but a lower bid; roster-2's higher
	// bid must win despite its worse priority.
	f.seedClaim(t, "claim-1", "roster-1", "player-x", 10, 1, 1)
	f.seedClaim(t, "claim-2", "roster-2", "player-x", 90, 2, 1)

	if _, err := service.ProcessLeagueClaims(t.Context(), testLeagueID); err != nil {
		t.Fatalf("process claims: %v", err)
	}

	winner, _, err := f.claims.FindByID(t.Context(), nil, "claim-2")
	if err != nil {
		t.Fatalf("find claim-2: %v", err)
	}
	if winner.Status != waiver.ClaimSuccessful {
		t.Fatalf("expected roster-2's higher bid to win, got status=%s", winner.Status)
	}

	budget, _, err := f.budgets.GetByRoster(t.Context(), nil, testLeagueID, "roster-2", testSeason)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if budget.RemainingBudget != 10 {
		t.Fatalf("expected roster-2's remaining budget to be 10 after a 90 bid, got %d", budget.RemainingBudget)
	}
}

func TestWaiverProcessorService_ConservationOfFAABBudget(t *testing.T) {
	settings := waiver.DefaultLeagueSettings()
	settings.WaiverType = waiver.TypeFAAB
	settings.FaabBudget = 100

	service, f := newProcessorService(t, settings, []string{"roster-1", "roster-2", "roster-3"})

	f.seedClaim(t, "claim-1", "roster-1", "player-a", 40, 1, 1)
	f.seedClaim(t, "claim-2", "roster-2", "player-b", 25, 2, 1)
	f.seedClaim(t, "claim-3", "roster-3", "player-c", 0, 3, 1)

	before := map[string]int64{}
	for _, rosterID := range []string{"roster-1", "roster-2", "roster-3"} {
		b, _, err := f.budgets.GetByRoster(t.Context(), nil, testLeagueID, rosterID, testSeason)
		if err != nil {
			t.Fatalf("get budget before: %v", err)
		}
		before[rosterID] = b.RemainingBudget
	}

	if _, err := service.ProcessLeagueClaims(t.Context(), testLeagueID); err != nil {
		t.Fatalf("process claims: %v", err)
	}

	var deducted, delta int64
	for _, rosterID := range []string{"roster-1", "roster-2", "roster-3"} {
		b, _, err := f.budgets.GetByRoster(t.Context(), nil, testLeagueID, rosterID, testSeason)
		if err != nil {
			t.Fatalf("get budget after: %v", err)
		}
		delta += before[rosterID] - b.RemainingBudget
	}
	deducted = 40 + 25 + 0

	if delta != deducted {
		t.Fatalf("expected budget deltas to conserve the sum of winning bids (%d), got %d", deducted, delta)
	}
}

func TestWaiverProcessorService_PriorityRemainsAPermutationAfterRotation(t *testing.T) {
	service, f := newProcessorService(t, waiver.DefaultLeagueSettings(), []string{"roster-1", "roster-2", "roster-3"})

	f.seedClaim(t, "claim-1", "roster-1", "player-x", 0, 1, 1)

	if _, err := service.ProcessLeagueClaims(t.Context(), testLeagueID); err != nil {
		t.Fatalf("process claims: %v", err)
	}

	rows, err := f.priority.GetByLeague(t.Context(), nil, testLeagueID, testSeason)
	if err != nil {
		t.Fatalf("get league priorities: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 priority rows, got %d", len(rows))
	}
	seen := make(map[int]bool, 3)
	for _, row := range rows {
		seen[row.Priority] = true
	}
	for want := 1; want <= 3; want++ {
		if !seen[want] {
			t.Fatalf("expected priority permutation 1..3, missing %d in %+v", want, rows)
		}
	}

	winnerPriority, _, err := f.priority.GetByRoster(t.Context(), nil, testLeagueID, "roster-1", testSeason)
	if err != nil {
		t.Fatalf("get roster-1 priority: %v", err)
	}
	if winnerPriority.Priority != 3 {
		t.Fatalf("expected the winning roster to move to the back of the line (priority 3), got %d", winnerPriority.Priority)
	}
}

func TestWaiverProcessorService_ReEntryIsANoOp(t *testing.T) {
	service, f := newProcessorService(t, waiver.DefaultLeagueSettings(), []string{"roster-1", "roster-2"})
	f.seedClaim(t, "claim-1", "roster-1", "player-x", 0, 1, 1)

	first, err := service.ProcessLeagueClaims(t.Context(), testLeagueID)
	if err != nil {
		t.Fatalf("first process: %v", err)
	}
	if first.Processed != 1 || first.Successful != 1 {
		t.Fatalf("expected first run to process the claim, got %+v", first)
	}

	second, err := service.ProcessLeagueClaims(t.Context(), testLeagueID)
	if err != nil {
		t.Fatalf("second process: %v", err)
	}
	if second.Processed != 0 || second.Successful != 0 {
		t.Fatalf("expected re-entrant run in the same window to no-op, got %+v", second)
	}
}

// flakyRosterRepository wraps the in-memory roster repository and injects a
// generic (non-ownership) error the first time a specific player is added,
// to exercise the per-claim "system error" containment path.
type flakyRosterRepository struct {
	*memory.RosterPlayersRepository
	failPlayerID string
	failed       bool
}

func (f *flakyRosterRepository) AddPlayer(ctx context.Context, client waiver.Client, rosterID, playerID string, acquired roster.AcquiredType) error {
	if !f.failed && playerID == f.failPlayerID {
		f.failed = true
		return fmt.Errorf("simulated constraint violation")
	}
	return f.RosterPlayersRepository.AddPlayer(ctx, client, rosterID, playerID, acquired)
}

func TestWaiverProcessorService_PerClaimSystemErrorIsContained(t *testing.T) {
	settings := waiver.DefaultLeagueSettings()

	claims := memory.NewWaiverClaimsRepository()
	priority := memory.NewWaiverPriorityRepository()
	budgets := memory.NewWaiverFaabBudgetRepository()
	wire := memory.NewWaiverWireRepository()
	runs := memory.NewWaiverProcessingRunsRepository()
	leagues := memory.NewWaiverLeagueProvider()
	rosterTx := memory.NewRosterTransactionsRepository()
	trades := memory.NewTradesRepository()

	rosters := &flakyRosterRepository{
		RosterPlayersRepository: memory.NewRosterPlayersRepository(),
		failPlayerID:            "player-broken",
	}

	week := testWeek
	leagues.Register(waiver.LeagueContext{
		ID:                   testLeagueID,
		Season:               testSeason,
		CurrentWeek:          &week,
		Settings:             settings,
		ActiveLeagueSeasonID: "season-2026",
	})
	rosters.Seed(roster.Roster{ID: "roster-1", LeagueID: testLeagueID, UserID: "user-1", RosterID: "roster-1"})
	rosters.Seed(roster.Roster{ID: "roster-2", LeagueID: testLeagueID, UserID: "user-2", RosterID: "roster-2"})
	if err := priority.InitializeForLeague(t.Context(), nil, testLeagueID, testSeason, []string{"roster-1", "roster-2"}); err != nil {
		t.Fatalf("initialize priority: %v", err)
	}

	runner := txrunner.NewFakeRunner(eventbus.NewNoopBus())
	service := NewWaiverProcessorService(
		claims, priority, budgets, wire, runs, leagues, rosters, rosterTx, trades,
		runner,
		&sequentialIDGenerator{prefix: "run"},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	fixedNow := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return fixedNow }

	f := &processorFixtures{claims: claims}
	f.seedClaim(t, "claim-1", "roster-1", "player-broken", 0, 1, 1)
	f.seedClaim(t, "claim-2", "roster-2", "player-ok", 0, 1, 1)

	result, err := service.ProcessLeagueClaims(t.Context(), testLeagueID)
	if err != nil {
		t.Fatalf("expected the run to complete despite a per-claim error, got %v", err)
	}
	if result.Processed != 2 || result.Successful != 1 {
		t.Fatalf("expected the healthy claim to still succeed, got %+v", result)
	}

	broken, _, err := claims.FindByID(t.Context(), nil, "claim-1")
	if err != nil {
		t.Fatalf("find claim-1: %v", err)
	}
	if broken.Status != waiver.ClaimFailed {
		t.Fatalf("expected the broken claim to be marked failed, got status=%s", broken.Status)
	}
	if broken.FailureReason == nil || *broken.FailureReason != reasonSystemError {
		t.Fatalf("expected failure reason %q, got %v", reasonSystemError, broken.FailureReason)
	}

	healthy, _, err := claims.FindByID(t.Context(), nil, "claim-2")
	if err != nil {
		t.Fatalf("find claim-2: %v", err)
	}
	if healthy.Status != waiver.ClaimSuccessful {
		t.Fatalf("expected the unrelated claim to still succeed, got status=%s", healthy.Status)
	}
}

func TestWaiverProcessorService_PreloadedOwnershipBlocksCrossRosterClaim(t *testing.T) {
	service, f := newProcessorService(t, waiver.DefaultLeagueSettings(), []string{"roster-1", "roster-2"})
	f.rosters.Seed(roster.Roster{ID: "roster-2", LeagueID: testLeagueID, UserID: "user-2", RosterID: "roster-2"}, "player-x")

	f.seedClaim(t, "claim-1", "roster-1", "player-x", 0, 1, 1)

	result, err := service.ProcessLeagueClaims(t.Context(), testLeagueID)
	if err != nil {
		t.Fatalf("process claims: %v", err)
	}
	if result.Successful != 0 {
		t.Fatalf("expected the claim on an already-owned player to fail, got %+v", result)
	}

	claim, _, err := f.claims.FindByID(t.Context(), nil, "claim-1")
	if err != nil {
		t.Fatalf("find claim-1: %v", err)
	}
	if claim.Status != waiver.ClaimInvalid {
		t.Fatalf("expected claim to be marked invalid, got status=%s", claim.Status)
	}
}
