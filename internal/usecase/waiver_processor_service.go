package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/fantasyplatform/waiver-engine/internal/domain/roster"
	"github.com/fantasyplatform/waiver-engine/internal/domain/rostertx"
	"github.com/fantasyplatform/waiver-engine/internal/domain/trade"
	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	idgen "github.com/fantasyplatform/waiver-engine/internal/platform/id"
	"github.com/fantasyplatform/waiver-engine/internal/platform/eventbus"
	"github.com/fantasyplatform/waiver-engine/internal/platform/txrunner"
)

const (
	reasonOutbid       = "Outbid by another team"
	reasonSystemError  = "System error during processing"
	reasonNoProgress   = "Left pending after processing made no further progress"
)

// ProcessResult is the summary returned by ProcessLeagueClaims.
type ProcessResult struct {
	Processed  int
	Successful int
}

// WaiverProcessorService runs the scheduled (or commissioner-triggered)
// waiver resolution pass for one league-week.
type WaiverProcessorService struct {
	claims   waiver.ClaimsRepository
	priority waiver.PriorityRepository
	budgets  waiver.FaabBudgetRepository
	wire     waiver.WaiverWireRepository
	runs     waiver.ProcessingRunsRepository
	leagues  waiver.LeagueProvider
	rosters  roster.Repository
	rosterTx rostertx.Repository
	trades   trade.Repository

	runner     txrunner.LockRunner
	leagueLock *txrunner.LeagueLocks
	idGen      idgen.Generator
	logger     *slog.Logger
	now        func() time.Time
}

func NewWaiverProcessorService(
	claims waiver.ClaimsRepository,
	priority waiver.PriorityRepository,
	budgets waiver.FaabBudgetRepository,
	wire waiver.WaiverWireRepository,
	runs waiver.ProcessingRunsRepository,
	leagues waiver.LeagueProvider,
	rosters roster.Repository,
	rosterTx rostertx.Repository,
	trades trade.Repository,
	runner txrunner.LockRunner,
	idGen idgen.Generator,
	logger *slog.Logger,
) *WaiverProcessorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WaiverProcessorService{
		claims:     claims,
		priority:   priority,
		budgets:    budgets,
		wire:       wire,
		runs:       runs,
		leagues:    leagues,
		rosters:    rosters,
		rosterTx:   rosterTx,
		trades:     trades,
		runner:     runner,
		leagueLock: txrunner.NewLeagueLocks(),
		idGen:      idGen,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessLeagueClaims never panics on a per-claim error; it commits or
// rolls back the whole league-week run as one atomic transaction.
func (s *WaiverProcessorService) ProcessLeagueClaims(ctx context.Context, leagueID string) (ProcessResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WaiverProcessorService.ProcessLeagueClaims")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	if leagueID == "" {
		return ProcessResult{}, fmt.Errorf("%w: league_id is required", ErrInvalidInput)
	}

	leagueCtx, ok, err := s.leagues.GetLeagueContext(ctx, leagueID)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("get league context: %w", err)
	}
	if !ok {
		return ProcessResult{}, fmt.Errorf("%w: league=%s", ErrNotFound, leagueID)
	}
	if leagueCtx.Settings.WaiverType == waiver.TypeNone || leagueCtx.CurrentWeek == nil {
		return ProcessResult{}, nil
	}

	windowStartAt := windowStart(s.now().UTC(), leagueCtx.Settings)

	if !s.leagueLock.TryAcquire(leagueID) {
		return ProcessResult{}, fmt.Errorf("%w: league=%s is already being processed", ErrConflict, leagueID)
	}
	defer s.leagueLock.Release(leagueID)

	var result ProcessResult

	err = s.runner.RunWithLock(ctx, txrunner.DomainWaiver, leagueID, func(ctx context.Context, client waiver.Client, events *eventbus.Buffer) error {
		runID, err := s.idGen.NewID()
		if err != nil {
			return fmt.Errorf("generate run id: %w", err)
		}

		run, created, err := s.runs.TryCreate(ctx, client, waiver.ProcessingRun{
			ID:            runID,
			LeagueID:      leagueID,
			Season:        leagueCtx.Season,
			Week:          *leagueCtx.CurrentWeek,
			WindowStartAt: windowStartAt,
			RanAt:         s.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("try create processing run: %w", err)
		}
		if !created {
			// A prior run already claimed this window. Re-entrant no-op.
			return nil
		}

		snapshotCount, err := s.claims.SnapshotClaimsForProcessingRun(ctx, client, leagueID, leagueCtx.Season, *leagueCtx.CurrentWeek, run.ID)
		if err != nil {
			return fmt.Errorf("snapshot claims: %w", err)
		}
		if snapshotCount == 0 {
			return s.runs.UpdateResults(ctx, client, run.ID, 0, 0)
		}

		runResult, err := s.runRound(ctx, client, leagueCtx, run.ID, events)
		if err != nil {
			return err
		}

		if err := s.runs.UpdateResults(ctx, client, run.ID, runResult.Processed, runResult.Successful); err != nil {
			return fmt.Errorf("update run results: %w", err)
		}

		events.Publish(eventbus.Event{
			Kind:     eventbus.KindWaiverProcessed,
			LeagueID: leagueID,
			Payload:  runResult,
		})

		result = runResult
		return nil
	})
	if err != nil {
		return ProcessResult{}, err
	}

	return result, nil
}

// runRound loads the snapshotted claims and resolves them round by round,
// highest priority first, until no claim in the round makes further
// progress.
func (s *WaiverProcessorService) runRound(ctx context.Context, client waiver.Client, leagueCtx waiver.LeagueContext, runID string, events *eventbus.Buffer) (ProcessResult, error) {
	snapshotted, err := s.claims.GetPendingByProcessingRun(ctx, client, runID)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("get snapshotted claims: %w", err)
	}

	states, claimsByRoster, ownedByLeague, err := s.loadRosterStates(ctx, client, leagueCtx, snapshotted)
	if err != nil {
		return ProcessResult{}, err
	}

	rosterIDs := make([]string, 0, len(states))
	for rosterID := range states {
		rosterIDs = append(rosterIDs, rosterID)
	}
	sort.Strings(rosterIDs)

	successful := 0
	priorityTouched := false
	budgetTouched := false

	for {
		active := selectActiveClaims(rosterIDs, claimsByRoster, states)
		if len(active) == 0 {
			break
		}

		progressed := false
		survivors := make([]waiver.Claim, 0, len(active))

		for _, claim := range active {
			state := states[claim.RosterID]

			wireState, err := s.loadWireState(ctx, client, claim)
			if err != nil {
				return ProcessResult{}, err
			}

			_, ownedByLeagueWide := ownedByLeague[claim.PlayerID]
			ownedByOther := ownedByLeagueWide && !state.Owns(claim.PlayerID)

			if err := waiver.ValidateClaim(claim, wireState, ownedByOther, state, leagueCtx.Settings); err != nil {
				reason := waiver.InvalidReason(err)
				if markErr := s.finishClaim(ctx, client, claim, waiver.ClaimInvalid, reason); markErr != nil {
					return ProcessResult{}, markErr
				}
				state.MarkProcessed(claim.ID)
				progressed = true
				continue
			}

			survivors = append(survivors, claim)
		}

		groups := groupByPlayer(survivors)
		players := make([]string, 0, len(groups))
		for playerID := range groups {
			players = append(players, playerID)
		}
		sort.Strings(players)

		for _, playerID := range players {
			group := groups[playerID]
			snapshot := rosterSnapshots(states)
			sort.Slice(group, func(i, j int) bool {
				return waiver.CompareClaims(group[i], group[j], leagueCtx.Settings.WaiverType, snapshot)
			})

			won := false
			for _, candidate := range group {
				state := states[candidate.RosterID]

				if won {
					if markErr := s.finishClaim(ctx, client, candidate, waiver.ClaimFailed, reasonOutbid); markErr != nil {
						return ProcessResult{}, markErr
					}
					state.MarkProcessed(candidate.ID)
					progressed = true
					continue
				}

				outcome, err := s.executeClaim(ctx, client, leagueCtx, candidate, state, events)
				if err != nil {
					if isOwnershipConflict(err) {
						if markErr := s.finishClaim(ctx, client, candidate, waiver.ClaimInvalid, "Player already owned"); markErr != nil {
							return ProcessResult{}, markErr
						}
						state.MarkProcessed(candidate.ID)
						progressed = true
						continue
					}

					if markErr := s.finishClaim(ctx, client, candidate, waiver.ClaimFailed, reasonSystemError); markErr != nil {
						return ProcessResult{}, markErr
					}
					state.MarkProcessed(candidate.ID)
					progressed = true
					s.logger.ErrorContext(ctx, "waiver claim execution error",
						"claim_id", candidate.ID, "player_id", candidate.PlayerID, "error", err)
					continue
				}

				won = true
				successful++
				progressed = true
				state.MarkProcessed(candidate.ID)
				if leagueCtx.Settings.WaiverType == waiver.TypeFAAB {
					budgetTouched = true
				} else {
					priorityTouched = true
				}
				_ = outcome
			}
		}

		if !progressed {
			break
		}
	}

	processed := 0
	for _, claims := range claimsByRoster {
		for _, claim := range claims {
			processed++
			state := states[claim.RosterID]
			if !state.IsProcessed(claim.ID) {
				if err := s.finishClaim(ctx, client, claim, waiver.ClaimInvalid, reasonNoProgress); err != nil {
					return ProcessResult{}, err
				}
				state.MarkProcessed(claim.ID)
			}
		}
	}

	if priorityTouched {
		events.Publish(eventbus.Event{Kind: eventbus.KindWaiverPriorityUpdated, LeagueID: leagueCtx.ID})
	}
	if budgetTouched {
		events.Publish(eventbus.Event{Kind: eventbus.KindWaiverBudgetUpdated, LeagueID: leagueCtx.ID})
	}

	return ProcessResult{Processed: processed, Successful: successful}, nil
}

type executionOutcome struct {
	tradesInvalidated bool
}

// executeClaim applies a winning claim's roster moves in a fixed order:
// drop, then add, then budget debit, then trade invalidation check.
func (s *WaiverProcessorService) executeClaim(ctx context.Context, client waiver.Client, leagueCtx waiver.LeagueContext, claim waiver.Claim, state *waiver.RosterState, events *eventbus.Buffer) (executionOutcome, error) {
	var outcome executionOutcome

	if claim.DropPlayerID != nil {
		if err := s.rosters.RemovePlayer(ctx, client, claim.RosterID, *claim.DropPlayerID); err != nil {
			return outcome, fmt.Errorf("remove dropped player: %w", err)
		}
		if _, err := s.rosterTx.Create(ctx, client, rostertx.Transaction{
			ID:       mustNewID(s.idGen),
			LeagueID: leagueCtx.ID,
			RosterID: claim.RosterID,
			PlayerID: *claim.DropPlayerID,
			Type:     rostertx.TypeDrop,
			Season:   claim.Season,
			Week:     claim.Week,
		}); err != nil {
			return outcome, fmt.Errorf("record drop transaction: %w", err)
		}
		if err := s.wire.AddPlayer(ctx, client, waiver.WireEntry{
			LeagueID:          leagueCtx.ID,
			PlayerID:          *claim.DropPlayerID,
			DroppedByRosterID: &claim.RosterID,
			WaiverExpiresAt:   s.now().UTC().AddDate(0, 0, leagueCtx.Settings.WaiverPeriodDays),
			Season:            claim.Season,
			Week:              claim.Week,
		}); err != nil {
			return outcome, fmt.Errorf("add dropped player to wire: %w", err)
		}
		delete(state.OwnedPlayerIDs, *claim.DropPlayerID)
		state.CurrentRosterSize--
	}

	if err := s.rosters.AddPlayer(ctx, client, claim.RosterID, claim.PlayerID, roster.AcquiredWaiver); err != nil {
		return outcome, err
	}

	if _, err := s.rosterTx.Create(ctx, client, rostertx.Transaction{
		ID:       mustNewID(s.idGen),
		LeagueID: leagueCtx.ID,
		RosterID: claim.RosterID,
		PlayerID: claim.PlayerID,
		Type:     rostertx.TypeAdd,
		Season:   claim.Season,
		Week:     claim.Week,
	}); err != nil {
		return outcome, fmt.Errorf("record add transaction: %w", err)
	}

	if leagueCtx.Settings.WaiverType == waiver.TypeFAAB {
		if err := s.budgets.DeductBudget(ctx, client, leagueCtx.ID, claim.RosterID, claim.Season, claim.BidAmount); err != nil {
			return outcome, fmt.Errorf("deduct budget: %w", err)
		}
		state.RemainingBudget -= claim.BidAmount
	} else {
		if err := s.priority.RotatePriority(ctx, client, leagueCtx.ID, claim.RosterID, claim.Season); err != nil {
			return outcome, fmt.Errorf("rotate priority: %w", err)
		}
	}

	if err := s.wire.RemovePlayer(ctx, client, leagueCtx.ID, claim.PlayerID); err != nil {
		return outcome, fmt.Errorf("remove claimed player from wire: %w", err)
	}

	state.OwnedPlayerIDs[claim.PlayerID] = struct{}{}
	state.CurrentRosterSize++

	if err := s.finishClaim(ctx, client, claim, waiver.ClaimSuccessful, ""); err != nil {
		return outcome, err
	}
	events.Publish(eventbus.Event{Kind: eventbus.KindWaiverClaimSuccessful, LeagueID: leagueCtx.ID, Payload: claim})

	if s.trades != nil {
		invalidated, err := s.invalidateTrades(ctx, client, leagueCtx.ID, claim, events)
		if err != nil {
			return outcome, fmt.Errorf("invalidate trades: %w", err)
		}
		outcome.tradesInvalidated = invalidated
	}

	return outcome, nil
}

func (s *WaiverProcessorService) invalidateTrades(ctx context.Context, client waiver.Client, leagueID string, claim waiver.Claim, events *eventbus.Buffer) (bool, error) {
	playerIDs := []string{claim.PlayerID}
	if claim.DropPlayerID != nil {
		playerIDs = append(playerIDs, *claim.DropPlayerID)
	}

	any := false
	for _, playerID := range playerIDs {
		pending, err := s.trades.FindPendingByPlayer(ctx, client, leagueID, playerID)
		if err != nil {
			return any, err
		}
		for _, t := range pending {
			expired, err := s.trades.ExpireTrade(ctx, client, t.ID)
			if err != nil {
				return any, err
			}
			if expired {
				any = true
				events.Publish(eventbus.Event{Kind: eventbus.KindTradeInvalidated, LeagueID: leagueID, Payload: t.ID})
			}
		}
	}
	return any, nil
}

func (s *WaiverProcessorService) finishClaim(ctx context.Context, client waiver.Client, claim waiver.Claim, status waiver.ClaimStatus, reason string) error {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	return s.claims.UpdateStatus(ctx, client, claim.ID, status, reasonPtr)
}

// loadRosterStates preloads the league-wide owned-player set in one query
// (consumed by the round loop to detect cross-roster ownership conflicts
// without a per-claim lookup), then builds the per-roster working state
// concurrently since each roster's budget/priority/ownership rows are
// independent reads.
func (s *WaiverProcessorService) loadRosterStates(ctx context.Context, client waiver.Client, leagueCtx waiver.LeagueContext, claims []waiver.Claim) (map[string]*waiver.RosterState, map[string][]waiver.Claim, map[string]struct{}, error) {
	claimsByRoster := groupByRoster(claims)

	rosterIDs := make([]string, 0, len(claimsByRoster))
	for rosterID := range claimsByRoster {
		rosterIDs = append(rosterIDs, rosterID)
	}
	sort.Strings(rosterIDs)

	ownedByLeague, err := s.rosters.GetOwnedPlayerIDsByLeague(ctx, client, leagueCtx.ID, leagueCtx.ActiveLeagueSeasonID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("preload owned player ids: %w", err)
	}

	type loaded struct {
		rosterID string
		state    *waiver.RosterState
		err      error
	}

	results := iter.Map(rosterIDs, func(rosterIDPtr *string) loaded {
		rosterID := *rosterIDPtr
		budget, _, err := s.budgets.GetByRoster(ctx, client, leagueCtx.ID, rosterID, leagueCtx.Season)
		if err != nil {
			return loaded{err: fmt.Errorf("get roster budget: %w", err)}
		}
		priorityRow, _, err := s.priority.GetByRoster(ctx, client, leagueCtx.ID, rosterID, leagueCtx.Season)
		if err != nil {
			return loaded{err: fmt.Errorf("get roster priority: %w", err)}
		}
		ownedIDs, err := s.rosters.GetPlayerIDsByRoster(ctx, client, rosterID)
		if err != nil {
			return loaded{err: fmt.Errorf("get roster player ids: %w", err)}
		}
		owned := make(map[string]struct{}, len(ownedIDs))
		for _, id := range ownedIDs {
			owned[id] = struct{}{}
		}
		count, err := s.rosters.GetPlayerCount(ctx, client, rosterID)
		if err != nil {
			return loaded{err: fmt.Errorf("get roster player count: %w", err)}
		}

		return loaded{
			rosterID: rosterID,
			state:    waiver.NewRosterState(rosterID, budget.RemainingBudget, priorityRow.Priority, count, owned),
		}
	})

	states := make(map[string]*waiver.RosterState, len(results))
	for _, r := range results {
		if r.err != nil {
			return nil, nil, nil, r.err
		}
		states[r.rosterID] = r.state
	}

	return states, claimsByRoster, ownedByLeague, nil
}

func (s *WaiverProcessorService) loadWireState(ctx context.Context, client waiver.Client, claim waiver.Claim) (waiver.WireState, error) {
	onWire, err := s.wire.IsOnWaivers(ctx, client, claim.LeagueID, claim.PlayerID)
	if err != nil {
		return waiver.WireState{}, fmt.Errorf("check waiver wire: %w", err)
	}
	if !onWire {
		return waiver.WireState{}, nil
	}
	expiresAt, _, err := s.wire.GetPlayerExpiration(ctx, client, claim.LeagueID, claim.PlayerID)
	if err != nil {
		return waiver.WireState{}, fmt.Errorf("get wire expiration: %w", err)
	}
	now := s.now().UTC()
	return waiver.WireState{
		OnWire:              true,
		Expired:             now.After(expiresAt),
		SubmittedBeforeGate: claim.CreatedAt.Before(expiresAt),
	}, nil
}

func selectActiveClaims(rosterIDs []string, claimsByRoster map[string][]waiver.Claim, states map[string]*waiver.RosterState) []waiver.Claim {
	var active []waiver.Claim
	for _, rosterID := range rosterIDs {
		state := states[rosterID]
		var best *waiver.Claim
		for i := range claimsByRoster[rosterID] {
			c := &claimsByRoster[rosterID][i]
			if state.IsProcessed(c.ID) {
				continue
			}
			if best == nil || c.ClaimOrder < best.ClaimOrder {
				best = c
			}
		}
		if best != nil {
			active = append(active, *best)
		}
	}
	return active
}

func groupByRoster(claims []waiver.Claim) map[string][]waiver.Claim {
	out := make(map[string][]waiver.Claim)
	for _, c := range claims {
		out[c.RosterID] = append(out[c.RosterID], c)
	}
	return out
}

func groupByPlayer(claims []waiver.Claim) map[string][]waiver.Claim {
	out := make(map[string][]waiver.Claim)
	for _, c := range claims {
		out[c.PlayerID] = append(out[c.PlayerID], c)
	}
	return out
}

func rosterSnapshots(states map[string]*waiver.RosterState) map[string]waiver.RosterSnapshot {
	out := make(map[string]waiver.RosterSnapshot, len(states))
	for id, s := range states {
		out[id] = waiver.RosterSnapshot{CurrentPriority: s.CurrentPriority}
	}
	return out
}

func isOwnershipConflict(err error) bool {
	return errors.Is(err, waiver.ErrOwnershipConflict)
}

func mustNewID(gen idgen.Generator) string {
	id, err := gen.NewID()
	if err != nil {
		return ""
	}
	return id
}

// windowStart truncates the current time to the hour bucket of the league's
// scheduled deadline, in the league's timezone (UTC if unset). This is the
// de-duplication window for re-entrant scheduling.
func windowStart(now time.Time, settings waiver.LeagueSettings) time.Time {
	loc := time.UTC
	if settings.Timezone != "" {
		if l, err := time.LoadLocation(settings.Timezone); err == nil {
			loc = l
		}
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc)
}
