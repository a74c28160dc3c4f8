package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fantasyplatform/waiver-engine/internal/domain/roster"
	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	idgen "github.com/fantasyplatform/waiver-engine/internal/platform/id"
	"github.com/fantasyplatform/waiver-engine/internal/platform/eventbus"
	"github.com/fantasyplatform/waiver-engine/internal/platform/txrunner"
)

// SubmitClaimInput is the validated payload for submit_claim.
type SubmitClaimInput struct {
	LeagueID       string `validate:"required"`
	UserID         string `validate:"required"`
	RosterID       string `validate:"required"`
	PlayerID       string `validate:"required"`
	DropPlayerID   string
	BidAmount      int64 `validate:"gte=0"`
	IdempotencyKey string
}

type UpdateClaimInput struct {
	ClaimID        string `validate:"required"`
	RosterID       string `validate:"required"`
	BidAmount      *int64
	DropPlayerID   *string
	ClearDropPlayer bool
}

type ReorderClaimsInput struct {
	RosterID string   `validate:"required"`
	ClaimIDs []string `validate:"required,min=1"`
}

// WaiverSubmissionService handles submission, update, reorder, and
// cancellation of pending claims, plus initial provisioning of a roster's
// priority/budget rows.
type WaiverSubmissionService struct {
	claims     waiver.ClaimsRepository
	priority   waiver.PriorityRepository
	budgets    waiver.FaabBudgetRepository
	wire       waiver.WaiverWireRepository
	leagues    waiver.LeagueProvider
	rosters    roster.Repository
	runner     txrunner.LockRunner
	leagueLock *txrunner.LeagueLocks
	idGen      idgen.Generator
	validate   *validator.Validate
	logger     *slog.Logger
	now        func() time.Time
}

func NewWaiverSubmissionService(
	claims waiver.ClaimsRepository,
	priority waiver.PriorityRepository,
	budgets waiver.FaabBudgetRepository,
	wire waiver.WaiverWireRepository,
	leagues waiver.LeagueProvider,
	rosters roster.Repository,
	runner txrunner.LockRunner,
	idGen idgen.Generator,
	logger *slog.Logger,
) *WaiverSubmissionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WaiverSubmissionService{
		claims:     claims,
		priority:   priority,
		budgets:    budgets,
		wire:       wire,
		leagues:    leagues,
		rosters:    rosters,
		runner:     runner,
		leagueLock: txrunner.NewLeagueLocks(),
		idGen:      idGen,
		validate:   validator.New(),
		logger:     logger,
		now:        time.Now,
	}
}

func (s *WaiverSubmissionService) SubmitClaim(ctx context.Context, input SubmitClaimInput) (waiver.Claim, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WaiverSubmissionService.SubmitClaim")
	defer span.End()

	input.LeagueID = strings.TrimSpace(input.LeagueID)
	input.UserID = strings.TrimSpace(input.UserID)
	input.RosterID = strings.TrimSpace(input.RosterID)
	input.PlayerID = strings.TrimSpace(input.PlayerID)
	input.DropPlayerID = strings.TrimSpace(input.DropPlayerID)
	input.IdempotencyKey = strings.TrimSpace(input.IdempotencyKey)

	if err := s.validate.Struct(input); err != nil {
		return waiver.Claim{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	leagueCtx, ok, err := s.leagues.GetLeagueContext(ctx, input.LeagueID)
	if err != nil {
		return waiver.Claim{}, fmt.Errorf("get league context: %w", err)
	}
	if !ok {
		return waiver.Claim{}, fmt.Errorf("%w: league=%s", ErrNotFound, input.LeagueID)
	}
	if leagueCtx.Settings.WaiverType == waiver.TypeNone {
		return waiver.Claim{}, fmt.Errorf("%w: waivers disabled for league=%s", ErrInvalidInput, input.LeagueID)
	}
	if leagueCtx.CurrentWeek == nil {
		return waiver.Claim{}, fmt.Errorf("%w: league is pre-season", ErrInvalidInput)
	}

	owner, found, err := s.rosters.GetByRosterID(ctx, input.LeagueID, input.RosterID)
	if err != nil {
		return waiver.Claim{}, fmt.Errorf("get roster: %w", err)
	}
	if !found || owner.UserID != input.UserID {
		return waiver.Claim{}, fmt.Errorf("%w: user=%s does not own roster=%s", ErrUnauthorized, input.UserID, input.RosterID)
	}

	season := leagueCtx.Season
	week := *leagueCtx.CurrentWeek

	var result waiver.Claim
	if !s.leagueLock.TryAcquire(input.LeagueID) {
		return waiver.Claim{}, fmt.Errorf("%w: league=%s is already processing a waiver operation", ErrConflict, input.LeagueID)
	}
	defer s.leagueLock.Release(input.LeagueID)

	err = s.runner.RunWithLock(ctx, txrunner.DomainWaiver, input.LeagueID, func(ctx context.Context, client waiver.Client, events *eventbus.Buffer) error {
		if input.IdempotencyKey != "" {
			existing, ok, err := s.claims.FindByIdempotencyKey(ctx, client, input.LeagueID, input.RosterID, input.IdempotencyKey)
			if err != nil {
				return fmt.Errorf("find claim by idempotency key: %w", err)
			}
			if ok {
				result = existing
				return nil
			}
		}

		ownerRosterID, owned, err := s.rosters.FindOwner(ctx, client, input.LeagueID, input.PlayerID, leagueCtx.ActiveLeagueSeasonID)
		if err != nil {
			return fmt.Errorf("find player owner: %w", err)
		}
		if owned {
			return fmt.Errorf("%w: player=%s already owned", ErrConflict, input.PlayerID)
		}

		hasPending, err := s.claims.HasPendingClaim(ctx, client, input.RosterID, input.PlayerID)
		if err != nil {
			return fmt.Errorf("check pending claim: %w", err)
		}
		if hasPending {
			return fmt.Errorf("%w: roster=%s already has a pending claim for player=%s", ErrInvalidInput, input.RosterID, input.PlayerID)
		}

		var bid int64
		if leagueCtx.Settings.WaiverType == waiver.TypeFAAB {
			budget, err := s.budgets.EnsureRosterBudget(ctx, client, input.LeagueID, input.RosterID, season, leagueCtx.Settings.FaabBudget)
			if err != nil {
				return fmt.Errorf("ensure roster budget: %w", err)
			}
			if input.BidAmount < 0 || input.BidAmount > budget.RemainingBudget {
				return fmt.Errorf("%w: bid=%d exceeds remaining budget=%d", ErrInvalidInput, input.BidAmount, budget.RemainingBudget)
			}
			bid = input.BidAmount
		}

		var dropPlayerID *string
		if input.DropPlayerID != "" {
			owns, err := s.rosters.FindByRosterAndPlayer(ctx, client, input.RosterID, input.DropPlayerID)
			if err != nil {
				return fmt.Errorf("check drop player ownership: %w", err)
			}
			if !owns {
				return fmt.Errorf("%w: roster=%s does not own drop player=%s", ErrInvalidInput, input.RosterID, input.DropPlayerID)
			}
			dropPlayerID = &input.DropPlayerID
		}

		priorityRow, err := s.priority.EnsureRosterPriority(ctx, client, input.LeagueID, input.RosterID, season)
		if err != nil {
			return fmt.Errorf("ensure roster priority: %w", err)
		}

		claimOrder, err := s.claims.GetNextClaimOrder(ctx, client, input.RosterID, season, week)
		if err != nil {
			return fmt.Errorf("get next claim order: %w", err)
		}

		claimID, err := s.idGen.NewID()
		if err != nil {
			return fmt.Errorf("generate claim id: %w", err)
		}

		now := s.now().UTC()
		claim := waiver.Claim{
			ID:              claimID,
			LeagueID:        input.LeagueID,
			RosterID:        input.RosterID,
			PlayerID:        input.PlayerID,
			DropPlayerID:    dropPlayerID,
			BidAmount:       bid,
			PriorityAtClaim: priorityRow.Priority,
			Status:          waiver.ClaimPending,
			Season:          season,
			Week:            week,
			ClaimOrder:      claimOrder,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if input.IdempotencyKey != "" {
			claim.IdempotencyKey = &input.IdempotencyKey
		}

		created, err := s.claims.Create(ctx, client, claim)
		if err != nil {
			return fmt.Errorf("create claim: %w", err)
		}
		result = created

		events.Publish(eventbus.Event{Kind: eventbus.KindWaiverClaimed, LeagueID: input.LeagueID, Payload: created})
		return nil
	})
	if err != nil {
		return waiver.Claim{}, err
	}

	s.logger.InfoContext(ctx, "waiver claim submitted",
		"league_id", input.LeagueID,
		"roster_id", input.RosterID,
		"player_id", input.PlayerID,
		"claim_id", result.ID,
	)

	return result, nil
}

func (s *WaiverSubmissionService) CancelClaim(ctx context.Context, leagueID, rosterID, claimID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.WaiverSubmissionService.CancelClaim")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	rosterID = strings.TrimSpace(rosterID)
	claimID = strings.TrimSpace(claimID)
	if leagueID == "" || rosterID == "" || claimID == "" {
		return fmt.Errorf("%w: league_id, roster_id and claim_id are required", ErrInvalidInput)
	}

	return s.runner.RunWithLock(ctx, txrunner.DomainWaiver, leagueID, func(ctx context.Context, client waiver.Client, events *eventbus.Buffer) error {
		claim, found, err := s.claims.FindByID(ctx, client, claimID)
		if err != nil {
			return fmt.Errorf("find claim: %w", err)
		}
		if !found || claim.RosterID != rosterID {
			return fmt.Errorf("%w: claim=%s", ErrNotFound, claimID)
		}

		cancelled, err := s.claims.CancelIfPending(ctx, client, claimID)
		if err != nil {
			return fmt.Errorf("cancel claim: %w", err)
		}
		if !cancelled {
			return fmt.Errorf("%w: claim=%s is no longer pending", ErrInvalidInput, claimID)
		}

		events.Publish(eventbus.Event{Kind: eventbus.KindWaiverClaimCancelled, LeagueID: leagueID, Payload: claimID})
		return nil
	})
}

func (s *WaiverSubmissionService) UpdateClaim(ctx context.Context, leagueID string, input UpdateClaimInput) (waiver.Claim, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WaiverSubmissionService.UpdateClaim")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	input.ClaimID = strings.TrimSpace(input.ClaimID)
	input.RosterID = strings.TrimSpace(input.RosterID)
	if leagueID == "" {
		return waiver.Claim{}, fmt.Errorf("%w: league_id is required", ErrInvalidInput)
	}
	if err := s.validate.Struct(input); err != nil {
		return waiver.Claim{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	leagueCtx, ok, err := s.leagues.GetLeagueContext(ctx, leagueID)
	if err != nil {
		return waiver.Claim{}, fmt.Errorf("get league context: %w", err)
	}
	if !ok {
		return waiver.Claim{}, fmt.Errorf("%w: league=%s", ErrNotFound, leagueID)
	}
	if leagueCtx.CurrentWeek == nil {
		return waiver.Claim{}, fmt.Errorf("%w: league is pre-season", ErrInvalidInput)
	}

	var result waiver.Claim
	err = s.runner.RunWithLock(ctx, txrunner.DomainWaiver, leagueID, func(ctx context.Context, client waiver.Client, events *eventbus.Buffer) error {
		claim, found, err := s.claims.FindByID(ctx, client, input.ClaimID)
		if err != nil {
			return fmt.Errorf("find claim: %w", err)
		}
		if !found || claim.RosterID != input.RosterID {
			return fmt.Errorf("%w: claim=%s", ErrNotFound, input.ClaimID)
		}
		if claim.Status != waiver.ClaimPending {
			return fmt.Errorf("%w: claim=%s is no longer pending", ErrInvalidInput, input.ClaimID)
		}

		if input.BidAmount != nil {
			if leagueCtx.Settings.WaiverType != waiver.TypeFAAB {
				return fmt.Errorf("%w: league=%s is not faab-based", ErrInvalidInput, leagueID)
			}
			budget, _, err := s.budgets.GetByRoster(ctx, client, leagueID, input.RosterID, claim.Season)
			if err != nil {
				return fmt.Errorf("get roster budget: %w", err)
			}
			available := budget.RemainingBudget + claim.BidAmount
			if *input.BidAmount < 0 || *input.BidAmount > available {
				return fmt.Errorf("%w: bid=%d exceeds available=%d", ErrInvalidInput, *input.BidAmount, available)
			}
			if err := s.claims.UpdateBid(ctx, client, input.ClaimID, *input.BidAmount); err != nil {
				return fmt.Errorf("update bid: %w", err)
			}
			claim.BidAmount = *input.BidAmount
		}

		if input.ClearDropPlayer {
			if err := s.claims.UpdateDropPlayer(ctx, client, input.ClaimID, nil); err != nil {
				return fmt.Errorf("clear drop player: %w", err)
			}
			claim.DropPlayerID = nil
		} else if input.DropPlayerID != nil {
			owns, err := s.rosters.FindByRosterAndPlayer(ctx, client, input.RosterID, *input.DropPlayerID)
			if err != nil {
				return fmt.Errorf("check drop player ownership: %w", err)
			}
			if !owns {
				return fmt.Errorf("%w: roster=%s does not own drop player=%s", ErrInvalidInput, input.RosterID, *input.DropPlayerID)
			}
			if err := s.claims.UpdateDropPlayer(ctx, client, input.ClaimID, input.DropPlayerID); err != nil {
				return fmt.Errorf("update drop player: %w", err)
			}
			claim.DropPlayerID = input.DropPlayerID
		}

		result = claim
		events.Publish(eventbus.Event{Kind: eventbus.KindWaiverClaimUpdated, LeagueID: leagueID, Payload: result})
		return nil
	})
	if err != nil {
		return waiver.Claim{}, err
	}
	return result, nil
}

// ReorderClaims takes a full permutation of the roster's pending claim ids
// and rewrites their priority order atomically.
func (s *WaiverSubmissionService) ReorderClaims(ctx context.Context, leagueID string, input ReorderClaimsInput) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.WaiverSubmissionService.ReorderClaims")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	if leagueID == "" {
		return fmt.Errorf("%w: league_id is required", ErrInvalidInput)
	}
	if err := s.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	if err := requireNoDuplicates(input.ClaimIDs); err != nil {
		return err
	}

	return s.runner.RunWithLock(ctx, txrunner.DomainWaiver, leagueID, func(ctx context.Context, client waiver.Client, events *eventbus.Buffer) error {
		pending, err := s.claims.GetPendingByRoster(ctx, client, input.RosterID)
		if err != nil {
			return fmt.Errorf("get pending claims: %w", err)
		}
		if len(pending) != len(input.ClaimIDs) {
			return fmt.Errorf("%w: reorder must include exactly the roster's pending claims", ErrInvalidInput)
		}

		pendingSet := make(map[string]struct{}, len(pending))
		for _, c := range pending {
			pendingSet[c.ID] = struct{}{}
		}
		for _, id := range input.ClaimIDs {
			if _, ok := pendingSet[id]; !ok {
				return fmt.Errorf("%w: claim=%s is not a pending claim on roster=%s", ErrInvalidInput, id, input.RosterID)
			}
		}

		if err := s.claims.ReorderClaims(ctx, client, input.RosterID, input.ClaimIDs); err != nil {
			return fmt.Errorf("reorder claims: %w", err)
		}

		events.Publish(eventbus.Event{Kind: eventbus.KindWaiverClaimsReordered, LeagueID: leagueID, Payload: input.ClaimIDs})
		return nil
	})
}

// GetMyClaims is a thin read-side pass-through.
func (s *WaiverSubmissionService) GetMyClaims(ctx context.Context, rosterID string) ([]waiver.Claim, error) {
	rosterID = strings.TrimSpace(rosterID)
	if rosterID == "" {
		return nil, fmt.Errorf("%w: roster_id is required", ErrInvalidInput)
	}
	return s.claims.GetPendingByRoster(ctx, nil, rosterID)
}

// InitializeLeagueWaivers provisions priority and FAAB budget rows for every
// given roster at season start. Safe to call repeatedly: ensure-create
// semantics make it a no-op for rosters that already have rows.
func (s *WaiverSubmissionService) InitializeLeagueWaivers(ctx context.Context, leagueID string, rosterIDs []string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.WaiverSubmissionService.InitializeLeagueWaivers")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	if leagueID == "" {
		return fmt.Errorf("%w: league_id is required", ErrInvalidInput)
	}
	if len(rosterIDs) == 0 {
		return fmt.Errorf("%w: roster_ids are required", ErrInvalidInput)
	}

	leagueCtx, ok, err := s.leagues.GetLeagueContext(ctx, leagueID)
	if err != nil {
		return fmt.Errorf("get league context: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: league=%s", ErrNotFound, leagueID)
	}

	return s.runner.RunWithLock(ctx, txrunner.DomainWaiver, leagueID, func(ctx context.Context, client waiver.Client, _ *eventbus.Buffer) error {
		if err := s.priority.InitializeForLeague(ctx, client, leagueID, leagueCtx.Season, rosterIDs); err != nil {
			return fmt.Errorf("initialize priority: %w", err)
		}
		if leagueCtx.Settings.WaiverType == waiver.TypeFAAB {
			if err := s.budgets.InitializeForLeague(ctx, client, leagueID, leagueCtx.Season, rosterIDs, leagueCtx.Settings.FaabBudget); err != nil {
				return fmt.Errorf("initialize faab budgets: %w", err)
			}
		}
		return nil
	})
}

func requireNoDuplicates(ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: duplicate claim id %s in reorder", ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
