package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	"github.com/fantasyplatform/waiver-engine/internal/usecase"
)

type claimDTO struct {
	ID              string  `json:"id"`
	LeagueID        string  `json:"leagueId"`
	RosterID        string  `json:"rosterId"`
	PlayerID        string  `json:"playerId"`
	DropPlayerID    *string `json:"dropPlayerId,omitempty"`
	BidAmount       int64   `json:"bidAmount"`
	PriorityAtClaim int     `json:"priorityAtClaim"`
	Status          string  `json:"status"`
	Season          int     `json:"season"`
	Week            int     `json:"week"`
	ClaimOrder      int     `json:"claimOrder"`
	ProcessingRunID *string `json:"processingRunId,omitempty"`
	FailureReason   *string `json:"failureReason,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

func claimToDTO(v waiver.Claim) claimDTO {
	return claimDTO{
		ID:              v.ID,
		LeagueID:        v.LeagueID,
		RosterID:        v.RosterID,
		PlayerID:        v.PlayerID,
		DropPlayerID:    v.DropPlayerID,
		BidAmount:       v.BidAmount,
		PriorityAtClaim: v.PriorityAtClaim,
		Status:          string(v.Status),
		Season:          v.Season,
		Week:            v.Week,
		ClaimOrder:      v.ClaimOrder,
		ProcessingRunID: v.ProcessingRunID,
		FailureReason:   v.FailureReason,
		CreatedAt:       v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func claimsToDTO(items []waiver.Claim) []claimDTO {
	out := make([]claimDTO, 0, len(items))
	for _, item := range items {
		out = append(out, claimToDTO(item))
	}
	return out
}

type processResultDTO struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
}

// SubmitWaiverClaim handles submit_claim: a roster owner claims an
// unrostered player, optionally paired with a drop.
func (h *Handler) SubmitWaiverClaim(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitWaiverClaim")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))

	var req submitClaimRequest
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	claim, err := h.waiverService.SubmitClaim(ctx, usecase.SubmitClaimInput{
		LeagueID:       leagueID,
		UserID:         principal.UserID,
		RosterID:       req.RosterID,
		PlayerID:       req.PlayerID,
		DropPlayerID:   req.DropPlayerID,
		BidAmount:      req.BidAmount,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit waiver claim failed", "league_id", leagueID, "roster_id", req.RosterID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, claimToDTO(claim))
}

// UpdateWaiverClaim handles update_claim: adjust the FAAB bid and/or drop
// player of a still-pending claim.
func (h *Handler) UpdateWaiverClaim(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateWaiverClaim")
	defer span.End()

	if _, ok := principalFromContext(ctx); !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	claimID := strings.TrimSpace(r.PathValue("claimID"))

	var req updateClaimRequest
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	claim, err := h.waiverService.UpdateClaim(ctx, leagueID, usecase.UpdateClaimInput{
		ClaimID:         claimID,
		RosterID:        req.RosterID,
		BidAmount:       req.BidAmount,
		DropPlayerID:    req.DropPlayerID,
		ClearDropPlayer: req.ClearDropPlayer,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "update waiver claim failed", "league_id", leagueID, "claim_id", claimID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, claimToDTO(claim))
}

// CancelWaiverClaim handles cancel_claim.
func (h *Handler) CancelWaiverClaim(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CancelWaiverClaim")
	defer span.End()

	if _, ok := principalFromContext(ctx); !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	claimID := strings.TrimSpace(r.PathValue("claimID"))
	rosterID := strings.TrimSpace(r.URL.Query().Get("roster_id"))

	if err := h.waiverService.CancelClaim(ctx, leagueID, rosterID, claimID); err != nil {
		h.logger.WarnContext(ctx, "cancel waiver claim failed", "league_id", leagueID, "claim_id", claimID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, nil)
}

// ReorderWaiverClaims handles reorder_claims: a full permutation of a
// roster's pending claim ids, rewritten atomically.
func (h *Handler) ReorderWaiverClaims(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReorderWaiverClaims")
	defer span.End()

	if _, ok := principalFromContext(ctx); !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))

	var req reorderClaimsRequest
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.waiverService.ReorderClaims(ctx, leagueID, usecase.ReorderClaimsInput{
		RosterID: req.RosterID,
		ClaimIDs: req.ClaimIDs,
	}); err != nil {
		h.logger.WarnContext(ctx, "reorder waiver claims failed", "league_id", leagueID, "roster_id", req.RosterID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, nil)
}

// ListMyWaiverClaims returns the pending claims for a roster, selected by
// the roster_id query parameter.
func (h *Handler) ListMyWaiverClaims(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyWaiverClaims")
	defer span.End()

	if _, ok := principalFromContext(ctx); !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	rosterID := strings.TrimSpace(r.URL.Query().Get("roster_id"))
	if rosterID == "" {
		writeError(ctx, w, fmt.Errorf("%w: roster_id is required", usecase.ErrInvalidInput))
		return
	}

	claims, err := h.waiverService.GetMyClaims(ctx, rosterID)
	if err != nil {
		h.logger.WarnContext(ctx, "list waiver claims failed", "roster_id", rosterID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, claimsToDTO(claims))
}

// InitializeLeagueWaivers provisions priority and FAAB rows for a league's
// rosters, normally called once at season or league start.
func (h *Handler) InitializeLeagueWaivers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.InitializeLeagueWaivers")
	defer span.End()

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))

	var req initializeLeagueWaiversRequest
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.waiverService.InitializeLeagueWaivers(ctx, leagueID, req.RosterIDs); err != nil {
		h.logger.WarnContext(ctx, "initialize league waivers failed", "league_id", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, nil)
}

// ProcessLeagueWaivers runs one resolution sweep for a league-week. Normally
// fired by the scheduler; exposed here for a commissioner's manual trigger.
func (h *Handler) ProcessLeagueWaivers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ProcessLeagueWaivers")
	defer span.End()

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))

	result, err := h.waiverService.ProcessLeagueClaims(ctx, leagueID)
	if err != nil {
		h.logger.WarnContext(ctx, "process league waivers failed", "league_id", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, processResultDTO{
		Processed:  result.Processed,
		Successful: result.Successful,
	})
}
