package httpapi

import (
	"context"
	"fmt"

	"github.com/fantasyplatform/waiver-engine/internal/platform/logging"

	"github.com/go-playground/validator/v10"
	"github.com/fantasyplatform/waiver-engine/internal/usecase"
)

type Handler struct {
	waiverService *usecase.WaiverService
	logger        *logging.Logger
	validator     *validator.Validate
}

func NewHandler(
	waiverService *usecase.WaiverService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		waiverService: waiverService,
		logger:        logger,
		validator:     validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type submitClaimRequest struct {
	RosterID       string `json:"roster_id" validate:"required"`
	PlayerID       string `json:"player_id" validate:"required"`
	DropPlayerID   string `json:"drop_player_id,omitempty"`
	BidAmount      int64  `json:"bid_amount" validate:"gte=0"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type updateClaimRequest struct {
	RosterID        string  `json:"roster_id" validate:"required"`
	BidAmount       *int64  `json:"bid_amount,omitempty"`
	DropPlayerID    *string `json:"drop_player_id,omitempty"`
	ClearDropPlayer bool    `json:"clear_drop_player,omitempty"`
}

type reorderClaimsRequest struct {
	RosterID string   `json:"roster_id" validate:"required"`
	ClaimIDs []string `json:"claim_ids" validate:"required,min=1"`
}

type initializeLeagueWaiversRequest struct {
	RosterIDs []string `json:"roster_ids" validate:"required,min=1"`
}
