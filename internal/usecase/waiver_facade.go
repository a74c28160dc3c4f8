package usecase

import (
	"context"

	"github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
)

// WaiverService is the single surface the transport layer depends on for
// every waiver operation. It composes the submission and processor services
// rather than reimplementing anything, and does not touch repositories
// directly.
type WaiverService struct {
	submission *WaiverSubmissionService
	processor  *WaiverProcessorService
}

func NewWaiverService(submission *WaiverSubmissionService, processor *WaiverProcessorService) *WaiverService {
	return &WaiverService{submission: submission, processor: processor}
}

func (s *WaiverService) SubmitClaim(ctx context.Context, input SubmitClaimInput) (waiver.Claim, error) {
	return s.submission.SubmitClaim(ctx, input)
}

func (s *WaiverService) CancelClaim(ctx context.Context, leagueID, rosterID, claimID string) error {
	return s.submission.CancelClaim(ctx, leagueID, rosterID, claimID)
}

func (s *WaiverService) UpdateClaim(ctx context.Context, leagueID string, input UpdateClaimInput) (waiver.Claim, error) {
	return s.submission.UpdateClaim(ctx, leagueID, input)
}

func (s *WaiverService) ReorderClaims(ctx context.Context, leagueID string, input ReorderClaimsInput) error {
	return s.submission.ReorderClaims(ctx, leagueID, input)
}

func (s *WaiverService) GetMyClaims(ctx context.Context, rosterID string) ([]waiver.Claim, error) {
	return s.submission.GetMyClaims(ctx, rosterID)
}

// InitializeLeagueWaivers provisions priority/budget rows for a set of
// rosters, typically called once at season or league start.
func (s *WaiverService) InitializeLeagueWaivers(ctx context.Context, leagueID string, rosterIDs []string) error {
	return s.submission.InitializeLeagueWaivers(ctx, leagueID, rosterIDs)
}

// ProcessLeagueClaims runs one resolution sweep for a league-week, whether
// triggered by the scheduler or by a commissioner's manual request.
func (s *WaiverService) ProcessLeagueClaims(ctx context.Context, leagueID string) (ProcessResult, error) {
	return s.processor.ProcessLeagueClaims(ctx, leagueID)
}
