package account

import (
	"context"
	"errors"
	"strings"

	"readability-backend/internal/analyses"
	"readability-backend/internal/quota"
	"readability-backend/internal/shared/telemetry"
)

// Service moves guest-owned analyses onto a signed-in account.
type Service struct {
	AnalysisRepo analyses.Repo
	Quota        *quota.Service
}

type ClaimResult struct {
	MigratedAnalyses int `json:"migratedAnalyses"`
	Evicted          int `json:"evicted"`
}

func NewService(analysisRepo analyses.Repo, quotaSvc *quota.Service) *Service {
	return &Service{AnalysisRepo: analysisRepo, Quota: quotaSvc}
}

// ClaimGuest reassigns the guest's records to the authenticated user and then
// trims the user back under their role limit.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID, authedRole string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, errors.New("guestUserID and authedUserID are required")
	}
	if s.AnalysisRepo == nil {
		return ClaimResult{}, errors.New("analyses repo not configured")
	}

	moved, err := s.AnalysisRepo.ReassignOwner(ctx, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	result := ClaimResult{MigratedAnalyses: moved}
	if moved == 0 || s.Quota == nil {
		return result, nil
	}

	evicted, err := s.Quota.Trim(ctx, authedUserID, authedRole)
	if err != nil {
		telemetry.Warn("account.claim_trim_failed", map[string]any{
			"user_id": authedUserID,
			"error":   err.Error(),
		})
		return result, nil
	}
	result.Evicted = evicted
	telemetry.Info("account.guest_claimed", map[string]any{
		"user_id":  authedUserID,
		"migrated": moved,
		"evicted":  evicted,
	})
	return result, nil
}
