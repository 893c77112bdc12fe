package shares

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"readability-backend/internal/analyses"
	"readability-backend/internal/shared/telemetry"
)

var (
	// ErrShareUnavailable is the single outcome for unknown, revoked and
	// expired tokens.
	ErrShareUnavailable = errors.New("this shared analysis is unavailable or has expired")
	ErrInvalidExpiry    = errors.New("expiry must be 7, 30, 90 days or never")
)

// DefaultExpiryDays applies when the caller does not choose an expiry.
const DefaultExpiryDays = 30

// ValidExpiryDays reports whether days is an offered expiry. Zero means the
// link never expires.
func ValidExpiryDays(days int) bool {
	switch days {
	case 0, 7, 30, 90:
		return true
	}
	return false
}

// Link is a created share link.
type Link struct {
	Token     string     `json:"shareToken"`
	URL       string     `json:"shareUrl"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// Status is the sharing state of one record.
type Status struct {
	IsShared  bool       `json:"isShared"`
	URL       string     `json:"shareUrl,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Expired   bool       `json:"expired"`
}

// Service issues, revokes and resolves share tokens.
type Service struct {
	Repo    analyses.Repo
	BaseURL string
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) shareURL(token string) string {
	return s.BaseURL + "/shared/" + token
}

func (s *Service) owned(ctx context.Context, caller analyses.Caller, id string) (analyses.Record, error) {
	rec, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return analyses.Record{}, err
	}
	if !analyses.Visible(caller, rec) {
		return analyses.Record{}, analyses.ErrNotFound
	}
	if rec.OwnerID != caller.ID && caller.Role != analyses.RoleAdmin {
		return analyses.Record{}, analyses.ErrForbidden
	}
	return rec, nil
}

// Create issues a fresh token for the record, replacing any previous one.
// expiryDays is nil for the default, 0 for never, or 7, 30 or 90.
func (s *Service) Create(ctx context.Context, caller analyses.Caller, id string, expiryDays *int) (Link, error) {
	days := DefaultExpiryDays
	if expiryDays != nil {
		days = *expiryDays
	}
	if !ValidExpiryDays(days) {
		return Link{}, ErrInvalidExpiry
	}
	if _, err := s.owned(ctx, caller, id); err != nil {
		return Link{}, err
	}

	token := uuid.NewString()
	var expiresAt *time.Time
	if days > 0 {
		t := s.now().AddDate(0, 0, days)
		expiresAt = &t
	}
	if err := s.Repo.UpdateShare(ctx, id, &token, expiresAt); err != nil {
		return Link{}, err
	}
	telemetry.Info("share.created", map[string]any{
		"analysis_id": id,
		"owner_id":    caller.ID,
		"expiry_days": days,
	})
	return Link{Token: token, URL: s.shareURL(token), ExpiresAt: expiresAt}, nil
}

// Revoke clears the record's sharing fields.
func (s *Service) Revoke(ctx context.Context, caller analyses.Caller, id string) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	if err := s.Repo.UpdateShare(ctx, id, nil, nil); err != nil {
		return err
	}
	telemetry.Info("share.revoked", map[string]any{
		"analysis_id": id,
		"owner_id":    caller.ID,
	})
	return nil
}

// Status reports whether the record is shared and whether the link expired.
func (s *Service) Status(ctx context.Context, caller analyses.Caller, id string) (Status, error) {
	rec, err := s.owned(ctx, caller, id)
	if err != nil {
		return Status{}, err
	}
	if !rec.IsShared || rec.ShareToken == nil {
		return Status{}, nil
	}
	return Status{
		IsShared:  true,
		URL:       s.shareURL(*rec.ShareToken),
		ExpiresAt: rec.ShareExpiresAt,
		Expired:   s.expired(rec),
	}, nil
}

func (s *Service) expired(rec analyses.Record) bool {
	return rec.ShareExpiresAt != nil && !s.now().Before(*rec.ShareExpiresAt)
}

// Load resolves a public token to the redacted projection of its record.
// Unknown, revoked and expired tokens all return ErrShareUnavailable.
func (s *Service) Load(ctx context.Context, token string) (SharedAnalysis, error) {
	rec, err := s.Repo.GetByShareToken(ctx, token)
	if err != nil {
		if !errors.Is(err, analyses.ErrNotFound) {
			telemetry.Error("share.load_failed", map[string]any{"error": err.Error()})
		}
		return SharedAnalysis{}, ErrShareUnavailable
	}
	if !rec.IsShared || s.expired(rec) {
		return SharedAnalysis{}, ErrShareUnavailable
	}
	return Project(rec), nil
}
