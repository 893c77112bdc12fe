package shares

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"readability-backend/internal/acquire"
	"readability-backend/internal/analyses"
	"readability-backend/internal/fanout"
	"readability-backend/internal/llm"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

var owner = analyses.Caller{ID: "owner-1", Role: "member"}

func setup(t *testing.T) (*Service, *analyses.MemoryRepo, *clock) {
	t.Helper()
	repo := analyses.NewMemoryRepo()
	clk := &clock{t: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	score := 8.0
	rec := analyses.Record{
		ID:           "rec-1",
		OwnerID:      owner.ID,
		Source:       acquire.Source{Kind: acquire.SourceURL, URL: "https://example.com/post", NormalizedURL: "https://example.com/post"},
		Title:        "A post",
		OverallScore: 82,
		Grade:        "B",
		ModelExtractions: []fanout.ModelExtraction{{
			ModelKey:        fanout.ModelOpenAI,
			Status:          fanout.StatusOK,
			UsefulnessScore: &score,
			Output: &llm.Extraction{
				ExtractedTitle: "SECRET TITLE TEXT",
				MainContent:    "VERBATIM MAIN CONTENT",
				Entities:       []llm.Entity{{Name: "Jane Doe", Type: "person"}, {Name: "Acme", Type: "org"}},
				Headings:       []llm.Heading{{Level: 1, Text: "Intro"}},
				PrimaryTopic:   "PRIMARY TOPIC TEXT",
				Usefulness:     llm.Usefulness{Score: 8, Explanation: "MODEL EXPLANATION TEXT"},
			},
		}},
		CreatedAt: clk.t.Add(-time.Hour),
	}
	if err := repo.Insert(context.Background(), rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return &Service{Repo: repo, BaseURL: "https://app.example", Now: clk.now}, repo, clk
}

func days(n int) *int { return &n }

func TestCreateShareLinkExpiresAfterSevenDays(t *testing.T) {
	t.Parallel()

	svc, _, clk := setup(t)
	ctx := context.Background()

	link, err := svc.Create(ctx, owner, "rec-1", days(7))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if link.URL != "https://app.example/shared/"+link.Token || link.ExpiresAt == nil {
		t.Fatalf("unexpected link %+v", link)
	}
	if _, err := svc.Load(ctx, link.Token); err != nil {
		t.Fatalf("expected fresh link to load: %v", err)
	}

	clk.advance(8 * 24 * time.Hour)
	_, expiredErr := svc.Load(ctx, link.Token)
	_, unknownErr := svc.Load(ctx, "never-existed")
	if expiredErr != ErrShareUnavailable || unknownErr != ErrShareUnavailable {
		t.Fatalf("expected identical unavailable errors, got %v and %v", expiredErr, unknownErr)
	}

	status, err := svc.Status(ctx, owner, "rec-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.IsShared || !status.Expired {
		t.Fatalf("expected shared and expired status, got %+v", status)
	}
}

func TestCreateShareLinkExpiryOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		days    *int
		wantErr bool
		wantTTL time.Duration
	}{
		{name: "default thirty", days: nil, wantTTL: 30 * 24 * time.Hour},
		{name: "ninety", days: days(90), wantTTL: 90 * 24 * time.Hour},
		{name: "never", days: days(0)},
		{name: "unsupported", days: days(14), wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, _, clk := setup(t)
			link, err := svc.Create(context.Background(), owner, "rec-1", tt.days)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidExpiry) {
					t.Fatalf("expected ErrInvalidExpiry, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if tt.wantTTL == 0 {
				if link.ExpiresAt != nil {
					t.Fatalf("expected no expiry")
				}
				clk.advance(10 * 365 * 24 * time.Hour)
				if _, err := svc.Load(context.Background(), link.Token); err != nil {
					t.Fatalf("expected never-expiring link to load: %v", err)
				}
				return
			}
			if got := link.ExpiresAt.Sub(clk.t); got != tt.wantTTL {
				t.Fatalf("expected ttl %s, got %s", tt.wantTTL, got)
			}
		})
	}
}

func TestRevokeShare(t *testing.T) {
	t.Parallel()

	svc, repo, _ := setup(t)
	ctx := context.Background()
	link, err := svc.Create(ctx, owner, "rec-1", days(30))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Revoke(ctx, owner, "rec-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	rec, _ := repo.GetByID(ctx, "rec-1")
	if rec.IsShared || rec.ShareToken != nil || rec.ShareExpiresAt != nil {
		t.Fatalf("expected sharing fields cleared, got %+v", rec)
	}
	if _, err := svc.Load(ctx, link.Token); err != ErrShareUnavailable {
		t.Fatalf("expected revoked token to be unavailable, got %v", err)
	}
}

func TestShareRequiresOwnership(t *testing.T) {
	t.Parallel()

	svc, _, _ := setup(t)
	ctx := context.Background()
	stranger := analyses.Caller{ID: "someone", Role: "project_manager"}
	if _, err := svc.Create(ctx, stranger, "rec-1", nil); !errors.Is(err, analyses.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.Revoke(ctx, stranger, "rec-1"); !errors.Is(err, analyses.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	member := analyses.Caller{ID: "someone", Role: "member"}
	if _, err := svc.Create(ctx, member, "rec-1", nil); !errors.Is(err, analyses.ErrNotFound) {
		t.Fatalf("expected not found for a caller who cannot read the record, got %v", err)
	}
	if err := svc.Revoke(ctx, member, "rec-1"); !errors.Is(err, analyses.ErrNotFound) {
		t.Fatalf("expected not found for a caller who cannot read the record, got %v", err)
	}
	if _, err := svc.Create(ctx, analyses.Caller{ID: "root", Role: "admin"}, "rec-1", nil); err != nil {
		t.Fatalf("expected admin to share: %v", err)
	}
	if _, err := svc.Create(ctx, owner, "missing", nil); !errors.Is(err, analyses.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProjectionStripsExtractedContent(t *testing.T) {
	t.Parallel()

	svc, _, _ := setup(t)
	ctx := context.Background()
	link, err := svc.Create(ctx, owner, "rec-1", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	shared, err := svc.Load(ctx, link.Token)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(shared.Models) != 1 || shared.Models[0].EntityCount != 2 || shared.Models[0].HeadingCount != 1 {
		t.Fatalf("expected aggregate counts, got %+v", shared.Models)
	}
	if shared.Grade.Letter != "B" || shared.SourceURL != "https://example.com/post" {
		t.Fatalf("unexpected projection %+v", shared)
	}

	payload, err := json.Marshal(shared)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, leaked := range []string{"VERBATIM MAIN CONTENT", "Jane Doe", "SECRET TITLE TEXT", "owner-1", "PRIMARY TOPIC TEXT", "MODEL EXPLANATION TEXT"} {
		if strings.Contains(string(payload), leaked) {
			t.Fatalf("projection leaked %q", leaked)
		}
	}
}
