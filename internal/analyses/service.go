package analyses

import (
	"context"
	"errors"
	"strings"

	"readability-backend/internal/acquire"
	"readability-backend/internal/shared/storage/object"
	"readability-backend/internal/shared/telemetry"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	TrendPoints     = 10
)

// Caller identifies who performs a history operation.
type Caller struct {
	ID   string
	Role string
}

// Service answers history queries over stored analysis records.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
}

// List returns one page of the caller's history, or of every owner's history
// for org-level roles. The URL/title search only narrows the fetched page, so
// a page may hold fewer items than the limit while HasMore is still true.
func (s *Service) List(ctx context.Context, caller Caller, q ListQuery) (Page, error) {
	if caller.ID == "" {
		return Page{}, errors.New("caller id is required")
	}
	after, err := DecodeCursor(q.Cursor)
	if err != nil {
		return Page{}, err
	}
	q.OwnerID = caller.ID
	q.AllOwners = OrgLevel(caller.Role)
	if q.Sort != SortByScore {
		q.Sort = SortByDate
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	fetched, err := s.Repo.List(ctx, q, after, limit+1)
	if err != nil {
		return Page{}, err
	}
	page := Page{}
	if len(fetched) > limit {
		fetched = fetched[:limit]
		page.HasMore = true
		page.NextCursor = EncodeCursor(fetched[len(fetched)-1])
	}
	page.Items = matchSearch(fetched, q.Search)
	return page, nil
}

func matchSearch(items []Record, search string) []Record {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return items
	}
	out := make([]Record, 0, len(items))
	for _, rec := range items {
		if strings.Contains(strings.ToLower(rec.Source.URL), needle) ||
			strings.Contains(strings.ToLower(rec.Title), needle) {
			out = append(out, rec)
		}
	}
	return out
}

// Get returns a record the caller may read.
func (s *Service) Get(ctx context.Context, caller Caller, id string) (Record, error) {
	if id == "" {
		return Record{}, ErrNotFound
	}
	rec, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if !Visible(caller, rec) {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Delete removes a record owned by the caller. Administrators may delete any
// record. The raw HTML snapshot is removed best-effort.
func (s *Service) Delete(ctx context.Context, caller Caller, id string) error {
	rec, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !Visible(caller, rec) {
		return ErrNotFound
	}
	if rec.OwnerID != caller.ID && caller.Role != RoleAdmin {
		return ErrForbidden
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.DeleteSnapshots(ctx, []Record{rec})
	telemetry.Info("analysis.deleted", map[string]any{
		"analysis_id": id,
		"owner_id":    rec.OwnerID,
		"deleted_by":  caller.ID,
	})
	return nil
}

// DeleteSnapshots removes the stored HTML of the given records, logging
// failures instead of returning them.
func (s *Service) DeleteSnapshots(ctx context.Context, recs []Record) {
	if s.Store == nil {
		return
	}
	for _, rec := range recs {
		if rec.SnapshotKey == "" {
			continue
		}
		if err := s.Store.Delete(ctx, rec.SnapshotKey); err != nil && !errors.Is(err, object.ErrNotFound) {
			telemetry.Warn("snapshot.delete_failed", map[string]any{
				"analysis_id": rec.ID,
				"error":       err.Error(),
			})
		}
	}
}

// LinkPrevious sets rec's trend fields from the owner's most recent record of
// the same normalized URL. Records without a URL are left untouched.
func (s *Service) LinkPrevious(ctx context.Context, rec *Record) error {
	if rec == nil || rec.Source.NormalizedURL == "" {
		return nil
	}
	prev, err := s.Repo.ListBySource(ctx, rec.OwnerID, rec.Source.NormalizedURL, 1)
	if err != nil {
		return err
	}
	if len(prev) == 0 {
		return nil
	}
	id := prev[0].ID
	delta := rec.OverallScore - prev[0].OverallScore
	rec.PreviousAnalysisID = &id
	rec.ScoreDelta = &delta
	return nil
}

// Trend returns up to TrendPoints of the caller's analyses of url, oldest
// first, with the latest delta and its direction.
func (s *Service) Trend(ctx context.Context, caller Caller, url string) (Trend, error) {
	normalized, err := acquire.NormalizeURL(url)
	if err != nil {
		return Trend{}, err
	}
	recs, err := s.Repo.ListBySource(ctx, caller.ID, normalized, TrendPoints)
	if err != nil {
		return Trend{}, err
	}
	trend := Trend{URL: normalized, Points: make([]TrendPoint, 0, len(recs))}
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		trend.Points = append(trend.Points, TrendPoint{
			ID:         rec.ID,
			Score:      rec.OverallScore,
			Grade:      rec.Grade,
			ScoreDelta: rec.ScoreDelta,
			CreatedAt:  rec.CreatedAt,
		})
	}
	if len(recs) > 0 && recs[0].ScoreDelta != nil {
		trend.Delta = recs[0].ScoreDelta
		trend.Direction = recs[0].Direction()
	}
	return trend, nil
}
