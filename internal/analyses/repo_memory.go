package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores analysis records in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Record
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Record)}
}

// Insert stores the record.
func (r *MemoryRepo) Insert(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rec.ID] = rec
	return nil
}

// GetByID returns a record by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Delete removes a record.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// DeleteMany removes the given records and reports how many existed.
func (r *MemoryRepo) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := r.byID[id]; ok {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

// ReassignOwner moves the records of one owner to another.
func (r *MemoryRepo) ReassignOwner(ctx context.Context, fromOwnerID, toOwnerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, rec := range r.byID {
		if rec.OwnerID == fromOwnerID {
			rec.OwnerID = toOwnerID
			r.byID[id] = rec
			n++
		}
	}
	return n, nil
}

// List returns a filtered, ordered slice of records after the cursor.
func (r *MemoryRepo) List(ctx context.Context, q ListQuery, after *Cursor, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches := r.filter(func(rec Record) bool {
		if !q.AllOwners && rec.OwnerID != q.OwnerID {
			return false
		}
		if q.MinScore != nil && rec.OverallScore < *q.MinScore {
			return false
		}
		if q.MaxScore != nil && rec.OverallScore > *q.MaxScore {
			return false
		}
		if q.From != nil && rec.CreatedAt.Before(*q.From) {
			return false
		}
		if q.To != nil && rec.CreatedAt.After(*q.To) {
			return false
		}
		return afterCursor(rec, after, q.Sort, q.Desc)
	})
	sort.Slice(matches, func(i, j int) bool {
		if q.Desc {
			return less(matches[j], matches[i], q.Sort)
		}
		return less(matches[i], matches[j], q.Sort)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// ListBySource returns the owner's records for a URL, newest first.
func (r *MemoryRepo) ListBySource(ctx context.Context, ownerID, normalizedURL string, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches := r.filter(func(rec Record) bool {
		return rec.OwnerID == ownerID && normalizedURL != "" && rec.Source.NormalizedURL == normalizedURL
	})
	sort.Slice(matches, func(i, j int) bool { return less(matches[j], matches[i], SortByDate) })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// CountByOwner counts the owner's records.
func (r *MemoryRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(r.filter(func(rec Record) bool { return rec.OwnerID == ownerID })), nil
}

// OldestByOwner returns the owner's n oldest records.
func (r *MemoryRepo) OldestByOwner(ctx context.Context, ownerID string, n int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches := r.filter(func(rec Record) bool { return rec.OwnerID == ownerID })
	sort.Slice(matches, func(i, j int) bool { return less(matches[i], matches[j], SortByDate) })
	if n < len(matches) {
		matches = matches[:n]
	}
	return matches, nil
}

// GetByShareToken returns the record shared under token.
func (r *MemoryRepo) GetByShareToken(ctx context.Context, token string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if token == "" {
		return Record{}, ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.byID {
		if rec.ShareToken != nil && *rec.ShareToken == token {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

// UpdateShare sets or clears the sharing fields.
func (r *MemoryRepo) UpdateShare(ctx context.Context, id string, token *string, expiresAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	rec.IsShared = token != nil
	rec.ShareToken = token
	rec.ShareExpiresAt = nil
	if token != nil {
		rec.ShareExpiresAt = expiresAt
	}
	r.byID[id] = rec
	return nil
}

func (r *MemoryRepo) filter(keep func(Record) bool) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0)
	for _, rec := range r.byID {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}
