package quota

import (
	"context"
	"fmt"

	"readability-backend/internal/analyses"
	"readability-backend/internal/shared/metrics"
	"readability-backend/internal/shared/telemetry"
)

// Store is the slice of the analyses repository the enforcer needs.
type Store interface {
	Insert(ctx context.Context, rec analyses.Record) error
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	OldestByOwner(ctx context.Context, ownerID string, n int) ([]analyses.Record, error)
	DeleteMany(ctx context.Context, ids []string) (int, error)
}

// SnapshotCleaner removes blobs belonging to evicted records.
type SnapshotCleaner interface {
	DeleteSnapshots(ctx context.Context, recs []analyses.Record)
}

// Usage is an owner's storage consumption.
type Usage struct {
	Role      string `json:"role"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
}

// Service enforces per-role record ceilings. Writes for one owner are
// serialized within this process; separate processes sharing a database can
// still interleave.
type Service struct {
	Store     Store
	Limits    map[string]int
	Snapshots SnapshotCleaner

	locks ownerLocks
}

// LimitFor returns the record ceiling for role.
func (s *Service) LimitFor(role string) int {
	return limitFor(s.Limits, role)
}

// Usage reports how many records ownerID holds against the role's limit.
func (s *Service) Usage(ctx context.Context, ownerID, role string) (Usage, error) {
	used, err := s.Store.CountByOwner(ctx, ownerID)
	if err != nil {
		return Usage{}, err
	}
	limit := s.LimitFor(role)
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Usage{Role: role, Limit: limit, Used: used, Remaining: remaining}, nil
}

// EnforceAndInsert makes room for rec by deleting the owner's oldest records
// when the role limit is reached, then inserts rec. Afterwards the owner holds
// at most LimitFor(rec.OwnerRole) records. It returns the number evicted.
func (s *Service) EnforceAndInsert(ctx context.Context, rec analyses.Record) (int, error) {
	_, evicted, err := s.Save(ctx, rec, nil)
	return evicted, err
}

// Save is EnforceAndInsert with a hook that sees the owner's records after
// eviction and before the insert. The hook runs under the owner lock, so
// anything it reads from the owner's history is still stored when rec lands.
// Save returns rec as inserted.
func (s *Service) Save(ctx context.Context, rec analyses.Record, beforeInsert func(context.Context, *analyses.Record)) (analyses.Record, int, error) {
	if rec.OwnerID == "" {
		return analyses.Record{}, 0, fmt.Errorf("%w: owner id is required", ErrQuotaEnforcement)
	}
	unlock := s.locks.lock(rec.OwnerID)
	defer unlock()

	evicted, err := s.evictDownTo(ctx, rec.OwnerID, rec.OwnerRole, s.LimitFor(rec.OwnerRole)-1)
	if err != nil {
		return analyses.Record{}, 0, err
	}
	if beforeInsert != nil {
		beforeInsert(ctx, &rec)
	}
	if err := s.Store.Insert(ctx, rec); err != nil {
		return analyses.Record{}, evicted, fmt.Errorf("%w: insert: %v", ErrQuotaEnforcement, err)
	}
	return rec, evicted, nil
}

// Trim deletes the owner's oldest records until at most LimitFor(role)
// remain. Used after records are moved onto an owner from elsewhere.
func (s *Service) Trim(ctx context.Context, ownerID, role string) (int, error) {
	if ownerID == "" {
		return 0, fmt.Errorf("%w: owner id is required", ErrQuotaEnforcement)
	}
	unlock := s.locks.lock(ownerID)
	defer unlock()
	return s.evictDownTo(ctx, ownerID, role, s.LimitFor(role))
}

// evictDownTo leaves at most keep records for ownerID. Callers hold the owner lock.
func (s *Service) evictDownTo(ctx context.Context, ownerID, role string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	count, err := s.Store.CountByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrQuotaEnforcement, err)
	}
	if count <= keep {
		return 0, nil
	}
	oldest, err := s.Store.OldestByOwner(ctx, ownerID, count-keep)
	if err != nil {
		return 0, fmt.Errorf("%w: select oldest: %v", ErrQuotaEnforcement, err)
	}
	ids := make([]string, 0, len(oldest))
	for _, old := range oldest {
		ids = append(ids, old.ID)
	}
	evicted, err := s.Store.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("%w: evict: %v", ErrQuotaEnforcement, err)
	}
	metrics.AddQuotaEvicted(evicted)
	telemetry.Info("quota.evicted", map[string]any{
		"owner_id": ownerID,
		"role":     role,
		"limit":    s.LimitFor(role),
		"count":    count,
		"evicted":  evicted,
	})
	if s.Snapshots != nil {
		s.Snapshots.DeleteSnapshots(ctx, oldest)
	}
	return evicted, nil
}
