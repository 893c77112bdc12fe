package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"readability-backend/internal/analyses"
)

var baseTime = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func record(id, owner, role string, at time.Time) analyses.Record {
	return analyses.Record{ID: id, OwnerID: owner, OwnerRole: role, CreatedAt: at}
}

func TestLimitFor(t *testing.T) {
	t.Parallel()

	svc := &Service{}
	tests := []struct {
		role string
		want int
	}{
		{"admin", 500},
		{"project_manager", 250},
		{"member", 100},
		{"guest", 100},
		{"", 100},
	}
	for _, tt := range tests {
		if got := svc.LimitFor(tt.role); got != tt.want {
			t.Fatalf("role %q: expected %d, got %d", tt.role, tt.want, got)
		}
	}
}

func TestEnforceAndInsertEvictsOldest(t *testing.T) {
	t.Parallel()

	const limit = 3
	repo := analyses.NewMemoryRepo()
	svc := &Service{Store: repo, Limits: map[string]int{"member": limit}}
	ctx := context.Background()

	for i := 0; i < limit; i++ {
		n, err := svc.EnforceAndInsert(ctx, record(fmt.Sprintf("r%d", i), "owner", "member", baseTime.Add(time.Duration(i)*time.Minute)))
		if err != nil || n != 0 {
			t.Fatalf("insert %d: evicted=%d err=%v", i, n, err)
		}
	}

	n, err := svc.EnforceAndInsert(ctx, record("r3", "owner", "member", baseTime.Add(time.Hour)))
	if err != nil {
		t.Fatalf("insert over limit: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	count, _ := repo.CountByOwner(ctx, "owner")
	if count != limit {
		t.Fatalf("expected %d records, got %d", limit, count)
	}
	if _, err := repo.GetByID(ctx, "r0"); !errors.Is(err, analyses.ErrNotFound) {
		t.Fatalf("expected oldest record evicted, got %v", err)
	}
	if _, err := repo.GetByID(ctx, "r3"); err != nil {
		t.Fatalf("expected new record stored: %v", err)
	}
}

func TestEnforceAndInsertShrinksAfterRoleDowngrade(t *testing.T) {
	t.Parallel()

	repo := analyses.NewMemoryRepo()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = repo.Insert(ctx, record(fmt.Sprintf("r%d", i), "owner", "admin", baseTime.Add(time.Duration(i)*time.Minute)))
	}
	svc := &Service{Store: repo, Limits: map[string]int{"member": 2}}

	n, err := svc.EnforceAndInsert(ctx, record("new", "owner", "member", baseTime.Add(time.Hour)))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 evictions, got %d", n)
	}
	count, _ := repo.CountByOwner(ctx, "owner")
	if count != 2 {
		t.Fatalf("expected 2 records, got %d", count)
	}
}

func TestEnforceAndInsertSerializesPerOwner(t *testing.T) {
	t.Parallel()

	const limit = 5
	repo := analyses.NewMemoryRepo()
	svc := &Service{Store: repo, Limits: map[string]int{"member": limit}}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.EnforceAndInsert(ctx, record(fmt.Sprintf("r%02d", i), "owner", "member", baseTime.Add(time.Duration(i)*time.Second)))
		}(i)
	}
	wg.Wait()

	count, _ := repo.CountByOwner(ctx, "owner")
	if count != limit {
		t.Fatalf("expected exactly %d records after concurrent writes, got %d", limit, count)
	}
}

type failingStore struct {
	*analyses.MemoryRepo
	deleteErr error
}

func (f failingStore) DeleteMany(ctx context.Context, ids []string) (int, error) {
	return 0, f.deleteErr
}

func TestEnforceAndInsertWrapsFailures(t *testing.T) {
	t.Parallel()

	repo := analyses.NewMemoryRepo()
	ctx := context.Background()
	_ = repo.Insert(ctx, record("old", "owner", "member", baseTime))
	svc := &Service{Store: failingStore{MemoryRepo: repo, deleteErr: errors.New("db down")}, Limits: map[string]int{"member": 1}}

	_, err := svc.EnforceAndInsert(ctx, record("new", "owner", "member", baseTime.Add(time.Minute)))
	if !errors.Is(err, ErrQuotaEnforcement) {
		t.Fatalf("expected ErrQuotaEnforcement, got %v", err)
	}
	if _, err := repo.GetByID(ctx, "new"); !errors.Is(err, analyses.ErrNotFound) {
		t.Fatalf("expected no insert after failed eviction")
	}
}

func TestUsage(t *testing.T) {
	t.Parallel()

	repo := analyses.NewMemoryRepo()
	ctx := context.Background()
	_ = repo.Insert(ctx, record("a", "owner", "project_manager", baseTime))
	svc := &Service{Store: repo}

	u, err := svc.Usage(ctx, "owner", "project_manager")
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if u.Limit != 250 || u.Used != 1 || u.Remaining != 249 {
		t.Fatalf("unexpected usage %+v", u)
	}
}

func TestTrimLeavesLimitNewestRecords(t *testing.T) {
	t.Parallel()

	repo := analyses.NewMemoryRepo()
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_ = repo.Insert(ctx, record(fmt.Sprintf("r%d", i), "owner", "member", baseTime.Add(time.Duration(i)*time.Hour)))
	}
	svc := &Service{Store: repo, Limits: map[string]int{"member": 2}}

	evicted, err := svc.Trim(ctx, "owner", "member")
	if err != nil || evicted != 2 {
		t.Fatalf("expected 2 evicted, got %d %v", evicted, err)
	}
	for _, id := range []string{"r0", "r1"} {
		if _, err := repo.GetByID(ctx, id); !errors.Is(err, analyses.ErrNotFound) {
			t.Fatalf("expected %s evicted", id)
		}
	}

	evicted, err = svc.Trim(ctx, "owner", "member")
	if err != nil || evicted != 0 {
		t.Fatalf("expected no-op trim at limit, got %d %v", evicted, err)
	}
}

func TestSaveHookSeesHistoryAfterEviction(t *testing.T) {
	t.Parallel()

	repo := analyses.NewMemoryRepo()
	svc := &Service{Store: repo, Limits: map[string]int{"member": 2}}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := svc.EnforceAndInsert(ctx, record(fmt.Sprintf("r%d", i), "owner", "member", baseTime.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	var seen int
	saved, evicted, err := svc.Save(ctx, record("r2", "owner", "member", baseTime.Add(time.Hour)), func(ctx context.Context, rec *analyses.Record) {
		seen, _ = repo.CountByOwner(ctx, "owner")
		if _, err := repo.GetByID(ctx, "r0"); !errors.Is(err, analyses.ErrNotFound) {
			t.Errorf("expected r0 evicted before the hook, got %v", err)
		}
		rec.Title = "linked"
	})
	if err != nil || evicted != 1 {
		t.Fatalf("save: evicted=%d err=%v", evicted, err)
	}
	if seen != 1 {
		t.Fatalf("expected hook to see 1 remaining record, saw %d", seen)
	}
	stored, err := repo.GetByID(ctx, "r2")
	if err != nil || stored.Title != "linked" || saved.Title != "linked" {
		t.Fatalf("expected hook edits to be inserted, got %+v %v", stored, err)
	}
}
