package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tbxark/intakebot/worker"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "workers.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newRecord(t *testing.T, name string, category worker.Category) worker.Record {
	t.Helper()
	r, err := worker.NewRecord(map[string]string{
		"fullName":    name,
		"category":    string(category),
		"location":    "İstanbul",
		"phoneNumber": "05550000000",
		"experience":  "3",
	}, time.Date(2025, 3, 1, 9, 30, 0, 123, time.UTC))
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	return r
}

func TestCreateGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	r := newRecord(t, "Ayşe", worker.Cleaning)
	if err := s.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, ok, err := s.Get(ctx, r.ID)
	if err != nil || !ok {
		t.Fatalf("Get: %v %v", ok, err)
	}
	if !got.CreatedAt.Equal(r.CreatedAt) {
		t.Fatalf("createdAt = %v, want %v", got.CreatedAt, r.CreatedAt)
	}
	got.CreatedAt = r.CreatedAt
	if got != r {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, r)
	}
	if !got.Availability || got.Rating != 0 || got.ReviewCount != 0 {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	r := newRecord(t, "Ayşe", worker.Cleaning)
	if err := s.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, r); !errors.Is(err, worker.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	_, ok, err := openTestStore(t).Get(context.Background(), "nope")
	if err != nil || ok {
		t.Fatalf("expected not found without error, got %v %v", ok, err)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	r := newRecord(t, "Ali", worker.Plumbing)
	if err := s.Update(ctx, r); !errors.Is(err, worker.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_ = s.Create(ctx, r)
	r.Availability = false
	r.Rating = 4.5
	if err := s.Update(ctx, r); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _, _ := s.Get(ctx, r.ID)
	if got.Availability || got.Rating != 4.5 {
		t.Fatalf("update not stored: %+v", got)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	r := newRecord(t, "Ali", worker.Plumbing)
	_ = s.Create(ctx, r)
	for i := 0; i < 2; i++ {
		if err := s.Delete(ctx, r.ID); err != nil {
			t.Fatalf("Delete #%d: %v", i, err)
		}
	}
	all, _ := s.List(ctx, "")
	if len(all) != 0 {
		t.Fatalf("expected empty store, got %d", len(all))
	}
}

func TestListByCategory(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	a := newRecord(t, "A", worker.Cleaning)
	b := newRecord(t, "B", worker.Plumbing)
	c := newRecord(t, "C", worker.Cleaning)
	for _, r := range []worker.Record{a, b, c} {
		if err := s.Create(ctx, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	got, err := s.List(ctx, worker.Cleaning)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != c.ID {
		t.Fatalf("unexpected list: %+v", got)
	}
	all, _ := s.List(ctx, "")
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
}
