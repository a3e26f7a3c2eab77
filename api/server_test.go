package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tbxark/intakebot/catalog"
	"github.com/tbxark/intakebot/types"
	"github.com/tbxark/intakebot/worker"
)

func newTestServer(t *testing.T) (*worker.MemoryStore, worker.Record, func(method, target, body string) (int, []byte)) {
	t.Helper()
	store := worker.NewMemoryStore()
	r, err := worker.NewRecord(map[string]string{
		types.FieldFullName:    "Ahmet Yılmaz",
		types.FieldCategory:    "Cleaning",
		types.FieldLocation:    "İstanbul",
		types.FieldPhoneNumber: "5551234567",
		types.FieldExperience:  "5",
	}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	if err := store.Create(context.Background(), r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	app := New(store, cat)
	do := func(method, target, body string) (int, []byte) {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, target, reader)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("%s %s: %v", method, target, err)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		return resp.StatusCode, data
	}
	return store, r, do
}

func TestHealth(t *testing.T) {
	t.Parallel()
	_, _, do := newTestServer(t)
	if code, _ := do(http.MethodGet, "/healthz", ""); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
}

func TestListWorkers(t *testing.T) {
	t.Parallel()
	_, r, do := newTestServer(t)

	code, body := do(http.MethodGet, "/workers?category=temizlik", "")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", code, body)
	}
	var got []worker.Record
	if err := sonic.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != r.ID {
		t.Fatalf("unexpected records: %+v", got)
	}

	code, body = do(http.MethodGet, "/workers?category=Plumbing", "")
	if code != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("expected empty list, got %d %s", code, body)
	}
	if code, _ := do(http.MethodGet, "/workers?category=Gardening", ""); code != http.StatusBadRequest {
		t.Fatalf("unknown category should be rejected, got %d", code)
	}
}

func TestGetWorker(t *testing.T) {
	t.Parallel()
	_, r, do := newTestServer(t)
	code, body := do(http.MethodGet, "/workers/"+r.ID, "")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	var got worker.Record
	if err := sonic.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.FullName != r.FullName || !got.CreatedAt.Equal(r.CreatedAt) {
		t.Fatalf("unexpected record: %+v", got)
	}
	if code, _ := do(http.MethodGet, "/workers/missing", ""); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestPatchWorker(t *testing.T) {
	t.Parallel()
	store, r, do := newTestServer(t)

	code, body := do(http.MethodPatch, "/workers/"+r.ID,
		`[{"op":"replace","path":"/availability","value":false},{"op":"replace","path":"/category","value":"boyacı"}]`)
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", code, body)
	}
	got, _, _ := store.Get(context.Background(), r.ID)
	if got.Availability || got.Category != worker.Painting {
		t.Fatalf("patch not applied: %+v", got)
	}

	code, _ = do(http.MethodPatch, "/workers/"+r.ID, `[{"op":"replace","path":"/id","value":"x"}]`)
	if code != http.StatusBadRequest {
		t.Fatalf("id must be immutable, got %d", code)
	}
	code, _ = do(http.MethodPatch, "/workers/"+r.ID, `{"op":"replace"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("non-array body should be rejected, got %d", code)
	}
	code, _ = do(http.MethodPatch, "/workers/missing", `[]`)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestReplaceWorker(t *testing.T) {
	t.Parallel()
	store, r, do := newTestServer(t)

	code, body := do(http.MethodPut, "/workers/"+r.ID,
		`{"fullName":"Ahmet Kaya","category":"Plumbing","location":"Ankara","phoneNumber":"5550000000","experience":7,"rating":4.5,"reviewCount":2,"availability":true}`)
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", code, body)
	}
	got, _, _ := store.Get(context.Background(), r.ID)
	if got.FullName != "Ahmet Kaya" || got.Category != worker.Plumbing || got.Experience != 7 || got.ReviewCount != 2 {
		t.Fatalf("replace not applied: %+v", got)
	}
	if got.ID != r.ID || !got.CreatedAt.Equal(r.CreatedAt) {
		t.Fatalf("immutable members changed: %+v", got)
	}

	code, _ = do(http.MethodPut, "/workers/"+r.ID,
		`{"id":"other","fullName":"Ahmet Kaya","category":"Plumbing","location":"Ankara","phoneNumber":"5550000000"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("changing the id should be rejected, got %d", code)
	}
}

func TestDeleteWorkerIsIdempotent(t *testing.T) {
	t.Parallel()
	store, r, do := newTestServer(t)
	for range 2 {
		if code, _ := do(http.MethodDelete, "/workers/"+r.ID, ""); code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", code)
		}
	}
	if _, ok, _ := store.Get(context.Background(), r.ID); ok {
		t.Fatal("record still present")
	}
}

func TestCatalogRoutes(t *testing.T) {
	t.Parallel()
	_, _, do := newTestServer(t)

	code, body := do(http.MethodGet, "/categories", "")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	var names []string
	if err := sonic.Unmarshal(body, &names); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(names) != 4 || names[0] != "Cleaning" {
		t.Fatalf("unexpected categories: %v", names)
	}

	code, body = do(http.MethodGet, "/categories/cleaning/providers?location=Kad%C4%B1k%C3%B6y", "")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	var providers []catalog.Provider
	if err := sonic.Unmarshal(body, &providers); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(providers) != 1 || providers[0].FullName != "Ayşe Demir" {
		t.Fatalf("unexpected providers: %+v", providers)
	}

	if code, _ := do(http.MethodGet, "/categories/Gardening/providers", ""); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}
