package agent

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/tbxark/intakebot/types"
)

func TestStoreRejectsEmptyKeyParts(t *testing.T) {
	t.Parallel()
	s := NewStore[string](NewMemoryCache[string](), "ns")
	if err := s.Set(context.Background(), "v", "a", ""); err == nil {
		t.Fatal("expected error for empty key part")
	}
	if err := s.Set(context.Background(), "v", "a", "b"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ok, err := s.Exists(context.Background(), "a", "b")
	if err != nil || !ok {
		t.Fatalf("Exists: %v %v", ok, err)
	}
}

func TestSessionStoreReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemorySessionStore(0)
	session := &Session{UserID: "u1", Kind: types.FlowRegistration, Collected: map[string]string{"a": "1"}}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}
	session.Collected["a"] = "changed"

	loaded, err := store.Load(ctx, types.FlowRegistration, "u1")
	if err != nil || loaded == nil {
		t.Fatalf("Load: %v %v", loaded, err)
	}
	if loaded.Collected["a"] != "1" {
		t.Fatalf("stored session was mutated through caller's map")
	}
	loaded.Collected["a"] = "again"
	reloaded, _ := store.Load(ctx, types.FlowRegistration, "u1")
	if reloaded.Collected["a"] != "1" {
		t.Fatalf("stored session was mutated through loaded copy")
	}
	if other, _ := store.Load(ctx, types.FlowBooking, "u1"); other != nil {
		t.Fatalf("flow kinds must not share sessions")
	}
}

func TestKeepSystemLastNTrimmer(t *testing.T) {
	t.Parallel()
	history := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("1"),
		schema.AssistantMessage("2", nil),
		schema.UserMessage("3"),
	}
	got := KeepSystemLastNTrimmer{N: 2}.Trim(history)
	if len(got) != 3 || got[0].Content != "sys" || got[1].Content != "2" || got[2].Content != "3" {
		t.Fatalf("unexpected trim result: %v", got)
	}
	if got := (KeepSystemLastNTrimmer{N: 0}).Trim(history); len(got) != 1 {
		t.Fatalf("expected only system message, got %d", len(got))
	}
}

func TestHistoryAppendDeduplicates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := NewMemoryHistoryStore(nil)
	_, _ = h.Append(ctx, "k", schema.UserMessage("hi"))
	hist, err := h.Append(ctx, "k", schema.UserMessage("hi"), nil, schema.AssistantMessage("hello", nil))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(hist))
	}
}

func TestRedisSessionStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	defer client.Close()

	store := NewSessionStore(NewRedisCache[*Session](client, time.Minute), time.Minute)
	user := uuid.NewString()
	now := time.Now()
	err = store.Save(ctx, &Session{
		UserID:       user,
		Kind:         types.FlowBooking,
		Status:       types.StatusCollecting,
		CurrentField: types.FieldDate,
		Collected:    map[string]string{types.FieldLocation: "Ankara"},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	defer store.Delete(ctx, types.FlowBooking, user)

	loaded, err := store.Load(ctx, types.FlowBooking, user)
	if err != nil || loaded == nil {
		t.Fatalf("Load: %v %v", loaded, err)
	}
	if loaded.CurrentField != types.FieldDate || loaded.Collected[types.FieldLocation] != "Ankara" {
		t.Fatalf("unexpected session: %+v", loaded)
	}
}
