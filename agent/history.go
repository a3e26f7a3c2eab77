package agent

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type Trimmer interface {
	Trim(history []*schema.Message) []*schema.Message
}

// KeepSystemLastNTrimmer keeps all system messages and the last N non-system messages.
// When N <= 0, it keeps only system messages.
type KeepSystemLastNTrimmer struct {
	N int
}

func (t KeepSystemLastNTrimmer) Trim(history []*schema.Message) []*schema.Message {
	nonSystem := 0
	for _, m := range history {
		if m != nil && m.Role != schema.System {
			nonSystem++
		}
	}
	drop := nonSystem - max(t.N, 0)
	if drop <= 0 {
		return history
	}
	out := make([]*schema.Message, 0, len(history)-drop)
	for _, m := range history {
		if m == nil {
			continue
		}
		if m.Role != schema.System && drop > 0 {
			drop--
			continue
		}
		out = append(out, m)
	}
	return out
}

type HistoryReadWriter interface {
	Load(ctx context.Context, key string) ([]*schema.Message, error)
	Save(ctx context.Context, key string, history []*schema.Message) error
	Clear(ctx context.Context, key string) error

	// Append loads history, appends msgs with de-duplication, trims, then saves.
	Append(ctx context.Context, key string, msgs ...*schema.Message) ([]*schema.Message, error)
}

type HistoryStore struct {
	store   Store[[]*schema.Message]
	trimmer Trimmer
}

var _ HistoryReadWriter = (*HistoryStore)(nil)

func NewHistoryStore(core Cache[[]*schema.Message], trimmer Trimmer) *HistoryStore {
	return &HistoryStore{
		store:   NewStore(core, "intake:history"),
		trimmer: trimmer,
	}
}

func NewMemoryHistoryStore(trimmer Trimmer) *HistoryStore {
	return NewHistoryStore(NewMemoryCache[[]*schema.Message](), trimmer)
}

func (s *HistoryStore) Load(ctx context.Context, key string) ([]*schema.Message, error) {
	hist, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	return append([]*schema.Message(nil), hist...), nil
}

func (s *HistoryStore) Save(ctx context.Context, key string, history []*schema.Message) error {
	history = normalizeHistory(history)
	if s.trimmer != nil {
		history = s.trimmer.Trim(history)
	}
	return s.store.Set(ctx, history, key)
}

func (s *HistoryStore) Clear(ctx context.Context, key string) error {
	return s.store.Del(ctx, key)
}

func (s *HistoryStore) Append(ctx context.Context, key string, msgs ...*schema.Message) ([]*schema.Message, error) {
	hist, err := s.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	hist = appendHistory(hist, msgs...)
	if err := s.Save(ctx, key, hist); err != nil {
		return nil, err
	}
	return hist, nil
}

func appendHistory(history []*schema.Message, msgs ...*schema.Message) []*schema.Message {
	out := history
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if n := len(out); n > 0 && out[n-1] != nil && out[n-1].Role == msg.Role && out[n-1].Content == msg.Content {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func normalizeHistory(history []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
