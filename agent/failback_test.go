package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/intakebot/oracle"
	"github.com/tbxark/intakebot/types"
)

// chatModel answers every call with the same content after an optional delay. With
// ignoreCtx set it sleeps through cancellation.
type chatModel struct {
	content   string
	err       error
	delay     time.Duration
	ignoreCtx bool
}

func (m *chatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if m.delay > 0 {
		if m.ignoreCtx {
			time.Sleep(m.delay)
		} else {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.delay):
			}
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.content, nil), nil
}

func (m *chatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func (m *chatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func newFailbackEngine(t *testing.T, m *chatModel, opts ...EngineOption) *Engine {
	t.Helper()
	tool, err := oracle.NewToolBasedOracle(m)
	if err != nil {
		t.Fatalf("NewToolBasedOracle: %v", err)
	}
	return newTestEngine(t, oracle.NewFailbackOracle(tool, oracle.NewLocalOracle()), &completions{}, &completions{}, opts...)
}

func assertUntouched(t *testing.T, e *Engine, res Result, err error) {
	t.Helper()
	if err != nil || res.Outcome != OutcomeRetry || res.Field != types.FieldFullName {
		t.Fatalf("expected retry on fullName, got %+v %v", res, err)
	}
	s, _ := e.Session(context.Background(), types.FlowRegistration, "u1")
	if s == nil || s.CurrentField != types.FieldFullName || len(s.Collected) != 0 {
		t.Fatalf("session changed: %+v", s)
	}
}

func TestFailbackKeepsMalformedAnswerARetry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newFailbackEngine(t, &chatModel{content: "sorry, I cannot help"})
	if _, err := e.Start(ctx, types.FlowRegistration, "u1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := e.Handle(ctx, "u1", "???")
	assertUntouched(t, e, res, err)
}

func TestFailbackDoesNotOutliveStepTimeout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newFailbackEngine(t, &chatModel{delay: time.Second}, WithStepTimeout(20*time.Millisecond))
	if _, err := e.Start(ctx, types.FlowRegistration, "u1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := e.Handle(ctx, "u1", "Ali")
	assertUntouched(t, e, res, err)
}

func TestLateAnswerAfterStepTimeoutIsRetry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := &chatModel{
		content:   `{"status":"collecting","currentField":"category"}`,
		delay:     100 * time.Millisecond,
		ignoreCtx: true,
	}
	e := newFailbackEngine(t, m, WithStepTimeout(20*time.Millisecond))
	if _, err := e.Start(ctx, types.FlowRegistration, "u1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := e.Handle(ctx, "u1", "Ali")
	assertUntouched(t, e, res, err)
}

func TestFailbackUsesLocalOracleWhenModelIsUnreachable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newFailbackEngine(t, &chatModel{err: errors.New("connection refused")})
	if _, err := e.Start(ctx, types.FlowRegistration, "u1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := e.Handle(ctx, "u1", "Ali")
	if err != nil || res.Outcome != OutcomeAsk || res.Field != types.FieldCategory {
		t.Fatalf("expected local fallback to ask category, got %+v %v", res, err)
	}
}

func TestFailbackMalformedClassificationOpensNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newFailbackEngine(t, &chatModel{content: "Plumbing, probably"})
	res, err := e.Handle(ctx, "u1", "Plumbing lazım")
	if err != nil || res.Outcome != OutcomeRetry || res.Kind != types.FlowBooking {
		t.Fatalf("expected booking retry, got %+v %v", res, err)
	}
	if s, _ := e.Session(ctx, types.FlowBooking, "u1"); s != nil {
		t.Fatalf("no booking session expected, got %+v", s)
	}
}
