package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/intakebot/types"
)

const DefaultStepTimeout = 20 * time.Second

type engineOptions struct {
	history     HistoryReadWriter
	stepTimeout time.Duration
	now         func() time.Time
}

type EngineOption func(*engineOptions)

// WithHistory keeps a per-user, per-flow transcript that is handed to steppers.
func WithHistory(h HistoryReadWriter) EngineOption {
	return func(o *engineOptions) {
		o.history = h
	}
}

// WithStepTimeout bounds every stepper and seed call. A timed out call is treated as a
// contract violation. Zero disables the bound.
func WithStepTimeout(d time.Duration) EngineOption {
	return func(o *engineOptions) {
		o.stepTimeout = d
	}
}

func WithClock(now func() time.Time) EngineOption {
	return func(o *engineOptions) {
		o.now = now
	}
}

// Engine drives slot-filling flows. All work for one user is serialised; different users
// never wait on each other.
type Engine struct {
	sessions SessionStore
	flows    []*Flow
	byKind   map[types.FlowKind]*Flow
	locks    *keyedMutex
	opts     engineOptions
}

func NewEngine(sessions SessionStore, flows []*Flow, opts ...EngineOption) (*Engine, error) {
	if sessions == nil {
		return nil, errors.New("agent: session store is required")
	}
	e := &Engine{
		sessions: sessions,
		flows:    flows,
		byKind:   make(map[types.FlowKind]*Flow, len(flows)),
		locks:    newKeyedMutex(),
		opts: engineOptions{
			stepTimeout: DefaultStepTimeout,
			now:         time.Now,
		},
	}
	for _, opt := range opts {
		opt(&e.opts)
	}
	for _, f := range flows {
		if err := validateFlow(f); err != nil {
			return nil, err
		}
		if _, dup := e.byKind[f.Kind]; dup {
			return nil, fmt.Errorf("agent: duplicate flow %q", f.Kind)
		}
		e.byKind[f.Kind] = f
	}
	return e, nil
}

func validateFlow(f *Flow) error {
	switch {
	case f == nil:
		return errors.New("agent: nil flow")
	case f.Kind == "":
		return errors.New("agent: flow kind is required")
	case len(f.Fields) == 0:
		return fmt.Errorf("agent: flow %q has no fields", f.Kind)
	case f.Stepper == nil:
		return fmt.Errorf("agent: flow %q has no stepper", f.Kind)
	case f.Complete == nil:
		return fmt.Errorf("agent: flow %q has no completion handler", f.Kind)
	}
	for _, field := range f.Fields {
		if _, ok := f.Prompts[field.Name]; !ok {
			return fmt.Errorf("agent: flow %q has no prompt for %q", f.Kind, field.Name)
		}
	}
	return nil
}

// Start begins the flow from its first field, discarding any earlier session of the same
// kind. It fails with ErrFlowBusy while a session of another kind is live.
func (e *Engine) Start(ctx context.Context, kind types.FlowKind, userID string) (Result, error) {
	flow, ok := e.byKind[kind]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownFlow, kind)
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	if err := e.ensureExclusive(ctx, kind, userID); err != nil {
		return Result{}, err
	}
	if err := e.discard(ctx, kind, userID); err != nil {
		return Result{}, err
	}

	first := flow.Fields[0].Name
	now := e.opts.now()
	session := &Session{
		UserID:       userID,
		Kind:         kind,
		Status:       types.StatusCollecting,
		CurrentField: first,
		Collected:    map[string]string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.sessions.Save(ctx, session); err != nil {
		return Result{}, fmt.Errorf("save session: %w", err)
	}
	text := flow.Intro
	if text == "" {
		text = flow.prompt(first)
	}
	res := Result{Kind: kind, Outcome: OutcomeAsk, Field: first, Reply: Reply{Text: text}}
	e.record(ctx, kind, userID, nil, text)
	e.logTurn(userID, res)
	return res, nil
}

// Handle routes free text: live sessions are checked in flow registration order, and
// when none is live the first flow with a Seed is opened.
func (e *Engine) Handle(ctx context.Context, userID, input string) (Result, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	for _, flow := range e.flows {
		session, err := e.sessions.Load(ctx, flow.Kind, userID)
		if err != nil {
			return Result{}, fmt.Errorf("load session: %w", err)
		}
		if session != nil {
			return e.advance(ctx, flow, session, input)
		}
	}
	for _, flow := range e.flows {
		if flow.Seed != nil {
			return e.open(ctx, flow, userID, input)
		}
	}
	return Result{}, ErrNoActiveSession
}

// Advance feeds one answer to the user's live session of kind.
func (e *Engine) Advance(ctx context.Context, kind types.FlowKind, userID, input string) (Result, error) {
	flow, ok := e.byKind[kind]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownFlow, kind)
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	session, err := e.sessions.Load(ctx, kind, userID)
	if err != nil {
		return Result{}, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return Result{}, ErrNoActiveSession
	}
	return e.advance(ctx, flow, session, input)
}

// Open seeds a fresh session of kind from a free-text message.
func (e *Engine) Open(ctx context.Context, kind types.FlowKind, userID, input string) (Result, error) {
	flow, ok := e.byKind[kind]
	if !ok || flow.Seed == nil {
		return Result{}, fmt.Errorf("%w: %s cannot be opened from text", ErrUnknownFlow, kind)
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	if err := e.ensureExclusive(ctx, kind, userID); err != nil {
		return Result{}, err
	}
	if err := e.discard(ctx, kind, userID); err != nil {
		return Result{}, err
	}
	return e.open(ctx, flow, userID, input)
}

// Cancel removes every live session of the user and reports whether there was one.
func (e *Engine) Cancel(ctx context.Context, userID string) (bool, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	cancelled := false
	for _, flow := range e.flows {
		session, err := e.sessions.Load(ctx, flow.Kind, userID)
		if err != nil {
			return cancelled, fmt.Errorf("load session: %w", err)
		}
		if session == nil {
			continue
		}
		if err := e.discard(ctx, flow.Kind, userID); err != nil {
			return cancelled, err
		}
		cancelled = true
		e.logTurn(userID, Result{Kind: flow.Kind, Outcome: OutcomeAborted})
	}
	return cancelled, nil
}

// Session returns a copy of the user's live session of kind, or nil.
func (e *Engine) Session(ctx context.Context, kind types.FlowKind, userID string) (*Session, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()
	return e.sessions.Load(ctx, kind, userID)
}

func (e *Engine) advance(ctx context.Context, flow *Flow, session *Session, input string) (Result, error) {
	userID := session.UserID
	history := e.loadHistory(ctx, flow.Kind, userID)

	stepCtx, cancel := e.stepContext(ctx)
	step, err := flow.Stepper.Step(stepCtx, &StepRequest{
		Session: session.Clone(),
		Input:   input,
		Fields:  flow.Fields,
		History: history,
	})
	err = stepError(stepCtx, err)
	cancel()
	if err != nil {
		return e.retry(flow, userID, session, err), nil
	}

	if step.Complete {
		return e.complete(ctx, flow, userID, step.Data, session)
	}
	if !types.Contains(flow.Fields, step.Next) {
		return e.retry(flow, userID, session, fmt.Errorf("%w: unknown next field %q", ErrOracleContract, step.Next)), nil
	}

	return e.ask(ctx, flow, session, step.Data, step.Next, &input, "")
}

func (e *Engine) open(ctx context.Context, flow *Flow, userID, input string) (Result, error) {
	seedCtx, cancel := e.stepContext(ctx)
	data, err := flow.Seed(seedCtx, input)
	err = stepError(seedCtx, err)
	cancel()
	if err != nil {
		return e.retry(flow, userID, nil, err), nil
	}
	if data == nil {
		data = map[string]string{}
	}

	first := FirstUnset(flow.Fields, data)
	if first == "" {
		return e.complete(ctx, flow, userID, data, nil)
	}
	now := e.opts.now()
	session := &Session{
		UserID:    userID,
		Kind:      flow.Kind,
		Status:    types.StatusCollecting,
		CreatedAt: now,
	}
	return e.ask(ctx, flow, session, data, first, &input, "")
}

// ask stores data on a copy of base and asks for field. base is not modified.
func (e *Engine) ask(ctx context.Context, flow *Flow, base *Session, data map[string]string, field string, input *string, prefix string) (Result, error) {
	next := base.Clone()
	next.Collected = data
	next.CurrentField = field
	next.UpdatedAt = e.opts.now()
	if err := e.sessions.Save(ctx, next); err != nil {
		return Result{}, fmt.Errorf("save session: %w", err)
	}
	text := flow.prompt(field)
	if prefix != "" {
		text = prefix + "\n" + text
	}
	res := Result{Kind: flow.Kind, Outcome: OutcomeAsk, Field: field, Reply: Reply{Text: text}}
	e.record(ctx, flow.Kind, base.UserID, input, text)
	e.logTurn(base.UserID, res)
	return res, nil
}

// complete hands the data to the flow and ends the session whatever the handler returns.
// Missing required fields reject the turn instead.
func (e *Engine) complete(ctx context.Context, flow *Flow, userID string, data map[string]string, session *Session) (Result, error) {
	for _, f := range flow.Fields {
		if v, ok := data[f.Name]; f.Required && (!ok || strings.TrimSpace(v) == "") {
			return e.retry(flow, userID, session, fmt.Errorf("%w: %q missing at completion", ErrOracleContract, f.Name)), nil
		}
	}

	if flow.Validate != nil {
		for _, f := range flow.Fields {
			v, ok := data[f.Name]
			if !ok {
				continue
			}
			if err := flow.Validate(f.Name, v); err != nil {
				slog.Info("Rejected value", "user", userID, "flow", flow.Kind, "field", f.Name, "error", err)
				rest := make(map[string]string, len(data))
				for k, val := range data {
					if k != f.Name {
						rest[k] = val
					}
				}
				base := session
				if base == nil {
					now := e.opts.now()
					base = &Session{UserID: userID, Kind: flow.Kind, Status: types.StatusCollecting, CreatedAt: now}
				}
				return e.ask(ctx, flow, base, rest, f.Name, nil, flow.InvalidAnswer)
			}
		}
	}

	reply, err := flow.Complete(ctx, userID, data)
	if dErr := e.discard(ctx, flow.Kind, userID); dErr != nil {
		slog.Error("Failed to remove finished session", "user", userID, "flow", flow.Kind, "error", dErr)
	}
	if err != nil {
		res := Result{Kind: flow.Kind, Outcome: OutcomeAborted, Reply: Reply{Text: flow.FailureMessage}}
		e.logTurn(userID, res)
		return res, fmt.Errorf("complete %s: %w", flow.Kind, err)
	}
	res := Result{Kind: flow.Kind, Outcome: OutcomeComplete, Reply: reply}
	e.logTurn(userID, res)
	return res, nil
}

func (e *Engine) retry(flow *Flow, userID string, session *Session, err error) Result {
	res := Result{Kind: flow.Kind, Outcome: OutcomeRetry, Reply: Reply{Text: flow.RetryPrompt}}
	if session != nil {
		res.Field = session.CurrentField
	}
	slog.Warn("Rejected turn", "user", userID, "flow", flow.Kind, "field", res.Field, "error", err)
	return res
}

func (e *Engine) ensureExclusive(ctx context.Context, kind types.FlowKind, userID string) error {
	for _, flow := range e.flows {
		if flow.Kind == kind {
			continue
		}
		other, err := e.sessions.Load(ctx, flow.Kind, userID)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		if other != nil {
			return fmt.Errorf("%w: %s", ErrFlowBusy, flow.Kind)
		}
	}
	return nil
}

func (e *Engine) discard(ctx context.Context, kind types.FlowKind, userID string) error {
	if err := e.sessions.Delete(ctx, kind, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if e.opts.history != nil {
		if err := e.opts.history.Clear(ctx, historyKey(kind, userID)); err != nil {
			slog.Warn("Failed to clear history", "user", userID, "flow", kind, "error", err)
		}
	}
	return nil
}

func (e *Engine) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.stepTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.opts.stepTimeout)
}

// stepError turns an expired or cancelled step into a contract violation even when the
// stepper returned a result.
func stepError(stepCtx context.Context, err error) error {
	if ctxErr := stepCtx.Err(); ctxErr != nil && err == nil {
		return fmt.Errorf("%w: %w", ErrOracleContract, ctxErr)
	}
	return err
}

func (e *Engine) loadHistory(ctx context.Context, kind types.FlowKind, userID string) []*schema.Message {
	if e.opts.history == nil {
		return nil
	}
	hist, err := e.opts.history.Load(ctx, historyKey(kind, userID))
	if err != nil {
		slog.Warn("Failed to load history", "user", userID, "flow", kind, "error", err)
		return nil
	}
	return hist
}

func (e *Engine) record(ctx context.Context, kind types.FlowKind, userID string, input *string, reply string) {
	if e.opts.history == nil {
		return
	}
	msgs := make([]*schema.Message, 0, 2)
	if input != nil {
		msgs = append(msgs, schema.UserMessage(*input))
	}
	msgs = append(msgs, schema.AssistantMessage(reply, nil))
	if _, err := e.opts.history.Append(ctx, historyKey(kind, userID), msgs...); err != nil {
		slog.Warn("Failed to append history", "user", userID, "flow", kind, "error", err)
	}
}

func (e *Engine) logTurn(userID string, res Result) {
	slog.Info("Dialogue turn", "user", userID, "flow", res.Kind, "outcome", res.Outcome, "field", res.Field)
}

func historyKey(kind types.FlowKind, userID string) string {
	return userID + ":" + string(kind)
}
