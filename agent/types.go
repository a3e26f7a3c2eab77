package agent

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/intakebot/types"
)

var (
	// ErrNoActiveSession is returned when input does not belong to any live dialogue.
	ErrNoActiveSession = errors.New("agent: no active session")
	// ErrOracleContract marks a turn whose oracle output could not be used. The session is
	// left exactly as it was before the turn.
	ErrOracleContract = errors.New("agent: oracle contract violation")
	ErrUnknownFlow    = errors.New("agent: unknown flow")
	// ErrFlowBusy is returned when a user already has a live session of another flow kind.
	ErrFlowBusy = errors.New("agent: another flow is active")
)

type Outcome string

const (
	// OutcomeAsk means the session moved on and Reply holds the next question.
	OutcomeAsk Outcome = "ask"
	// OutcomeRetry means the turn was rejected and the session is unchanged.
	OutcomeRetry    Outcome = "retry"
	OutcomeComplete Outcome = "complete"
	OutcomeAborted  Outcome = "aborted"
)

type Reply struct {
	Text     string `json:"text"`
	Markdown bool   `json:"markdown,omitempty"`
}

// Result is what one turn produced for the transport to render.
type Result struct {
	Kind    types.FlowKind `json:"kind"`
	Outcome Outcome        `json:"outcome"`
	Field   string         `json:"field,omitempty"`
	Reply   Reply          `json:"reply"`
}

type StepRequest struct {
	Session *Session
	Input   string
	Fields  []types.FieldInfo
	History []*schema.Message
}

// Step is a stepper's decision for one turn. Data is the complete collected map after
// the turn. Next is ignored when Complete is set.
type Step struct {
	Next     string
	Data     map[string]string
	Complete bool
}

// Stepper decides how an answer moves a session forward. Returning an error rejects the
// turn without touching the session.
type Stepper interface {
	Step(ctx context.Context, req *StepRequest) (Step, error)
}

// SeedFunc opens a flow from a free-text message and returns the values it already
// carries.
type SeedFunc func(ctx context.Context, input string) (map[string]string, error)

// CompletionFunc consumes the collected data of a finished session.
type CompletionFunc func(ctx context.Context, userID string, data map[string]string) (Reply, error)

// FieldValidator checks one collected value before completion.
type FieldValidator func(field, value string) error

// Flow describes one slot-filling dialogue: an ordered field list, a prompt per field
// and what to do with the collected data.
type Flow struct {
	Kind    types.FlowKind
	Fields  []types.FieldInfo
	Prompts map[string]string
	Stepper Stepper
	// Seed, when set, lets plain text open the flow without a command.
	Seed     SeedFunc
	Complete CompletionFunc
	// Validate, when set, runs over every field before Complete. A rejected field is
	// cleared and asked again.
	Validate FieldValidator

	// Intro replaces the first field's prompt when the flow is started by command.
	Intro          string
	RetryPrompt    string
	FailureMessage string
	// InvalidAnswer prefixes the question asked again after a rejected value.
	InvalidAnswer string
}

func (f *Flow) prompt(field string) string {
	if p, ok := f.Prompts[field]; ok {
		return p
	}
	return field
}
