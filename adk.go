package intakebot

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/intakebot/agent"
)

var _ adk.Agent = (*Agent)(nil)

// Agent exposes a Dispatcher as an eino adk agent. The user is taken from the context
// state key (see agent.WithStateKey) and the last input message is the text handled.
type Agent struct {
	name        string
	description string
	dispatcher  *Dispatcher
}

func NewAgent(name, description string, dispatcher *Dispatcher) *Agent {
	return &Agent{
		name:        name,
		description: description,
		dispatcher:  dispatcher,
	}
}

func (a *Agent) Name(ctx context.Context) string {
	return a.name
}

func (a *Agent) Description(ctx context.Context) string {
	return a.description
}

func (a *Agent) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			if e := recover(); e != nil {
				gen.Send(&adk.AgentEvent{
					Err: fmt.Errorf("recover from panic: %v", e),
				})
			}
			gen.Close()
		}()
		if input == nil || len(input.Messages) == 0 {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("no messages in input"),
			})
			return
		}
		userID := agent.StateKeyOrDefault(ctx)
		// Failures are already part of the reply.
		reply, _ := a.dispatcher.Handle(ctx, userID, input.Messages[len(input.Messages)-1].Content)
		gen.Send(&adk.AgentEvent{
			AgentName: a.name,
			Output: &adk.AgentOutput{
				MessageOutput: &adk.MessageVariant{
					IsStreaming: false,
					Message:     schema.AssistantMessage(reply.Text, nil),
					Role:        schema.Assistant,
				},
			},
		})
	}()
	return iter
}
