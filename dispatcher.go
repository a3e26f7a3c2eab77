// Package intakebot routes chat messages to the worker registration and service booking
// dialogues.
package intakebot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/callbacks"
	"github.com/tbxark/intakebot/agent"
	"github.com/tbxark/intakebot/command"
	"github.com/tbxark/intakebot/dialogue"
	"github.com/tbxark/intakebot/types"
	"github.com/tbxark/intakebot/worker"
)

// Dispatcher turns one inbound message into one reply. Commands are handled directly;
// everything else goes through the dialogue engine.
type Dispatcher struct {
	engine  *agent.Engine
	parser  command.Parser
	workers worker.Store
}

func NewDispatcher(engine *agent.Engine, parser command.Parser, workers worker.Store) *Dispatcher {
	if parser == nil {
		parser = command.NewLocalCommandParser()
	}
	return &Dispatcher{
		engine:  engine,
		parser:  parser,
		workers: workers,
	}
}

// Handle always returns a reply fit for the user. A non-nil error reports a failure that
// was already turned into that reply.
func (d *Dispatcher) Handle(ctx context.Context, userID, text string) (agent.Reply, error) {
	ctx = callbacks.EnsureRunInfo(ctx, "Dispatcher", "Agent")
	ctx = callbacks.OnStart(ctx, map[string]any{
		"user":  userID,
		"input": text,
	})

	reply, err := d.handle(ctx, userID, text)
	if err != nil {
		callbacks.OnError(ctx, err)
		slog.Error("Failed to handle message", "user", userID, "error", err)
		return reply, err
	}
	callbacks.OnEnd(ctx, map[string]any{
		"user":  userID,
		"reply": reply.Text,
	})
	return reply, nil
}

func (d *Dispatcher) handle(ctx context.Context, userID, text string) (agent.Reply, error) {
	cmd, err := d.parser.ParseCommand(ctx, text)
	if err != nil {
		return agent.Reply{Text: dialogue.GenericError}, fmt.Errorf("parse command: %w", err)
	}
	slog.Debug("Parsed command", "user", userID, "command", cmd.Kind)

	switch cmd.Kind {
	case command.Register:
		return d.register(ctx, userID)
	case command.ListWorkers:
		return d.listWorkers(ctx, cmd.Args)
	case command.Cancel:
		return d.cancel(ctx, userID)
	case command.Start, command.Help:
		return agent.Reply{Text: dialogue.Help}, nil
	default:
		return d.converse(ctx, userID, text)
	}
}

func (d *Dispatcher) register(ctx context.Context, userID string) (agent.Reply, error) {
	res, err := d.engine.Start(ctx, types.FlowRegistration, userID)
	if errors.Is(err, agent.ErrFlowBusy) {
		return agent.Reply{Text: dialogue.BookingBusy}, nil
	}
	if err != nil {
		return agent.Reply{Text: dialogue.GenericError}, err
	}
	return res.Reply, nil
}

func (d *Dispatcher) listWorkers(ctx context.Context, arg string) (agent.Reply, error) {
	var category worker.Category
	if arg != "" {
		c, err := worker.ParseCategory(arg)
		if err != nil {
			return agent.Reply{Text: dialogue.NoWorkers}, nil
		}
		category = c
	}
	records, err := d.workers.List(ctx, category)
	if err != nil {
		return agent.Reply{Text: dialogue.GenericError}, fmt.Errorf("list workers: %w", err)
	}
	if len(records) == 0 {
		return agent.Reply{Text: dialogue.NoWorkers}, nil
	}
	return agent.Reply{Text: dialogue.WorkerListing(string(category), records), Markdown: true}, nil
}

func (d *Dispatcher) cancel(ctx context.Context, userID string) (agent.Reply, error) {
	cancelled, err := d.engine.Cancel(ctx, userID)
	if err != nil {
		return agent.Reply{Text: dialogue.GenericError}, err
	}
	if !cancelled {
		return agent.Reply{Text: dialogue.NothingToCancel}, nil
	}
	return agent.Reply{Text: dialogue.Cancelled}, nil
}

func (d *Dispatcher) converse(ctx context.Context, userID, text string) (agent.Reply, error) {
	res, err := d.engine.Handle(ctx, userID, text)
	if errors.Is(err, agent.ErrNoActiveSession) {
		return agent.Reply{Text: dialogue.Help}, nil
	}
	if err != nil {
		if res.Reply.Text != "" {
			return res.Reply, err
		}
		return agent.Reply{Text: dialogue.GenericError}, err
	}
	return res.Reply, nil
}
