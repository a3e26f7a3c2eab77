package intakebot

import (
	"context"
	"errors"
	"time"

	"github.com/tbxark/intakebot/agent"
	"github.com/tbxark/intakebot/catalog"
	"github.com/tbxark/intakebot/dialogue"
	"github.com/tbxark/intakebot/oracle"
	"github.com/tbxark/intakebot/types"
	"github.com/tbxark/intakebot/worker"
)

// NewRegistrationFlow collects a worker's details with the oracle judging every answer
// and stores the finished record in store.
func NewRegistrationFlow(o oracle.Oracle, store worker.Store, now func() time.Time) *agent.Flow {
	if now == nil {
		now = time.Now
	}
	return &agent.Flow{
		Kind:    types.FlowRegistration,
		Fields:  dialogue.RegistrationFields,
		Prompts: dialogue.RegistrationPrompts,
		Stepper: &agent.OracleStepper{Oracle: o},
		Validate: func(field, value string) error {
			switch field {
			case types.FieldCategory:
				_, err := worker.ParseCategory(value)
				return err
			case types.FieldExperience:
				_, err := worker.ParseExperience(value)
				return err
			}
			return nil
		},
		Complete: func(ctx context.Context, userID string, data map[string]string) (agent.Reply, error) {
			record, err := worker.NewRecord(data, now())
			if err != nil {
				return agent.Reply{}, err
			}
			if err := store.Create(ctx, record); err != nil {
				return agent.Reply{}, err
			}
			return agent.Reply{Text: dialogue.RegistrationSuccess}, nil
		},
		Intro:          dialogue.RegistrationIntro,
		RetryPrompt:    dialogue.GenericError,
		FailureMessage: dialogue.GenericError,
		InvalidAnswer:  dialogue.InvalidAnswer,
	}
}

// NewBookingFlow opens from free text through classification, asks for the missing
// slots in order and answers with the matching providers of cat.
func NewBookingFlow(o oracle.Oracle, cat *catalog.Catalog) *agent.Flow {
	return &agent.Flow{
		Kind:    types.FlowBooking,
		Fields:  dialogue.BookingFields,
		Prompts: dialogue.BookingPrompts,
		Stepper: agent.OrderedStepper{},
		Seed:    agent.ClassifySeed(o, cat.Categories(), dialogue.BookingFields),
		Complete: func(ctx context.Context, userID string, data map[string]string) (agent.Reply, error) {
			category := data[types.FieldCategory]
			providers, err := cat.FindAvailable(category, data[types.FieldLocation])
			if errors.Is(err, catalog.ErrCategoryNotFound) {
				return agent.Reply{Text: dialogue.CategoryNotFound}, nil
			}
			if err != nil {
				return agent.Reply{}, err
			}
			if len(providers) == 0 {
				return agent.Reply{Text: dialogue.NoProviders}, nil
			}
			return agent.Reply{Text: dialogue.ProviderListing(category, providers), Markdown: true}, nil
		},
		RetryPrompt:    dialogue.GenericError,
		FailureMessage: dialogue.GenericError,
	}
}
