package agent

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/tbxark/intakebot/oracle"
	"github.com/tbxark/intakebot/types"
)

// OracleStepper lets the oracle judge each answer. The raw answer is always stored under
// the field that was asked, and the oracle decides which field comes next. A complete
// judgment must carry every required field itself.
type OracleStepper struct {
	Oracle oracle.Oracle
}

var _ Stepper = (*OracleStepper)(nil)

func (s *OracleStepper) Step(ctx context.Context, req *StepRequest) (Step, error) {
	judgment, err := s.Oracle.Judge(ctx, &oracle.JudgeRequest{
		Input:        req.Input,
		CurrentField: req.Session.CurrentField,
		Fields:       req.Fields,
		Collected:    req.Session.Collected,
		History:      req.History,
	})
	if err != nil {
		return Step{}, fmt.Errorf("%w: %w", ErrOracleContract, err)
	}

	data := make(map[string]string, len(req.Fields))
	maps.Copy(data, req.Session.Collected)
	data[req.Session.CurrentField] = req.Input

	switch judgment.Kind {
	case oracle.JudgmentCollecting:
		return Step{Next: judgment.Field, Data: data}, nil
	case oracle.JudgmentComplete:
		for _, f := range req.Fields {
			if f.Required && strings.TrimSpace(judgment.Data[f.Name]) == "" {
				return Step{}, fmt.Errorf("%w: complete without %q", ErrOracleContract, f.Name)
			}
		}
		maps.Copy(data, judgment.Data)
		return Step{Data: data, Complete: true}, nil
	default:
		return Step{}, fmt.Errorf("%w: %w", ErrOracleContract, judgment.Err())
	}
}

// OrderedStepper stores the answer and moves to the first field still unset, in
// declaration order.
type OrderedStepper struct{}

var _ Stepper = OrderedStepper{}

func (OrderedStepper) Step(ctx context.Context, req *StepRequest) (Step, error) {
	data := make(map[string]string, len(req.Fields))
	maps.Copy(data, req.Session.Collected)
	data[req.Session.CurrentField] = req.Input
	next := FirstUnset(req.Fields, data)
	return Step{Next: next, Data: data, Complete: next == ""}, nil
}

// FirstUnset returns the first field that is absent, or required and blank.
func FirstUnset(fields []types.FieldInfo, data map[string]string) string {
	for _, f := range fields {
		v, ok := data[f.Name]
		if !ok || (f.Required && strings.TrimSpace(v) == "") {
			return f.Name
		}
	}
	return ""
}

// ClassifySeed opens a flow by asking the oracle for a category and the slots already
// present in the message. Slots the oracle does not report missing count as filled, even
// when it extracted no value for them. The category is stored under types.FieldCategory.
func ClassifySeed(o oracle.Oracle, categories []string, slots []types.FieldInfo) SeedFunc {
	return func(ctx context.Context, input string) (map[string]string, error) {
		c, err := o.Classify(ctx, &oracle.ClassifyRequest{
			Input:      input,
			Categories: categories,
			Slots:      slots,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOracleContract, err)
		}
		data := make(map[string]string, len(slots)+1)
		for _, f := range slots {
			if !slices.Contains(c.Missing, f.Name) {
				data[f.Name] = c.Slots[f.Name]
			}
		}
		data[types.FieldCategory] = c.Category
		return data, nil
	}
}
