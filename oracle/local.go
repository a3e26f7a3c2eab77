package oracle

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/tbxark/intakebot/types"
)

// LocalOracle is a deterministic oracle. Judge accepts any non-empty answer for the
// current field and walks the fields in order; Classify matches category names and
// aliases as substrings and reports every slot as missing.
type LocalOracle struct {
	// Aliases maps lower-case keywords to category names.
	Aliases map[string]string
}

var _ Oracle = (*LocalOracle)(nil)

func NewLocalOracle() *LocalOracle {
	return &LocalOracle{
		Aliases: map[string]string{
			"temizlik":   "Cleaning",
			"temizlikçi": "Cleaning",
			"tesisat":    "Plumbing",
			"tesisatçı":  "Plumbing",
			"su kaçağı":  "Plumbing",
			"elektrik":   "Electrician",
			"elektrikçi": "Electrician",
			"boya":       "Painting",
			"boyacı":     "Painting",
		},
	}
}

func (o *LocalOracle) Judge(ctx context.Context, req *JudgeRequest) (Judgment, error) {
	if err := ctx.Err(); err != nil {
		return Judgment{}, err
	}
	idx := -1
	for i, f := range req.Fields {
		if f.Name == req.CurrentField {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Invalid("unknown current field %q", req.CurrentField), nil
	}
	if strings.TrimSpace(req.Input) == "" {
		return Collecting(req.CurrentField), nil
	}
	merged := make(map[string]string, len(req.Fields))
	maps.Copy(merged, req.Collected)
	merged[req.CurrentField] = req.Input
	for _, f := range req.Fields {
		if _, ok := merged[f.Name]; !ok {
			return Collecting(f.Name), nil
		}
	}
	return Complete(merged), nil
}

func (o *LocalOracle) Classify(ctx context.Context, req *ClassifyRequest) (*Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := strings.ToLower(req.Input)
	category := ""
	for _, name := range req.Categories {
		if strings.Contains(text, strings.ToLower(name)) {
			category = name
			break
		}
	}
	if category == "" {
		longest := ""
		for alias, name := range o.Aliases {
			if strings.Contains(text, alias) && len(alias) > len(longest) {
				longest, category = alias, name
			}
		}
	}
	if category == "" {
		return nil, fmt.Errorf("%w: no category recognised", ErrContractViolation)
	}
	return &Classification{
		Category: category,
		Missing:  types.Names(req.Slots),
		Slots:    map[string]string{},
	}, nil
}

// FailbackOracle asks the next oracle only when the previous one could not be reached.
// An answer that violates the contract is returned as is, and a done context stops the
// chain.
type FailbackOracle struct {
	oracles []Oracle
}

var _ Oracle = (*FailbackOracle)(nil)

func NewFailbackOracle(oracles ...Oracle) *FailbackOracle {
	return &FailbackOracle{oracles: oracles}
}

func (o *FailbackOracle) Judge(ctx context.Context, req *JudgeRequest) (Judgment, error) {
	lastErr := fmt.Errorf("%w: no oracle configured", ErrContractViolation)
	for _, oracle := range o.oracles {
		if err := ctx.Err(); err != nil {
			return Judgment{}, fmt.Errorf("judge: %w", err)
		}
		j, err := oracle.Judge(ctx, req)
		if err == nil {
			return j, nil
		}
		if !fallThrough(ctx, err) {
			return Judgment{}, err
		}
		lastErr = err
	}
	return Judgment{}, fmt.Errorf("all oracles failed: %w", lastErr)
}

func (o *FailbackOracle) Classify(ctx context.Context, req *ClassifyRequest) (*Classification, error) {
	lastErr := fmt.Errorf("%w: no oracle configured", ErrContractViolation)
	for _, oracle := range o.oracles {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("classify: %w", err)
		}
		c, err := oracle.Classify(ctx, req)
		if err == nil {
			return c, nil
		}
		if !fallThrough(ctx, err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all oracles failed: %w", lastErr)
}

func fallThrough(ctx context.Context, err error) bool {
	return ctx.Err() == nil && !errors.Is(err, ErrContractViolation)
}
