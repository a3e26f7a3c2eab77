package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/intakebot/types"
)

// ErrContractViolation marks oracle output that does not satisfy the expected shape.
var ErrContractViolation = errors.New("oracle: contract violation")

type JudgmentKind int

const (
	JudgmentInvalid JudgmentKind = iota
	JudgmentCollecting
	JudgmentComplete
)

func (k JudgmentKind) String() string {
	switch k {
	case JudgmentCollecting:
		return "collecting"
	case JudgmentComplete:
		return "complete"
	default:
		return "invalid"
	}
}

// Judgment is the decoded answer of the oracle for one registration turn.
// Field is set for JudgmentCollecting, Data for JudgmentComplete and Reason for
// JudgmentInvalid.
type Judgment struct {
	Kind   JudgmentKind
	Field  string
	Data   map[string]string
	Reason string
}

func Collecting(field string) Judgment {
	return Judgment{Kind: JudgmentCollecting, Field: field}
}

func Complete(data map[string]string) Judgment {
	return Judgment{Kind: JudgmentComplete, Data: data}
}

func Invalid(format string, args ...any) Judgment {
	return Judgment{Kind: JudgmentInvalid, Reason: fmt.Sprintf(format, args...)}
}

// Err returns a wrapped ErrContractViolation for invalid judgments and nil otherwise.
func (j Judgment) Err() error {
	if j.Kind != JudgmentInvalid {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrContractViolation, j.Reason)
}

// Classification is the decoded category and slot extraction for a booking request.
// Missing is in canonical slot order. Slots holds values the user already supplied.
type Classification struct {
	Category string
	Missing  []string
	Slots    map[string]string
}

type JudgeRequest struct {
	Input        string
	CurrentField string
	Fields       []types.FieldInfo
	Collected    map[string]string
	History      []*schema.Message
}

type ClassifyRequest struct {
	Input      string
	Categories []string
	Slots      []types.FieldInfo
}

// Oracle is the language capability behind both dialogues. Implementations return an
// error for transport failures; malformed output surfaces as JudgmentInvalid or an error
// wrapping ErrContractViolation.
type Oracle interface {
	Judge(ctx context.Context, req *JudgeRequest) (Judgment, error)
	Classify(ctx context.Context, req *ClassifyRequest) (*Classification, error)
}
