package oracle

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/tbxark/intakebot/structured"
	"github.com/tbxark/intakebot/types"
)

var decoder = sonic.Config{UseNumber: true}.Froze()

type judgmentPayload struct {
	Status        string         `json:"status" jsonschema:"required,enum=collecting,enum=complete,description=collecting while fields remain; complete once every field is known"`
	CurrentField  *string        `json:"currentField,omitempty" jsonschema:"description=Name of the field to ask for next; required when status is collecting"`
	CollectedData map[string]any `json:"collectedData,omitempty" jsonschema:"description=Every collected field keyed by name; required when status is complete"`
}

type classificationPayload struct {
	Category string            `json:"category" jsonschema:"required,description=Requested service category"`
	Missing  []string          `json:"missing" jsonschema:"description=Slots the user did not provide, any of location, date, time"`
	Slots    map[string]string `json:"slots,omitempty" jsonschema:"description=Slot values the user did provide keyed by slot name"`
}

// DecodeJudgment validates raw oracle text against the registration schema. Unknown
// collected keys are dropped; unknown field names or missing required data make the
// judgment invalid.
func DecodeJudgment(raw string, fields []types.FieldInfo) Judgment {
	text := structured.StripCodeFence(raw)
	if text == "" {
		return Invalid("empty payload")
	}
	var p judgmentPayload
	if err := decoder.UnmarshalFromString(text, &p); err != nil {
		return Invalid("decode payload: %v", err)
	}
	switch types.Status(strings.TrimSpace(p.Status)) {
	case types.StatusCollecting:
		if p.CurrentField == nil || strings.TrimSpace(*p.CurrentField) == "" {
			return Invalid("collecting without currentField")
		}
		field := strings.TrimSpace(*p.CurrentField)
		if !types.Contains(fields, field) {
			return Invalid("unknown field %q", field)
		}
		return Collecting(field)
	case types.StatusComplete:
		data := make(map[string]string, len(fields))
		for _, f := range fields {
			v, ok := p.CollectedData[f.Name]
			if !ok || v == nil {
				continue
			}
			s, err := stringify(v)
			if err != nil {
				return Invalid("field %q: %v", f.Name, err)
			}
			data[f.Name] = s
		}
		return Complete(data)
	default:
		return Invalid("unknown status %q", p.Status)
	}
}

// DecodeClassification validates raw oracle text against the booking classification
// schema. Missing slots come back in the order of slots, duplicates removed.
func DecodeClassification(raw string, slots []types.FieldInfo) (*Classification, error) {
	text := structured.StripCodeFence(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrContractViolation)
	}
	var p classificationPayload
	if err := decoder.UnmarshalFromString(text, &p); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", ErrContractViolation, err)
	}
	category := strings.TrimSpace(p.Category)
	if category == "" {
		return nil, fmt.Errorf("%w: empty category", ErrContractViolation)
	}
	missing := make(map[string]bool, len(p.Missing))
	for _, name := range p.Missing {
		name = strings.TrimSpace(name)
		if !types.Contains(slots, name) {
			return nil, fmt.Errorf("%w: unknown slot %q", ErrContractViolation, name)
		}
		missing[name] = true
	}
	out := &Classification{Category: category, Slots: map[string]string{}}
	for _, s := range slots {
		if missing[s.Name] {
			out.Missing = append(out.Missing, s.Name)
			continue
		}
		out.Slots[s.Name] = strings.TrimSpace(p.Slots[s.Name])
	}
	return out, nil
}

func stringify(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
