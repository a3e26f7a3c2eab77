package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/eino-contrib/jsonschema"
	"github.com/tbxark/intakebot/structured"
	"github.com/tbxark/intakebot/types"
)

const (
	judgeToolName           = "record_registration_step"
	judgeToolDescription    = "Report which registration field to ask next, or every collected field once registration is complete."
	classifyToolName        = "classify_booking_request"
	classifyToolDescription = "Report the requested service category and which booking slots the user has not provided."
)

// DefaultJudgeSystemPromptTemplate drives the registration dialogue. It takes the tool
// name, the ordered field list and the output JSON schema.
const DefaultJudgeSystemPromptTemplate = `You manage a worker registration conversation. Collect these fields from the user, in order:
%[2]s

The assistant has just asked for the field named in "Current field" and the user answered. Decide whether the answer is usable.
- If more fields remain, return status "collecting" with currentField set to the next field to ask for. If the answer is not usable, return the same field again.
- When every field is known, return status "complete" with collectedData holding every field. experience is a whole number of years. category is one of Cleaning, Plumbing, Electrician, Painting.

Call the '%[1]s' tool. The arguments must match this JSON schema:
%[3]s`

// DefaultClassifySystemPromptTemplate drives the first booking turn. It takes the tool
// name, the category list, the slot list and the output JSON schema.
const DefaultClassifySystemPromptTemplate = `You classify service booking requests. Known categories:
%[2]s

Booking slots:
%[3]s

Pick the category the user asks for. List in "missing" every slot the user did not mention, and put the values of mentioned slots into "slots".

Call the '%[1]s' tool. The arguments must match this JSON schema:
%[4]s`

type toolOracleOptions struct {
	judgeTemplate    string
	classifyTemplate string
}

type ToolOracleOption func(*toolOracleOptions)

// WithJudgeSystemPromptTemplate overrides DefaultJudgeSystemPromptTemplate.
func WithJudgeSystemPromptTemplate(tpl string) ToolOracleOption {
	return func(o *toolOracleOptions) {
		o.judgeTemplate = tpl
	}
}

// WithClassifySystemPromptTemplate overrides DefaultClassifySystemPromptTemplate.
func WithClassifySystemPromptTemplate(tpl string) ToolOracleOption {
	return func(o *toolOracleOptions) {
		o.classifyTemplate = tpl
	}
}

// ToolBasedOracle asks a tool-calling chat model for structured judgments.
type ToolBasedOracle struct {
	judge    *structured.Chain[*JudgeRequest, judgmentPayload]
	classify *structured.Chain[*ClassifyRequest, classificationPayload]
}

var _ Oracle = (*ToolBasedOracle)(nil)

func NewToolBasedOracle(chatModel model.ToolCallingChatModel, opts ...ToolOracleOption) (*ToolBasedOracle, error) {
	options := toolOracleOptions{
		judgeTemplate:    DefaultJudgeSystemPromptTemplate,
		classifyTemplate: DefaultClassifySystemPromptTemplate,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	judgeSchema, err := outputSchema(&judgmentPayload{})
	if err != nil {
		return nil, err
	}
	classifySchema, err := outputSchema(&classificationPayload{})
	if err != nil {
		return nil, err
	}

	judge, err := structured.NewChain[*JudgeRequest, judgmentPayload](
		chatModel,
		func(ctx context.Context, req *JudgeRequest) ([]*schema.Message, error) {
			system := fmt.Sprintf(options.judgeTemplate, judgeToolName, types.FormatFieldList(req.Fields), judgeSchema)
			return buildMessages(system, req.History, formatJudgeRequest(req)), nil
		},
		judgeToolName,
		judgeToolDescription,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create judge chain: %w", err)
	}
	classify, err := structured.NewChain[*ClassifyRequest, classificationPayload](
		chatModel,
		func(ctx context.Context, req *ClassifyRequest) ([]*schema.Message, error) {
			system := fmt.Sprintf(options.classifyTemplate, classifyToolName,
				"- "+strings.Join(req.Categories, "\n- "), types.FormatFieldList(req.Slots), classifySchema)
			return buildMessages(system, nil, req.Input), nil
		},
		classifyToolName,
		classifyToolDescription,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create classify chain: %w", err)
	}
	return &ToolBasedOracle{judge: judge, classify: classify}, nil
}

func (o *ToolBasedOracle) Judge(ctx context.Context, req *JudgeRequest) (Judgment, error) {
	raw, err := o.judge.InvokeRaw(ctx, req)
	if errors.Is(err, structured.ErrEmptyPayload) {
		return Invalid("empty payload"), nil
	}
	if err != nil {
		return Judgment{}, fmt.Errorf("judge: %w", err)
	}
	j := DecodeJudgment(raw, req.Fields)
	if j.Kind == JudgmentInvalid {
		slog.Debug("Invalid judge payload", "payload", raw, "reason", j.Reason)
	}
	return j, nil
}

func (o *ToolBasedOracle) Classify(ctx context.Context, req *ClassifyRequest) (*Classification, error) {
	raw, err := o.classify.InvokeRaw(ctx, req)
	if errors.Is(err, structured.ErrEmptyPayload) {
		return nil, fmt.Errorf("%w: %w", ErrContractViolation, err)
	}
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	c, err := DecodeClassification(raw, req.Slots)
	if err != nil {
		slog.Debug("Invalid classify payload", "payload", raw, "error", err)
		return nil, err
	}
	return c, nil
}

func formatJudgeRequest(req *JudgeRequest) string {
	sections := []string{
		fmt.Sprintf("# Current field:\n%s", req.CurrentField),
		fmt.Sprintf("# Collected so far:\n%s", types.FormatFieldTable(req.Fields, req.Collected)),
		fmt.Sprintf("# User answer:\n%s", req.Input),
	}
	return strings.Join(sections, "\n\n")
}

func buildMessages(system string, history []*schema.Message, user string) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(system))
	for _, m := range history {
		if m != nil && m.Role != schema.System {
			messages = append(messages, m)
		}
	}
	return append(messages, schema.UserMessage(user))
}

func outputSchema(v any) (string, error) {
	s := jsonschema.Reflect(v)
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON schema: %w", err)
	}
	return string(b), nil
}
