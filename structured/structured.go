package structured

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

// ErrEmptyPayload is returned when the model produced neither a tool call nor content.
var ErrEmptyPayload = errors.New("structured: model returned an empty payload")

type PromptBuilder[TInput any] func(ctx context.Context, input TInput) ([]*schema.Message, error)

type Chain[TInput, TOutput any] struct {
	PromptBuilder PromptBuilder[TInput]
	ChatModel     model.ToolCallingChatModel
	ToolInfo      *schema.ToolInfo
}

func NewChain[TInput, TOutput any](
	chatModel model.ToolCallingChatModel,
	promptBuilder PromptBuilder[TInput],
	toolName string,
	toolDesc string,
) (*Chain[TInput, TOutput], error) {

	toolInfo, err := utils.GoStruct2ToolInfo[TOutput](toolName, toolDesc)
	if err != nil {
		return nil, fmt.Errorf("convert tool info failed: %w", err)
	}
	return &Chain[TInput, TOutput]{
		PromptBuilder: promptBuilder,
		ChatModel:     chatModel,
		ToolInfo:      toolInfo,
	}, nil
}

// InvokeRaw calls the model and returns the structural payload as text: the first tool
// call's arguments, or the message content with surrounding code fences removed.
func (s *Chain[TInput, TOutput]) InvokeRaw(ctx context.Context, input TInput) (string, error) {
	messages, err := s.PromptBuilder(ctx, input)
	if err != nil {
		return "", fmt.Errorf("build prompt failed: %w", err)
	}

	response, err := s.ChatModel.Generate(ctx, messages,
		model.WithTools([]*schema.ToolInfo{s.ToolInfo}),
		model.WithToolChoice(schema.ToolChoiceForced, s.ToolInfo.Name),
	)
	if err != nil {
		return "", fmt.Errorf("call model failed: %w", err)
	}
	return Payload(response)
}

// Payload extracts the structural payload from a model response.
func Payload(msg *schema.Message) (string, error) {
	if msg == nil {
		return "", ErrEmptyPayload
	}
	if len(msg.ToolCalls) > 0 {
		args := strings.TrimSpace(msg.ToolCalls[0].Function.Arguments)
		if args != "" {
			return args, nil
		}
	}
	content := StripCodeFence(msg.Content)
	if content == "" {
		return "", ErrEmptyPayload
	}
	return content, nil
}

// StripCodeFence removes a leading ``` or ```json marker and a trailing ``` marker.
// Text without fences is returned trimmed.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
