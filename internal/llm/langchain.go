package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/radutopala/courserag/internal/tools"
)

// DefaultModel is the Anthropic model used when none is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// LangChainClient adapts a langchaingo model to Client.
type LangChainClient struct {
	model  llms.Model
	logger *slog.Logger
}

// NewLangChainClient wraps an existing langchaingo model.
func NewLangChainClient(model llms.Model, logger *slog.Logger) *LangChainClient {
	return &LangChainClient{model: model, logger: logger}
}

// NewAnthropicClient creates a client for the Anthropic messages API.
func NewAnthropicClient(apiKey, model string, logger *slog.Logger) (*LangChainClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("anthropic API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	m, err := anthropic.New(
		anthropic.WithModel(model),
		anthropic.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic model: %w", err)
	}
	return NewLangChainClient(m, logger), nil
}

// CreateMessage implements Client.
func (c *LangChainClient) CreateMessage(ctx context.Context, req *Request) (*Response, error) {
	messages, err := convertMessages(req)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "Calling model",
		"messages", len(req.Messages),
		"tools", len(req.Tools),
		"max_tokens", req.MaxTokens)

	resp, err := c.model.GenerateContent(ctx, messages, buildCallOptions(req)...)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	out, err := convertResponse(resp)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "Model responded", "stop_reason", out.StopReason, "blocks", len(out.Content))
	return out, nil
}

// convertMessages flattens our turns into langchaingo messages. The Anthropic
// handler reads one part per AI or tool message, so each tool call and each
// tool result becomes its own message.
func convertMessages(req *Request) ([]llms.MessageContent, error) {
	messages := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}

	for _, msg := range req.Messages {
		textRole := llms.ChatMessageTypeHuman
		if msg.Role == RoleAssistant {
			textRole = llms.ChatMessageTypeAI
		}

		var text []llms.ContentPart
		flushText := func() {
			if len(text) > 0 {
				messages = append(messages, llms.MessageContent{Role: textRole, Parts: text})
				text = nil
			}
		}

		for _, block := range msg.Content {
			switch block.Type {
			case BlockText:
				text = append(text, llms.TextContent{Text: block.Text})
			case BlockToolUse:
				flushText()
				args, err := json.Marshal(block.ToolUse.Input)
				if err != nil {
					return nil, fmt.Errorf("failed to encode arguments of %s: %w", block.ToolUse.Name, err)
				}
				messages = append(messages, llms.MessageContent{
					Role: llms.ChatMessageTypeAI,
					Parts: []llms.ContentPart{llms.ToolCall{
						ID:   block.ToolUse.ID,
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      block.ToolUse.Name,
							Arguments: string(args),
						},
					}},
				})
			case BlockToolResult:
				flushText()
				messages = append(messages, llms.MessageContent{
					Role: llms.ChatMessageTypeTool,
					Parts: []llms.ContentPart{llms.ToolCallResponse{
						ToolCallID: block.ToolResult.ToolUseID,
						Name:       block.ToolResult.Name,
						Content:    block.ToolResult.Content,
					}},
				})
			default:
				return nil, fmt.Errorf("unsupported block type %q", block.Type)
			}
		}
		flushText()
	}

	return messages, nil
}

func buildCallOptions(req *Request) []llms.CallOption {
	options := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		options = append(options, llms.WithTools(convertTools(req.Tools)))
		if req.ToolChoice != nil {
			options = append(options, llms.WithToolChoice(req.ToolChoice.Mode))
		}
	}
	return options
}

func convertTools(defs []tools.Definition) []llms.Tool {
	out := make([]llms.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.InputSchema,
			},
		})
	}
	return out
}

// convertResponse rebuilds the block list. Anthropic returns one choice per
// content block, other providers a single choice holding text and tool calls.
func convertResponse(resp *llms.ContentResponse) (*Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.New("empty response from model")
	}

	out := &Response{}
	for _, choice := range resp.Choices {
		if choice == nil {
			continue
		}
		if out.StopReason == "" && choice.StopReason != "" {
			out.StopReason = normalizeStopReason(choice.StopReason)
		}
		if choice.Content != "" {
			out.Content = append(out.Content, TextBlock(choice.Content))
		}
		for _, call := range choice.ToolCalls {
			if call.FunctionCall == nil {
				continue
			}
			args := tools.Arguments{}
			if raw := strings.TrimSpace(call.FunctionCall.Arguments); raw != "" {
				if err := json.Unmarshal([]byte(raw), &args); err != nil {
					return nil, fmt.Errorf("failed to decode arguments of %s: %w", call.FunctionCall.Name, err)
				}
			}
			out.Content = append(out.Content, ToolUseBlock(call.ID, call.FunctionCall.Name, args))
		}
	}
	return out, nil
}

// normalizeStopReason maps OpenAI-style reasons onto the Anthropic ones.
func normalizeStopReason(reason string) StopReason {
	switch reason {
	case "tool_calls", "function_call":
		return StopToolUse
	case "stop":
		return StopEndTurn
	case "length":
		return StopMaxTokens
	default:
		return StopReason(reason)
	}
}
