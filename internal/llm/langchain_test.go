package llm

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/radutopala/courserag/internal/tools"
)

// fakeModel implements llms.Model and records what it was sent.
type fakeModel struct {
	response *llms.ContentResponse
	err      error

	messages []llms.MessageContent
	options  llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	f.options = llms.CallOptions{}
	for _, opt := range options {
		opt(&f.options)
	}
	return f.response, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLangChainClient_DirectAnswer(t *testing.T) {
	model := &fakeModel{response: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "Python is a language.", StopReason: "end_turn"}},
	}}
	client := NewLangChainClient(model, testLogger())

	resp, err := client.CreateMessage(context.Background(), &Request{
		System:      "be brief",
		Messages:    []Message{{Role: RoleUser, Content: []Block{TextBlock("What is Python?")}}},
		Temperature: 0,
		MaxTokens:   800,
	})

	require.NoError(t, err)
	assert.Equal(t, StopEndTurn, resp.StopReason)
	assert.Equal(t, DecisionAnswer, resp.Decision())
	assert.Equal(t, "Python is a language.", resp.Text())

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, "be brief", model.messages[0].Parts[0].(llms.TextContent).Text)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)

	assert.Equal(t, 800, model.options.MaxTokens)
	assert.Equal(t, float64(0), model.options.Temperature)
	assert.Empty(t, model.options.Tools)
	assert.Nil(t, model.options.ToolChoice)
}

func TestLangChainClient_ToolsAndChoice(t *testing.T) {
	model := &fakeModel{response: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "ok", StopReason: "end_turn"}},
	}}
	client := NewLangChainClient(model, testLogger())
	choice := AutoToolChoice

	_, err := client.CreateMessage(context.Background(), &Request{
		Messages: []Message{{Role: RoleUser, Content: []Block{TextBlock("hi")}}},
		Tools: []tools.Definition{{
			Name:        "search_course_content",
			Description: "search",
			InputSchema: map[string]any{"type": "object"},
		}},
		ToolChoice: &choice,
	})

	require.NoError(t, err)
	require.Len(t, model.messages, 1, "no system message when the prompt is empty")
	require.Len(t, model.options.Tools, 1)
	assert.Equal(t, "function", model.options.Tools[0].Type)
	assert.Equal(t, "search_course_content", model.options.Tools[0].Function.Name)
	assert.Equal(t, map[string]any{"type": "object"}, model.options.Tools[0].Function.Parameters)
	assert.Equal(t, "auto", model.options.ToolChoice)
}

func TestLangChainClient_ToolUseResponse(t *testing.T) {
	model := &fakeModel{response: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: "Let me search.", StopReason: "tool_use"},
			{
				StopReason: "tool_use",
				ToolCalls: []llms.ToolCall{{
					ID:   "toolu_1",
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      "search_course_content",
						Arguments: `{"query":"Python programming","lesson_number":2}`,
					},
				}},
			},
		},
	}}
	client := NewLangChainClient(model, testLogger())

	resp, err := client.CreateMessage(context.Background(), &Request{
		Messages: []Message{{Role: RoleUser, Content: []Block{TextBlock("q")}}},
	})

	require.NoError(t, err)
	assert.Equal(t, DecisionToolUse, resp.Decision())
	assert.Equal(t, "Let me search.", resp.Text())
	uses := resp.ToolUses()
	require.Len(t, uses, 1)
	assert.Equal(t, "toolu_1", uses[0].ID)
	assert.Equal(t, "search_course_content", uses[0].Name)
	assert.Equal(t, "Python programming", uses[0].Input["query"])
	assert.Equal(t, float64(2), uses[0].Input["lesson_number"])
}

func TestLangChainClient_ConvertsToolRoundTrip(t *testing.T) {
	model := &fakeModel{response: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "done", StopReason: "end_turn"}},
	}}
	client := NewLangChainClient(model, testLogger())

	_, err := client.CreateMessage(context.Background(), &Request{
		Messages: []Message{
			{Role: RoleUser, Content: []Block{TextBlock("q")}},
			{Role: RoleAssistant, Content: []Block{
				TextBlock("thinking"),
				ToolUseBlock("a", "search_course_content", tools.Arguments{"query": "x"}),
				ToolUseBlock("b", "get_course_outline", tools.Arguments{"course_name": "mcp"}),
			}},
			{Role: RoleUser, Content: []Block{
				ToolResultBlock("a", "search_course_content", "result a"),
				ToolResultBlock("b", "get_course_outline", "result b"),
			}},
		},
	})
	require.NoError(t, err)

	require.Len(t, model.messages, 6)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, model.messages[1].Role)
	assert.Equal(t, "thinking", model.messages[1].Parts[0].(llms.TextContent).Text)

	callA := model.messages[2].Parts[0].(llms.ToolCall)
	assert.Equal(t, "a", callA.ID)
	assert.JSONEq(t, `{"query":"x"}`, callA.FunctionCall.Arguments)
	callB := model.messages[3].Parts[0].(llms.ToolCall)
	assert.Equal(t, "get_course_outline", callB.FunctionCall.Name)

	assert.Equal(t, llms.ChatMessageTypeTool, model.messages[4].Role)
	resultA := model.messages[4].Parts[0].(llms.ToolCallResponse)
	assert.Equal(t, "a", resultA.ToolCallID)
	assert.Equal(t, "result a", resultA.Content)
	resultB := model.messages[5].Parts[0].(llms.ToolCallResponse)
	assert.Equal(t, "b", resultB.ToolCallID)
}

func TestLangChainClient_Errors(t *testing.T) {
	t.Run("model failure is wrapped", func(t *testing.T) {
		boom := errors.New("rate limited")
		client := NewLangChainClient(&fakeModel{err: boom}, testLogger())

		_, err := client.CreateMessage(context.Background(), &Request{})
		require.ErrorIs(t, err, boom)
	})

	t.Run("empty response", func(t *testing.T) {
		client := NewLangChainClient(&fakeModel{response: &llms.ContentResponse{}}, testLogger())

		_, err := client.CreateMessage(context.Background(), &Request{})
		require.ErrorContains(t, err, "empty response")
	})

	t.Run("bad tool arguments", func(t *testing.T) {
		client := NewLangChainClient(&fakeModel{response: &llms.ContentResponse{
			Choices: []*llms.ContentChoice{{ToolCalls: []llms.ToolCall{{
				ID:           "x",
				FunctionCall: &llms.FunctionCall{Name: "search_course_content", Arguments: "{not json"},
			}}}},
		}}, testLogger())

		_, err := client.CreateMessage(context.Background(), &Request{})
		require.ErrorContains(t, err, "search_course_content")
	})
}

func TestNormalizeStopReason(t *testing.T) {
	assert.Equal(t, StopToolUse, normalizeStopReason("tool_calls"))
	assert.Equal(t, StopEndTurn, normalizeStopReason("stop"))
	assert.Equal(t, StopMaxTokens, normalizeStopReason("length"))
	assert.Equal(t, StopToolUse, normalizeStopReason("tool_use"))
}

func TestNewAnthropicClient_RequiresKey(t *testing.T) {
	_, err := NewAnthropicClient("  ", "", testLogger())
	require.Error(t, err)
}

func TestResponse_DecisionNeedsToolBlocks(t *testing.T) {
	resp := &Response{StopReason: StopToolUse, Content: []Block{TextBlock("no tools here")}}
	assert.Equal(t, DecisionAnswer, resp.Decision())

	resp = &Response{StopReason: StopEndTurn, Content: []Block{ToolUseBlock("1", "x", nil)}}
	assert.Equal(t, DecisionAnswer, resp.Decision())
}
