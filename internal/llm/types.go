// Package llm defines the message protocol spoken with the language model and
// an adapter that carries it over langchaingo.
package llm

import (
	"context"
	"strings"

	"github.com/radutopala/courserag/internal/tools"
)

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// StopReason reported by the model.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// BlockType tags the variant held by a Block.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ToolUse is a model request to run a tool.
type ToolUse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input tools.Arguments `json:"input"`
}

// ToolResult carries rendered tool output back to the model.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Name      string `json:"name,omitempty"`
	Content   string `json:"content"`
}

// Block is one piece of message content. Exactly one of Text, ToolUse or
// ToolResult is meaningful, selected by Type.
type Block struct {
	Type       BlockType   `json:"type"`
	Text       string      `json:"text,omitempty"`
	ToolUse    *ToolUse    `json:"tool_use,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// TextBlock builds a text block.
func TextBlock(text string) Block {
	return Block{Type: BlockText, Text: text}
}

// ToolUseBlock builds a tool-use block.
func ToolUseBlock(id, name string, input tools.Arguments) Block {
	return Block{Type: BlockToolUse, ToolUse: &ToolUse{ID: id, Name: name, Input: input}}
}

// ToolResultBlock builds a tool-result block answering the call id.
func ToolResultBlock(toolUseID, name, content string) Block {
	return Block{Type: BlockToolResult, ToolResult: &ToolResult{ToolUseID: toolUseID, Name: name, Content: content}}
}

// Message is one conversation turn.
type Message struct {
	Role    Role    `json:"role"`
	Content []Block `json:"content"`
}

// ToolChoice hints how the model should pick tools.
type ToolChoice struct {
	Mode string `json:"type"`
}

// AutoToolChoice lets the model decide whether to call a tool.
var AutoToolChoice = ToolChoice{Mode: "auto"}

// Request is a single model call.
type Request struct {
	System      string
	Messages    []Message
	Tools       []tools.Definition // nil means no tools offered
	ToolChoice  *ToolChoice
	Temperature float64
	MaxTokens   int
}

// Decision is what the model chose to do with its turn.
type Decision int

const (
	// DecisionAnswer means the response text is the answer.
	DecisionAnswer Decision = iota
	// DecisionToolUse means the model asked for one or more tools.
	DecisionToolUse
)

func (d Decision) String() string {
	switch d {
	case DecisionAnswer:
		return "answer"
	case DecisionToolUse:
		return "tool_use"
	default:
		return "unknown"
	}
}

// Response is the model's turn.
type Response struct {
	StopReason StopReason
	Content    []Block
}

// Decision classifies the response. Tool use requires both the tool_use stop
// reason and at least one tool-use block.
func (r *Response) Decision() Decision {
	if r.StopReason == StopToolUse && len(r.ToolUses()) > 0 {
		return DecisionToolUse
	}
	return DecisionAnswer
}

// Text joins the text blocks of the response.
func (r *Response) Text() string {
	var parts []string
	for _, b := range r.Content {
		if b.Type == BlockText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ToolUses returns the tool-use requests in the order they appeared.
func (r *Response) ToolUses() []ToolUse {
	var uses []ToolUse
	for _, b := range r.Content {
		if b.Type == BlockToolUse && b.ToolUse != nil {
			uses = append(uses, *b.ToolUse)
		}
	}
	return uses
}

// Client sends one request to the model.
type Client interface {
	CreateMessage(ctx context.Context, req *Request) (*Response, error)
}
