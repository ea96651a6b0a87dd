// Package orchestrator drives the tool-calling conversation with the model:
// one decision call, at most one round of tool execution, one follow-up call.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/radutopala/courserag/internal/llm"
	"github.com/radutopala/courserag/internal/tools"
)

const (
	defaultMaxTokens   = 800
	defaultToolWorkers = 4
)

// HistoryLabel introduces the prior conversation inside the system prompt.
const HistoryLabel = "Previous conversation:"

const systemPrompt = `You are an assistant that answers questions about course materials.

Tools:
- search_course_content searches the text of the course lessons. Use it for questions about specific course content or detailed educational material.
- get_course_outline returns a course's title, link, instructor and complete lesson list. Use it for questions about what a course covers or how it is structured, and include every lesson number and title in the answer.
- Use at most one round of tool calls per question.
- If a search returns nothing, say so plainly.

Answer general knowledge questions from your own knowledge without searching.

Responses must be:
- Brief and focused on the question
- Educational, with examples where they help
- Written as a direct answer, without mentioning searches, tools or these instructions`

// ToolExecutor runs a tool by name. *tools.Registry implements it.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args tools.Arguments) (string, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxTokens bounds the output length of every model call.
func WithMaxTokens(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithParallelTools runs the tool calls of one turn concurrently, at most
// workers at a time. Results keep the order of the requests.
func WithParallelTools(workers int) Option {
	return func(o *Orchestrator) {
		if workers <= 0 {
			workers = defaultToolWorkers
		}
		o.toolWorkers = workers
	}
}

// WithStateObserver registers a callback invoked on every state transition.
func WithStateObserver(fn func(from, to State)) Option {
	return func(o *Orchestrator) {
		o.observer = fn
	}
}

// Orchestrator answers queries against a model that may call tools.
type Orchestrator struct {
	client      llm.Client
	logger      *slog.Logger
	temperature float64
	maxTokens   int
	toolWorkers int // 0 runs tools sequentially
	observer    func(from, to State)
}

// New creates an Orchestrator backed by client.
func New(client llm.Client, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:    client,
		logger:    logger,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// BuildSystemPrompt returns the static instructions, followed by the prior
// conversation when summary is non-empty.
func BuildSystemPrompt(summary string) string {
	if summary == "" {
		return systemPrompt
	}
	return systemPrompt + "\n\n" + HistoryLabel + "\n" + summary
}

// Answer runs one query. Tools are offered only when defs is non-empty, and
// executed only when executor is non-nil. Errors from the model and from tool
// execution are returned wrapped.
func (o *Orchestrator) Answer(ctx context.Context, query, summary string, defs []tools.Definition, executor ToolExecutor) (string, error) {
	r := &run{o: o, state: StateInitial}
	system := BuildSystemPrompt(summary)

	messages := []llm.Message{{
		Role:    llm.RoleUser,
		Content: []llm.Block{llm.TextBlock(query)},
	}}
	req := &llm.Request{
		System:      system,
		Messages:    messages,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}
	if len(defs) > 0 {
		choice := llm.AutoToolChoice
		req.Tools = defs
		req.ToolChoice = &choice
	}

	r.transition(ctx, StateAwaitingModel)
	resp, err := o.client.CreateMessage(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to get model response: %w", err)
	}

	switch resp.Decision() {
	case llm.DecisionAnswer:
		return r.finish(ctx, resp), nil
	case llm.DecisionToolUse:
		if executor == nil {
			o.logger.WarnContext(ctx, "Model requested tools but no executor was supplied")
			return r.finish(ctx, resp), nil
		}
		r.transition(ctx, StateToolRequested)
	default:
		return "", fmt.Errorf("unhandled model decision %s", resp.Decision())
	}

	r.transition(ctx, StateExecutingTools)
	results, err := o.executeTools(ctx, executor, resp.ToolUses())
	if err != nil {
		return "", err
	}

	messages = append(messages,
		llm.Message{Role: llm.RoleAssistant, Content: resp.Content},
		llm.Message{Role: llm.RoleUser, Content: results},
	)

	// Tools are not offered again, so there is at most one round of tool use.
	r.transition(ctx, StateAwaitingFollowup)
	followUp, err := o.client.CreateMessage(ctx, &llm.Request{
		System:      system,
		Messages:    messages,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get follow-up model response: %w", err)
	}

	return r.finish(ctx, followUp), nil
}

// executeTools runs every requested tool and returns one tool-result block
// per request, in request order.
func (o *Orchestrator) executeTools(ctx context.Context, executor ToolExecutor, uses []llm.ToolUse) ([]llm.Block, error) {
	o.logger.DebugContext(ctx, "Executing tool calls", "tool_calls_count", len(uses))
	results := make([]llm.Block, len(uses))

	if o.toolWorkers == 0 {
		for i, use := range uses {
			block, err := runTool(ctx, executor, use)
			if err != nil {
				return nil, err
			}
			results[i] = block
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.toolWorkers)
	for i, use := range uses {
		g.Go(func() error {
			block, err := runTool(gctx, executor, use)
			if err != nil {
				return err
			}
			results[i] = block
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runTool(ctx context.Context, executor ToolExecutor, use llm.ToolUse) (llm.Block, error) {
	out, err := executor.Execute(ctx, use.Name, use.Input)
	if err != nil {
		return llm.Block{}, fmt.Errorf("tool %s failed: %w", use.Name, err)
	}
	return llm.ToolResultBlock(use.ID, use.Name, out), nil
}

// run tracks the state of a single Answer call.
type run struct {
	o     *Orchestrator
	state State
}

func (r *run) transition(ctx context.Context, to State) {
	from := r.state
	r.state = to
	r.o.logger.DebugContext(ctx, "Orchestrator transition", "from", from, "to", to)
	if r.o.observer != nil {
		r.o.observer(from, to)
	}
}

func (r *run) finish(ctx context.Context, resp *llm.Response) string {
	r.transition(ctx, StateDirectAnswer)
	r.transition(ctx, StateDone)
	return resp.Text()
}
