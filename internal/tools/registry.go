package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry manages the tools offered to the model and dispatches their
// execution by name. It also exposes the sources recorded by the most
// recently executed source-tracking tool.
type Registry struct {
	mu      sync.Mutex
	tools   map[string]Tool
	order   []string
	lastRun SourceTracker // last tracking tool executed through the registry
	logger  *slog.Logger
}

// NewRegistry creates a new tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	name := tool.Definition().Name
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateToolName, name)
	}

	r.tools[name] = tool
	r.order = append(r.order, name)
	_, tracks := tool.(SourceTracker)
	r.logger.Info("Registered tool", "name", name, "tracks_sources", tracks)
	return nil
}

// Definitions returns one definition per registered tool in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.Lock()
	defer r.mu.Unlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs the named tool and returns its text unchanged. Errors raised
// by the tool are returned as is.
func (r *Registry) Execute(ctx context.Context, name string, args Arguments) (string, error) {
	r.mu.Lock()
	tool, exists := r.tools[name]
	r.mu.Unlock()
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	r.logger.InfoContext(ctx, "Executing tool", "name", name, "arguments", args)
	start := time.Now()

	out, err := tool.Execute(ctx, args)
	if err != nil {
		r.logger.ErrorContext(ctx, "Tool execution failed", "name", name, "error", err)
		return "", err
	}

	if tracker, ok := tool.(SourceTracker); ok {
		r.mu.Lock()
		r.lastRun = tracker
		r.mu.Unlock()
	}

	r.logger.InfoContext(ctx, "Tool execution successful", "name", name, "execution_time_ms", time.Since(start).Milliseconds())
	return out, nil
}

// LastSources returns the sources of the tracking tool executed most
// recently, falling back to the first tracking tool that holds any. The
// result is never nil.
func (r *Registry) LastSources() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastRun != nil {
		return append([]string{}, r.lastRun.LastSources()...)
	}
	for _, name := range r.order {
		tracker, ok := r.tools[name].(SourceTracker)
		if !ok {
			continue
		}
		if sources := tracker.LastSources(); len(sources) > 0 {
			return append([]string{}, sources...)
		}
	}
	return []string{}
}

// ResetSources clears the sources of every tracking tool. Safe to call
// repeatedly.
func (r *Registry) ResetSources() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		if tracker, ok := r.tools[name].(SourceTracker); ok {
			tracker.ResetSources()
		}
	}
	r.lastRun = nil
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
