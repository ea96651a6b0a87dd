package tools

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// MockTool implements Tool for testing
type MockTool struct {
	name        string
	executeFunc func(ctx context.Context, args Arguments) (string, error)
}

func (m *MockTool) Definition() Definition {
	return Definition{
		Name:        m.name,
		Description: "mock tool",
		InputSchema: map[string]any{"type": "object"},
	}
}

func (m *MockTool) Execute(ctx context.Context, args Arguments) (string, error) {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, args)
	}
	return "mock_result", nil
}

// MockTrackingTool is a MockTool that records fixed sources on every run
type MockTrackingTool struct {
	MockTool
	sources []string
	last    []string
}

func (m *MockTrackingTool) Execute(ctx context.Context, args Arguments) (string, error) {
	m.last = m.sources
	return m.MockTool.Execute(ctx, args)
}

func (m *MockTrackingTool) LastSources() []string { return m.last }

func (m *MockTrackingTool) ResetSources() { m.last = nil }

// RegistryTestSuite is the test suite for Registry
type RegistryTestSuite struct {
	suite.Suite
	registry *Registry
	ctx      context.Context
}

func TestRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

// SetupTest runs before each test
func (s *RegistryTestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Quiet during tests
	}))

	s.registry = NewRegistry(logger)
	s.ctx = context.Background()
}

func (s *RegistryTestSuite) TestNewRegistry() {
	require.NotNil(s.T(), s.registry)
	require.NotNil(s.T(), s.registry.tools)
	require.Equal(s.T(), 0, s.registry.Len())
	require.Empty(s.T(), s.registry.Definitions())
}

func (s *RegistryTestSuite) TestRegister() {
	err := s.registry.Register(&MockTool{name: "test_tool"})
	require.NoError(s.T(), err)
	require.Equal(s.T(), 1, s.registry.Len())
}

func (s *RegistryTestSuite) TestRegister_EmptyName() {
	err := s.registry.Register(&MockTool{name: ""})
	require.Error(s.T(), err)
	require.Contains(s.T(), err.Error(), "tool name cannot be empty")
}

func (s *RegistryTestSuite) TestRegister_Nil() {
	err := s.registry.Register(nil)
	require.Error(s.T(), err)
}

func (s *RegistryTestSuite) TestRegister_Duplicate() {
	require.NoError(s.T(), s.registry.Register(&MockTool{name: "test_tool"}))

	err := s.registry.Register(&MockTool{name: "test_tool"})
	require.Error(s.T(), err)
	require.True(s.T(), errors.Is(err, ErrDuplicateToolName))
	require.Contains(s.T(), err.Error(), "test_tool")
	require.Equal(s.T(), 1, s.registry.Len())
}

func (s *RegistryTestSuite) TestDefinitions_InsertionOrder() {
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(s.T(), s.registry.Register(&MockTool{name: name}))
	}

	defs := s.registry.Definitions()
	require.Len(s.T(), defs, 3)
	require.Equal(s.T(), "zeta", defs[0].Name)
	require.Equal(s.T(), "alpha", defs[1].Name)
	require.Equal(s.T(), "mid", defs[2].Name)
}

func (s *RegistryTestSuite) TestExecute() {
	var received Arguments
	tool := &MockTool{
		name: "echo",
		executeFunc: func(ctx context.Context, args Arguments) (string, error) {
			received = args
			return "echoed " + args["text"].(string), nil
		},
	}
	require.NoError(s.T(), s.registry.Register(tool))

	out, err := s.registry.Execute(s.ctx, "echo", Arguments{"text": "hi"})
	require.NoError(s.T(), err)
	require.Equal(s.T(), "echoed hi", out)
	require.Equal(s.T(), Arguments{"text": "hi"}, received)
}

func (s *RegistryTestSuite) TestExecute_UnknownTool() {
	_, err := s.registry.Execute(s.ctx, "nonexistent", nil)
	require.Error(s.T(), err)
	require.True(s.T(), errors.Is(err, ErrUnknownTool))
	require.Contains(s.T(), err.Error(), "nonexistent")
}

func (s *RegistryTestSuite) TestExecute_ToolErrorPropagates() {
	boom := errors.New("boom")
	require.NoError(s.T(), s.registry.Register(&MockTool{
		name: "broken",
		executeFunc: func(ctx context.Context, args Arguments) (string, error) {
			return "", boom
		},
	}))

	_, err := s.registry.Execute(s.ctx, "broken", nil)
	require.ErrorIs(s.T(), err, boom)
}

func (s *RegistryTestSuite) TestLastSources_NothingRecorded() {
	require.NoError(s.T(), s.registry.Register(&MockTool{name: "plain"}))

	sources := s.registry.LastSources()
	require.NotNil(s.T(), sources)
	require.Empty(s.T(), sources)
}

func (s *RegistryTestSuite) TestLastSources_MostRecentTracker() {
	first := &MockTrackingTool{MockTool: MockTool{name: "first"}, sources: []string{"A - Lesson 1"}}
	second := &MockTrackingTool{MockTool: MockTool{name: "second"}, sources: []string{"B"}}
	require.NoError(s.T(), s.registry.Register(first))
	require.NoError(s.T(), s.registry.Register(second))
	require.NoError(s.T(), s.registry.Register(&MockTool{name: "plain"}))

	_, err := s.registry.Execute(s.ctx, "first", nil)
	require.NoError(s.T(), err)
	_, err = s.registry.Execute(s.ctx, "second", nil)
	require.NoError(s.T(), err)
	require.Equal(s.T(), []string{"B"}, s.registry.LastSources())

	// A non-tracking tool does not change the view
	_, err = s.registry.Execute(s.ctx, "plain", nil)
	require.NoError(s.T(), err)
	require.Equal(s.T(), []string{"B"}, s.registry.LastSources())

	_, err = s.registry.Execute(s.ctx, "first", nil)
	require.NoError(s.T(), err)
	require.Equal(s.T(), []string{"A - Lesson 1"}, s.registry.LastSources())
}

func (s *RegistryTestSuite) TestLastSources_FallsBackToTrackerWithSources() {
	tracker := &MockTrackingTool{MockTool: MockTool{name: "tracker"}}
	tracker.last = []string{"Direct - Lesson 3"}
	require.NoError(s.T(), s.registry.Register(&MockTool{name: "plain"}))
	require.NoError(s.T(), s.registry.Register(tracker))

	require.Equal(s.T(), []string{"Direct - Lesson 3"}, s.registry.LastSources())
}

func (s *RegistryTestSuite) TestResetSources() {
	tracker := &MockTrackingTool{MockTool: MockTool{name: "tracker"}, sources: []string{"A"}}
	require.NoError(s.T(), s.registry.Register(tracker))
	_, err := s.registry.Execute(s.ctx, "tracker", nil)
	require.NoError(s.T(), err)

	s.registry.ResetSources()

	require.Empty(s.T(), s.registry.LastSources())
	require.Empty(s.T(), tracker.LastSources())
}

func (s *RegistryTestSuite) TestResetSources_Idempotent() {
	// Even with no tools and no searches
	s.registry.ResetSources()
	s.registry.ResetSources()
	require.NotNil(s.T(), s.registry.LastSources())
	require.Empty(s.T(), s.registry.LastSources())
}
