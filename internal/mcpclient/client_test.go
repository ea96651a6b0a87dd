package mcpclient

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	coursemcp "github.com/radutopala/courserag/internal/mcp"
	"github.com/radutopala/courserag/internal/rag"
	"github.com/radutopala/courserag/internal/tools"
)

// MockBackend implements coursemcp.Backend for testing
type MockBackend struct {
	registry *tools.Registry
	queryErr error
}

func (m *MockBackend) Query(_ context.Context, query, sessionID string) (*rag.Answer, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if sessionID == "" {
		sessionID = "session_test"
	}
	return &rag.Answer{Text: "echo: " + query, Sources: []string{}, SessionID: sessionID}, nil
}

func (m *MockBackend) NewRegistry() (*tools.Registry, error) {
	return m.registry, nil
}

// StaticTool answers every call with the same text
type StaticTool struct {
	name string
	text string
}

func (t *StaticTool) Definition() tools.Definition {
	return tools.Definition{Name: t.name, InputSchema: map[string]any{"type": "object"}}
}

func (t *StaticTool) Execute(context.Context, tools.Arguments) (string, error) {
	return t.text, nil
}

type ClientTestSuite struct {
	suite.Suite
	ctx     context.Context
	backend *MockBackend
	client  *Client
	session *mcp.ServerSession
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	registry := tools.NewRegistry(logger)
	require.NoError(s.T(), registry.Register(&StaticTool{name: tools.SearchToolName, text: "[Course - Lesson 1]\nbody"}))
	require.NoError(s.T(), registry.Register(&StaticTool{name: tools.OutlineToolName, text: "Course: Course"}))
	s.backend = &MockBackend{registry: registry}

	server := coursemcp.NewCourseServer("test-server", "1.0.0", s.backend, logger)
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	session, err := server.Connect(s.ctx, serverTransport)
	require.NoError(s.T(), err)
	s.session = session

	client, err := Connect(s.ctx, clientTransport, logger)
	require.NoError(s.T(), err)
	s.client = client
}

func (s *ClientTestSuite) TearDownTest() {
	_ = s.client.Close()
	_ = s.session.Wait()
}

func (s *ClientTestSuite) TestListTools() {
	list, err := s.client.ListTools(s.ctx)

	require.NoError(s.T(), err)
	names := make([]string, len(list))
	for i, t := range list {
		names[i] = t.Name
	}
	require.ElementsMatch(s.T(), []string{
		tools.SearchToolName,
		tools.OutlineToolName,
		coursemcp.AskToolName,
	}, names)
}

func (s *ClientTestSuite) TestCallTool_Outline() {
	result, err := s.client.CallTool(s.ctx, tools.OutlineToolName, map[string]any{"course_name": "Course"})

	require.NoError(s.T(), err)
	require.Equal(s.T(), "Course: Course", result.Text)
}

func (s *ClientTestSuite) TestCallTool_Ask() {
	result, err := s.client.CallTool(s.ctx, coursemcp.AskToolName, map[string]any{"question": "hi"})

	require.NoError(s.T(), err)
	require.Equal(s.T(), "echo: hi", result.Text)

	structured, ok := result.Structured.(map[string]any)
	require.True(s.T(), ok)
	require.Equal(s.T(), "session_test", structured["session_id"])
}

func (s *ClientTestSuite) TestCallTool_ErrorResult() {
	s.backend.queryErr = errors.New("model unavailable")

	_, err := s.client.CallTool(s.ctx, coursemcp.AskToolName, map[string]any{"question": "hi"})

	require.Error(s.T(), err)
	require.Contains(s.T(), err.Error(), "model unavailable")
}

func (s *ClientTestSuite) TestCallTool_UnknownTool() {
	_, err := s.client.CallTool(s.ctx, "does_not_exist", map[string]any{})
	require.Error(s.T(), err)
}

func TestDial_NoTransport(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	_, err := Dial(context.Background(), ServerConfig{}, logger)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no transport configured")
}
