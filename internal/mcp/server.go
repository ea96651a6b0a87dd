// Package mcp exposes the course tools and the question answering system as
// a Model Context Protocol server.
package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/radutopala/courserag/internal/rag"
	"github.com/radutopala/courserag/internal/tools"
)

// AskToolName is the MCP tool answering a full question.
const AskToolName = "ask_course_question"

// Backend is the part of rag.System the MCP server needs.
type Backend interface {
	Query(ctx context.Context, query, sessionID string) (*rag.Answer, error)
	NewRegistry() (*tools.Registry, error)
}

// CourseServer serves course tools over MCP.
type CourseServer struct {
	server  *mcp.Server
	backend Backend
	logger  *slog.Logger
}

// NewCourseServer creates a server with every course tool registered.
func NewCourseServer(name, version string, backend Backend, logger *slog.Logger) *CourseServer {
	s := &CourseServer{
		backend: backend,
		logger:  logger,
	}

	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    name,
			Version: version,
		},
		nil,
	)
	s.registerTools(server)
	s.server = server
	return s
}

// Run serves on transport until the client disconnects or ctx ends.
func (s *CourseServer) Run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// Connect starts a session on transport without blocking.
func (s *CourseServer) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, transport, nil)
}

// HTTPHandler serves the same tools over streamable HTTP.
func (s *CourseServer) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *CourseServer) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        tools.SearchToolName,
		Description: "Search course materials with smart course name matching and lesson filtering. Returns matching fragments, each headed by its course and lesson.",
	}, s.handleSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        tools.OutlineToolName,
		Description: "Get a course outline: title, instructor, course link and the numbered lesson list.",
	}, s.handleOutline)

	mcp.AddTool(server, &mcp.Tool{
		Name:        AskToolName,
		Description: "Answer a question about the course materials. Pass session_id from a previous answer to continue a conversation.",
	}, s.handleAsk)
}

// SearchInput defines the input for search_course_content
type SearchInput struct {
	Query        string `json:"query" jsonschema:"What to search for in the course content"`
	CourseName   string `json:"course_name,omitempty" jsonschema:"Course title, partial matches work (e.g. 'MCP', 'Introduction')"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema:"Specific lesson number to search within"`
}

// SearchOutput is the structured result of search_course_content
type SearchOutput struct {
	Sources []string `json:"sources"`
}

func (s *CourseServer) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	args := tools.Arguments{"query": input.Query}
	if input.CourseName != "" {
		args["course_name"] = input.CourseName
	}
	if input.LessonNumber != nil {
		args["lesson_number"] = *input.LessonNumber
	}

	text, sources, err := s.execute(ctx, tools.SearchToolName, args)
	if err != nil {
		return errorResult(err), SearchOutput{Sources: []string{}}, nil
	}
	return textResult(text), SearchOutput{Sources: sources}, nil
}

// OutlineInput defines the input for get_course_outline
type OutlineInput struct {
	CourseName string `json:"course_name" jsonschema:"Course title, partial matches work"`
}

func (s *CourseServer) handleOutline(ctx context.Context, _ *mcp.CallToolRequest, input OutlineInput) (*mcp.CallToolResult, any, error) {
	text, _, err := s.execute(ctx, tools.OutlineToolName, tools.Arguments{"course_name": input.CourseName})
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(text), nil, nil
}

// AskInput defines the input for ask_course_question
type AskInput struct {
	Question  string `json:"question" jsonschema:"The question to answer"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Session to continue; a new one is created when empty"`
}

func (s *CourseServer) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, rag.Answer, error) {
	answer, err := s.backend.Query(ctx, input.Question, input.SessionID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Question failed", "error", err)
		return errorResult(err), rag.Answer{Sources: []string{}}, nil
	}
	return textResult(answer.Text), *answer, nil
}

// execute runs one tool on a fresh registry and returns its text and sources.
func (s *CourseServer) execute(ctx context.Context, name string, args tools.Arguments) (string, []string, error) {
	registry, err := s.backend.NewRegistry()
	if err != nil {
		return "", nil, err
	}
	text, err := registry.Execute(ctx, name, args)
	if err != nil {
		s.logger.ErrorContext(ctx, "MCP tool failed", "name", name, "error", err)
		return "", nil, err
	}
	return text, registry.LastSources(), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: err.Error()},
		},
	}
}
