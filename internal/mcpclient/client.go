// Package mcpclient talks to a running courserag MCP server.
package mcpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerConfig says how to reach the server. Exactly one of Command or URL
// is used; URL wins when both are set.
type ServerConfig struct {
	Command string            // command to execute (stdio transport)
	Args    []string          // command arguments
	URL     string            // streamable HTTP endpoint
	Env     map[string]string // extra environment, stdio only
}

// Tool is a tool advertised by the server.
type Tool struct {
	Name        string
	Description string
}

// ToolResult is the text a tool returned plus its structured output, if any.
type ToolResult struct {
	Text       string
	Structured any
}

// Client is a connected MCP session.
type Client struct {
	session *mcp.ClientSession
	logger  *slog.Logger
}

// Dial builds the transport described by cfg and connects.
func Dial(ctx context.Context, cfg ServerConfig, logger *slog.Logger) (*Client, error) {
	var transport mcp.Transport
	switch {
	case cfg.URL != "":
		transport = &mcp.StreamableClientTransport{
			Endpoint:   cfg.URL,
			MaxRetries: 5,
		}
		logger.Info("Using Streamable HTTP transport", "endpoint", cfg.URL)
	case cfg.Command != "":
		cmd := exec.Command(cfg.Command, cfg.Args...)
		if len(cfg.Env) > 0 {
			env := os.Environ()
			for k, v := range cfg.Env {
				env = append(env, fmt.Sprintf("%s=%s", k, v))
			}
			cmd.Env = env
		}
		transport = &mcp.CommandTransport{Command: cmd}
		logger.Info("Using stdio transport", "command", cfg.Command)
	default:
		return nil, errors.New("no transport configured: must provide either a command or a url")
	}
	return Connect(ctx, transport, logger)
}

// Connect opens a session over an existing transport.
func Connect(ctx context.Context, transport mcp.Transport, logger *slog.Logger) (*Client, error) {
	client := mcp.NewClient(
		&mcp.Implementation{
			Name:    "courserag-client",
			Version: "1.0.0",
		},
		nil,
	)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
	}
	logger.Info("Connected to MCP server")
	return &Client{session: session, logger: logger}, nil
}

// ListTools returns the tools the server advertises.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	result, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("tools/list failed: %w", err)
	}

	out := make([]Tool, len(result.Tools))
	for i, t := range result.Tools {
		out[i] = Tool{Name: t.Name, Description: t.Description}
	}
	c.logger.Debug("Listed tools", "count", len(out))
	return out, nil
}

// CallTool runs a tool. A result flagged as an error becomes a Go error.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (*ToolResult, error) {
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: arguments,
	})
	if err != nil {
		return nil, fmt.Errorf("tools/call failed: %w", err)
	}

	var texts []string
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			texts = append(texts, text.Text)
		}
	}
	joined := strings.Join(texts, "\n")

	if result.IsError {
		if joined == "" {
			joined = "unknown error"
		}
		return nil, fmt.Errorf("tool execution error: %s", joined)
	}

	return &ToolResult{Text: joined, Structured: result.StructuredContent}, nil
}

// Close ends the session.
func (c *Client) Close() error {
	if err := c.session.Close(); err != nil {
		c.logger.Warn("MCP session close error", "error", err)
		return err
	}
	return nil
}
