package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/radutopala/courserag/internal/mcp"
	"github.com/radutopala/courserag/internal/mcpclient"
	"github.com/radutopala/courserag/internal/server"
)

const (
	serverName    = "courserag"
	serverVersion = "0.1.0"
)

type rootFlags struct {
	envFile  string
	docs     string
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "courserag",
		Short:         "Answer questions about course materials",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "env file to load (default .env when present)")
	root.PersistentFlags().StringVar(&flags.docs, "docs", "", "folder of course documents to index")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		serveCmd(flags),
		mcpCmd(flags),
		askCmd(flags),
		callCmd(),
	)
	return root
}

func serveCmd(flags *rootFlags) *cobra.Command {
	var addr string
	var withMCP bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			var opts []server.Option
			if withMCP {
				mcpServer := mcp.NewCourseServer(serverName, serverVersion, a.system, a.logger)
				opts = append(opts, server.WithHandler("/mcp", mcpServer.HTTPHandler()))
			}
			return server.New(a.system, a.logger, opts...).Run(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&withMCP, "mcp", true, "also serve MCP over streamable HTTP at /mcp")
	return cmd
}

func mcpCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the course tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			a.logger.Info("Starting MCP server over stdio", "name", serverName, "version", serverVersion)
			mcpServer := mcp.NewCourseServer(serverName, serverVersion, a.system, a.logger)
			if err := mcpServer.Run(cmd.Context(), &mcpsdk.StdioTransport{}); err != nil {
				return fmt.Errorf("MCP server failed: %w", err)
			}
			a.logger.Info("MCP server finished")
			return nil
		},
	}
}

func askCmd(flags *rootFlags) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and print its sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			answer, err := a.system.Query(cmd.Context(), strings.Join(args, " "), sessionID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, answer.Text)
			if len(answer.Sources) > 0 {
				fmt.Fprintln(out, "\nSources:")
				for _, source := range answer.Sources {
					fmt.Fprintf(out, "  - %s\n", source)
				}
			}
			fmt.Fprintf(out, "\nSession: %s\n", answer.SessionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session to continue")
	return cmd
}

func callCmd() *cobra.Command {
	var cfg mcpclient.ServerConfig
	cmd := &cobra.Command{
		Use:   "call <tool> [json-arguments]",
		Short: "Call a tool on a running courserag MCP server",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			arguments := map[string]any{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &arguments); err != nil {
					return fmt.Errorf("invalid json arguments: %w", err)
				}
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			client, err := mcpclient.Dial(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.CallTool(cmd.Context(), args[0], arguments)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.URL, "url", "", "streamable HTTP endpoint, e.g. http://localhost:8000/mcp")
	cmd.Flags().StringVar(&cfg.Command, "command", "", "server command to spawn over stdio")
	cmd.Flags().StringSliceVar(&cfg.Args, "arg", nil, "argument for --command, repeatable")
	return cmd
}
