package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"llm-toolbox/internal/integrations/paramstore"
	"llm-toolbox/internal/metrics"
	"llm-toolbox/internal/toolserver"
	"llm-toolbox/internal/usecase"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool server (stdio by default)",
		Long: `Serve the poet and roll_dice tools.

Without --http the server speaks MCP over stdin/stdout, which is how
"toolbox client stdio" launches it. With --http it serves REST routes
(/tools, /tools/{name}), streamable MCP at /mcp, /healthz and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for key, flag := range map[string]string{"server.addr": "addr", "server.sampling": "sampling"} {
				if err := a.bind(cmd, key, flag); err != nil {
					return err
				}
			}
			httpMode, _ := cmd.Flags().GetBool("http")
			return a.runServe(cmd, httpMode)
		},
	}
	cmd.Flags().Bool("http", false, "Serve over HTTP instead of stdio")
	cmd.Flags().String("addr", "", "HTTP listen address (default 0.0.0.0:8000)")
	cmd.Flags().Bool("sampling", false, "Let the MCP client run the poem model")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, httpMode bool) error {
	ctx := cmd.Context()
	cfg := a.cfg

	stores, err := a.deps.NewStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}

	var poemLLM usecase.Completer
	if !cfg.Server.Sampling {
		poemLLM, err = a.deps.NewCompleter(ctx, cfg, cfg.Gemini, paramstore.GoogleTokenName)
		if err != nil {
			return fmt.Errorf("poem model: %w", err)
		}
	}

	m := metrics.New()
	tools := usecase.NewToolService(poemLLM, usecase.ToolConfig{
		PoemModel: cfg.Gemini.Model,
		Journal:   stores.Journal,
		Observer:  m,
	})
	mcpServer := toolserver.NewMCPServer(tools, toolserver.Options{Sampling: cfg.Server.Sampling})

	if !httpMode {
		return toolserver.ServeStdio(ctx, mcpServer)
	}

	opts := []toolserver.HTTPOption{
		toolserver.WithMetrics(m),
		toolserver.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	}
	limiter, err := a.deps.NewLimiter(cfg)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if limiter != nil {
		slog.Info("rate limiting tool calls", "limit", cfg.Redis.Limit, "window", cfg.Redis.Window)
		opts = append(opts, toolserver.WithLimiter(limiter))
	}
	return toolserver.NewHTTPServer(cfg.Server.Addr, tools, mcpServer, opts...).Run(ctx)
}
