// Package commands provides the toolbox CLI.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"llm-toolbox/internal/config"
	"llm-toolbox/internal/logger"
)

// Version info (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// app is the state shared by every subcommand after flag parsing.
type app struct {
	deps       *Dependencies
	v          *viper.Viper
	cfg        config.Config
	configPath string
}

func NewRootCommand(deps *Dependencies) *cobra.Command {
	a := &app{deps: deps}

	root := &cobra.Command{
		Use:   "toolbox",
		Short: "LLM course toolbox: MCP tool server, clients, dice and chat",
		Long: `toolbox bundles a Model Context Protocol tool server (poet, roll_dice),
matching stdio and HTTP clients, a dice roller and a chat-completion REPL.

Examples:
  toolbox serve                    MCP over stdio
  toolbox serve --http             REST + streamable MCP on 0.0.0.0:8000
  toolbox client stdio             Spawn the server and pick a tool
  toolbox client http              Demo and menu against a running server
  toolbox roll 4d6k3 -n 2          Roll dice locally
  toolbox chat "What is MCP?"      Ask the chat model`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "toolbox %s (built %s)\n", Version, BuildTime)
				return nil
			}
			return cmd.Help()
		},
	}
	root.SetIn(deps.Stdin)
	root.SetOut(deps.Stdout)
	root.SetErr(deps.Stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-format", "", "Log format (text, json)")
	root.Flags().BoolP("version", "v", false, "Show version and exit")

	root.AddCommand(
		newServeCommand(a),
		newClientCommand(a),
		newRollCommand(a),
		newChatCommand(a),
	)
	return root
}

// init loads config once flags are parsed and installs the logger.
func (a *app) init(cmd *cobra.Command) error {
	v, err := config.New(a.configPath)
	if err != nil {
		return err
	}
	binds := map[string]string{
		"log.level":  "log-level",
		"log.format": "log-format",
	}
	for key, flag := range binds {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	a.v = v
	return a.reload()
}

// bind maps a subcommand flag onto a config key and re-decodes.
func (a *app) bind(cmd *cobra.Command, key, flag string) error {
	if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		return fmt.Errorf("bind --%s: %w", flag, err)
	}
	return a.reload()
}

func (a *app) reload() error {
	cfg, err := config.Decode(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return nil
}

// Execute runs the CLI until completion or SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(NewDependencies())
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
