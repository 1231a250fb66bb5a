package commands

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"llm-toolbox/internal/integrations/paramstore"
	"llm-toolbox/internal/toolclient"
)

func newClientCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Talk to a tool server",
	}
	cmd.AddCommand(newStdioClientCommand(a), newHTTPClientCommand(a), newSamplingClientCommand(a))
	return cmd
}

func newStdioClientCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Spawn the server over stdio, list its tools and run one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.bind(cmd, "client.server_cmd", "server-cmd"); err != nil {
				return err
			}
			argv, err := serverArgv(a.cfg.Client.ServerCmd, a.configPath, false)
			if err != nil {
				return err
			}
			session, err := toolclient.ConnectStdio(cmd.Context(), argv, nil)
			if err != nil {
				return err
			}
			defer session.Close()
			return toolclient.RunStdioSession(cmd.Context(), session, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("server-cmd", "", "Server command line (default: this binary with \"serve\")")
	return cmd
}

func newHTTPClientCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Run the REST demo and interactive menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.bind(cmd, "client.url", "url"); err != nil {
				return err
			}
			c := toolclient.NewHTTP(a.cfg.Client.URL)
			if noDemo, _ := cmd.Flags().GetBool("no-demo"); !noDemo {
				toolclient.RunHTTPDemo(cmd.Context(), c, cmd.OutOrStdout())
			}
			return toolclient.RunMenu(cmd.Context(), c, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("url", "", "Tool server base URL (default http://localhost:8000)")
	cmd.Flags().Bool("no-demo", false, "Skip the demo calls and go straight to the menu")
	return cmd
}

func newSamplingClientCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sampling",
		Short: "Call poet on a sampling-mode server and answer its sampling request",
		Long: `Spawn "serve --sampling" and call poet. The server hands the prompt back to
this client, which answers with a canned rhyme or, with --use-model, with the
configured chat model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.bind(cmd, "client.server_cmd", "server-cmd"); err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var llm toolclient.Completer
			if useModel, _ := cmd.Flags().GetBool("use-model"); useModel {
				c, err := a.deps.NewCompleter(ctx, a.cfg, a.cfg.OpenAI, paramstore.OpenAITokenName)
				if err != nil {
					return err
				}
				llm = c
			}

			argv, err := serverArgv(a.cfg.Client.ServerCmd, a.configPath, true)
			if err != nil {
				return err
			}
			session, err := toolclient.ConnectStdio(ctx, argv, &mcp.ClientOptions{
				CreateMessageHandler: toolclient.SamplingHandler(out, llm, a.cfg.OpenAI.Model),
			})
			if err != nil {
				return err
			}
			defer session.Close()

			theme, _ := cmd.Flags().GetString("theme")
			poem, err := session.CallTool(ctx, "poet", map[string]any{"theme": theme})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, poem)
			return nil
		},
	}
	cmd.Flags().String("server-cmd", "", "Server command line (default: this binary with \"serve --sampling\")")
	cmd.Flags().String("theme", "socks", "Poem theme")
	cmd.Flags().Bool("use-model", false, "Answer sampling requests with the configured chat model")
	return cmd
}

// serverArgv splits a configured command line, or re-invokes this binary
// with "serve". The config file and sampling mode are forwarded unless the
// command line already sets them.
func serverArgv(configured, configPath string, sampling bool) ([]string, error) {
	argv := strings.Fields(configured)
	if len(argv) == 0 {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		argv = []string{self, "serve"}
	}
	if configPath != "" && !hasFlag(argv, "--config") {
		argv = append(argv, "--config", configPath)
	}
	if sampling && !hasFlag(argv, "--sampling") {
		argv = append(argv, "--sampling")
	}
	return argv, nil
}

func hasFlag(argv []string, flag string) bool {
	return slices.ContainsFunc(argv[1:], func(arg string) bool {
		return arg == flag || strings.HasPrefix(arg, flag+"=")
	})
}
