// Package toolclient talks to a toolbox tool server over MCP or REST.
package toolclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"llm-toolbox/internal/domain"
)

const ClientName = "llm-toolbox-client"

var Version = "0.1.0"

// ToolCaller is what the interactive sessions drive. Session and HTTP both
// implement it.
type ToolCaller interface {
	ListTools(ctx context.Context) ([]domain.ToolInfo, error)
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// Session is an initialized MCP client session.
type Session struct {
	cs *mcp.ClientSession
}

// ConnectStdio spawns argv as an MCP server and talks to it over its
// stdin/stdout. The server's stderr is passed through.
func ConnectStdio(ctx context.Context, argv []string, opts *mcp.ClientOptions) (*Session, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("toolclient: server command must not be empty")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr
	return Connect(ctx, &mcp.CommandTransport{Command: cmd}, opts)
}

func Connect(ctx context.Context, transport mcp.Transport, opts *mcp.ClientOptions) (*Session, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: ClientName, Version: Version}, opts)
	cs, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("toolclient: connect: %w", err)
	}
	return &Session{cs: cs}, nil
}

func (s *Session) ListTools(ctx context.Context) ([]domain.ToolInfo, error) {
	res, err := s.cs.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("toolclient: list tools: %w", err)
	}
	out := make([]domain.ToolInfo, 0, len(res.Tools))
	for _, t := range res.Tools {
		out = append(out, domain.ToolInfo{Name: t.Name, Description: t.Description})
	}
	return out, nil
}

// CallTool returns the first text content of the result. Tool-level
// failures come back as errors carrying the server's message.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	res, err := s.cs.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("toolclient: call %s: %w", name, err)
	}
	text := firstText(res.Content)
	if res.IsError {
		return "", fmt.Errorf("toolclient: %s failed: %s", name, text)
	}
	return text, nil
}

func (s *Session) Close() error {
	return s.cs.Close()
}

func firstText(content []mcp.Content) string {
	for _, c := range content {
		if t, ok := c.(*mcp.TextContent); ok {
			return t.Text
		}
	}
	return noOutput
}
