// Package toolserver exposes the toolbox tools over MCP (stdio and
// streamable HTTP) and over a small REST surface.
package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"llm-toolbox/internal/domain"
	"llm-toolbox/internal/usecase"
)

const (
	ServerName = "llm-toolbox"

	// SamplingSystemPrompt accompanies every sampling request sent to the client.
	SamplingSystemPrompt = "always reply in rhyme"
	samplingMaxTokens    = 512
)

// Version is reported in the MCP handshake. Set at build time.
var Version = "0.1.0"

// Tools is the tool surface served by both transports.
type Tools interface {
	List() []domain.ToolInfo
	Call(ctx context.Context, name string, raw json.RawMessage) (string, error)
	Poem(ctx context.Context, args usecase.PoetArgs) (string, error)
	PoemWith(ctx context.Context, args usecase.PoetArgs, gen usecase.PoemGenerator) (string, error)
	RollDice(ctx context.Context, args usecase.RollDiceArgs) (string, error)
	RecentCalls(ctx context.Context, tool string, limit int) ([]domain.ToolCall, error)
}

type Options struct {
	// Sampling makes poet ask the connected client to run the model.
	Sampling bool
}

func NewMCPServer(tools Tools, opts Options) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: Version}, nil)

	descriptions := make(map[string]string)
	for _, t := range tools.List() {
		descriptions[t.Name] = t.Description
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        usecase.ToolPoet,
		Description: descriptions[usecase.ToolPoet],
	}, poetHandler(tools, opts.Sampling))

	mcp.AddTool(server, &mcp.Tool{
		Name:        usecase.ToolRollDice,
		Description: descriptions[usecase.ToolRollDice],
	}, rollDiceHandler(tools))

	return server
}

// ServeStdio runs server over stdin/stdout until ctx is done or the client
// disconnects.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	slog.Info("mcp stdio server starting", "name", ServerName)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("toolserver: stdio: %w", err)
	}
	return nil
}

func poetHandler(tools Tools, sampling bool) mcp.ToolHandlerFor[usecase.PoetArgs, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, args usecase.PoetArgs) (*mcp.CallToolResult, any, error) {
		var (
			poem string
			err  error
		)
		if sampling {
			poem, err = tools.PoemWith(ctx, args, samplingGenerator(req.Session))
		} else {
			poem, err = tools.Poem(ctx, args)
		}
		if err != nil {
			return nil, nil, toolError(err)
		}
		return textResult(poem), nil, nil
	}
}

func rollDiceHandler(tools Tools) mcp.ToolHandlerFor[usecase.RollDiceArgs, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, args usecase.RollDiceArgs) (*mcp.CallToolResult, any, error) {
		out, err := tools.RollDice(ctx, args)
		if err != nil {
			return nil, nil, toolError(err)
		}
		return textResult(out), nil, nil
	}
}

// samplingGenerator delegates generation to the client through
// sampling/createMessage.
func samplingGenerator(session *mcp.ServerSession) usecase.PoemGenerator {
	return func(ctx context.Context, prompt string) (string, error) {
		if session == nil {
			return "", errors.New("toolserver: sampling requires a client session")
		}
		res, err := session.CreateMessage(ctx, &mcp.CreateMessageParams{
			Messages: []*mcp.SamplingMessage{{
				Role:    "user",
				Content: &mcp.TextContent{Text: prompt},
			}},
			SystemPrompt: SamplingSystemPrompt,
			MaxTokens:    samplingMaxTokens,
		})
		if err != nil {
			return "", fmt.Errorf("toolserver: sampling: %w", err)
		}
		text, ok := res.Content.(*mcp.TextContent)
		if !ok {
			return "", fmt.Errorf("toolserver: sampling returned %T, want text", res.Content)
		}
		slog.Debug("sampling reply", "model", res.Model)
		return text.Text, nil
	}
}

// toolError reports the cause without the usecase envelope, matching the
// REST error body.
func toolError(err error) error {
	return errors.New(errorMessage(err))
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
