package toolclient

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"llm-toolbox/internal/domain"
)

const (
	CannedReply = "Socks for a fox."
	CannedModel = "fictional-llm"
)

// Completer runs sampled prompts on a real model.
type Completer interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (domain.Completion, error)
}

// SamplingHandler answers sampling/createMessage requests from the server.
// It echoes the request to out, then replies with llm or, when llm is nil,
// with a canned rhyme.
func SamplingHandler(out io.Writer, llm Completer, model string) func(context.Context, *mcp.CreateMessageRequest) (*mcp.CreateMessageResult, error) {
	return func(ctx context.Context, req *mcp.CreateMessageRequest) (*mcp.CreateMessageResult, error) {
		params := req.Params
		fmt.Fprintf(out, "sampling system prompt: %s\n", params.SystemPrompt)
		fmt.Fprintln(out, "sampling messages:")
		for _, m := range params.Messages {
			fmt.Fprintf(out, "  %s: %s\n", m.Role, contentText(m.Content))
		}

		if llm == nil {
			return &mcp.CreateMessageResult{
				Role:    "assistant",
				Content: &mcp.TextContent{Text: CannedReply},
				Model:   CannedModel,
			}, nil
		}

		completion, err := llm.Chat(ctx, model, samplingToChat(params))
		if err != nil {
			return nil, fmt.Errorf("toolclient: sampling: %w", err)
		}
		return &mcp.CreateMessageResult{
			Role:    "assistant",
			Content: &mcp.TextContent{Text: completion.Content},
			Model:   completion.Model,
		}, nil
	}
}

func samplingToChat(params *mcp.CreateMessageParams) []domain.ChatMessage {
	var msgs []domain.ChatMessage
	if sp := strings.TrimSpace(params.SystemPrompt); sp != "" {
		msgs = append(msgs, domain.SystemMessage(sp))
	}
	for _, m := range params.Messages {
		text := contentText(m.Content)
		if text == "" {
			continue
		}
		msgs = append(msgs, domain.ChatMessage{Role: string(m.Role), Content: text})
	}
	return msgs
}

func contentText(c mcp.Content) string {
	if t, ok := c.(*mcp.TextContent); ok {
		return t.Text
	}
	return ""
}
