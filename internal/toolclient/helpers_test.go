package toolclient

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"llm-toolbox/internal/dice"
	"llm-toolbox/internal/domain"
	"llm-toolbox/internal/usecase"
)

type call struct {
	name string
	args map[string]any
}

type fakeCaller struct {
	tools   []domain.ToolInfo
	listErr error
	reply   string
	callErr error
	calls   []call
}

func (f *fakeCaller) ListTools(context.Context) ([]domain.ToolInfo, error) {
	return f.tools, f.listErr
}

func (f *fakeCaller) CallTool(_ context.Context, name string, args map[string]any) (string, error) {
	f.calls = append(f.calls, call{name, args})
	return f.reply, f.callErr
}

type echoLLM struct {
	msgs []domain.ChatMessage
	err  error
}

func (e *echoLLM) Chat(_ context.Context, model string, msgs []domain.ChatMessage) (domain.Completion, error) {
	e.msgs = msgs
	if e.err != nil {
		return domain.Completion{}, e.err
	}
	return domain.Completion{Content: "poem: " + msgs[len(msgs)-1].Content, Model: model}, nil
}

func (e *echoLLM) Moderate(context.Context, string) (bool, error) { return false, nil }

func newTools(t *testing.T, llm usecase.Completer) *usecase.ToolService {
	t.Helper()
	return usecase.NewToolService(llm, usecase.ToolConfig{
		PoemModel: "gemini-1.5-flash",
		Roller:    dice.NewRollerWithSource(rand.NewPCG(3, 4)),
	})
}

var errBoom = errors.New("boom")
