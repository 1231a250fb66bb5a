package toolserver

import (
	"context"
	"math/rand/v2"
	"testing"

	"llm-toolbox/internal/dice"
	"llm-toolbox/internal/domain"
	"llm-toolbox/internal/repository"
	"llm-toolbox/internal/usecase"
)

type stubLLM struct {
	reply  string
	err    error
	prompt string
}

func (s *stubLLM) Chat(_ context.Context, model string, msgs []domain.ChatMessage) (domain.Completion, error) {
	if len(msgs) > 0 {
		s.prompt = msgs[len(msgs)-1].Content
	}
	return domain.Completion{Content: s.reply, Model: model}, s.err
}

func (s *stubLLM) Moderate(context.Context, string) (bool, error) { return false, nil }

func newTools(t *testing.T, llm usecase.Completer, journal usecase.Journal) *usecase.ToolService {
	t.Helper()
	return usecase.NewToolService(llm, usecase.ToolConfig{
		PoemModel: "gemini-1.5-flash",
		Journal:   journal,
		Roller:    dice.NewRollerWithSource(rand.NewPCG(1, 2)),
	})
}

var _ usecase.Journal = (*repository.Memory)(nil)
