package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"llm-toolbox/internal/domain"
)

// MemoryCallCap bounds the calls kept per tool; older ones are dropped.
const MemoryCallCap = 100

// Memory keeps conversations and tool calls in process. It backs local CLI
// runs where no table is configured.
type Memory struct {
	mu    sync.RWMutex
	now   func() time.Time
	turns map[string][]domain.Message
	calls map[string][]domain.ToolCall
}

func NewMemory() *Memory {
	return &Memory{
		now:   time.Now,
		turns: make(map[string][]domain.Message),
		calls: make(map[string][]domain.ToolCall),
	}
}

func (m *Memory) GetConversationTurnCount(_ context.Context, conversationID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns[conversationID]), nil
}

func (m *Memory) GetHistory(_ context.Context, conversationID string, limit int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.turns[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return slices.Clone(msgs), nil
}

func (m *Memory) SaveCompletedTurn(_ context.Context, conversationID, question string, answer domain.Completion, _ int) error {
	msg := NewMessage(conversationID, question, answer, m.now())
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[conversationID] = append(m.turns[conversationID], msg)
	return nil
}

func (m *Memory) RecordToolCall(_ context.Context, call domain.ToolCall) error {
	if call.At.IsZero() {
		call.At = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := append(m.calls[call.Tool], call)
	if len(calls) > MemoryCallCap {
		calls = slices.Clone(calls[len(calls)-MemoryCallCap:])
	}
	m.calls[call.Tool] = calls
	return nil
}

func (m *Memory) RecentToolCalls(_ context.Context, tool string, limit int) ([]domain.ToolCall, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := m.calls[tool]
	if limit > 0 && len(calls) > limit {
		calls = calls[len(calls)-limit:]
	}
	out := slices.Clone(calls)
	slices.Reverse(out)
	return out, nil
}
