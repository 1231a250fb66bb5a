package repository

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"llm-toolbox/internal/domain"
)

func TestMemory_Conversation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i, q := range []string{"one", "two", "three"} {
		require.NoError(t, m.SaveCompletedTurn(ctx, "c", q, domain.Completion{Content: "a-" + q}, i+1))
	}

	n, err := m.GetConversationTurnCount(ctx, "c")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	hist, err := m.GetHistory(ctx, "c", 2)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	require.Equal(t, "two", hist[0].Text)
	require.Equal(t, "a-three", hist[1].Answer)
	require.Equal(t, domain.TurnComplete, hist[1].Status)

	n, err = m.GetConversationTurnCount(ctx, "other")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestMemory_Journal(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.RecordToolCall(ctx, domain.ToolCall{ID: "1", Tool: "poet"}))
	require.NoError(t, m.RecordToolCall(ctx, domain.ToolCall{ID: "2", Tool: "poet"}))
	require.NoError(t, m.RecordToolCall(ctx, domain.ToolCall{ID: "3", Tool: "roll_dice"}))

	calls, err := m.RecentToolCalls(ctx, "poet", 10)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	require.Equal(t, "2", calls[0].ID, "newest first")
	require.False(t, calls[0].At.IsZero())

	calls, err = m.RecentToolCalls(ctx, "poet", 1)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	require.Equal(t, "2", calls[0].ID)
}

func TestMemory_JournalIsBounded(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	total := MemoryCallCap*3 + 7
	for i := range total {
		require.NoError(t, m.RecordToolCall(ctx, domain.ToolCall{ID: strconv.Itoa(i), Tool: "roll_dice"}))
	}

	m.mu.RLock()
	kept := len(m.calls["roll_dice"])
	m.mu.RUnlock()
	require.Equal(t, MemoryCallCap, kept)

	calls, err := m.RecentToolCalls(ctx, "roll_dice", 0)
	require.NoError(t, err)
	require.Len(t, calls, MemoryCallCap)
	require.Equal(t, strconv.Itoa(total-1), calls[0].ID)
	require.Equal(t, strconv.Itoa(total-MemoryCallCap), calls[len(calls)-1].ID)
}

func TestMemory_SatisfiesStores(t *testing.T) {
	var _ ConversationStore = NewMemory()
	var _ Journal = NewMemory()
	var _ ConversationStore = (*Client)(nil)
	var _ Journal = (*Client)(nil)
}
