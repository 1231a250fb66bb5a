package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"llm-toolbox/internal/dice"
	"llm-toolbox/internal/domain"
	"llm-toolbox/internal/integrations/openai"
)

type fakeJournal struct {
	mu       sync.Mutex
	calls    []domain.ToolCall
	writeErr error
	readErr  error
	limit    int
}

func (f *fakeJournal) RecordToolCall(_ context.Context, call domain.ToolCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.writeErr
}

func (f *fakeJournal) RecentToolCalls(_ context.Context, _ string, limit int) ([]domain.ToolCall, error) {
	f.limit = limit
	return f.calls, f.readErr
}

type observation struct {
	tool, outcome string
}

type fakeObserver struct {
	seen []observation
}

func (f *fakeObserver) ObserveToolCall(tool, outcome string, _ time.Duration) {
	f.seen = append(f.seen, observation{tool, outcome})
}

func newTestTools(llm Completer, j Journal, o ToolObserver) *ToolService {
	return NewToolService(llm, ToolConfig{
		PoemModel: "gemini-1.5-flash",
		Journal:   j,
		Observer:  o,
		Roller:    dice.NewRollerWithSource(rand.NewPCG(42, 7)),
	})
}

func TestToolService_List(t *testing.T) {
	svc := newTestTools(nil, nil, nil)
	tools := svc.List()
	require.Equal(t, []domain.ToolInfo{
		{Name: "poet", Description: "Poem generator"},
		{Name: "roll_dice", Description: "Roll the dice with the given notation"},
	}, tools)

	tools[0].Name = "mutated"
	require.Equal(t, "poet", svc.List()[0].Name)
}

func TestToolService_Poem(t *testing.T) {
	llm := answering("Silicon dreams")
	journal := &fakeJournal{}
	obs := &fakeObserver{}
	svc := newTestTools(llm, journal, obs)

	out, err := svc.Poem(context.Background(), PoetArgs{Theme: "the sea"})
	require.NoError(t, err)
	require.Equal(t, "Silicon dreams", out)
	require.Equal(t, "gemini-1.5-flash", llm.lastModel)
	require.Equal(t, []domain.ChatMessage{domain.UserMessage("write a poem about the sea")}, llm.lastMsgs)

	require.Len(t, journal.calls, 1)
	require.Equal(t, "poet", journal.calls[0].Tool)
	require.JSONEq(t, `{"theme":"the sea"}`, journal.calls[0].Arguments)
	require.Equal(t, "Silicon dreams", journal.calls[0].Output)
	require.NotEmpty(t, journal.calls[0].ID)
	require.Equal(t, []observation{{"poet", "ok"}}, obs.seen)
}

func TestToolService_PoemDefaultTheme(t *testing.T) {
	llm := answering("x")
	svc := newTestTools(llm, nil, nil)
	_, err := svc.Poem(context.Background(), PoetArgs{Theme: "  "})
	require.NoError(t, err)
	require.Equal(t, "write a poem about artificial intelligence", llm.lastMsgs[0].Content)
}

func TestToolService_PoemWithGenerator(t *testing.T) {
	svc := newTestTools(nil, nil, nil)
	var prompt string
	out, err := svc.PoemWith(context.Background(), PoetArgs{Theme: "foxes"}, func(_ context.Context, p string) (string, error) {
		prompt = p
		return "Socks for a fox.", nil
	})
	require.NoError(t, err)
	require.Equal(t, "Socks for a fox.", out)
	require.Equal(t, "write a poem about foxes", prompt)
}

func TestToolService_PoemErrors(t *testing.T) {
	obs := &fakeObserver{}
	journal := &fakeJournal{}
	svc := newTestTools(failing(&openai.HTTPStatusError{StatusCode: http.StatusTooManyRequests}), journal, obs)
	_, err := svc.Poem(context.Background(), PoetArgs{Theme: "x"})
	expectAskError(t, err, ErrorRateLimited, "poem_rate_limited")
	require.Equal(t, "rate_limited", obs.seen[0].outcome)
	require.NotEmpty(t, journal.calls[0].Error)
	require.Empty(t, journal.calls[0].Output)

	svc = newTestTools(failing(errors.New("connection reset")), nil, nil)
	_, err = svc.Poem(context.Background(), PoetArgs{Theme: "x"})
	expectAskError(t, err, ErrorUpstream, "poem_error")

	svc = newTestTools(nil, nil, nil)
	_, err = svc.Poem(context.Background(), PoetArgs{Theme: "x"})
	expectAskError(t, err, ErrorInternal, "poem_model_not_configured")
}

func TestToolService_RollDice(t *testing.T) {
	svc := newTestTools(nil, nil, nil)

	out, err := svc.RollDice(context.Background(), RollDiceArgs{Notation: "2d6"})
	require.NoError(t, err)
	require.Regexp(t, `^ROLLS: \d, \d -> RETURNS: \d+$`, out)

	out, err = svc.RollDice(context.Background(), RollDiceArgs{Notation: "4d6k3", NumRolls: 3})
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	for i, line := range lines {
		require.True(t, strings.HasPrefix(line, "Roll "+string(rune('1'+i))+": ROLLS: "), line)
	}
}

func TestToolService_RollDiceDefaults(t *testing.T) {
	journal := &fakeJournal{}
	svc := newTestTools(nil, journal, nil)
	out, err := svc.RollDice(context.Background(), RollDiceArgs{})
	require.NoError(t, err)
	require.Regexp(t, `^ROLLS: \d+ -> RETURNS: \d+$`, out)
	require.JSONEq(t, `{"notation":"1d20","num_rolls":1}`, journal.calls[0].Arguments)
}

func TestToolService_RollDiceInvalid(t *testing.T) {
	svc := newTestTools(nil, nil, nil)

	_, err := svc.RollDice(context.Background(), RollDiceArgs{Notation: "banana"})
	expectAskError(t, err, ErrorInvalidInput, "invalid_notation")
	require.ErrorIs(t, err, dice.ErrInvalidNotation)

	_, err = svc.RollDice(context.Background(), RollDiceArgs{Notation: "1d6", NumRolls: -1})
	expectAskError(t, err, ErrorInvalidInput, "invalid_num_rolls")

	_, err = svc.RollDice(context.Background(), RollDiceArgs{Notation: "1d6", NumRolls: dice.MaxRolls + 1})
	expectAskError(t, err, ErrorInvalidInput, "invalid_num_rolls")
}

func TestToolService_Call(t *testing.T) {
	svc := newTestTools(answering("a poem"), nil, nil)

	out, err := svc.Call(context.Background(), "poet", json.RawMessage(`{"theme":"rain"}`))
	require.NoError(t, err)
	require.Equal(t, "a poem", out)

	out, err = svc.Call(context.Background(), "roll_dice", json.RawMessage(`{"notation":"3d1"}`))
	require.NoError(t, err)
	require.Equal(t, "ROLLS: 1, 1, 1 -> RETURNS: 3", out)

	out, err = svc.Call(context.Background(), "roll_dice", nil)
	require.NoError(t, err)
	require.Contains(t, out, "RETURNS:")

	_, err = svc.Call(context.Background(), "roll_dice", json.RawMessage(`{"notation":5}`))
	expectAskError(t, err, ErrorInvalidInput, "invalid_arguments")

	_, err = svc.Call(context.Background(), "teleport", json.RawMessage(`{}`))
	expectAskError(t, err, ErrorNotFound, "unknown_tool")
}

func TestToolService_JournalFailureDoesNotFailCall(t *testing.T) {
	svc := newTestTools(nil, &fakeJournal{writeErr: errors.New("table missing")}, nil)
	out, err := svc.RollDice(context.Background(), RollDiceArgs{Notation: "1d1"})
	require.NoError(t, err)
	require.Equal(t, "ROLLS: 1 -> RETURNS: 1", out)
}

func TestToolService_RecentCalls(t *testing.T) {
	journal := &fakeJournal{calls: []domain.ToolCall{{ID: "a", Tool: "poet"}}}
	svc := newTestTools(nil, journal, nil)

	calls, err := svc.RecentCalls(context.Background(), "poet", 0)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	require.Equal(t, defaultRecentCall, journal.limit)

	_, err = svc.RecentCalls(context.Background(), "poet", 5000)
	require.NoError(t, err)
	require.Equal(t, maxRecentCalls, journal.limit)

	_, err = svc.RecentCalls(context.Background(), "nope", 1)
	expectAskError(t, err, ErrorNotFound, "unknown_tool")

	journal.readErr = errors.New("boom")
	_, err = svc.RecentCalls(context.Background(), "poet", 1)
	expectAskError(t, err, ErrorInternal, "journal_read_error")

	calls, err = newTestTools(nil, nil, nil).RecentCalls(context.Background(), "roll_dice", 1)
	require.NoError(t, err)
	require.Empty(t, calls)
}
