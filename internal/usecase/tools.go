package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"llm-toolbox/internal/dice"
	"llm-toolbox/internal/domain"
)

const (
	ToolPoet     = "poet"
	ToolRollDice = "roll_dice"

	defaultNotation   = "1d20"
	defaultRecentCall = 20
	maxRecentCalls    = 100
)

var toolCatalog = []domain.ToolInfo{
	{Name: ToolPoet, Description: "Poem generator"},
	{Name: ToolRollDice, Description: "Roll the dice with the given notation"},
}

type PoetArgs struct {
	Theme string `json:"theme,omitempty" jsonschema:"the subject of the poem"`
}

type RollDiceArgs struct {
	Notation string `json:"notation,omitempty" jsonschema:"dice notation such as 2d6 or 4d6k3"`
	NumRolls int    `json:"num_rolls,omitempty" jsonschema:"how many times to roll the notation"`
}

// PoemGenerator turns a prompt into a poem. ToolService uses the configured
// chat model unless a caller supplies its own generator.
type PoemGenerator func(ctx context.Context, prompt string) (string, error)

type Journal interface {
	RecordToolCall(ctx context.Context, call domain.ToolCall) error
	RecentToolCalls(ctx context.Context, tool string, limit int) ([]domain.ToolCall, error)
}

// ToolObserver receives the outcome of every tool call.
type ToolObserver interface {
	ObserveToolCall(tool, outcome string, elapsed time.Duration)
}

type ToolConfig struct {
	PoemModel string
	Journal   Journal
	Observer  ToolObserver
	Roller    *dice.Roller
}

type ToolService struct {
	llm       Completer
	poemModel string
	journal   Journal
	observer  ToolObserver
	roller    *dice.Roller
	now       func() time.Time
}

// NewToolService builds the tool bodies. llm may be nil when poems are only
// produced through PoemWith.
func NewToolService(llm Completer, cfg ToolConfig) *ToolService {
	roller := cfg.Roller
	if roller == nil {
		roller = dice.NewRoller()
	}
	return &ToolService{
		llm:       llm,
		poemModel: strings.TrimSpace(cfg.PoemModel),
		journal:   cfg.Journal,
		observer:  cfg.Observer,
		roller:    roller,
		now:       time.Now,
	}
}

func (s *ToolService) List() []domain.ToolInfo {
	out := make([]domain.ToolInfo, len(toolCatalog))
	copy(out, toolCatalog)
	return out
}

// Call decodes raw JSON arguments and dispatches to the named tool.
func (s *ToolService) Call(ctx context.Context, name string, raw json.RawMessage) (string, error) {
	switch name {
	case ToolPoet:
		var args PoetArgs
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		return s.Poem(ctx, args)
	case ToolRollDice:
		var args RollDiceArgs
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		return s.RollDice(ctx, args)
	default:
		return "", newError(ErrorNotFound, "unknown_tool", fmt.Errorf("tool %q not found", name))
	}
}

func (s *ToolService) Poem(ctx context.Context, args PoetArgs) (string, error) {
	return s.PoemWith(ctx, args, s.chatPoem)
}

func (s *ToolService) PoemWith(ctx context.Context, args PoetArgs, gen PoemGenerator) (string, error) {
	theme := strings.TrimSpace(args.Theme)
	if theme == "" {
		theme = defaultPoemTheme
	}
	return s.run(ctx, ToolPoet, PoetArgs{Theme: theme}, func() (string, error) {
		poem, err := gen(ctx, PoemPrompt(theme))
		if err != nil {
			var ue *Error
			if errors.As(err, &ue) {
				return "", ue
			}
			return "", upstreamError("poem", err)
		}
		return poem, nil
	})
}

func (s *ToolService) RollDice(ctx context.Context, args RollDiceArgs) (string, error) {
	if strings.TrimSpace(args.Notation) == "" {
		args.Notation = defaultNotation
	}
	if args.NumRolls == 0 {
		args.NumRolls = 1
	}
	return s.run(ctx, ToolRollDice, args, func() (string, error) {
		n, err := dice.Parse(args.Notation)
		if err != nil {
			return "", newError(ErrorInvalidInput, "invalid_notation", err)
		}
		if args.NumRolls < 1 || args.NumRolls > dice.MaxRolls {
			return "", newError(ErrorInvalidInput, "invalid_num_rolls",
				fmt.Errorf("num_rolls must be between 1 and %d", dice.MaxRolls))
		}
		results, err := s.roller.RollMany(n, args.NumRolls)
		if err != nil {
			return "", newError(ErrorInvalidInput, "invalid_num_rolls", err)
		}
		return dice.Format(results), nil
	})
}

// RecentCalls returns the journaled calls of one tool, newest first.
func (s *ToolService) RecentCalls(ctx context.Context, tool string, limit int) ([]domain.ToolCall, error) {
	if !knownTool(tool) {
		return nil, newError(ErrorNotFound, "unknown_tool", fmt.Errorf("tool %q not found", tool))
	}
	if s.journal == nil {
		return []domain.ToolCall{}, nil
	}
	if limit <= 0 {
		limit = defaultRecentCall
	}
	limit = min(limit, maxRecentCalls)
	calls, err := s.journal.RecentToolCalls(ctx, tool, limit)
	if err != nil {
		return nil, newError(ErrorInternal, "journal_read_error", err)
	}
	return calls, nil
}

func (s *ToolService) chatPoem(ctx context.Context, prompt string) (string, error) {
	if s.llm == nil || s.poemModel == "" {
		return "", newError(ErrorInternal, "poem_model_not_configured", nil)
	}
	completion, err := s.llm.Chat(ctx, s.poemModel, []domain.ChatMessage{domain.UserMessage(prompt)})
	if err != nil {
		return "", err
	}
	return completion.Content, nil
}

func (s *ToolService) run(ctx context.Context, tool string, args any, fn func() (string, error)) (string, error) {
	start := s.now()
	out, err := fn()
	elapsed := s.now().Sub(start)

	outcome := "ok"
	if err != nil {
		code, _ := CodeOf(err)
		outcome = strings.ToLower(string(code))
	}
	if s.observer != nil {
		s.observer.ObserveToolCall(tool, outcome, elapsed)
	}
	s.record(ctx, tool, args, out, err, start, elapsed)
	return out, err
}

func (s *ToolService) record(ctx context.Context, tool string, args any, out string, callErr error, at time.Time, elapsed time.Duration) {
	if s.journal == nil {
		return
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		encoded = []byte("{}")
	}
	call := domain.ToolCall{
		ID:         newUUID(),
		Tool:       tool,
		Arguments:  string(encoded),
		Output:     out,
		DurationMS: elapsed.Milliseconds(),
		At:         at.UTC(),
	}
	if callErr != nil {
		call.Error = callErr.Error()
	}
	// The journal must not fail a call that already produced its answer.
	if err := s.journal.RecordToolCall(context.WithoutCancel(ctx), call); err != nil {
		slog.Warn("journal write failed", "tool", tool, "err", err)
	}
}

func decodeArgs(raw json.RawMessage, dst any) error {
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return newError(ErrorInvalidInput, "invalid_arguments", err)
	}
	return nil
}

func knownTool(name string) bool {
	for _, t := range toolCatalog {
		if t.Name == name {
			return true
		}
	}
	return false
}
