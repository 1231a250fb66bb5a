package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"llm-toolbox/internal/domain"
)

const (
	defaultMaxContext  = 20
	defaultMaxQuestion = 2000
	defaultMaxTurns    = 10
)

// Completer is the chat-completion surface the services need.
type Completer interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (domain.Completion, error)
	Moderate(ctx context.Context, input string) (bool, error)
}

type ConversationStore interface {
	GetConversationTurnCount(ctx context.Context, conversationID string) (int, error)
	GetHistory(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	SaveCompletedTurn(ctx context.Context, conversationID, question string, answer domain.Completion, turns int) error
}

type ChatConfig struct {
	Model           string
	MaxContextItems int
	MaxQuestionLen  int
	// MaxTurns caps the turns of one conversation.
	MaxTurns int
	Moderate bool
}

type ChatService struct {
	llm             Completer
	state           ConversationStore
	model           string
	maxContextItems int
	maxQuestionLen  int
	maxTurns        int
	moderate        bool
}

type AskInput struct {
	Question       string
	ConversationID string
	System         string
}

type AskOutput struct {
	Answer         string
	ConversationID string
	Model          string
	Usage          domain.Usage
}

func NewChatService(llm Completer, s ConversationStore, cfg ChatConfig) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: conversation store must not be nil")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("usecase: chat model must not be empty")
	}
	if cfg.MaxContextItems <= 0 {
		cfg.MaxContextItems = defaultMaxContext
	}
	if cfg.MaxQuestionLen <= 0 {
		cfg.MaxQuestionLen = defaultMaxQuestion
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaultMaxTurns
	}
	return &ChatService{
		llm:             llm,
		state:           s,
		model:           model,
		maxContextItems: cfg.MaxContextItems,
		maxQuestionLen:  cfg.MaxQuestionLen,
		maxTurns:        cfg.MaxTurns,
		moderate:        cfg.Moderate,
	}, nil
}

func (s *ChatService) Ask(ctx context.Context, in AskInput) (AskOutput, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return AskOutput{}, newError(ErrorInvalidInput, "empty_question", nil)
	}
	if len(question) > s.maxQuestionLen {
		return AskOutput{}, newError(ErrorInvalidInput, "question_too_long", nil)
	}

	convID := strings.TrimSpace(in.ConversationID)
	existingTurns := 0
	if convID == "" {
		convID = newUUID()
	} else {
		turnCount, err := s.state.GetConversationTurnCount(ctx, convID)
		if err != nil {
			return AskOutput{}, newError(ErrorInternal, "turn_count_error", err)
		}
		existingTurns = turnCount
		if existingTurns >= s.maxTurns {
			return AskOutput{}, newError(ErrorInvalidInput, "conversation_turn_limit", nil)
		}
	}

	if s.moderate {
		flagged, err := s.llm.Moderate(ctx, question)
		if err != nil {
			return AskOutput{}, upstreamError("moderation", err)
		}
		if flagged {
			return AskOutput{}, newError(ErrorInvalidQuestion, "moderation_flagged", nil)
		}
	}

	history, err := s.state.GetHistory(ctx, convID, s.maxContextItems)
	if err != nil {
		return AskOutput{}, newError(ErrorInternal, "history_error", err)
	}

	completion, err := s.llm.Chat(ctx, s.model, buildChatMessages(in.System, question, history))
	if err != nil {
		return AskOutput{}, upstreamError("llm", err)
	}
	if strings.TrimSpace(completion.Content) == "" {
		return AskOutput{}, newError(ErrorUpstream, "llm_empty_answer", nil)
	}

	if err := s.state.SaveCompletedTurn(ctx, convID, question, completion, existingTurns+1); err != nil {
		return AskOutput{}, newError(ErrorInternal, "state_write_error", err)
	}

	return AskOutput{
		Answer:         completion.Content,
		ConversationID: convID,
		Model:          completion.Model,
		Usage:          completion.Usage,
	}, nil
}

var newUUID = func() string {
	return uuid.NewString()
}
