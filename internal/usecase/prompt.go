package usecase

import (
	"strings"

	"llm-toolbox/internal/domain"
)

const (
	defaultSystemPrompt = "You are a helpful assistant."
	defaultPoemTheme    = "artificial intelligence"
)

// PoemPrompt is the single user message sent to the poem model.
func PoemPrompt(theme string) string {
	return "write a poem about " + theme
}

func buildChatMessages(system, question string, history []domain.Message) []domain.ChatMessage {
	system = strings.TrimSpace(system)
	if system == "" {
		system = defaultSystemPrompt
	}
	messages := []domain.ChatMessage{domain.SystemMessage(system)}
	for _, m := range history {
		messages = append(messages, historyToPromptMessages(m)...)
	}
	return append(messages, domain.UserMessage(question))
}

func historyToPromptMessages(m domain.Message) []domain.ChatMessage {
	if m.Status != domain.TurnComplete {
		return nil
	}
	question := strings.TrimSpace(m.Text)
	answer := strings.TrimSpace(m.Answer)
	if question == "" || answer == "" {
		return nil
	}
	return []domain.ChatMessage{
		domain.UserMessage(question),
		domain.AssistantMessage(answer),
	}
}
