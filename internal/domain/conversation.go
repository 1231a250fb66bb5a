package domain

// Turn statuses. Only complete turns are replayed as chat history.
const (
	TurnComplete = "complete"
	TurnPending  = "pending"
)

// Message is a single persisted conversation turn: the user's question and
// the assistant's answer, plus the tokens the completion consumed.
type Message struct {
	PK             string
	SK             string
	ConversationID string
	Text           string
	Answer         string
	Model          string
	Tokens         int
	Status         string
	TTL            int64
}

// ConversationMeta stores aggregate conversation state.
type ConversationMeta struct {
	PK             string
	SK             string
	ConversationID string
	LastActivity   string
	Turns          int
	TTL            int64
}
