package domain

import "time"

// ToolInfo describes a callable tool as advertised by the tool server.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ToolCall is a journal record of one tool invocation.
type ToolCall struct {
	ID         string    `json:"id"`
	Tool       string    `json:"tool"`
	Arguments  string    `json:"arguments"`
	Output     string    `json:"output,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"durationMs"`
	At         time.Time `json:"at"`
	TTL        int64     `json:"-"`
}
