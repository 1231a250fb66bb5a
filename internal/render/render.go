// Package render pretty-prints model output for the terminal.
package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"llm-toolbox/internal/domain"
)

const (
	StyleAuto  = "auto"
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"

	defaultWidth = 80
)

type Options struct {
	Style string
	Width int
}

// Renderer wraps a glamour renderer. glamour.TermRenderer is not safe for
// concurrent Render calls, so access is serialized.
type Renderer struct {
	mu sync.Mutex
	tr *glamour.TermRenderer
}

func New(opts Options) (*Renderer, error) {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	style, err := styleOption(opts.Style)
	if err != nil {
		return nil, err
	}
	tr, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(opts.Width))
	if err != nil {
		return nil, fmt.Errorf("render: new renderer: %w", err)
	}
	return &Renderer{tr: tr}, nil
}

func styleOption(style string) (glamour.TermRendererOption, error) {
	switch strings.ToLower(strings.TrimSpace(style)) {
	case "", StyleAuto:
		return glamour.WithAutoStyle(), nil
	case StyleDark, StyleLight, StyleNoTTY:
		return glamour.WithStandardStyle(strings.ToLower(strings.TrimSpace(style))), nil
	default:
		return nil, fmt.Errorf("render: unknown style %q", style)
	}
}

func (r *Renderer) Markdown(md string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, err := r.tr.Render(md)
	if err != nil {
		return "", fmt.Errorf("render: markdown: %w", err)
	}
	return out, nil
}

// Completion renders the answer followed by a usage footer.
func (r *Renderer) Completion(c domain.Completion) (string, error) {
	body, err := r.Markdown(c.Content)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(body, "\n") + "\n\n" + Footer(c) + "\n", nil
}

// Footer summarizes model and token usage, e.g.
// "gpt-4o-mini · 12 prompt / 30 completion / 42 total tokens".
func Footer(c domain.Completion) string {
	model := c.Model
	if model == "" {
		model = "unknown model"
	}
	text := fmt.Sprintf("%s · %d prompt / %d completion / %d total tokens",
		model, c.Usage.PromptTokens, c.Usage.CompletionTokens, c.Usage.TotalTokens)
	return SubtleStyle.Render(text)
}
