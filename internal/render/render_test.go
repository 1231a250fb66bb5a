package render

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"llm-toolbox/internal/domain"
)

func TestNew_Styles(t *testing.T) {
	for _, style := range []string{"", "auto", "dark", "LIGHT", "notty"} {
		_, err := New(Options{Style: style})
		require.NoError(t, err, style)
	}
	_, err := New(Options{Style: "neon"})
	require.ErrorContains(t, err, "unknown style")
}

func TestMarkdown(t *testing.T) {
	r, err := New(Options{Style: StyleNoTTY, Width: 40})
	require.NoError(t, err)

	out, err := r.Markdown("# Dice\n\nRoll **2d6**.")
	require.NoError(t, err)
	require.Contains(t, out, "Dice")
	require.Contains(t, out, "2d6")
}

func TestCompletion_AppendsFooter(t *testing.T) {
	r, err := New(Options{Style: StyleNoTTY})
	require.NoError(t, err)

	out, err := r.Completion(domain.Completion{
		Content: "Roses are red.",
		Model:   "gpt-mock",
		Usage:   domain.Usage{PromptTokens: 12, CompletionTokens: 30, TotalTokens: 42},
	})
	require.NoError(t, err)
	require.Contains(t, out, "Roses are red.")
	require.Contains(t, out, "gpt-mock")
	require.Contains(t, out, "12 prompt / 30 completion / 42 total tokens")
}

func TestFooter_UnknownModel(t *testing.T) {
	require.Contains(t, Footer(domain.Completion{}), "unknown model")
}

func TestMarkdown_Concurrent(t *testing.T) {
	r, err := New(Options{Style: StyleNoTTY})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Markdown("*poem*")
		}()
	}
	wg.Wait()
}
