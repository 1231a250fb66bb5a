package toolclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"llm-toolbox/internal/domain"
)

const (
	DefaultBaseURL = "http://localhost:8000"

	noOutput       = "No output"
	defaultTimeout = 2 * time.Minute
)

// StatusError is a non-2xx reply from the REST tool routes.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("toolclient: status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// HTTP is a client for the REST routes under /tools.
type HTTP struct {
	baseURL    string
	httpClient *http.Client
}

type HTTPOption func(*HTTP)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.httpClient = c
		}
	}
}

func NewHTTP(baseURL string, opts ...HTTPOption) *HTTP {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	h := &HTTP{baseURL: baseURL, httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTP) ListTools(ctx context.Context) ([]domain.ToolInfo, error) {
	body, err := h.do(ctx, http.MethodGet, h.baseURL+"/tools", nil)
	if err != nil {
		return nil, fmt.Errorf("toolclient: list tools: %w", err)
	}
	var tools []domain.ToolInfo
	gjson.GetBytes(body, "tools").ForEach(func(_, v gjson.Result) bool {
		tools = append(tools, domain.ToolInfo{
			Name:        v.Get("name").String(),
			Description: v.Get("description").String(),
		})
		return true
	})
	return tools, nil
}

// CallTool posts {"arguments": args} and returns content[0].text, or
// "No output" when the server sent none.
func (h *HTTP) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	payload, err := json.Marshal(map[string]any{"arguments": args})
	if err != nil {
		return "", fmt.Errorf("toolclient: encode arguments: %w", err)
	}
	body, err := h.do(ctx, http.MethodPost, h.baseURL+"/tools/"+name, payload)
	if err != nil {
		return "", fmt.Errorf("toolclient: call %s: %w", name, err)
	}
	text := gjson.GetBytes(body, "content.0.text")
	if !text.Exists() {
		return noOutput, nil
	}
	return text.String(), nil
}

func (h *HTTP) GeneratePoem(ctx context.Context, theme string) (string, error) {
	return h.CallTool(ctx, "poet", map[string]any{"theme": theme})
}

func (h *HTTP) RollDice(ctx context.Context, notation string, numRolls int) (string, error) {
	return h.CallTool(ctx, "roll_dice", map[string]any{"notation": notation, "num_rolls": numRolls})
}

func (h *HTTP) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(body, "error").String()
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	return body, nil
}
