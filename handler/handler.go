package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"llm-toolbox/internal/domain"
	"llm-toolbox/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type ChatUseCase interface {
	Ask(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error)
}

type ToolUseCase interface {
	List() []domain.ToolInfo
	Call(ctx context.Context, name string, raw json.RawMessage) (string, error)
}

type askRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId"`
}

type askResponse struct {
	Answer         string       `json:"answer"`
	ConversationID string       `json:"conversationId"`
	Model          string       `json:"model,omitempty"`
	Usage          domain.Usage `json:"usage"`
}

type toolsResponse struct {
	Tools []domain.ToolInfo `json:"tools"`
}

type callRequest struct {
	Arguments json.RawMessage `json:"arguments"`
}

type textContent struct {
	Text string `json:"text"`
}

type callResponse struct {
	Content []textContent `json:"content"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type Handler struct {
	chat  ChatUseCase
	tools ToolUseCase
}

func NewHandler(chat ChatUseCase, tools ToolUseCase) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	if tools == nil {
		return nil, errors.New("handler: tool use case must not be nil")
	}
	return &Handler{chat: chat, tools: tools}, nil
}

// Handle routes an API Gateway proxy event. Failures are reported in the
// response; the returned error is always nil so Lambda does not retry.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := headerValue(event.Headers, correlationHeader)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	log := slog.With("correlation_id", corrID, "method", event.HTTPMethod, "path", event.Path)

	path := "/" + strings.Trim(event.Path, "/")
	var resp events.APIGatewayProxyResponse
	switch {
	case path == "/tools":
		if event.HTTPMethod != http.MethodGet {
			resp = methodNotAllowed()
			break
		}
		resp = jsonResponse(http.StatusOK, toolsResponse{Tools: h.tools.List()})
	case strings.HasPrefix(path, "/tools/"):
		if event.HTTPMethod != http.MethodPost {
			resp = methodNotAllowed()
			break
		}
		resp = h.callTool(ctx, log, toolName(event, path), event.Body)
	case path == "/chat" || path == "/ask":
		if event.HTTPMethod != http.MethodPost {
			resp = methodNotAllowed()
			break
		}
		resp = h.ask(ctx, log, event.Body)
	default:
		resp = jsonResponse(http.StatusNotFound, errorResponse{Error: string(usecase.ErrorNotFound), Reason: "unknown_route"})
	}

	resp.Headers[correlationHeader] = corrID
	return resp, nil
}

func (h *Handler) ask(ctx context.Context, log *slog.Logger, body string) events.APIGatewayProxyResponse {
	var req askRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_body"})
	}
	out, err := h.chat.Ask(ctx, usecase.AskInput{Question: req.Question, ConversationID: req.ConversationID})
	if err != nil {
		return errorFrom(log, err)
	}
	return jsonResponse(http.StatusOK, askResponse{
		Answer:         out.Answer,
		ConversationID: out.ConversationID,
		Model:          out.Model,
		Usage:          out.Usage,
	})
}

func (h *Handler) callTool(ctx context.Context, log *slog.Logger, name, body string) events.APIGatewayProxyResponse {
	var req callRequest
	if strings.TrimSpace(body) != "" {
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			return jsonResponse(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_body"})
		}
	}
	out, err := h.tools.Call(ctx, name, req.Arguments)
	if err != nil {
		return errorFrom(log, err)
	}
	return jsonResponse(http.StatusOK, callResponse{Content: []textContent{{Text: out}}})
}

func errorFrom(log *slog.Logger, err error) events.APIGatewayProxyResponse {
	code, reason := usecase.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "code", code, "reason", reason, "err", err)
	} else {
		log.Info("request rejected", "code", code, "reason", reason)
	}
	return jsonResponse(status, errorResponse{Error: string(code), Reason: reason})
}

func toolName(event events.APIGatewayProxyRequest, path string) string {
	if name := event.PathParameters["name"]; name != "" {
		return name
	}
	return strings.TrimPrefix(path, "/tools/")
}

func methodNotAllowed() events.APIGatewayProxyResponse {
	return jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "method_not_allowed"})
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
