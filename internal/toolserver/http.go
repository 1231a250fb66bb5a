package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"llm-toolbox/internal/metrics"
	"llm-toolbox/internal/usecase"
)

const defaultShutdownTimeout = 10 * time.Second

// callRequest is the REST body of POST /tools/:name.
type callRequest struct {
	Arguments json.RawMessage `json:"arguments"`
}

type textContent struct {
	Text string `json:"text"`
}

type callResponse struct {
	Content []textContent `json:"content"`
}

type HTTPServer struct {
	addr            string
	tools           Tools
	mcp             *mcp.Server
	metrics         *metrics.Metrics
	limiter         Limiter
	shutdownTimeout time.Duration
}

type HTTPOption func(*HTTPServer)

func WithMetrics(m *metrics.Metrics) HTTPOption {
	return func(s *HTTPServer) { s.metrics = m }
}

// WithLimiter rate-limits POST /tools/:name.
func WithLimiter(l Limiter) HTTPOption {
	return func(s *HTTPServer) { s.limiter = l }
}

func WithShutdownTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPServer) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// NewHTTPServer serves tools over REST and mcpServer (when non-nil) over
// streamable HTTP at /mcp.
func NewHTTPServer(addr string, tools Tools, mcpServer *mcp.Server, opts ...HTTPOption) *HTTPServer {
	s := &HTTPServer{
		addr:            addr,
		tools:           tools,
		mcp:             mcpServer,
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog())
	if s.metrics != nil {
		r.Use(observe(s.metrics))
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	tools := r.Group("/tools")
	tools.GET("", s.listTools)
	call := []gin.HandlerFunc{s.callTool}
	if s.limiter != nil {
		call = append([]gin.HandlerFunc{rateLimit(s.limiter, s.metrics)}, call...)
	}
	tools.POST("/:name", call...)
	tools.GET("/:name/calls", s.recentCalls)

	if s.mcp != nil {
		h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
		r.Any("/mcp", gin.WrapH(h))
	}
	return r
}

// Run listens until ctx is cancelled, then drains in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("toolserver: listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	slog.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("toolserver: shutdown: %w", err)
	}
	return nil
}

func (s *HTTPServer) listTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": s.tools.List()})
}

func (s *HTTPServer) callTool(c *gin.Context) {
	var req callRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}

	out, err := s.tools.Call(c.Request.Context(), c.Param("name"), req.Arguments)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, callResponse{Content: []textContent{{Text: out}}})
}

func (s *HTTPServer) recentCalls(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	calls, err := s.tools.RecentCalls(c.Request.Context(), c.Param("name"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": calls})
}

func writeError(c *gin.Context, err error) {
	code, reason := usecase.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		slog.Error("tool call failed", "code", code, "reason", reason, "err", err,
			"request_id", c.GetString(requestIDKey))
	}
	c.JSON(status, gin.H{"error": errorMessage(err), "code": code})
}

// errorMessage strips the usecase envelope so clients see the cause.
func errorMessage(err error) string {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		return err.Error()
	}
	if ue.Err != nil {
		return ue.Err.Error()
	}
	return ue.Reason
}
