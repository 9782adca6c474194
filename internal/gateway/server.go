// Package gateway exposes the slash commands over a small HTTP API.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MEKXH/funbot/internal/bus"
	"github.com/MEKXH/funbot/internal/command"
	"github.com/MEKXH/funbot/internal/config"
	"github.com/MEKXH/funbot/internal/help"
	"github.com/MEKXH/funbot/internal/version"
)

// maxCommandBodyBytes bounds a POST /command request body.
const maxCommandBodyBytes = 64 << 10

// CommandProcessor runs slash commands and describes them.
// *dispatch.Dispatcher implements it.
type CommandProcessor interface {
	Process(ctx context.Context, channel, chatID, senderID, content string) (string, error)
	HelpTrees() []*help.Node
}

type Server struct {
	cfg        config.GatewayConfig
	processor  CommandProcessor
	gatherer   prometheus.Gatherer
	httpServer *http.Server
}

func New(cfg config.GatewayConfig, processor CommandProcessor) *Server {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 18791
	}

	cfg.Host = host
	cfg.Port = port
	return &Server{
		cfg:       cfg,
		processor: processor,
	}
}

func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// SetMetrics exposes gatherer at /metrics on the next Start.
func (s *Server) SetMetrics(gatherer prometheus.Gatherer) {
	s.gatherer = gatherer
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           NewHandlerWithMetrics(s.cfg.Token, s.processor, s.gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("gateway listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// NewHandler builds the gateway routes.
func NewHandler(token string, processor CommandProcessor) http.Handler {
	return NewHandlerWithMetrics(token, processor, nil)
}

// NewHandlerWithMetrics is NewHandler plus a Prometheus /metrics endpoint
// when gatherer is non-nil.
func NewHandlerWithMetrics(token string, processor CommandProcessor, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, getRequestID(r), http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, getRequestID(r), http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"request_id": getRequestID(r),
		})
	})
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		info := version.Get()
		writeJSON(w, http.StatusOK, map[string]any{
			"version":    info.Version,
			"commit":     info.Commit,
			"platform":   info.Platform,
			"request_id": getRequestID(r),
		})
	})
	r.Get("/help", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		if processor == nil {
			writeError(w, requestID, http.StatusInternalServerError, "internal_error", "command processor is not configured")
			return
		}

		name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("command"))), "/")
		tree := findTree(processor.HelpTrees(), name)
		if tree == nil {
			writeError(w, requestID, http.StatusNotFound, "not_found", fmt.Sprintf("unknown command %q", name))
			return
		}

		text := tree.Render()
		if r.URL.Query().Get("format") == "text" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Request-ID", requestID)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(text))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"command":    name,
			"help":       text,
			"request_id": requestID,
		})
	})
	r.With(requireToken(token)).Post("/command", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)

		var req struct {
			Command  string `json:"command"`
			ChatID   string `json:"chat_id"`
			SenderID string `json:"sender_id"`
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxCommandBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, requestID, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
				return
			}
			writeError(w, requestID, http.StatusBadRequest, "bad_request", "invalid json request")
			return
		}
		content := strings.TrimSpace(req.Command)
		if content == "" {
			writeError(w, requestID, http.StatusBadRequest, "bad_request", "command is required")
			return
		}
		if !strings.HasPrefix(content, "/") {
			content = "/" + content
		}
		chatID := strings.TrimSpace(req.ChatID)
		if chatID == "" {
			chatID = "default"
		}
		senderID := strings.TrimSpace(req.SenderID)
		if senderID == "" {
			senderID = "api"
		}

		if processor == nil {
			writeError(w, requestID, http.StatusInternalServerError, "internal_error", "command processor is not configured")
			return
		}

		ctx := bus.WithRequestID(r.Context(), requestID)
		resp, err := processor.Process(ctx, "gateway", chatID, senderID, content)
		if err != nil {
			slog.Error("gateway command failed", "request_id", requestID, "chat_id", chatID, "error", err)
			writeError(w, requestID, http.StatusInternalServerError, "internal_error", "failed to process command")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"response":   resp,
			"chat_id":    chatID,
			"request_id": requestID,
		})
	})
	if gatherer != nil {
		r.With(requireToken(token)).Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// requireToken rejects requests without the bearer token. An empty token
// disables the check.
func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.TrimSpace(token) != "" && !isAuthorized(r, token) {
				writeError(w, getRequestID(r), http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// findTree returns the tree called name, or the overview of all trees when
// name is empty.
func findTree(trees []*help.Node, name string) *help.Node {
	if name == "" {
		return command.OverviewOf(trees)
	}
	for _, tree := range trees {
		if tree != nil && strings.EqualFold(tree.Name(), name) {
			return tree
		}
	}
	return nil
}

func isAuthorized(r *http.Request, expected string) bool {
	got := strings.TrimSpace(r.Header.Get("Authorization"))
	if got == "" {
		return false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(got, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(got, prefix))
	return token == expected
}

func getRequestID(r *http.Request) string {
	rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if rid != "" {
		return rid
	}
	return uuid.NewString()
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"code":       code,
		"message":    message,
		"request_id": requestID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
