package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datachat/datachat/internal/config"
	"github.com/datachat/datachat/internal/observability"
	"github.com/datachat/datachat/internal/pipeline"
	"github.com/datachat/datachat/internal/storage"
	"github.com/datachat/datachat/internal/store"
)

type ReadinessCheck func(ctx context.Context) error

// TableStore is the slice of the relational store the table lifecycle
// endpoints need.
type TableStore interface {
	Snapshot(ctx context.Context) ([]store.Table, error)
	CreateTableFromCSV(ctx context.Context, tableName, csvPath string) (int64, error)
	DropTable(ctx context.Context, tableName string) error
}

type ConversationStore interface {
	RecentConversations(ctx context.Context, now time.Time) ([]store.Conversation, int64, error)
}

type QuestionService interface {
	Ask(ctx context.Context, question string) (pipeline.Answer, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Tables            TableStore
	Conversations     ConversationStore
	Pipeline          QuestionService
	Archive           storage.ObjectStore
	Now               func() time.Time
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "Server is running", "app": cfg.Service.Name})
	})

	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /upload/csv", func(w http.ResponseWriter, r *http.Request) {
		handleUploadCSV(deps, w, r)
	})
	mux.HandleFunc("POST /remove/{name}", func(w http.ResponseWriter, r *http.Request) {
		handleRemove(deps, w, r)
	})
	mux.HandleFunc("POST /query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})
	mux.HandleFunc("GET /conversations", func(w http.ResponseWriter, r *http.Request) {
		handleConversations(deps, w, r)
	})

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	middlewares = append(middlewares,
		corsMiddleware(cfg.CORS.AllowedOrigins),
		recoverMiddleware(deps.Logger),
	)
	return chain(mux, middlewares...)
}

// recoverMiddleware converts a panic into the generic failure payload.
// Nothing is allowed to crash the handling process; the stack goes to the
// server log only.
func recoverMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					if logger != nil {
						logger.ErrorContext(r.Context(), "handler panic",
							slog.Any("panic", recovered),
							slog.String("path", r.URL.Path),
							slog.String("stack", string(debug.Stack())),
						)
					}
					writeJSON(w, http.StatusInternalServerError, errorResponse{
						Error:      "Failed to process your question",
						Suggestion: "Please try asking in a different way or check your question for typos",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

type errorResponse struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
	SQLQuery   string `json:"sql_query,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (d Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
