package handlers

import (
	"context"
	"iter"
	"net/http"
	"time"

	modernchat "github.com/OmChillure/modern-chat"
	"github.com/OmChillure/modern-chat/internal/views"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Agent is an upstream chat agent. Stream sends a single message on behalf of userID and yields the answer
// in chunks. Iteration stops after the first error.
type Agent interface {
	Stream(ctx context.Context, message, userID string) iter.Seq2[string, error]
}

// Main serves the chat endpoint and the page shell.
type Main struct {
	agent    Agent
	provider string
	views    views.Views
	title    string

	logger zerolog.Logger
}

// NewMain creates the handlers for agent. provider names the agent in error payloads, e.g. "Dify".
func NewMain(agent Agent, provider string, logger zerolog.Logger) (Main, error) {
	v, err := views.New()
	if err != nil {
		return Main{}, err
	}

	return Main{
		agent:    agent,
		provider: provider,
		views:    v,
		title:    "Modern Chat",
		logger:   logger.With().Str("module", "handlers").Logger(),
	}, nil
}

// Routes returns the router of the server.
func (m Main) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(m.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/", m.HandlePage)
	r.Get("/chat", m.HandlePage)
	r.Post("/chat", m.HandleChat)
	r.Handle("/static/*", http.FileServerFS(modernchat.StaticFS))

	return r
}

func (m Main) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		m.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
