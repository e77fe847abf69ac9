package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/OmChillure/modern-chat/internal/models"
	"github.com/OmChillure/modern-chat/internal/services"
	"github.com/OmChillure/modern-chat/internal/views"
	"github.com/google/uuid"
)

// HandleChat streams the agent's answer to a chat message. Every chunk is written and flushed as it
// arrives. Once streaming has started the status can't change, so upstream failures are written into the
// stream as a JSON error object.
func (m Main) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message *string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == nil {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	chatReq := models.ChatRequest{Message: *req.Message}

	userID := uuid.NewString()
	logger := m.logger.With().Str("user", userID).Logger()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)

	chunks := 0
	for chunk, err := range m.agent.Stream(r.Context(), chatReq.Message, userID) {
		if err != nil {
			payload := m.errorPayload(err)
			logger.Error().Err(err).Str("payload", payload).Msg("upstream failed")
			if _, err := io.WriteString(w, payload); err != nil {
				return
			}
			_ = rc.Flush()
			return
		}

		if _, err := io.WriteString(w, chunk); err != nil {
			logger.Debug().Err(err).Msg("client went away")
			return
		}
		if err := rc.Flush(); err != nil {
			logger.Warn().Err(err).Msg("flush failed")
		}
		chunks++
	}

	logger.Debug().Int("chunks", chunks).Msg("stream finished")
}

// errorPayload formats err the way the stream reports upstream failures, e.g.
// ` {"error": "Dify API error", "status": 500}` followed by a blank line.
func (m Main) errorPayload(err error) string {
	var se *services.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf(" {\"error\": %s, \"status\": %d}\n\n", jsonString(se.Provider+" API error"), se.Code)
	}

	var msg string
	var re *services.RequestError
	switch {
	case services.IsTimeout(err):
		msg = fmt.Sprintf("Request to %s API timed out", m.provider)
	case errors.As(err, &re):
		msg = "Request error: " + re.Err.Error()
	default:
		msg = "An error occurred: " + err.Error()
	}
	return fmt.Sprintf(" {\"error\": %s}\n\n", jsonString(msg))
}

// HandlePage renders the read-only page shell. Chatting happens through POST /chat from the terminal client.
func (m Main) HandlePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := m.views.Render(w, views.Page{Title: m.title}); err != nil {
		m.logger.Error().Err(err).Msg("failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func jsonString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
