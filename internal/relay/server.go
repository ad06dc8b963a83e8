package relay

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog"
)

// Server exposes the relay over HTTP: webhook ingestion for the inbound
// email collaborator, code queries for polling authenticators.
type Server struct {
	store   *Store
	router  chi.Router
	started time.Time
}

// WebhookPayload accepts the field spellings the email relay may send.
// Sender and subject are required; the body may arrive under any of
// body-plain, stripped-text, or body.
type WebhookPayload struct {
	Sender       string `json:"sender"`
	Subject      string `json:"subject"`
	Recipient    string `json:"recipient,omitempty"`
	BodyPlain    string `json:"body-plain,omitempty"`
	StrippedText string `json:"stripped-text,omitempty"`
	Body         string `json:"body,omitempty"`
}

func (p *WebhookPayload) bodyText() string {
	if p.BodyPlain != "" {
		return p.BodyPlain
	}
	if p.StrippedText != "" {
		return p.StrippedText
	}
	return p.Body
}

func NewServer(store *Store) *Server {
	s := &Server{
		store:   store,
		started: time.Now(),
	}

	logger := httplog.NewLogger("otp-relay", httplog.Options{
		JSON:    true,
		Concise: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))

	r.Post("/webhook", s.handleWebhook)
	r.Get("/code/latest", s.handleLatest)
	r.Post("/code/{id}/use", s.handleUse)
	r.Get("/codes", s.handleList)
	r.Get("/health", s.handleHealth)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "invalid JSON payload",
		})
		return
	}

	// Malformed ingestion is rejected before it reaches the store.
	if payload.Sender == "" || payload.Subject == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"message": "sender and subject are required",
		})
		return
	}

	code := ExtractCode(payload.bodyText(), payload.Subject)
	if code == "" {
		// Well-formed email without an extractable code is not an error.
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "no code found in message",
		})
		return
	}

	id := s.store.AddCode(code, payload.Sender, payload.Subject, payload.bodyText())
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "code stored",
		"codeId":  id,
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	minAge := time.Duration(0)
	if raw := r.URL.Query().Get("minAgeMs"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"message": "minAgeMs must be a non-negative integer",
			})
			return
		}
		minAge = time.Duration(ms) * time.Millisecond
	}

	entry := s.store.LatestCode(minAge)
	if entry == nil {
		// "Nothing found" is a normal response, never a transport error.
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": "no valid codes found",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"code":      entry.Code,
		"id":        entry.ID,
		"timestamp": entry.CreatedAt.Format(time.RFC3339),
		"sender":    entry.Sender,
		"subject":   entry.Subject,
	})
}

func (s *Server) handleUse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.MarkUsed(id) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"message": "code entry not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleList serves metadata only. Code values are never exposed here.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries := s.store.Entries()
	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, map[string]any{
			"id":        e.ID,
			"sender":    e.Sender,
			"subject":   e.Subject,
			"createdAt": e.CreatedAt.Format(time.RFC3339),
			"expiresAt": e.ExpiresAt.Format(time.RFC3339),
			"used":      e.Used,
		})
	}

	stats := s.store.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"codes":  items,
		"total":  stats.Total,
		"active": stats.Active,
		"used":   stats.Used,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.store.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"uptimeMs": time.Since(s.started).Milliseconds(),
		"stats":    stats,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
