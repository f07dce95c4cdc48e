// Package api exposes the assistant over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/nidhogg/campus-assistant/internal/agent"
	"github.com/nidhogg/campus-assistant/internal/gateway"
	"github.com/nidhogg/campus-assistant/internal/identity"
	"github.com/nidhogg/campus-assistant/internal/memory"
	"github.com/nidhogg/campus-assistant/internal/router"
	"github.com/nidhogg/campus-assistant/internal/store"
	"go.uber.org/zap"
)

const serviceName = "campus-assistant"

// maxChatBody bounds a chat request body.
const maxChatBody = 64 << 10

// Assistant answers and forgets conversations. *router.MessageRouter
// implements it.
type Assistant interface {
	Handle(ctx context.Context, in router.Inbound) (*router.Outcome, error)
	Cleanup(ctx context.Context, userID, conversationID string) (bool, int, error)
}

// History reads stored transcripts. *store.Store implements it.
type History interface {
	ListConversations(ctx context.Context, userID string, limit int) ([]store.Conversation, error)
	Conversation(ctx context.Context, id string) (*store.Conversation, error)
	Messages(ctx context.Context, conversationID string) ([]store.Message, error)
}

// StatsSource reports memory usage. *memory.Store implements it.
type StatsSource interface {
	Stats() memory.Stats
}

// Options configures a Handler. Auth is required; History and Gateway may
// be nil.
type Options struct {
	Auth           func(http.Handler) http.Handler
	History        History
	Stats          StatsSource
	Gateway        *gateway.Gateway
	Tenants        []*router.Tenant
	DefaultTenant  string
	AllowedOrigins []string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	assistant Assistant
	opts      Options
	logger    *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(assistant Assistant, opts Options, logger *zap.Logger) *Handler {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.Auth == nil {
		opts.Auth = denyAll
	}
	return &Handler{assistant: assistant, opts: opts, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/providers", h.listProviders)

		r.Group(func(r chi.Router) {
			r.Use(h.opts.Auth)
			r.Get("/profile", h.profile)
			r.Get("/stats", h.stats)

			r.Post("/chat", h.chat)
			r.Get("/chat/history", h.history)
			r.Get("/chat/{id}/messages", h.messages)
			r.Delete("/chat/{id}/cleanup", h.cleanup)
		})
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
}

type providerInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	URL         string                 `json:"url,omitempty"`
	Agents      []agent.Specialization `json:"agents"`
	Default     bool                   `json:"default"`
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	out := make([]providerInfo, 0, len(h.opts.Tenants))
	for _, t := range h.opts.Tenants {
		out = append(out, providerInfo{
			Name:        t.Name,
			Description: t.Description,
			URL:         t.URL,
			Agents:      t.Specializations(),
			Default:     t.Name == h.opts.DefaultTenant,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	user, _ := identity.UserFrom(r.Context())
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{}
	if h.opts.Stats != nil {
		resp["memory"] = h.opts.Stats.Stats()
	}
	if h.opts.Gateway != nil {
		resp["adapters"] = h.opts.Gateway.StatusAll()
	}
	writeJSON(w, http.StatusOK, resp)
}

type chatRequest struct {
	Message  string `json:"message"`
	Provider string `json:"provider"`
	ChatID   string `json:"chat_id,omitempty"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Provider == "" {
		req.Provider = h.opts.DefaultTenant
	}
	user, _ := identity.UserFrom(r.Context())

	out, err := h.assistant.Handle(r.Context(), router.Inbound{
		ConversationID: req.ChatID,
		UserID:         user.ID,
		Tenant:         req.Provider,
		Message:        req.Message,
		Auth:           identity.TokenFrom(r.Context()),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type conversationItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Tenant    string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	if h.opts.History == nil {
		writeError(w, http.StatusServiceUnavailable, "conversation history is not available")
		return
	}
	user, _ := identity.UserFrom(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	convs, err := h.opts.History.ListConversations(r.Context(), user.ID, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]conversationItem, len(convs))
	for i, c := range convs {
		out[i] = conversationItem{ID: c.ID, Title: c.Title, Tenant: c.Tenant, CreatedAt: c.CreatedAt}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) messages(w http.ResponseWriter, r *http.Request) {
	if h.opts.History == nil {
		writeError(w, http.StatusServiceUnavailable, "conversation history is not available")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		h.fail(w, router.ErrInvalidConversationID)
		return
	}
	user, _ := identity.UserFrom(r.Context())

	c, err := h.opts.History.Conversation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && c.UserID != user.ID) {
		h.fail(w, router.ErrConversationNotFound)
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}

	msgs, err := h.opts.History.Messages(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *Handler) cleanup(w http.ResponseWriter, r *http.Request) {
	user, _ := identity.UserFrom(r.Context())
	cleared, active, err := h.assistant.Cleanup(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	msg := "Memoria de la conversación eliminada"
	if !cleared {
		msg = "La conversación no tenía memoria activa"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":         msg,
		"active_sessions": active,
	})
}

// fail maps domain errors to HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, router.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message is required")
	case errors.Is(err, router.ErrUnknownTenant):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, router.ErrInvalidConversationID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, router.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "authentication is not configured")
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
