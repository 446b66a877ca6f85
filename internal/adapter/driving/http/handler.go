package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/Wyydra/yacall/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/service"
)

type Options struct {
	AllowedOrigins []string
	// APISecret enables bearer token auth on every route but /health.
	APISecret string
}

type Handler struct {
	CallService *service.CallService
	Hub         *ws.Hub
	opts        Options
}

func NewHandler(callService *service.CallService, hub *ws.Hub, opts Options) *Handler {
	return &Handler{
		CallService: callService,
		Hub:         hub,
		opts:        opts,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(requireToken(h.opts.APISecret))

		r.Get("/ws", h.ServeWS)

		r.Route("/api", func(r chi.Router) {
			r.Get("/call", h.GetCall)
			r.Post("/call", h.StartCall)
			r.Post("/call/accept", h.AcceptCall)
			r.Post("/call/decline", h.DeclineCall)
			r.Post("/call/end", h.EndCall)
			r.Post("/call/mute", h.ToggleMute)
			r.Post("/call/video", h.ToggleVideo)
			r.Post("/call/reset", h.ForceReset)
			r.Get("/history", h.History)
			r.Post("/inbound", h.Inbound)
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   h.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type callView struct {
	domain.CallState
	Elapsed string `json:"elapsed,omitempty"`
}

func (h *Handler) GetCall(w http.ResponseWriter, r *http.Request) {
	state := h.CallService.State()
	view := callView{CallState: state}
	if state.Call != nil && state.Call.Status == domain.StatusConnected {
		view.Elapsed = domain.FormatDuration(state.Call.Elapsed(time.Now()))
	}
	writeJSON(w, http.StatusOK, view)
}

type startCallRequest struct {
	Peer string `json:"peer"`
	Kind string `json:"kind"`
}

func (h *Handler) StartCall(w http.ResponseWriter, r *http.Request) {
	var req startCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	call, err := h.CallService.StartCall(r.Context(), domain.PeerID(req.Peer), domain.MediaKind(req.Kind))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, call)
}

func (h *Handler) AcceptCall(w http.ResponseWriter, r *http.Request) {
	call, err := h.CallService.AcceptCall(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

func (h *Handler) DeclineCall(w http.ResponseWriter, r *http.Request) {
	if err := h.CallService.DeclineCall(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) EndCall(w http.ResponseWriter, r *http.Request) {
	if err := h.CallService.EndCall(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ToggleMute(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"muted": h.CallService.ToggleMute()})
}

func (h *Handler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"video_enabled": h.CallService.ToggleVideo()})
}

func (h *Handler) ForceReset(w http.ResponseWriter, r *http.Request) {
	h.CallService.ForceReset()
	w.WriteHeader(http.StatusNoContent)
}

type historyView struct {
	domain.CallHistoryEntry
	DurationLabel string `json:"duration_label,omitempty"`
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.CallService.History(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]historyView, 0, len(entries))
	for _, e := range entries {
		v := historyView{CallHistoryEntry: e}
		if e.Duration != nil {
			v.DurationLabel = domain.FormatDuration(*e.Duration)
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

type inboundRequest struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// Inbound accepts a message pushed by an external messaging bridge.
func (h *Handler) Inbound(w http.ResponseWriter, r *http.Request) {
	var req inboundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	msg, err := domain.NewMessage(domain.MessageID(req.ID), domain.PeerID(req.From), req.Content, req.SentAt)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Debug().Str("message_id", req.ID).Str("peer_id", req.From).Msg("Inbound message")
	h.CallService.HandleMessage(r.Context(), *msg)
	w.WriteHeader(http.StatusAccepted)
}
