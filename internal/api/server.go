// Package api exposes the command engine over HTTP. Every gameplay
// operation goes through POST /v1/commands; a few read-only views get
// GET routes of their own, and market shocks stream over a WebSocket.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"coinmint/internal/config"
	"coinmint/internal/engine"
	"coinmint/internal/metrics"
)

type Server struct {
	cfg    config.APIConfig
	log    *slog.Logger
	engine *engine.Engine
	hub    *Hub
	mux    *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, eng *engine.Engine, hub *Hub) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		log:    logger,
		engine: eng,
		hub:    hub,
		mux:    chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/commands", s.handleCommand)

		r.Get("/shop", s.handleShop)
		r.Get("/assets/{id}", s.handleAsset)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/accounts/{id}", s.handleAccount)

		if s.hub != nil {
			r.Get("/ws", s.hub.HandleWS)
		}
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd engine.Command
	if err := decodeJSON(r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res := s.engine.Execute(r.Context(), cmd)
	writeResult(w, res)
}

func (s *Server) handleShop(w http.ResponseWriter, r *http.Request) {
	s.runRead(w, r, engine.Command{AccountID: viewerID(r), Name: "shop"})
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	s.runRead(w, r, engine.Command{
		AccountID: viewerID(r),
		Name:      "price",
		Args:      map[string]any{"asset": chi.URLParam(r, "id")},
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.runRead(w, r, engine.Command{AccountID: viewerID(r), Name: "leaderboard"})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	s.runRead(w, r, engine.Command{AccountID: chi.URLParam(r, "id"), Name: "profile"})
}

func (s *Server) runRead(w http.ResponseWriter, r *http.Request, cmd engine.Command) {
	writeResult(w, s.engine.Execute(r.Context(), cmd))
}

// viewerID identifies the caller on read-only routes. The catch-all
// fallback keeps anonymous reads working without minting accounts.
func viewerID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Account-ID")); id != "" {
		return id
	}
	return "_viewer"
}

func writeResult(w http.ResponseWriter, res engine.Result) {
	if res.OK {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, statusFor(res.ErrKind), res)
}

// statusFor maps the engine's error taxonomy onto HTTP statuses.
func statusFor(kind engine.Kind) int {
	switch kind {
	case engine.KindInvalidArgument, engine.KindInsufficientFunds:
		return http.StatusBadRequest
	case engine.KindOnCooldown:
		return http.StatusTooManyRequests
	case engine.KindNotFound:
		return http.StatusNotFound
	case engine.KindSessionConflict, engine.KindConflict:
		return http.StatusConflict
	case engine.KindTimeout:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
