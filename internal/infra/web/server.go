package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/usecase"
)

// Server is the operator API: exchange the admin key for a session token,
// then read bot statistics. It mounts onto the main router.
type Server struct {
	statsUC usecase.StatsUseCase
	auth    *AuthManager
	log     *zerolog.Logger
}

func NewServer(statsUC usecase.StatsUseCase, auth *AuthManager, logger *zerolog.Logger) *Server {
	return &Server{statsUC: statsUC, auth: auth, log: logger}
}

// Register mounts the admin routes. When auth is not configured every route
// answers 403 rather than running open.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/v1/login", s.handleLogin)
	r.Get("/api/v1/stats", s.requireAdmin(s.handleStats))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Enabled() {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	token, err := s.auth.Exchange(req.APIKey)
	if err != nil {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("admin login rejected")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.statsUC.Snapshot(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("stats snapshot failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.Enabled() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
