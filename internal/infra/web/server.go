package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"karaoke-subscription/internal/domain/model"
	"karaoke-subscription/internal/usecase"
)

type Server struct {
	reconcileUC   usecase.ReconcileUseCase
	accountUC     usecase.AccountUseCase
	webhookSecret string
	log           *zerolog.Logger
}

func NewServer(reconcileUC usecase.ReconcileUseCase, accountUC usecase.AccountUseCase, webhookSecret string, logger *zerolog.Logger) *Server {
	compLog := logger.With().Str("component", "web").Logger()
	return &Server{
		reconcileUC:   reconcileUC,
		accountUC:     accountUC,
		webhookSecret: webhookSecret,
		log:           &compLog,
	}
}

// Router builds the service routes. The webhook route matches every method
// on purpose: some gateways probe with GET/HEAD and expect 200.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/plans", s.handlePlans)
	r.Post("/api/auth/register", s.handleRegister)
	r.Post("/api/auth/login", s.handleLogin)
	r.Route("/api/karaoke", func(r chi.Router) {
		r.Use(s.requireSession)
		r.Post("/sala", s.handleCreateRoom)
		r.Post("/video", s.handleLoadVideo)
		r.Get("/fila", s.handleQueue)
	})
	r.HandleFunc("/api/webhook", s.handleWebhook)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "online",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handlePlans(w http.ResponseWriter, _ *http.Request) {
	type planOut struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		PriceBRL     int64  `json:"price_cents"`
		DurationDays int    `json:"duration_days"`
	}
	plans := model.Plans()
	out := make([]planOut, 0, len(plans))
	for _, p := range plans {
		out = append(out, planOut{ID: p.ID, Name: p.Name, PriceBRL: p.PriceBRL, DurationDays: p.DurationDays})
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": out})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
