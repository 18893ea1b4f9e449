// Package api exposes the HTTP surface: live per-source fetches, the recent
// postings read view, preference management and the cron trigger endpoints.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/bankradar/internal/adapter"
	"github.com/amishk599/bankradar/internal/model"
	"github.com/amishk599/bankradar/internal/ratelimit"
)

// Header names set by the auth collaborator in front of this service.
const (
	HeaderUserID = "X-User-ID"
	HeaderTier   = "X-Subscription-Tier"
	TierPro      = "pro"
)

// Runner runs one ingestion pass.
type Runner interface {
	Run(ctx context.Context) (model.RunSummary, error)
}

// Drainer delivers the notification queue.
type Drainer interface {
	Drain(ctx context.Context, now time.Time) (model.DispatchSummary, error)
}

// Config holds server settings.
type Config struct {
	CronSecret        string
	Last48h           time.Duration
	ThisWeek          time.Duration
	LiveFetchInterval time.Duration
}

// Deps are the collaborators behind the endpoints.
type Deps struct {
	Sources   []model.Source
	Freshness model.FreshnessStore
	Directory model.SubscriberDirectory
	Runner    Runner
	Drainer   Drainer
}

// Server serves the HTTP API.
type Server struct {
	deps    Deps
	cfg     Config
	limiter *ratelimit.KeyedLimiter
	now     func() time.Time
	logger  *slog.Logger
}

// NewServer creates the API server.
func NewServer(deps Deps, cfg Config, logger *slog.Logger) *Server {
	return &Server{
		deps:    deps,
		cfg:     cfg,
		limiter: ratelimit.NewKeyedLimiter(cfg.LiveFetchInterval),
		now:     time.Now,
		logger:  logger,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/jobs/{source}", s.handleLiveJobs)
	mux.HandleFunc("GET /api/jobs-new", s.handleJobsNew)
	mux.HandleFunc("GET /api/notifications", s.handleGetNotifications)
	mux.HandleFunc("POST /api/notifications", s.handleSaveNotifications)
	mux.HandleFunc("POST /api/cron/run", s.requireSecret(s.handleCronRun))
	mux.HandleFunc("POST /api/cron/send-notifications", s.requireSecret(s.handleCronSend))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireSecret rejects requests without the shared Bearer secret. An empty
// configured secret rejects everything.
func (s *Server) requireSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.checkSecret(r); err != nil {
			s.logger.Warn("rejected trigger", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) checkSecret(r *http.Request) error {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || s.cfg.CronSecret == "" {
		return model.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.CronSecret)) != 1 {
		return model.ErrUnauthorized
	}
	return nil
}

func (s *Server) handleCronRun(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Runner.Run(r.Context())
	if errors.Is(err, model.ErrLeaseHeld) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("triggered run failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runId":   sum.RunID,
		"sources": sum.Sources,
		"failed":  sum.Failed,
		"fetched": sum.Fetched,
		"new":     sum.Fresh,
		"queued":  sum.Queued,
		"pruned":  sum.Pruned,
	})
}

func (s *Server) handleCronSend(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Drainer.Drain(r.Context(), s.now())
	if err != nil {
		s.logger.Error("triggered dispatch failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":          "Done",
		"totalJobsSent":    sum.Items,
		"subscribers":      sum.Subscribers,
		"dropped":          sum.Dropped,
		"sent":             sum.Sent,
		"failed":           sum.Failed,
		"nothingFoundSent": sum.NothingFoundSent,
	})
}

// liveSource looks up a registered source behind the per-source limiter.
func (s *Server) liveSource(key string) (model.Source, error) {
	src, err := adapter.Lookup(s.deps.Sources, key)
	if err != nil {
		return nil, err
	}
	return ratelimit.NewRateLimitedSource(src, s.limiter), nil
}
