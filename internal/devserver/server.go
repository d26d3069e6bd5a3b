// Package devserver is an in-memory reference backend implementing the
// issuance, redemption and migration endpoints the CLI talks to.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kkookk/kkookk/internal/config"
	"github.com/kkookk/kkookk/internal/metrics"
)

// Server runs the reference backend over HTTP.
type Server struct {
	cfg        config.DevserverConfig
	store      *Store
	sweeper    *Sweeper
	httpServer *http.Server
}

// New creates a server. A nil store gets a seeded one using the configured TTLs.
func New(cfg config.DevserverConfig, store *Store) *Server {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 8080
	}
	cfg.Host = host
	cfg.Port = port

	if store == nil {
		store = NewStore(WithTTLs(
			time.Duration(cfg.IssuanceTTLSeconds)*time.Second,
			time.Duration(cfg.RedeemTTLSeconds)*time.Second,
		))
	}
	return &Server{
		cfg:     cfg,
		store:   store,
		sweeper: NewSweeper(store, defaultSweepInterval),
	}
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
}

// Store returns the backing store.
func (s *Server) Store() *Store { return s.store }

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           NewHandler(s.store),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.sweeper.Start()
	slog.Info("devserver listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.sweeper.Stop()
		return err
	}
	return nil
}

// Shutdown stops the sweeper and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sweeper.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// NewHandler builds the router for store.
func NewHandler(store *Store) http.Handler {
	h := &handler{store: store}
	stats := metrics.NewRequestMetrics(store.Clock())

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLog(stats))
	r.Use(chimw.Recoverer)

	r.Get("/health", h.health)
	r.Get("/version", h.version)

	r.Route("/api", func(r chi.Router) {
		r.Get("/issuance/{id}", h.getIssuance)
		r.Post("/redemption/sessions/{token}/complete", h.completeRedemption)

		r.Group(func(r chi.Router) {
			r.Use(h.walletAuth)
			r.Post("/issuance", h.createIssuance)
			r.Get("/redemption/rewards", h.listRewards)
			r.Post("/redemption/sessions", h.createRedeemSession)
			r.Post("/wallet/otp/step-up", h.stepUp)
			r.Post("/migration", h.submitMigration)
			r.Get("/migration", h.listMyMigrations)
		})

		r.Route("/owner", func(r chi.Router) {
			r.Use(h.ownerAuth)
			r.Get("/issuance/pending", h.listPendingIssuance)
			r.Post("/issuance/{id}/approve", h.approveIssuance)
			r.Post("/issuance/{id}/reject", h.rejectIssuance)
			r.Get("/migration/submitted", h.listSubmittedMigrations)
			r.Post("/migration/{id}/approve", h.approveMigration)
			r.Post("/migration/{id}/reject", h.rejectMigration)
		})
	})

	newAdmin(store, stats).Routes(r)
	return r
}

func requestLog(stats *metrics.RequestMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			var route string
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = r.Method + " " + rctx.RoutePattern()
			}
			stats.Observe(route, status, elapsed)

			slog.Debug("devserver request",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", status,
				"duration", elapsed.String(),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}
