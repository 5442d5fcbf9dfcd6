// Package server exposes the engine operations as a read-only JSON API.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KaramelBytes/crashinsight/internal/engine"
)

// Options configures the HTTP surface.
type Options struct {
	Addr              string
	CORSOrigins       []string
	DefaultClusters   int
	DefaultMinSupport float64
	// ModelTimeout bounds a single /api/ml-model request. Zero means no limit.
	ModelTimeout time.Duration
	// AccessLog enables chi's request logger.
	AccessLog bool
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = ":5000"
	}
	if o.DefaultClusters == 0 {
		o.DefaultClusters = 5
	}
	if o.DefaultMinSupport == 0 {
		o.DefaultMinSupport = 0.01
	}
	if len(o.CORSOrigins) == 0 {
		o.CORSOrigins = []string{"*"}
	}
	return o
}

// Server routes requests to an Engine. Each request computes a fresh result.
type Server struct {
	eng      *engine.Engine
	opt      Options
	registry *prometheus.Registry
	metrics  *metrics
	router   chi.Router
}

func New(eng *engine.Engine, opt Options) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s := &Server{
		eng:      eng,
		opt:      opt.withDefaults(),
		registry: reg,
		metrics:  newMetrics(reg),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(requestID)
	if s.opt.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(recoverJSON)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opt.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(s.metrics.instrument)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/time-analysis", s.handleTimeAnalysis)
		r.Get("/severity-analysis", s.handleSeverityAnalysis)
		r.Get("/location-analysis", s.handleLocationAnalysis)
		r.Get("/clustering", s.handleClustering)
		r.Get("/ml-model", s.handleModel)
		r.Get("/association-rules", s.handleRules)
		r.Get("/health", s.handleHealth)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	return r
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to ten seconds.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opt.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", s.opt.Addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
