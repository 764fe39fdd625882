// Package server exposes the card pipeline over HTTP: feed inspection,
// single-card rendering and batch runs.
package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pardo/card"
	"pardo/pkg/logger"
)

// Config describes server wiring.
type Config struct {
	Fetcher *card.Fetcher
	Loader  card.ImageLoader
	Logger  *zap.Logger
	OutDir  string // default output directory for batch runs
	Clock   func() time.Time
}

// Server wires HTTP handlers around the fetch/normalize/render pipeline.
type Server struct {
	cfg     Config
	mux     *http.ServeMux
	handler http.Handler
	fetcher *card.Fetcher
	loader  card.ImageLoader
	logger  *zap.Logger
	metrics *metrics
	clock   func() time.Time
}

// New builds a Server, filling in defaults for any unset collaborator.
func New(cfg Config) *Server {
	if cfg.Fetcher == nil {
		cfg.Fetcher = card.NewFetcher()
	}
	if cfg.Loader == nil {
		cfg.Loader = card.NewImageLoader()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.L()
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "out"
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	s := &Server{
		cfg:     cfg,
		mux:     http.NewServeMux(),
		fetcher: cfg.Fetcher,
		logger:  cfg.Logger,
		metrics: newMetrics(),
		clock:   cfg.Clock,
	}
	s.loader = &countingLoader{inner: cfg.Loader, metrics: s.metrics}
	s.registerRoutes()
	s.handler = withLogging(s.logger, s.mux)
	return s
}

// ServeHTTP implements http.Handler with the logging middleware applied.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/feed", s.handleFeed)
	s.mux.HandleFunc("/card", s.handleCard)
	s.mux.HandleFunc("/batch", s.handleBatch)
	s.mux.HandleFunc("/ping", s.handlePing)
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
}
