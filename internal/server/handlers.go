package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"pardo/card"
)

type feedResponse struct {
	Source   string         `json:"source"`
	Count    int            `json:"count"`
	Products []card.Product `json:"products"`
}

// loadProducts runs the full acquisition path for a target reference.
// When every relay served HTML but a feed link was discovered inside one
// of those pages, the first candidate is retried once.
func (s *Server) loadProducts(r *http.Request, target string) (feedResponse, error) {
	body, source, err := s.fetcher.Fetch(r.Context(), target)
	if err != nil {
		var herr *card.HTMLContentError
		if errors.As(err, &herr) && len(herr.FeedCandidates) > 0 {
			s.logger.Info("retrying discovered feed candidate",
				zap.String("target", target), zap.String("candidate", herr.FeedCandidates[0]))
			body, source, err = s.fetcher.Fetch(r.Context(), herr.FeedCandidates[0])
		}
	}
	if err != nil {
		s.metrics.feedLoads.WithLabelValues("fetch_error").Inc()
		return feedResponse{}, err
	}
	products, err := card.Normalize(body)
	if err != nil {
		s.metrics.feedLoads.WithLabelValues("normalize_error").Inc()
		return feedResponse{}, err
	}
	s.metrics.feedLoads.WithLabelValues("ok").Inc()
	return feedResponse{Source: source, Count: len(products), Products: products}, nil
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	res, err := s.loadProducts(r, target)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
}

func (s *Server) renderConfigFromQuery(r *http.Request) card.RenderConfig {
	q := r.URL.Query()
	cfg := card.DefaultRenderConfig()
	if v := q.Get("frame"); v != "" {
		cfg.FrameColor = v
	}
	if q.Get("price") == "0" {
		cfg.ShowPrice = false
	}
	if q.Get("badges") == "0" {
		cfg.ShowBadges = false
	}
	if v, ok := q["bank"]; ok && len(v) > 0 {
		cfg.BankText = v[0]
	}
	return cfg
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	res, err := s.loadProducts(r, target)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	product := res.Products[0]
	if sku := r.URL.Query().Get("sku"); sku != "" {
		found := false
		for _, p := range res.Products {
			if p.SKU == sku || p.ID == sku {
				product = p
				found = true
				break
			}
		}
		if !found {
			http.Error(w, "unknown sku", http.StatusNotFound)
			return
		}
	}

	img := card.Render(r.Context(), product, s.renderConfigFromQuery(r), s.loader)
	s.metrics.renders.Inc()
	data := card.EncodeJPEG(img)
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", `inline; filename="`+card.ExportFilename(product)+`"`)
	_, _ = w.Write(data)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_ = r.ParseForm()
	target := r.FormValue("url")
	if target == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	outDir := r.FormValue("dir")
	if outDir == "" {
		outDir = s.cfg.OutDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	res, err := s.loadProducts(r, target)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	start := s.clock()
	export := func(name string, data []byte) error {
		return os.WriteFile(filepath.Join(outDir, name), data, 0o644)
	}
	count, err := card.RunBatch(r.Context(), res.Products, s.renderConfigFromQuery(r), s.loader, export, card.DefaultBatchOptions())
	if err != nil {
		s.logger.Warn("batch interrupted", zap.Int("done", count), zap.Error(err))
	}
	for i := 0; i < count; i++ {
		s.metrics.renders.Inc()
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"count": count,
		"dir":   outDir,
		"took":  s.clock().Sub(start).Round(time.Millisecond).String(),
	})
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong\n"))
}
