package server

import (
	"context"
	"image"

	"github.com/prometheus/client_golang/prometheus"

	"pardo/card"
)

type metrics struct {
	registry     *prometheus.Registry
	feedLoads    *prometheus.CounterVec
	renders      prometheus.Counter
	placeholders prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		feedLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pardo",
			Name:      "feed_loads_total",
			Help:      "Feed load attempts by outcome.",
		}, []string{"outcome"}),
		renders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pardo",
			Name:      "renders_total",
			Help:      "Cards rendered.",
		}),
		placeholders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pardo",
			Name:      "photo_placeholders_total",
			Help:      "Product photos that failed to load and were replaced by a placeholder.",
		}),
	}
	m.registry.MustRegister(m.feedLoads, m.renders, m.placeholders)
	return m
}

// countingLoader observes photo failures without changing loader
// semantics: errors still propagate so the layout engine paints its
// placeholder.
type countingLoader struct {
	inner   card.ImageLoader
	metrics *metrics
}

func (c *countingLoader) Load(ctx context.Context, url string) (image.Image, error) {
	img, err := c.inner.Load(ctx, url)
	if err != nil {
		c.metrics.placeholders.Inc()
	}
	return img, err
}
