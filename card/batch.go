package card

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"strings"
	"time"

	"pardo/pkg/logger"
)

// ExportFunc persists one rendered card. Implementations decide where
// the bytes go (file, HTTP response, archive).
type ExportFunc func(filename string, jpegData []byte) error

// BatchOptions tunes the pacing of a batch run. The two delays keep the
// image proxy and the export target from being hammered; they are a
// fixed throttle, not adaptive backpressure.
type BatchOptions struct {
	SettleDelay time.Duration // before each render
	PacingDelay time.Duration // after each export
	Sleep       func(time.Duration)
}

// DefaultBatchOptions returns the stock pacing.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		SettleDelay: 400 * time.Millisecond,
		PacingDelay: time.Second,
		Sleep:       time.Sleep,
	}
}

// RunBatch renders every product in order and exports each card. Renders
// are strictly sequential. A failed export degrades that one output and
// continues; only context cancellation stops the run early. The returned
// count is the number of products processed.
func RunBatch(ctx context.Context, products []Product, cfg RenderConfig, loader ImageLoader, export ExportFunc, opts BatchOptions) (int, error) {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	done := 0
	for _, p := range products {
		select {
		case <-ctx.Done():
			return done, ctx.Err()
		default:
		}
		sleep(opts.SettleDelay)
		img := Render(ctx, p, cfg, loader)
		name := ExportFilename(p)
		if err := export(name, EncodeJPEG(img)); err != nil {
			logger.S().Warnw("export failed", "file", name, "err", err)
		}
		done++
		sleep(opts.PacingDelay)
	}
	return done, nil
}

// EncodeJPEG serializes a rendered surface for export.
func EncodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		// Encoding an in-memory RGBA only fails on writer errors, which
		// bytes.Buffer never produces.
		logger.S().Errorw("jpeg encode failed", "err", err)
		return nil
	}
	return buf.Bytes()
}

// ExportFilename builds the conventional card filename for a product.
func ExportFilename(p Product) string {
	sku := p.SKU
	if sku == "" {
		sku = p.ID
	}
	var b strings.Builder
	for _, r := range sku {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return "pardo_" + b.String() + ".jpg"
}
