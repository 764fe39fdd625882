package card

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func batchProducts(n int) []Product {
	out := make([]Product, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Product{
			ID:           "P" + string(rune('A'+i)),
			Name:         "Producto",
			Price:        decimal.NewFromInt(1000),
			Installments: 1,
			SKU:          "SKU-" + string(rune('A'+i)),
		})
	}
	return out
}

func TestRunBatchExportsEveryProduct(t *testing.T) {
	var files []string
	var sleeps []time.Duration
	export := func(name string, data []byte) error {
		if len(data) == 0 {
			t.Fatalf("empty jpeg payload for %s", name)
		}
		files = append(files, name)
		return nil
	}
	opts := BatchOptions{
		SettleDelay: 5 * time.Millisecond,
		PacingDelay: 9 * time.Millisecond,
		Sleep:       func(d time.Duration) { sleeps = append(sleeps, d) },
	}

	count, err := RunBatch(context.Background(), batchProducts(3), DefaultRenderConfig(), nil, export, opts)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	want := []string{"pardo_SKU-A.jpg", "pardo_SKU-B.jpg", "pardo_SKU-C.jpg"}
	for i, name := range want {
		if files[i] != name {
			t.Fatalf("file[%d] = %q, want %q (feed order must be preserved)", i, files[i], name)
		}
	}
	// Two suspension points per product: settle before, pacing after.
	if len(sleeps) != 6 {
		t.Fatalf("sleep calls = %d, want 6", len(sleeps))
	}
	if sleeps[0] != opts.SettleDelay || sleeps[1] != opts.PacingDelay {
		t.Fatalf("sleep order wrong: %v", sleeps[:2])
	}
}

func TestRunBatchContinuesPastExportFailure(t *testing.T) {
	calls := 0
	export := func(string, []byte) error {
		calls++
		return errors.New("disk full")
	}
	opts := BatchOptions{Sleep: func(time.Duration) {}}
	count, err := RunBatch(context.Background(), batchProducts(2), DefaultRenderConfig(), nil, export, opts)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if count != 2 || calls != 2 {
		t.Fatalf("count=%d calls=%d, want 2/2 (export failure must not abort)", count, calls)
	}
}

func TestRunBatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exported := 0
	export := func(string, []byte) error {
		exported++
		if exported == 1 {
			cancel()
		}
		return nil
	}
	opts := BatchOptions{Sleep: func(time.Duration) {}}
	count, err := RunBatch(ctx, batchProducts(5), DefaultRenderConfig(), nil, export, opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 before cancellation took effect", count)
	}
}

func TestExportFilename(t *testing.T) {
	cases := []struct {
		p    Product
		want string
	}{
		{Product{SKU: "HEL-360"}, "pardo_HEL-360.jpg"},
		{Product{SKU: "a b/c"}, "pardo_a_b_c.jpg"},
		{Product{ID: "fallback"}, "pardo_fallback.jpg"},
	}
	for _, tc := range cases {
		if got := ExportFilename(tc.p); got != tc.want {
			t.Fatalf("ExportFilename(%+v) = %q, want %q", tc.p, got, tc.want)
		}
	}
}
