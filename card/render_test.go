package card

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/shopspring/decimal"
)

type stubLoader struct {
	img image.Image
	err error
}

func (s *stubLoader) Load(_ context.Context, _ string) (image.Image, error) {
	return s.img, s.err
}

func uniformImage(w, h int, col color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, col)
		}
	}
	return img
}

func testProduct() Product {
	return Product{
		ID:           "HEL-360",
		Name:         "Heladera",
		Price:        decimal.NewFromInt(6199999),
		Installments: 12,
		Pickup:       true,
		SKU:          "HEL-360",
		ImageURL:     "https://img.example.com/x.jpg",
	}
}

func regionContains(img *image.RGBA, r image.Rectangle, want color.RGBA) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) == want {
				return true
			}
		}
	}
	return false
}

func TestRenderDeterministic(t *testing.T) {
	loader := &stubLoader{img: uniformImage(100, 80, color.RGBA{0x20, 0x40, 0xc0, 0xff})}
	p := testProduct()
	cfg := DefaultRenderConfig()

	a := Render(context.Background(), p, cfg, loader)
	b := Render(context.Background(), p, cfg, loader)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatal("two renders of the same product and config differ")
	}
}

func TestRenderPhotoNeverUpscaled(t *testing.T) {
	blue := color.RGBA{0x20, 0x40, 0xc0, 0xff}
	loader := &stubLoader{img: uniformImage(100, 80, blue)}
	cfg := DefaultRenderConfig()
	cfg.ShowBadges = false
	cfg.ShowPrice = false

	img := Render(context.Background(), testProduct(), cfg, loader)
	// A 100x80 source stays 100x80, centered at the photo region top.
	if got := img.RGBAAt(500, 210); got != blue {
		t.Fatalf("expected photo pixel at (500,210), got %v", got)
	}
	if got := img.RGBAAt(380, 210); got != colorCanvas {
		t.Fatalf("pixel left of an unscaled photo should be canvas, got %v", got)
	}
}

func TestRenderPlaceholderOnLoadFailure(t *testing.T) {
	loader := &stubLoader{err: errors.New("connection refused")}
	cfg := DefaultRenderConfig()
	cfg.ShowBadges = false
	cfg.ShowPrice = false

	img := Render(context.Background(), testProduct(), cfg, loader)
	if got := img.RGBAAt(250, 200); got != colorPlaceholder {
		t.Fatalf("expected placeholder pixel, got %v", got)
	}
}

func TestRenderInstallmentBadgeToggle(t *testing.T) {
	loader := &stubLoader{err: errors.New("no photo")}
	cfg := DefaultRenderConfig()

	with := Render(context.Background(), testProduct(), cfg, loader)
	if got := with.RGBAAt(720, 215); got != colorInstallment {
		t.Fatalf("installment badge missing for 12 installments, got %v", got)
	}
	// The breakdown line carries the literal count.
	if !regionContains(with, image.Rect(40, 695, 960, 735), colorInstallment) {
		t.Fatal("installment breakdown line missing")
	}

	p := testProduct()
	p.Installments = 1
	without := Render(context.Background(), p, cfg, loader)
	if got := without.RGBAAt(720, 215); got == colorInstallment {
		t.Fatal("installment badge drawn for a single installment")
	}
	if regionContains(without, image.Rect(40, 695, 960, 735), colorInstallment) {
		t.Fatal("breakdown line drawn for a single installment")
	}
}

func TestRenderPickupSlotStacking(t *testing.T) {
	loader := &stubLoader{err: errors.New("no photo")}
	cfg := DefaultRenderConfig()

	// With an installment badge above, the pickup pill sits below it.
	stacked := Render(context.Background(), testProduct(), cfg, loader)
	if got := stacked.RGBAAt(731, 250); got != colorPickup {
		t.Fatalf("pickup pill not in second slot, got %v", got)
	}

	// Without it, the pill takes the first slot.
	p := testProduct()
	p.Installments = 1
	first := Render(context.Background(), p, cfg, loader)
	if got := first.RGBAAt(731, 170); got != colorPickup {
		t.Fatalf("pickup pill not promoted to first slot, got %v", got)
	}
	if got := first.RGBAAt(731, 250); got == colorPickup {
		t.Fatal("second slot should be empty without an installment badge")
	}
}

func TestRenderBankBadgeOmittedWhenNoText(t *testing.T) {
	loader := &stubLoader{err: errors.New("no photo")}
	cfg := DefaultRenderConfig()
	cfg.BankText = ""

	p := testProduct()
	p.BankPromo = ""
	img := Render(context.Background(), p, cfg, loader)
	if got := img.RGBAAt(290, 160); got == colorBank {
		t.Fatal("bank badge drawn with no promo text at all")
	}

	p.BankPromo = "con Banco Galicia"
	img = Render(context.Background(), p, cfg, loader)
	if got := img.RGBAAt(290, 160); got != colorBank {
		t.Fatalf("bank badge missing when the feed supplies promo text, got %v", got)
	}
}

func TestRenderBadgesDisabled(t *testing.T) {
	loader := &stubLoader{err: errors.New("no photo")}
	cfg := DefaultRenderConfig()
	cfg.ShowBadges = false

	img := Render(context.Background(), testProduct(), cfg, loader)
	if got := img.RGBAAt(290, 160); got == colorBank {
		t.Fatal("bank badge drawn with badges disabled")
	}
	if got := img.RGBAAt(720, 215); got == colorInstallment {
		t.Fatal("installment badge drawn with badges disabled")
	}
}

func TestRenderPriceToggle(t *testing.T) {
	loader := &stubLoader{err: errors.New("no photo")}
	cfg := DefaultRenderConfig()
	cfg.ShowBadges = false

	with := Render(context.Background(), testProduct(), cfg, loader)
	if !regionContains(with, image.Rect(100, 770, 900, 850), colorInk) {
		t.Fatal("price block missing")
	}

	cfg.ShowPrice = false
	without := Render(context.Background(), testProduct(), cfg, loader)
	if regionContains(without, image.Rect(100, 770, 900, 850), colorInk) {
		t.Fatal("price block drawn with ShowPrice disabled")
	}
}

func TestRenderFrame(t *testing.T) {
	loader := &stubLoader{err: errors.New("no photo")}
	cfg := DefaultRenderConfig()
	cfg.FrameColor = "#112233"

	img := Render(context.Background(), testProduct(), cfg, loader)
	frame := color.RGBA{0x11, 0x22, 0x33, 0xff}
	for _, pt := range []image.Point{{5, 5}, {60, 65}, {5, 500}, {994, 500}, {500, 990}} {
		if got := img.RGBAAt(pt.X, pt.Y); got != frame {
			t.Fatalf("frame pixel at %v = %v, want %v", pt, got, frame)
		}
	}
	// Brand text must be legible on a dark frame: white ink in the top bar.
	if !regionContains(img, image.Rect(400, 30, 600, 110), color.RGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Fatal("brand text missing from top bar")
	}
}
