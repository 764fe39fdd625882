package card

import (
	"context"
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	"strconv"
	"sync"

	xdraw "golang.org/x/image/draw"

	"pardo/pkg/logger"
)

// Canvas geometry, in pixels on the fixed 1000x1000 surface. The frame
// bars are painted last so they overlay anything drawn near the edges;
// the safe area between them holds photo, badges and price.
const (
	CanvasSize  = 1000
	frameBarH   = 130 // top bar rows 0..130, bottom bar rows 870..1000
	frameBarW   = 30  // left/right bar width, full height
	safeTop     = frameBarH
	safeBottom  = CanvasSize - frameBarH
	photoTop    = safeTop + 40
	photoMaxW   = CanvasSize - 2*frameBarW + 20 // 960
	priceSpace  = 140                           // rows reserved under the photo for the price block
	photoMaxH   = safeBottom - safeTop - priceSpace
	badgeTop    = safeTop + 20
	bankBadgeX  = frameBarW
	bankBadgeW  = 280
	bankBadgeH  = 80
	rightBadgeW = 260
	rightBadgeX = CanvasSize - frameBarW - rightBadgeW
	instBadgeH  = 70
	pickupH     = 40
	badgeGap    = 10
	priceY      = safeBottom - 30 // price baseline
	cuotasY     = priceY - 110    // installment breakdown baseline
)

const (
	brandTop    = "PARDO"
	brandBottom = "www.pardo.com.ar"
)

var (
	colorCanvas      = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorInk         = color.RGBA{0x1a, 0x1a, 0x1a, 0xff}
	colorBank        = color.RGBA{0x00, 0x4b, 0x93, 0xff}
	colorInstallment = color.RGBA{0xe3, 0x06, 0x13, 0xff}
	colorPickup      = color.RGBA{0x00, 0xa6, 0x50, 0xff}
	colorPlaceholder = color.RGBA{0xd9, 0xd9, 0xd9, 0xff}
	colorPlaceInk    = color.RGBA{0x8c, 0x8c, 0x8c, 0xff}
	colorBadgeText   = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// renderMu serializes renders; the opentype faces are stateful.
var renderMu sync.Mutex

// Render paints a complete promotional card for the product onto a fresh
// 1000x1000 surface: background, photo, badges, price, frame, brand
// text, in that order. It never fails; an unreachable or corrupt photo
// degrades to a neutral placeholder. Rendering the same product and
// config twice yields identical pixels, photo content aside.
func Render(ctx context.Context, p Product, cfg RenderConfig, loader ImageLoader) *image.RGBA {
	renderMu.Lock()
	defer renderMu.Unlock()
	facesOnce.Do(loadFaces)

	dst := image.NewRGBA(image.Rect(0, 0, CanvasSize, CanvasSize))
	fillRect(dst, dst.Bounds(), colorCanvas)

	drawPhoto(ctx, dst, p, loader)
	drawBadges(dst, p, cfg)
	if cfg.ShowPrice {
		drawPrice(dst, p)
	}
	drawFrame(dst, cfg)
	return dst
}

func fillRect(dst *image.RGBA, r image.Rectangle, col color.RGBA) {
	stddraw.Draw(dst, r, image.NewUniform(col), image.Point{}, stddraw.Src)
}

// fillRoundedRect fills r with quarter-circle corners of the given
// radius. Corner membership is an integer distance test, so the shape is
// identical on every render.
func fillRoundedRect(dst *image.RGBA, r image.Rectangle, radius int, col color.RGBA) {
	if radius <= 0 {
		fillRect(dst, r, col)
		return
	}
	rr := radius * radius
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dx, dy := 0, 0
			if x < r.Min.X+radius {
				dx = r.Min.X + radius - 1 - x
			} else if x >= r.Max.X-radius {
				dx = x - (r.Max.X - radius)
			}
			if y < r.Min.Y+radius {
				dy = r.Min.Y + radius - 1 - y
			} else if y >= r.Max.Y-radius {
				dy = y - (r.Max.Y - radius)
			}
			if dx*dx+dy*dy <= rr {
				dst.SetRGBA(x, y, col)
			}
		}
	}
}

// drawPhoto scales the product photo uniformly into the region above the
// price block: never upscaled, centered horizontally, top edge 40px
// below the safe area. Load failures paint the placeholder instead.
func drawPhoto(ctx context.Context, dst *image.RGBA, p Product, loader ImageLoader) {
	var img image.Image
	if loader != nil && p.ImageURL != "" {
		m, err := loader.Load(ctx, p.ImageURL)
		if err != nil {
			logger.S().Debugw("photo load failed, using placeholder", "sku", p.SKU, "err", err)
		} else {
			img = m
		}
	}
	if img == nil {
		drawPlaceholder(dst)
		return
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		drawPlaceholder(dst)
		return
	}
	scale := 1.0
	if s := float64(photoMaxW) / float64(w); s < scale {
		scale = s
	}
	if s := float64(photoMaxH) / float64(h); s < scale {
		scale = s
	}
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	x := (CanvasSize - dw) / 2
	rect := image.Rect(x, photoTop, x+dw, photoTop+dh)
	xdraw.CatmullRom.Scale(dst, rect, img, b, xdraw.Over, nil)
}

func drawPlaceholder(dst *image.RGBA) {
	cx := CanvasSize / 2
	cy := photoTop + photoMaxH/2
	r := image.Rect(cx-300, photoTop, cx+300, photoTop+photoMaxH)
	fillRect(dst, r, colorPlaceholder)
	drawTextCentered(dst, facePlaceholder, colorPlaceInk, cx, cy+10, "Sin imagen")
}

// drawBadges stacks the promotional overlays: bank promo on the left,
// installment and pickup on the right. Slots only advance for badges
// that were actually drawn, so the stack never leaves gaps or overlaps.
func drawBadges(dst *image.RGBA, p Product, cfg RenderConfig) {
	if !cfg.ShowBadges {
		return
	}
	if promo := p.PromoText(cfg.BankText); promo != "" {
		drawBankBadge(dst, promo)
	}
	y := badgeTop
	if p.HasInstallments() {
		drawInstallmentBadge(dst, p.Installments, y)
		y += instBadgeH + badgeGap
	}
	if p.Pickup {
		drawPickupBadge(dst, y)
	}
}

func drawBankBadge(dst *image.RGBA, promo string) {
	r := image.Rect(bankBadgeX, badgeTop, bankBadgeX+bankBadgeW, badgeTop+bankBadgeH)
	fillRoundedRect(dst, r, 12, colorBank)
	drawText(dst, faceHeadline, colorBadgeText, bankBadgeX+20, badgeTop+35, "10% OFF")
	drawText(dst, facePromo, colorBadgeText, bankBadgeX+20, badgeTop+62, promo)
}

func drawInstallmentBadge(dst *image.RGBA, months, top int) {
	r := image.Rect(rightBadgeX, top, rightBadgeX+rightBadgeW, top+instBadgeH)
	fillRoundedRect(dst, r, 12, colorInstallment)
	drawText(dst, faceCount, colorBadgeText, rightBadgeX+28, top+50, strconv.Itoa(months))
	drawText(dst, faceLabel, colorBadgeText, rightBadgeX+130, top+30, "SIN")
	drawText(dst, faceLabel, colorBadgeText, rightBadgeX+130, top+55, "INTERÉS")
}

func drawPickupBadge(dst *image.RGBA, top int) {
	r := image.Rect(rightBadgeX, top, rightBadgeX+rightBadgeW, top+pickupH)
	fillRoundedRect(dst, r, pickupH/2, colorPickup)
	drawTextCentered(dst, facePill, colorBadgeText, rightBadgeX+rightBadgeW/2, top+27, "¡RETIRO GRATIS!")
}

func drawPrice(dst *image.RGBA, p Product) {
	drawTextCentered(dst, facePrice, colorInk, CanvasSize/2, priceY, FormatMoney(p.Price))
	if p.HasInstallments() {
		line := fmt.Sprintf("Hasta %d × %s cuotas sin interés",
			p.Installments, FormatMoney(installmentAmount(p.Price, p.Installments)))
		drawTextCentered(dst, faceCuotas, colorInstallment, CanvasSize/2, cuotasY, line)
	}
}

// drawFrame paints the four branded bars last so they overlay photo
// overflow at the edges, then the brand strings on top of them.
func drawFrame(dst *image.RGBA, cfg RenderConfig) {
	frame := frameColorOrDefault(cfg.FrameColor)
	col := frame.rgba()
	fillRect(dst, image.Rect(0, 0, CanvasSize, frameBarH), col)
	fillRect(dst, image.Rect(0, safeBottom, CanvasSize, CanvasSize), col)
	fillRect(dst, image.Rect(0, 0, frameBarW, CanvasSize), col)
	fillRect(dst, image.Rect(CanvasSize-frameBarW, 0, CanvasSize, CanvasSize), col)

	ink := textOnColor(frame)
	drawTextCentered(dst, faceBrand, ink, CanvasSize/2, 83, brandTop)
	drawTextCentered(dst, facePill, ink, CanvasSize/2, safeBottom+73, brandBottom)
}
