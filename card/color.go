package card

import (
	"image/color"
	"strconv"
	"strings"
)

type rgbColor struct {
	R uint8
	G uint8
	B uint8
}

func (c rgbColor) rgba() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

func (c rgbColor) brightness() int {
	return int(0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B))
}

// parseHexColor accepts #rgb and #rrggbb forms; malformed channel pairs
// decode as zero, mirroring lenient CSS handling.
func parseHexColor(value string) (rgbColor, bool) {
	hexStr := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hexStr) == 3 {
		hexStr = string([]byte{hexStr[0], hexStr[0], hexStr[1], hexStr[1], hexStr[2], hexStr[2]})
	}
	if len(hexStr) != 6 {
		return rgbColor{}, false
	}
	channel := func(s string) uint8 {
		v, err := strconv.ParseInt(s, 16, 64)
		if err != nil {
			return 0
		}
		return uint8(v)
	}
	return rgbColor{channel(hexStr[0:2]), channel(hexStr[2:4]), channel(hexStr[4:6])}, true
}

// frameColorOrDefault resolves a configured frame color, falling back to
// the brand orange on anything unparseable.
func frameColorOrDefault(value string) rgbColor {
	if c, ok := parseHexColor(value); ok {
		return c
	}
	c, _ := parseHexColor(DefaultRenderConfig().FrameColor)
	return c
}

// textOnColor picks black or white for text drawn over bg, whichever
// keeps the brand strings legible.
func textOnColor(bg rgbColor) color.RGBA {
	if bg.brightness() < 150 {
		return color.RGBA{0xff, 0xff, 0xff, 0xff}
	}
	return color.RGBA{0x00, 0x00, 0x00, 0xff}
}
