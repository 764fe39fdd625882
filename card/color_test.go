package card

import (
	"image/color"
	"testing"
)

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		in   string
		want rgbColor
		ok   bool
	}{
		{"#ffffff", rgbColor{255, 255, 255}, true},
		{"  #F26522 ", rgbColor{0xf2, 0x65, 0x22}, true},
		{"#abc", rgbColor{0xaa, 0xbb, 0xcc}, true},
		{"112233", rgbColor{0x11, 0x22, 0x33}, true},
		{"#12", rgbColor{}, false},
		{"", rgbColor{}, false},
	}
	for _, tc := range cases {
		got, ok := parseHexColor(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("parseHexColor(%q) = %v,%v want %v,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFrameColorOrDefault(t *testing.T) {
	if got := frameColorOrDefault("#000000"); got != (rgbColor{}) {
		t.Fatalf("explicit black not honored: %v", got)
	}
	def, _ := parseHexColor(DefaultRenderConfig().FrameColor)
	if got := frameColorOrDefault("not-a-color"); got != def {
		t.Fatalf("fallback = %v, want brand default %v", got, def)
	}
}

func TestTextOnColor(t *testing.T) {
	white := color.RGBA{0xff, 0xff, 0xff, 0xff}
	black := color.RGBA{0x00, 0x00, 0x00, 0xff}
	if got := textOnColor(rgbColor{0x10, 0x10, 0x10}); got != white {
		t.Fatalf("dark background should take white text, got %v", got)
	}
	if got := textOnColor(rgbColor{0xf0, 0xf0, 0xf0}); got != black {
		t.Fatalf("light background should take black text, got %v", got)
	}
}
