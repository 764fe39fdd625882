package card

import (
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Face set for the card layers. Faces are built once; opentype faces are
// not safe for concurrent use, so rendering is serialized (renderMu).
var (
	facesOnce sync.Once

	faceBrand       font.Face // frame bar brand strings
	facePrice       font.Face // main price figure
	faceHeadline    font.Face // bank badge headline
	facePromo       font.Face // bank badge second line
	faceCount       font.Face // installment count
	faceLabel       font.Face // stacked SIN / INTERES label
	faceCuotas      font.Face // installment breakdown line
	facePill        font.Face // pickup pill
	facePlaceholder font.Face // "no image" placeholder text
)

func loadFaces() {
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		panic("card: parse bold font: " + err.Error())
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic("card: parse regular font: " + err.Error())
	}
	newFace := func(f *opentype.Font, size float64) font.Face {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			panic("card: build font face: " + err.Error())
		}
		return face
	}
	faceBrand = newFace(bold, 52)
	facePrice = newFace(bold, 84)
	faceHeadline = newFace(bold, 30)
	facePromo = newFace(regular, 17)
	faceCount = newFace(bold, 44)
	faceLabel = newFace(bold, 20)
	faceCuotas = newFace(bold, 27)
	facePill = newFace(bold, 22)
	facePlaceholder = newFace(regular, 28)
}

func textWidth(face font.Face, s string) int {
	d := font.Drawer{Face: face}
	return d.MeasureString(s).Ceil()
}

func drawText(dst *image.RGBA, face font.Face, col color.Color, x, y int, s string) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawTextCentered draws s with its horizontal center at centerX and its
// baseline at y.
func drawTextCentered(dst *image.RGBA, face font.Face, col color.Color, centerX, y int, s string) {
	drawText(dst, face, col, centerX-textWidth(face, s)/2, y, s)
}
