package draw

import (
	"image"
	"image/color"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// DefaultFontSize is the point size used by [DefaultFace].
const DefaultFontSize = 12

// NewFace parses a TrueType font and returns a face rendering it at size points for dpi.
func NewFace(ttf []byte, size, dpi float64) (font.Face, error) {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingFull,
	}), nil
}

// DefaultFace returns the Go Regular font at [DefaultFontSize] points for dpi.
func DefaultFace(dpi float64) font.Face {
	face, err := NewFace(goregular.TTF, DefaultFontSize, dpi)
	if err != nil {
		// The embedded font is known to parse.
		panic(err)
	}
	return face
}

// Text draws s with its baseline starting at dot and returns the point where the next glyph would go.
func Text(dst Image, dot image.Point, face font.Face, s string, c color.Color) image.Point {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(dot.X, dot.Y),
	}
	d.DrawString(s)
	return image.Pt(d.Dot.X.Round(), d.Dot.Y.Round())
}

// TextBounds returns the bounding box of s drawn with its baseline starting at dot.
func TextBounds(face font.Face, dot image.Point, s string) image.Rectangle {
	b, _ := font.BoundString(face, s)
	return image.Rect(
		dot.X+b.Min.X.Floor(), dot.Y+b.Min.Y.Floor(),
		dot.X+b.Max.X.Ceil(), dot.Y+b.Max.Y.Ceil(),
	)
}
