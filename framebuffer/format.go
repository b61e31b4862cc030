package framebuffer

import (
	"image/color"

	"github.com/BeatGlow/fbdisplay/pixel"
)

// PixelFormat is the byte layout of one pixel in framebuffer memory.
type PixelFormat uint8

// Supported pixel formats.
const (
	UnknownPixelFormat PixelFormat = iota
	RGB565                         // 16-bit 5-6-5, little endian
	RGBA8888                       // 32-bit, bytes R, G, B, A
	BGRA8888                       // 32-bit, bytes B, G, R, A
)

// FormatOf derives the pixel format reported by the device: 16 bits per pixel is RGB565,
// otherwise a blue channel at bit offset 16 is RGBA8888 and anything else is BGRA8888.
func FormatOf(info *VarScreenInfo) PixelFormat {
	switch {
	case info.BitsPerPixel == 16:
		return RGB565
	case info.Blue.Offset == 16:
		return RGBA8888
	default:
		return BGRA8888
	}
}

func (f PixelFormat) String() string {
	switch f {
	case RGB565:
		return "RGB565"
	case RGBA8888:
		return "RGBA8888"
	case BGRA8888:
		return "BGRA8888"
	default:
		return "unknown"
	}
}

// BytesPerPixel returns the number of bytes one pixel occupies.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case RGB565:
		return 2
	case RGBA8888, BGRA8888:
		return 4
	default:
		return 0
	}
}

// ColorModel returns the color model matching the format.
func (f PixelFormat) ColorModel() color.Model {
	switch f {
	case RGB565:
		return pixel.CRGB16Model
	case RGBA8888:
		return color.RGBAModel
	case BGRA8888:
		return pixel.BGRAModel
	default:
		return nil
	}
}

// NewImage returns an image of w×h pixels in this format that draws directly into pix.
func (f PixelFormat) NewImage(pix []byte, w, h, stride int) pixel.Image {
	buf := pixel.NewBuffer(pix, w, h, stride)
	switch f {
	case RGB565:
		return pixel.NewCRGB16Image(buf)
	case RGBA8888:
		return pixel.NewRGBAImage(buf)
	case BGRA8888:
		return pixel.NewBGRAImage(buf)
	default:
		return nil
	}
}
