package framebuffer

import (
	"fmt"
	"image"
	"math"
)

// Mode describes the physical output. It is derived once from the screen info reported by the
// device and never changes for the lifetime of an [Output].
type Mode struct {
	// Width and Height in pixels.
	Width, Height int

	// Stride is the number of bytes per row, which may exceed Width times the pixel size
	// because of hardware padding.
	Stride int

	// BitsPerPixel as reported by the device.
	BitsPerPixel int

	// Format of the pixels in memory.
	Format PixelFormat
}

// NewMode validates the screen info and derives the display mode from it.
func NewMode(fix *FixedScreenInfo, info *VarScreenInfo) (Mode, error) {
	if fix == nil || info == nil {
		return Mode{}, initError("missing screen info", nil)
	}

	var (
		width  = int64(info.Xres)
		height = int64(info.Yres)
		stride = int64(fix.LineLength)
		format = FormatOf(info)
	)
	switch {
	case width <= 0 || width > math.MaxInt32:
		return Mode{}, initError(fmt.Sprintf("invalid width %d", info.Xres), nil)
	case height <= 0 || height > math.MaxInt32:
		return Mode{}, initError(fmt.Sprintf("invalid height %d", info.Yres), nil)
	case stride <= 0 || stride > math.MaxInt32:
		return Mode{}, initError(fmt.Sprintf("invalid stride %d", fix.LineLength), nil)
	case stride < width*int64(format.BytesPerPixel()):
		return Mode{}, initError(fmt.Sprintf("stride %d too small for %d %s pixels", stride, width, format), nil)
	case stride*height > math.MaxInt:
		return Mode{}, initError(fmt.Sprintf("%dx%d buffer exceeds address space", stride, height), nil)
	}

	return Mode{
		Width:        int(width),
		Height:       int(height),
		Stride:       int(stride),
		BitsPerPixel: int(info.BitsPerPixel),
		Format:       format,
	}, nil
}

// Size in pixels.
func (m Mode) Size() image.Point {
	return image.Pt(m.Width, m.Height)
}

// Len is the size of a full frame in bytes.
func (m Mode) Len() int {
	return m.Stride * m.Height
}

func (m Mode) String() string {
	return fmt.Sprintf("%dx%d %s (%d bytes per row)", m.Width, m.Height, m.Format, m.Stride)
}
