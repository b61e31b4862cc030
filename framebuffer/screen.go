package framebuffer

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"

	display "github.com/BeatGlow/fbdisplay"
	"github.com/BeatGlow/fbdisplay/pixel"
)

// Screen is a [display.Display] backed by an [Output].
//
// Pixels are drawn on a canvas in the device pixel format; Refresh presents the canvas through
// the output. Contrast is not supported by framebuffers and is a no-op.
type Screen struct {
	pixel.Image
	out       *Output
	canvas    []byte
	rotation  display.Rotation
	backlight gpio.PinOut

	// DPI is passed to the output when presenting.
	DPI DPI
}

// NewScreen returns a display drawing to out. A nil config uses no rotation and no backlight.
func NewScreen(out *Output, config *display.Config) (*Screen, error) {
	if config == nil {
		config = new(display.Config)
	}

	var (
		mode   = out.Mode()
		canvas = pixel.MakeBuffer(mode.Width, mode.Height, mode.Stride)
	)
	s := &Screen{
		Image:     mode.Format.NewImage(canvas.Pix, mode.Width, mode.Height, mode.Stride),
		out:       out,
		canvas:    canvas.Pix,
		backlight: config.Backlight,
		DPI:       DefaultDPI,
	}
	if err := s.SetRotation(config.Rotation); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Screen) String() string {
	return fmt.Sprintf("framebuffer %s", s.out.Mode())
}

// Close the underlying output.
func (s *Screen) Close() error {
	return s.out.Close()
}

// Show toggles the backlight, if one is configured.
func (s *Screen) Show(show bool) error {
	if s.backlight == nil || s.backlight == gpio.INVALID {
		return nil
	}
	return s.backlight.Out(gpio.Level(show))
}

// SetContrast adjusts the contrast level.
func (s *Screen) SetContrast(_ uint8) error {
	return nil
}

// SetRotation adjusts the pixel rotation. Only rotations that keep the geometry of the mode,
// 0° and 180°, are supported.
func (s *Screen) SetRotation(rotation display.Rotation) error {
	switch rotation % 4 {
	case display.NoRotation, display.Rotate180:
		s.rotation = rotation % 4
		return nil
	default:
		return display.ErrRotation
	}
}

// Refresh presents the canvas.
func (s *Screen) Refresh() error {
	surface, err := s.out.Lock(s.DPI)
	if err != nil {
		return err
	}
	s.blit(surface.Bytes())
	return surface.Release()
}

func (s *Screen) blit(dst []byte) {
	mode := s.out.Mode()
	if s.rotation == display.NoRotation {
		copy(dst, s.canvas)
		return
	}

	var (
		bpp = mode.Format.BytesPerPixel()
		w   = mode.Width * bpp
	)
	for y := 0; y < mode.Height; y++ {
		src := s.canvas[y*mode.Stride : y*mode.Stride+w]
		row := dst[(mode.Height-1-y)*mode.Stride:]
		for x := 0; x < w; x += bpp {
			copy(row[w-bpp-x:w-x], src[x:x+bpp])
		}
	}
}

var _ display.Display = (*Screen)(nil)
