package framebuffer

import (
	"image"
	"sync/atomic"

	"github.com/BeatGlow/fbdisplay/pixel"
)

// Surface grants exclusive write access to the back buffer of an [Output] for one frame.
//
// A Surface is valid from [Output.Lock] until [Surface.Release]. After release [Surface.Bytes]
// and [Surface.Image] return nil, also when called concurrently with Release.
type Surface struct {
	o        *Output
	pix      []byte
	mode     Mode
	dpi      DPI
	released atomic.Bool
}

// Bytes returns the back buffer, Stride × Height bytes.
func (s *Surface) Bytes() []byte {
	if s.released.Load() {
		return nil
	}
	return s.pix
}

// Image returns a drawable view of the back buffer in the output's pixel format.
func (s *Surface) Image() pixel.Image {
	pix := s.Bytes()
	if pix == nil {
		return nil
	}
	return s.mode.Format.NewImage(pix, s.mode.Width, s.mode.Height, s.mode.Stride)
}

// Size in pixels.
func (s *Surface) Size() image.Point {
	return s.mode.Size()
}

// Stride is the number of bytes per row.
func (s *Surface) Stride() int {
	return s.mode.Stride
}

// Format of the pixels.
func (s *Surface) Format() PixelFormat {
	return s.mode.Format
}

// DPI is the resolution hint the surface was locked with.
func (s *Surface) DPI() DPI {
	return s.dpi
}

// Release presents the frame: it waits for vertical sync, copies the back buffer to the device
// and then unlocks the output. A failure to wait for vsync only costs tear-free presentation and
// is not returned. A failed copy is returned as a [PresentationError]; the output is unlocked
// either way. Release may be called once, later calls return [ErrReleased].
func (s *Surface) Release() error {
	if !s.released.CompareAndSwap(false, true) {
		return ErrReleased
	}
	return s.o.present()
}
