package framebuffer

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/go-errors/errors"
)

// Device is the framebuffer device used for presentation timing.
type Device interface {
	// WaitForVSync blocks until the start of the next vertical refresh.
	WaitForVSync() error
}

// DPI is the resolution hint passed to [Output.Lock] and echoed back on the [Surface].
type DPI struct {
	X, Y float64
}

// DefaultDPI is the resolution assumed when the caller has no better hint.
var DefaultDPI = DPI{X: 96, Y: 96}

// Stats are the presentation counters of an [Output].
type Stats struct {
	// Frames successfully copied to the device.
	Frames uint64

	// VSyncAdvisories counts failed waits for vertical sync.
	VSyncAdvisories uint64

	// PresentationFailures counts frames that could not be copied to the device.
	PresentationFailures uint64
}

// Output is a double-buffered framebuffer output.
//
// All drawing goes to a back buffer of Stride × Height bytes. The back buffer is copied in full
// to the device memory each time a [Surface] is released.
type Output struct {
	dev    Device
	target io.WriterAt
	mode   Mode

	// sem is held from Lock until the matching Release has presented the frame, and by Close.
	sem    chan struct{}
	back   []byte
	closed bool

	warned               atomic.Bool
	frames               atomic.Uint64
	vsyncAdvisories      atomic.Uint64
	presentationFailures atomic.Uint64
}

// allocate the back buffer; replaced in tests.
var allocate = func(n int) (buf []byte, err error) {
	defer func() {
		// make panics with a runtime error if n exceeds the maximum allocation size.
		if r := recover(); r != nil {
			err = errors.Errorf("allocate %d bytes: %v", n, r)
		}
	}()
	return make([]byte, n), nil
}

// NewOutput sets up a double-buffered output presenting to target, which is the memory the
// device scans out. The output takes ownership of dev; if it implements [io.Closer], it is
// closed by [Output.Close].
func NewOutput(dev Device, fix FixedScreenInfo, info VarScreenInfo, target io.WriterAt) (*Output, error) {
	if dev == nil {
		return nil, initError("no device", nil)
	}
	if target == nil {
		return nil, initError("no target memory", nil)
	}

	mode, err := NewMode(&fix, &info)
	if err != nil {
		return nil, err
	}

	back, err := allocate(mode.Len())
	if err != nil {
		return nil, initError("back buffer", err)
	}

	slog.Debug("framebuffer: output created",
		"id", fix.Name(),
		"mode", mode.String(),
		"bytes", len(back),
	)
	return &Output{
		dev:    dev,
		target: target,
		mode:   mode,
		sem:    make(chan struct{}, 1),
		back:   back,
	}, nil
}

// Mode returns the display mode.
func (o *Output) Mode() Mode {
	return o.mode
}

// Stats returns a snapshot of the presentation counters.
func (o *Output) Stats() Stats {
	return Stats{
		Frames:               o.frames.Load(),
		VSyncAdvisories:      o.vsyncAdvisories.Load(),
		PresentationFailures: o.presentationFailures.Load(),
	}
}

// Lock acquires exclusive access to the back buffer for drawing one frame. It blocks until any
// outstanding [Surface] is released. The frame is presented when the surface is released.
func (o *Output) Lock(dpi DPI) (*Surface, error) {
	o.sem <- struct{}{}
	return o.locked(dpi)
}

// LockContext is like [Output.Lock], but gives up waiting when ctx is done.
func (o *Output) LockContext(ctx context.Context, dpi DPI) (*Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case o.sem <- struct{}{}:
		return o.locked(dpi)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (o *Output) locked(dpi DPI) (*Surface, error) {
	if o.closed {
		<-o.sem
		return nil, ErrDisposed
	}
	return &Surface{
		o:    o,
		pix:  o.back,
		mode: o.mode,
		dpi:  dpi,
	}, nil
}

// present waits for vsync and copies the back buffer to the device. The lock taken by Lock is
// released on return, including when the copy fails or panics.
func (o *Output) present() error {
	defer func() { <-o.sem }()

	if err := o.dev.WaitForVSync(); err != nil {
		o.advise(&TimingAdvisory{Err: err})
	}

	n, err := o.target.WriteAt(o.back, 0)
	if err == nil && n < len(o.back) {
		err = io.ErrShortWrite
	}
	if err != nil {
		o.presentationFailures.Add(1)
		return errors.Wrap(&PresentationError{Err: err}, 0)
	}

	o.frames.Add(1)
	return nil
}

func (o *Output) advise(advisory *TimingAdvisory) {
	o.vsyncAdvisories.Add(1)
	if o.warned.CompareAndSwap(false, true) {
		slog.Warn("framebuffer: presenting without vsync", "error", advisory.Err)
		return
	}
	slog.Debug("framebuffer: wait for vsync failed", "error", advisory.Err)
}

// Close releases the back buffer, and the device if it implements [io.Closer]. It waits for an
// outstanding surface to be released first, so it must not be called by the surface owner while
// drawing. Calling Close more than once is a no-op.
func (o *Output) Close() error {
	o.sem <- struct{}{}
	defer func() { <-o.sem }()

	if o.closed {
		return nil
	}
	o.closed = true
	o.back = nil

	if c, ok := o.dev.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return errors.Wrap(err, 0)
		}
	}
	slog.Debug("framebuffer: output closed", "frames", o.frames.Load())
	return nil
}
