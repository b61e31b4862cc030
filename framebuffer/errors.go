package framebuffer

import (
	"github.com/go-errors/errors"
)

// Errors
var (
	ErrInitialization error = errors.New("framebuffer: initialization failed")
	ErrDisposed       error = errors.New("framebuffer: output is disposed")
	ErrPresentation   error = errors.New("framebuffer: presentation failed")
	ErrReleased       error = errors.New("framebuffer: surface already released")
	ErrNotSupported   error = errors.New("framebuffer: not supported")
)

// InitializationError is returned when an [Output] can not be constructed, either because the
// display geometry is degenerate or because the back buffer can not be allocated.
type InitializationError struct {
	Reason string
	Err    error
}

func (e *InitializationError) Error() string {
	if e.Err != nil {
		return ErrInitialization.Error() + ": " + e.Reason + ": " + e.Err.Error()
	}
	return ErrInitialization.Error() + ": " + e.Reason
}

func (e *InitializationError) Unwrap() error { return e.Err }

func (e *InitializationError) Is(target error) bool { return target == ErrInitialization }

// PresentationError is returned by [Surface.Release] when the back buffer could not be copied
// to the hardware-visible memory. The output stays usable.
type PresentationError struct {
	Err error
}

func (e *PresentationError) Error() string {
	return ErrPresentation.Error() + ": " + e.Err.Error()
}

func (e *PresentationError) Unwrap() error { return e.Err }

func (e *PresentationError) Is(target error) bool { return target == ErrPresentation }

// TimingAdvisory records a failed wait for vertical sync. It is logged and counted, but never
// returned: presentation continues without the timing hint.
type TimingAdvisory struct {
	Err error
}

func (e *TimingAdvisory) Error() string {
	return "framebuffer: wait for vsync failed: " + e.Err.Error()
}

func (e *TimingAdvisory) Unwrap() error { return e.Err }

func initError(reason string, err error) error {
	return errors.Wrap(&InitializationError{Reason: reason, Err: err}, 1)
}
