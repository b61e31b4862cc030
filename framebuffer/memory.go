package framebuffer

import (
	"io"
	"runtime/debug"

	"github.com/go-errors/errors"
)

// Memory is hardware-visible framebuffer memory, typically a shared mapping of the device.
type Memory []byte

// WriteAt copies p into the memory at offset off. A fault while touching the memory, such as a
// bus error on a mapping whose device went away, is returned as an error.
func (m Memory) WriteAt(p []byte, off int64) (n int, err error) {
	if off < 0 || off > int64(len(m)) {
		return 0, errors.Errorf("framebuffer: offset %d outside of %d bytes of memory", off, len(m))
	}

	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, errors.Errorf("framebuffer: memory fault: %v", r)
		}
	}()

	if n = copy(m[off:], p); n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

var _ io.WriterAt = Memory(nil)
