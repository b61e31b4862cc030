package framebuffer

import (
	"fmt"
	"log/slog"
	"os"
	"unsafe"

	"github.com/go-errors/errors"
	"golang.org/x/sys/unix"

	"github.com/BeatGlow/fbdisplay/internal/ioctl"
)

// From <linux/fb.h>
var (
	fbioGetVScreenInfo = ioctl.Encode(ioctl.None, 0, 0x4600)
	fbioGetFScreenInfo = ioctl.Encode(ioctl.None, 0, 0x4602)
	fbioWaitForVSync   = ioctl.Pointer(ioctl.Write, new(uint32), 'F', 0x20)
)

type linuxDevice struct {
	f   *os.File
	fd  uintptr
	mem []byte
}

// Open a Linux FrameBuffer device (fbdev) by name, typically /dev/fb[0..x].
//
// The device memory is mapped and the visible part of it becomes the target of the returned
// output. Closing the output unmaps the memory and closes the device.
func Open(name string) (*Output, error) {
	f, err := os.OpenFile(name, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	dev := &linuxDevice{
		f:  f,
		fd: f.Fd(),
	}

	var (
		fix  FixedScreenInfo
		info VarScreenInfo
	)
	if err = ioctl.Do(dev.fd, fbioGetFScreenInfo, unsafe.Pointer(&fix)); err != nil {
		_ = f.Close()
		return nil, initError("get fixed screen info", err)
	}
	if err = ioctl.Do(dev.fd, fbioGetVScreenInfo, unsafe.Pointer(&info)); err != nil {
		_ = f.Close()
		return nil, initError("get variable screen info", err)
	}

	mode, err := NewMode(&fix, &info)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	// Map pixel buffer.
	if dev.mem, err = unix.Mmap(int(dev.fd), 0, int(fix.SmemLen), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED); err != nil {
		_ = f.Close()
		return nil, initError("map device memory", err)
	}

	// The visible area starts at the panning offset.
	offset := int(info.Yoffset)*mode.Stride + int(info.Xoffset)*mode.Format.BytesPerPixel()
	if offset+mode.Len() > len(dev.mem) {
		_ = dev.Close()
		return nil, initError(fmt.Sprintf("visible area of %d bytes at offset %d exceeds %d bytes of device memory",
			mode.Len(), offset, len(dev.mem)), nil)
	}

	out, err := NewOutput(dev, fix, info, Memory(dev.mem[offset:offset+mode.Len()]))
	if err != nil {
		_ = dev.Close()
		return nil, err
	}

	slog.Info("framebuffer: opened device",
		"device", name,
		"id", fix.Name(),
		"mode", mode.String(),
	)
	return out, nil
}

// WaitForVSync issues FBIO_WAITFORVSYNC for the first CRTC.
func (d *linuxDevice) WaitForVSync() error {
	var crtc uint32
	return ioctl.Do(d.fd, fbioWaitForVSync, unsafe.Pointer(&crtc))
}

// Close unmaps the device memory and closes the device.
func (d *linuxDevice) Close() error {
	var err error
	if d.mem != nil {
		err = unix.Munmap(d.mem)
		d.mem = nil
	}
	return errors.Join(err, d.f.Close())
}
