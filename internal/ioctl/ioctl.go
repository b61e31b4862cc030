//go:build linux

// Package ioctl encodes and issues ioctl requests against device files.
package ioctl

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mode is the IOCTL direction, as in _IOC_WRITE / _IOC_READ from <asm-generic/ioctl.h>.
type Mode uint8

// Modes
const (
	None Mode = iota
	Write
	Read
)

// Command to be sent over ioctl.
type Command uintptr

// Type returns the command's type (magic) byte.
func (c Command) Type() byte {
	return byte(c >> 8)
}

// Number returns the command's sequence number.
func (c Command) Number() byte {
	return byte(c)
}

// Size returns the size of the argument the command transfers.
func (c Command) Size() uint16 {
	return uint16(c >> 16 & 0x3fff)
}

func (c Command) String() string {
	var (
		mode = Mode(c >> 30 & 0x03)
		str  string
	)
	if mode&Write > 0 {
		str += " write"
	}
	if mode&Read > 0 {
		str += " read"
	}
	return fmt.Sprintf("ioctl%s (%d bytes) 0x%02x%02x", str, c.Size(), c.Type(), c.Number())
}

// Do executes the ioctl call with ptr pointing at the argument. A nil ptr sends a zero argument.
func Do(fd uintptr, command Command, ptr unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(command), uintptr(ptr))
	if errno != 0 {
		return fmt.Errorf("%s failed: %w", command, errno)
	}
	return nil
}

// Encode an ioctl command.
func Encode(mode Mode, size uint16, cmd uintptr) Command {
	return Command(mode)<<30 | Command(size&0x3fff)<<16 | Command(cmd&0xffff)
}

// Pointer encodes a command of type typ and number nr whose argument is the value pointed at by
// ref, as the _IOW / _IOR macros do.
func Pointer[T any](mode Mode, ref *T, typ, nr byte) Command {
	return Encode(mode, uint16(unsafe.Sizeof(*ref)), uintptr(typ)<<8|uintptr(nr))
}
