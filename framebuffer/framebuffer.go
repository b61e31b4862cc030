// Package framebuffer provides double-buffered output to the operating system's native framebuffer.
//
// Drawing happens in an off-screen back buffer owned by an [Output]. A caller acquires the
// buffer with [Output.Lock], draws into the returned [Surface] and hands it back with
// [Surface.Release]. Releasing waits for the next vertical refresh and copies the whole back
// buffer to the hardware-visible memory, so a frame is never shown half drawn. Only one
// surface is outstanding at a time; other callers of Lock block until it is released.
//
// On Linux, [Open] sets up an Output for a framebuffer device (fbdev) such as /dev/fb0. A
// [Screen] adapts an Output to the [display.Display] interface.
package framebuffer
