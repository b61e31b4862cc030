// Package pixel implements the color models and images used by Linux framebuffer pixel formats.
//
// This module provides additional color models, compatible with Go's native [color.Color] and
// [image.Image] / [draw.Image] interfaces. Images can either own their memory or wrap an existing
// strided buffer with [NewBuffer], such as the back buffer of a locked framebuffer surface.
package pixel
