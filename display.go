// Package display contains the display abstraction implemented by the framebuffer output.
package display

import (
	"image"
	"image/color"
	"os"

	"github.com/go-errors/errors"
	"periph.io/x/conn/v3/gpio"
)

// Debug is set when the DISPLAY_DEBUG environment variable is not empty.
var Debug bool

func init() {
	Debug = os.Getenv("DISPLAY_DEBUG") != ""
}

// Errors
var (
	ErrRotation error = errors.New("display: rotation not supported")
)

// Rotation defines pixel rotation.
type Rotation uint8

// Supported rotations.
const (
	NoRotation Rotation = iota
	Rotate90            // Rotate 90° clock wise
	Rotate180           // Rotate 180°
	Rotate270           // Rotate 270° clock wise
)

func (r Rotation) String() string {
	switch r % 4 {
	case Rotate90:
		return "90°"
	case Rotate180:
		return "180°"
	case Rotate270:
		return "270°"
	default:
		return "0°"
	}
}

// Display is a pixel display.
type Display interface {
	// Close the display driver.
	Close() error

	// Clear the display buffer.
	Clear()

	// At returns the color of the pixel at (x, y).
	At(x, y int) color.Color

	// Set the pixel color at (x, y).
	Set(x, y int, c color.Color)

	// Bounds is the display bounding box (dimensions).
	Bounds() image.Rectangle

	// ColorModel used by the display.
	ColorModel() color.Model

	// Show toggles the display on or off.
	Show(bool) error

	// SetContrast adjusts the contrast level.
	SetContrast(level uint8) error

	// SetRotation adjusts the pixel rotation.
	SetRotation(Rotation) error

	// Refresh redraws the display.
	Refresh() error
}

// Config is the display configuration.
type Config struct {
	// Rotation of the display.
	Rotation Rotation

	// Backlight pin, optional.
	Backlight gpio.PinOut
}
