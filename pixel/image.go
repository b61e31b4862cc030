package pixel

import (
	"encoding/binary"
	"image"
	"image/color"

	"github.com/BeatGlow/fbdisplay/draw"
)

type Image interface {
	draw.Image

	// Clear the image.
	Clear()

	// Fill the image with a single color.
	Fill(color.Color)
}

// Buffer holds the pixel values and is a container that is used by most image formats in this package.
type Buffer struct {
	// Rect is the image bounding box.
	Rect image.Rectangle

	// Pix are the image pixels.
	Pix []byte

	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
}

// NewBuffer wraps existing pixel memory of w×h pixels with stride bytes per row.
//
// The memory is not copied, so writes through any image using the buffer land in pix directly.
func NewBuffer(pix []byte, w, h, stride int) Buffer {
	return Buffer{
		Rect:   image.Rect(0, 0, w, h),
		Pix:    pix,
		Stride: stride,
	}
}

func (p *Buffer) Bounds() image.Rectangle {
	return p.Rect
}

func (p *Buffer) Clear() {
	clear(p.Pix)
}

// fill repeats the pixel value v over every pixel in the image, leaving row padding untouched.
func (p *Buffer) fill(v []byte) {
	w := p.Rect.Dx() * len(v)
	for y := 0; y < p.Rect.Dy(); y++ {
		row := p.Pix[y*p.Stride : y*p.Stride+w]
		for i := 0; i < w; i += len(v) {
			copy(row[i:], v)
		}
	}
}

// MakeBuffer allocates a buffer of w×h pixels with stride bytes per row.
func MakeBuffer(w, h, stride int) Buffer {
	return NewBuffer(make([]byte, stride*h), w, h, stride)
}

// CRGB16Image is a 16-bits per pixel 5-6-5-bit RGB image.
type CRGB16Image struct {
	Buffer
	Order binary.ByteOrder
}

// NewCRGB16Image returns a 16-bits per pixel image over buf. Framebuffer memory is little endian.
func NewCRGB16Image(buf Buffer) *CRGB16Image {
	return &CRGB16Image{
		Buffer: buf,
		Order:  binary.LittleEndian,
	}
}

func (p *CRGB16Image) ColorModel() color.Model {
	return CRGB16Model
}

func (p *CRGB16Image) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return color.Transparent
	}

	v := p.Order.Uint16(p.Pix[x*2+y*p.Stride:])
	return CRGB16{v}
}

func (p *CRGB16Image) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}

	v := crgb16Model(c).(CRGB16).V
	p.Order.PutUint16(p.Pix[x*2+y*p.Stride:], v)
}

func (p *CRGB16Image) Fill(c color.Color) {
	value := crgb16Model(c).(CRGB16).V
	bytes := make([]byte, 2)
	p.Order.PutUint16(bytes, value)
	p.fill(bytes)
}

// RGBAImage is a 32-bits per pixel image with bytes in R, G, B, A order.
type RGBAImage struct {
	Buffer
}

func NewRGBAImage(buf Buffer) *RGBAImage {
	return &RGBAImage{Buffer: buf}
}

func (p *RGBAImage) ColorModel() color.Model {
	return color.RGBAModel
}

func (p *RGBAImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return color.Transparent
	}

	i := x*4 + y*p.Stride
	s := p.Pix[i : i+4 : i+4]
	return color.RGBA{R: s[0], G: s[1], B: s[2], A: s[3]}
}

func (p *RGBAImage) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}

	v := color.RGBAModel.Convert(c).(color.RGBA)
	i := x*4 + y*p.Stride
	s := p.Pix[i : i+4 : i+4]
	s[0], s[1], s[2], s[3] = v.R, v.G, v.B, v.A
}

func (p *RGBAImage) Fill(c color.Color) {
	v := color.RGBAModel.Convert(c).(color.RGBA)
	p.fill([]byte{v.R, v.G, v.B, v.A})
}

// BGRAImage is a 32-bits per pixel image with bytes in B, G, R, A order.
type BGRAImage struct {
	Buffer
}

func NewBGRAImage(buf Buffer) *BGRAImage {
	return &BGRAImage{Buffer: buf}
}

func (p *BGRAImage) ColorModel() color.Model {
	return BGRAModel
}

func (p *BGRAImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return color.Transparent
	}

	i := x*4 + y*p.Stride
	s := p.Pix[i : i+4 : i+4]
	return BGRA{B: s[0], G: s[1], R: s[2], A: s[3]}
}

func (p *BGRAImage) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}

	v := bgraModel(c).(BGRA)
	i := x*4 + y*p.Stride
	s := p.Pix[i : i+4 : i+4]
	s[0], s[1], s[2], s[3] = v.B, v.G, v.R, v.A
}

func (p *BGRAImage) Fill(c color.Color) {
	v := bgraModel(c).(BGRA)
	p.fill([]byte{v.B, v.G, v.R, v.A})
}

// Interface checks.
var (
	_ Image = (*CRGB16Image)(nil)
	_ Image = (*RGBAImage)(nil)
	_ Image = (*BGRAImage)(nil)
)
