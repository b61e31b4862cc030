package draw

import (
	"image"
	"image/color"
)

// Line draws a line between two points, both inclusive.
func Line(dst Image, a, b image.Point, c color.Color) {
	var (
		dx, sx = abs(b.X - a.X), sign(b.X - a.X)
		dy, sy = -abs(b.Y - a.Y), sign(b.Y - a.Y)
		e      = dx + dy
	)
	for {
		dst.Set(a.X, a.Y, c)
		if a == b {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			a.X += sx
		}
		if e2 <= dx {
			e += dx
			a.Y += sy
		}
	}
}

// HorizontalLine draws w pixels from (x,y) to the right.
func HorizontalLine(dst Image, x, y, w int, c color.Color) {
	if w > 0 {
		Line(dst, image.Pt(x, y), image.Pt(x+w-1, y), c)
	}
}

// VerticalLine draws h pixels from (x,y) down.
func VerticalLine(dst Image, x, y, h int, c color.Color) {
	if h > 0 {
		Line(dst, image.Pt(x, y), image.Pt(x, y+h-1), c)
	}
}

// Rectangle draws the outline of rect. Like [image.Rectangle], Max is exclusive.
func Rectangle(dst Image, rect image.Rectangle, c color.Color) {
	if rect.Empty() {
		return
	}
	var (
		w = rect.Dx()
		h = rect.Dy()
	)
	HorizontalLine(dst, rect.Min.X, rect.Min.Y, w, c)
	HorizontalLine(dst, rect.Min.X, rect.Max.Y-1, w, c)
	VerticalLine(dst, rect.Min.X, rect.Min.Y, h, c)
	VerticalLine(dst, rect.Max.X-1, rect.Min.Y, h, c)
}

// RoundedRectangle draws the outline of rect with corners of radius pixels. The radius is
// limited to what fits the rectangle.
func RoundedRectangle(dst Image, rect image.Rectangle, radius int, c color.Color) {
	r := fitRadius(rect, radius)
	if r == 0 {
		Rectangle(dst, rect, c)
		return
	}

	// Corner centers.
	var (
		x0, y0 = rect.Min.X + r, rect.Min.Y + r
		x1, y1 = rect.Max.X - 1 - r, rect.Max.Y - 1 - r
	)
	HorizontalLine(dst, x0, rect.Min.Y, x1-x0+1, c)
	HorizontalLine(dst, x0, rect.Max.Y-1, x1-x0+1, c)
	VerticalLine(dst, rect.Min.X, y0, y1-y0+1, c)
	VerticalLine(dst, rect.Max.X-1, y0, y1-y0+1, c)
	arc(r, func(dx, dy int) {
		dst.Set(x0-dx, y0-dy, c)
		dst.Set(x0-dy, y0-dx, c)
		dst.Set(x1+dx, y0-dy, c)
		dst.Set(x1+dy, y0-dx, c)
		dst.Set(x0-dx, y1+dy, c)
		dst.Set(x0-dy, y1+dx, c)
		dst.Set(x1+dx, y1+dy, c)
		dst.Set(x1+dy, y1+dx, c)
	})
}

// Box draws a filled rectangle.
func Box(dst Image, rect image.Rectangle, c color.Color) {
	Draw(dst, rect, image.NewUniform(c), image.Point{}, Src)
}

// RoundedBox draws a filled rectangle with corners of radius pixels. The radius is limited to
// what fits the rectangle.
func RoundedBox(dst Image, rect image.Rectangle, radius int, c color.Color) {
	r := fitRadius(rect, radius)
	if r == 0 {
		Box(dst, rect, c)
		return
	}

	var (
		x0, y0 = rect.Min.X + r, rect.Min.Y + r
		x1, y1 = rect.Max.X - 1 - r, rect.Max.Y - 1 - r
	)
	Box(dst, image.Rect(x0, rect.Min.Y, x1+1, rect.Max.Y), c)
	arc(r, func(dx, dy int) {
		VerticalLine(dst, x0-dx, y0-dy, y1-y0+1+2*dy, c)
		VerticalLine(dst, x0-dy, y0-dx, y1-y0+1+2*dx, c)
		VerticalLine(dst, x1+dx, y0-dy, y1-y0+1+2*dy, c)
		VerticalLine(dst, x1+dy, y0-dx, y1-y0+1+2*dx, c)
	})
}

// arc calls plot for the points of one octant of a circle around the origin, from (0, r) to
// the diagonal, using the midpoint algorithm. Mirroring x and y yields the whole quadrant.
func arc(r int, plot func(x, y int)) {
	x, y, f := 0, r, 1-r
	for x <= y {
		plot(x, y)
		x++
		if f < 0 {
			f += 2*x + 1
		} else {
			y--
			f += 2*(x-y) + 1
		}
	}
}

func fitRadius(rect image.Rectangle, radius int) int {
	if rect.Empty() || radius < 0 {
		return 0
	}
	return min(radius, (rect.Dx()-1)/2, (rect.Dy()-1)/2)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
