package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Label is a text string anchored at its baseline origin.
type Label struct {
	Text  string
	At    image.Point
	Color color.Color
}

// Path is a polyline drawn with square pens of the given thickness.
// A closed path also joins the last point back to the first.
type Path struct {
	Points    []image.Point
	Closed    bool
	Color     color.Color
	Thickness int
}

// Overlay is everything to draw on top of an image. Paths are drawn first,
// then labels, each in slice order.
type Overlay struct {
	Paths  []Path
	Labels []Label
}

// Draw returns a mutable copy of img with the overlay applied. img itself is
// never modified.
func Draw(img image.Image, ov Overlay) *image.RGBA {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)

	for _, p := range ov.Paths {
		drawPath(canvas, p)
	}
	for _, l := range ov.Labels {
		drawLabel(canvas, l)
	}
	return canvas
}

func drawPath(img *image.RGBA, p Path) {
	n := len(p.Points)
	if n == 0 {
		return
	}
	if n == 1 {
		stamp(img, p.Points[0], p.Thickness, p.Color)
		return
	}
	for i := 0; i+1 < n; i++ {
		drawLine(img, p.Points[i], p.Points[i+1], p.Thickness, p.Color)
	}
	if p.Closed && n > 2 {
		drawLine(img, p.Points[n-1], p.Points[0], p.Thickness, p.Color)
	}
}

// drawLine rasterises a segment with Bresenham's algorithm, stamping a square
// pen at every step.
func drawLine(img *image.RGBA, a, b image.Point, thickness int, c color.Color) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy

	x, y := a.X, a.Y
	for {
		stamp(img, image.Pt(x, y), thickness, c)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// stamp fills a thickness x thickness square centred on p, clipped to img.
func stamp(img *image.RGBA, p image.Point, thickness int, c color.Color) {
	if thickness < 1 {
		thickness = 1
	}
	half := thickness / 2
	r := image.Rect(p.X-half, p.Y-half, p.X-half+thickness, p.Y-half+thickness).Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func drawLabel(img *image.RGBA, l Label) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(l.Color),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(l.At.X, l.At.Y),
	}
	d.DrawString(l.Text)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
