package detection

import (
	"image"
)

// neighbours lists the 8-neighbourhood in clockwise order (Y grows downward),
// starting east. Index arithmetic mod 8 walks around a pixel.
var neighbours = [8]image.Point{
	{1, 0},   // E
	{1, 1},   // SE
	{0, 1},   // S
	{-1, 1},  // SW
	{-1, 0},  // W
	{-1, -1}, // NW
	{0, -1},  // N
	{1, -1},  // NE
}

func direction(d image.Point) int {
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return -1
}

// FindBorders extracts every border of a binary image, outer and hole alike,
// using the Suzuki–Abe border following algorithm.
//
// Non-zero pixels are foreground. The image frame is treated as background,
// so a foreground region touching the frame still produces a closed border.
// Borders are returned in the order their starting pixel is met in a raster
// scan; each border lists its pixels in tracing order.
//
// # Algorithm
//
//  1. Pad the image with a one-pixel background frame and label foreground 1.
//  2. Raster-scan. A foreground pixel with background to its west starts an
//     outer border; a foreground pixel with background to its east starts a
//     hole border.
//  3. Follow the border, marking each visited pixel with the border number
//     (negated when its east neighbour is background) so it never starts
//     another border of the same kind.
//
// Isolated single pixels produce a one-point border.
func FindBorders(bin *image.Gray) [][]image.Point {
	bounds := bin.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	stride := w + 2

	f := make([]int, stride*(h+2))
	for y := 0; y < h; y++ {
		row := bin.Pix[bin.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		for x := 0; x < w; x++ {
			if row[x] != 0 {
				f[(y+1)*stride+x+1] = 1
			}
		}
	}

	at := func(p image.Point) int { return f[p.Y*stride+p.X] }
	set := func(p image.Point, v int) { f[p.Y*stride+p.X] = v }
	toImage := func(p image.Point) image.Point {
		return image.Pt(p.X-1+bounds.Min.X, p.Y-1+bounds.Min.Y)
	}

	borders := make([][]image.Point, 0)
	nbd := 1

	for y := 1; y <= h; y++ {
		for x := 1; x <= w; x++ {
			p := image.Pt(x, y)
			v := at(p)
			if v == 0 {
				continue
			}

			var from image.Point
			switch {
			case v == 1 && at(image.Pt(x-1, y)) == 0:
				from = image.Pt(x-1, y)
			case v >= 1 && at(image.Pt(x+1, y)) == 0:
				from = image.Pt(x+1, y)
			default:
				continue
			}

			nbd++
			border := follow(p, from, nbd, at, set)
			pts := make([]image.Point, len(border))
			for i, b := range border {
				pts[i] = toImage(b)
			}
			borders = append(borders, pts)
		}
	}

	return borders
}

// follow traces one border starting at start, entering from the background
// pixel from. It relabels visited pixels with nbd and returns the pixels in
// tracing order.
func follow(start, from image.Point, nbd int, at func(image.Point) int, set func(image.Point, int)) []image.Point {
	// Search clockwise from `from` for the first foreground neighbour.
	s := direction(from.Sub(start))
	first := image.Point{}
	found := false
	for k := 0; k < 8; k++ {
		q := start.Add(neighbours[(s+k)%8])
		if at(q) != 0 {
			first = q
			found = true
			break
		}
	}
	if !found {
		set(start, -nbd)
		return []image.Point{start}
	}

	border := []image.Point{}
	prev, cur := first, start
	for {
		border = append(border, cur)

		// Search counter-clockwise starting after prev.
		d := direction(prev.Sub(cur))
		eastZero := false
		var next image.Point
		for k := 1; k <= 8; k++ {
			idx := (d - k + 16) % 8
			q := cur.Add(neighbours[idx])
			if at(q) != 0 {
				next = q
				break
			}
			if idx == 0 {
				eastZero = true
			}
		}

		if eastZero {
			set(cur, -nbd)
		} else if at(cur) == 1 {
			set(cur, nbd)
		}

		if next == start && cur == first {
			return border
		}
		prev, cur = cur, next
	}
}
