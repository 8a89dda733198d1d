package serialize

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

type point struct{ x, y float64 }

// rect is a rectangle in device pixels.
type rect struct{ x, y, w, h float64 }

func (r rect) empty() bool { return r.w <= 0 || r.h <= 0 }

func (r rect) inset(top, right, bottom, left float64) rect {
	return rect{r.x + left, r.y + top, r.w - left - right, r.h - top - bottom}
}

func (r rect) outset(d float64) rect {
	return rect{r.x - d, r.y - d, r.w + 2*d, r.h + 2*d}
}

func (r rect) bounds() image.Rectangle {
	return image.Rect(int(math.Floor(r.x)), int(math.Floor(r.y)), int(math.Ceil(r.x+r.w)), int(math.Ceil(r.y+r.h)))
}

// radii are corner radii: top-left, top-right, bottom-right, bottom-left.
type radii [4]float64

func (rd radii) zero() bool { return rd == radii{} }

// fit scales radii down so adjacent corners never overlap.
func (rd radii) fit(w, h float64) radii {
	f := 1.0
	check := func(sum, side float64) {
		if sum > side && sum > 0 {
			f = math.Min(f, side/sum)
		}
	}
	check(rd[0]+rd[1], w)
	check(rd[3]+rd[2], w)
	check(rd[0]+rd[3], h)
	check(rd[1]+rd[2], h)
	for i := range rd {
		rd[i] = math.Max(0, rd[i]*f)
	}
	return rd
}

func (rd radii) shrink(top, right, bottom, left float64) radii {
	return radii{
		math.Max(0, rd[0]-math.Max(top, left)),
		math.Max(0, rd[1]-math.Max(top, right)),
		math.Max(0, rd[2]-math.Max(bottom, right)),
		math.Max(0, rd[3]-math.Max(bottom, left)),
	}
}

func (rd radii) grow(d float64) radii {
	for i := range rd {
		if rd[i] > 0 {
			rd[i] = math.Max(0, rd[i]+d)
		}
	}
	return rd
}

func (rd radii) scale(s float64) radii {
	for i := range rd {
		rd[i] *= s
	}
	return rd
}

// pathRRect adds a rounded rectangle to z. Coordinates are shifted by -o.
// ccw reverses the winding so a second path cuts a hole.
func pathRRect(z *vector.Rasterizer, o image.Point, r rect, rd radii, ccw bool) {
	rd = rd.fit(r.w, r.h)
	ox, oy := float64(o.X), float64(o.Y)
	x0, y0 := r.x-ox, r.y-oy
	x1, y1 := x0+r.w, y0+r.h
	f := func(v float64) float32 { return float32(v) }
	tl, tr, br, bl := rd[0], rd[1], rd[2], rd[3]
	if !ccw {
		z.MoveTo(f(x0+tl), f(y0))
		z.LineTo(f(x1-tr), f(y0))
		if tr > 0 {
			z.CubeTo(f(x1-tr+tr*kappa), f(y0), f(x1), f(y0+tr-tr*kappa), f(x1), f(y0+tr))
		}
		z.LineTo(f(x1), f(y1-br))
		if br > 0 {
			z.CubeTo(f(x1), f(y1-br+br*kappa), f(x1-br+br*kappa), f(y1), f(x1-br), f(y1))
		}
		z.LineTo(f(x0+bl), f(y1))
		if bl > 0 {
			z.CubeTo(f(x0+bl-bl*kappa), f(y1), f(x0), f(y1-bl+bl*kappa), f(x0), f(y1-bl))
		}
		z.LineTo(f(x0), f(y0+tl))
		if tl > 0 {
			z.CubeTo(f(x0), f(y0+tl-tl*kappa), f(x0+tl-tl*kappa), f(y0), f(x0+tl), f(y0))
		}
		z.ClosePath()
		return
	}
	z.MoveTo(f(x0+tl), f(y0))
	if tl > 0 {
		z.CubeTo(f(x0+tl-tl*kappa), f(y0), f(x0), f(y0+tl-tl*kappa), f(x0), f(y0+tl))
	}
	z.LineTo(f(x0), f(y1-bl))
	if bl > 0 {
		z.CubeTo(f(x0), f(y1-bl+bl*kappa), f(x0+bl-bl*kappa), f(y1), f(x0+bl), f(y1))
	}
	z.LineTo(f(x1-br), f(y1))
	if br > 0 {
		z.CubeTo(f(x1-br+br*kappa), f(y1), f(x1), f(y1-br+br*kappa), f(x1), f(y1-br))
	}
	z.LineTo(f(x1), f(y0+tr))
	if tr > 0 {
		z.CubeTo(f(x1), f(y0+tr-tr*kappa), f(x1-tr+tr*kappa), f(y0), f(x1-tr), f(y0))
	}
	z.ClosePath()
}

// rasterize runs build against a rasterizer covering bounds and returns the
// coverage mask.
func rasterize(bounds image.Rectangle, build func(z *vector.Rasterizer)) *image.Alpha {
	mask := image.NewAlpha(bounds)
	if bounds.Empty() {
		return mask
	}
	z := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	build(z)
	z.Draw(mask, bounds, image.Opaque, image.Point{})
	return mask
}

func rrectMask(r rect, rd radii) *image.Alpha {
	b := r.bounds()
	return rasterize(b, func(z *vector.Rasterizer) { pathRRect(z, b.Min, r, rd, false) })
}

// fillMask composites col through mask onto dst.
func fillMask(dst draw.Image, mask *image.Alpha, col color.Color) {
	b := mask.Bounds()
	draw.DrawMask(dst, b, image.NewUniform(col), image.Point{}, mask, b.Min, draw.Over)
}

func fillRRect(dst draw.Image, r rect, rd radii, col color.NRGBA) {
	if r.empty() || col.A == 0 {
		return
	}
	if rd.zero() && isPixelAligned(r) {
		draw.Draw(dst, r.bounds(), image.NewUniform(col), image.Point{}, draw.Over)
		return
	}
	fillMask(dst, rrectMask(r, rd), col)
}

func isPixelAligned(r rect) bool {
	return r.x == math.Floor(r.x) && r.y == math.Floor(r.y) && r.w == math.Floor(r.w) && r.h == math.Floor(r.h)
}

// fillRing paints the area between two rounded rectangles.
func fillRing(dst draw.Image, outer rect, ord radii, inner rect, ird radii, col color.NRGBA) {
	if outer.empty() || col.A == 0 {
		return
	}
	b := outer.bounds()
	mask := rasterize(b, func(z *vector.Rasterizer) {
		pathRRect(z, b.Min, outer, ord, false)
		if !inner.empty() {
			pathRRect(z, b.Min, inner, ird, true)
		}
	})
	fillMask(dst, mask, col)
}

// polygon helpers for icon strokes. All polygons are emitted clockwise so
// overlapping pieces merge instead of cancelling.

func signedArea(pts []point) float64 {
	a := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i].x*pts[j].y - pts[j].x*pts[i].y
	}
	return a / 2
}

func pathPolygon(z *vector.Rasterizer, o image.Point, pts []point) {
	if len(pts) < 3 {
		return
	}
	ox, oy := float64(o.X), float64(o.Y)
	at := func(i int) point { return pts[i] }
	n := len(pts)
	if signedArea(pts) < 0 {
		at = func(i int) point { return pts[n-1-i] }
	}
	p := at(0)
	z.MoveTo(float32(p.x-ox), float32(p.y-oy))
	for i := 1; i < n; i++ {
		p = at(i)
		z.LineTo(float32(p.x-ox), float32(p.y-oy))
	}
	z.ClosePath()
}

func circlePoints(cx, cy, r float64) []point {
	n := int(math.Max(12, math.Min(64, r*2)))
	pts := make([]point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = point{cx + r*math.Cos(a), cy + r*math.Sin(a)}
	}
	return pts
}

// strokePolygons turns a polyline into segment quads with round joins and
// caps.
func strokePolygons(pts []point, width float64, closed bool) [][]point {
	if len(pts) == 0 || width <= 0 {
		return nil
	}
	hw := width / 2
	var out [][]point
	segs := len(pts) - 1
	if closed {
		segs = len(pts)
	}
	for i := 0; i < segs; i++ {
		a, b := pts[i], pts[(i+1)%len(pts)]
		dx, dy := b.x-a.x, b.y-a.y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*hw, dx/l*hw
		out = append(out, []point{
			{a.x + nx, a.y + ny}, {b.x + nx, b.y + ny},
			{b.x - nx, b.y - ny}, {a.x - nx, a.y - ny},
		})
	}
	for _, p := range pts {
		out = append(out, circlePoints(p.x, p.y, hw))
	}
	return out
}

func polygonBounds(polys [][]point) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, poly := range polys {
		for _, p := range poly {
			minX, minY = math.Min(minX, p.x), math.Min(minY, p.y)
			maxX, maxY = math.Max(maxX, p.x), math.Max(maxY, p.y)
		}
	}
	if minX > maxX {
		return image.Rectangle{}
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

func fillPolygons(dst draw.Image, polys [][]point, col color.NRGBA) {
	if len(polys) == 0 || col.A == 0 {
		return
	}
	b := polygonBounds(polys)
	mask := rasterize(b, func(z *vector.Rasterizer) {
		for _, p := range polys {
			pathPolygon(z, b.Min, p)
		}
	})
	fillMask(dst, mask, col)
}
