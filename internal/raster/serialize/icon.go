package serialize

import (
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/arran4/chat2png/internal/css"
)

// Icons are inline SVG built from line, polyline, polygon, circle, rect
// and straight-segment path elements.

func viewBox(n *html.Node) (x, y, w, h float64, ok bool) {
	f := strings.FieldsFunc(attr(n, "viewBox"), func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	if len(f) != 4 {
		return 0, 0, 0, 0, false
	}
	var v [4]float64
	for i, s := range f {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, 0, 0, 0, false
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return 0, 0, 0, 0, false
	}
	return v[0], v[1], v[2], v[3], true
}

// svgPaint is the inherited presentation state while walking an icon.
type svgPaint struct {
	fill, stroke string
	strokeWidth  float64
	opacity      float64
}

func (sp svgPaint) with(n *html.Node) svgPaint {
	if v := attr(n, "fill"); v != "" {
		sp.fill = v
	}
	if v := attr(n, "stroke"); v != "" {
		sp.stroke = v
	}
	if v := attr(n, "stroke-width"); v != "" {
		sp.strokeWidth = css.Number(v, sp.strokeWidth)
	}
	if v := attr(n, "opacity"); v != "" {
		sp.opacity *= clamp(css.Number(v, 1), 0, 1)
	}
	return sp
}

type iconCanvas struct {
	p      *painter
	dst    *image.RGBA
	b      *box
	ox, oy float64
	k      float64
}

func (ic *iconCanvas) pt(x, y float64) point { return point{ic.ox + x*ic.k, ic.oy + y*ic.k} }

func (ic *iconCanvas) paint(v string, opacity float64) (color.NRGBA, bool) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "none") {
		return color.NRGBA{}, false
	}
	c, ok := ic.p.parseColor(ic.b.style, "fill", v)
	if !ok {
		return color.NRGBA{}, false
	}
	c.A = uint8(float64(c.A)*opacity + 0.5)
	return c, c.A > 0
}

func (p *painter) paintIcon(dst *image.RGBA, b *box, r rect) {
	s := p.scale
	bw, pd := b.border, b.padding
	content := r.inset((bw.top+pd.top)*s, (bw.right+pd.right)*s, (bw.bottom+pd.bottom)*s, (bw.left+pd.left)*s)
	if content.empty() {
		return
	}
	vx, vy, vw, vh, ok := viewBox(b.node)
	if !ok {
		vw, vh = content.w/s, content.h/s
	}
	k := math.Min(content.w/vw, content.h/vh)
	if _, ok := p.color(b.style, "color", "#000000"); !ok {
		return
	}
	ic := &iconCanvas{
		p: p, dst: dst, b: b, k: k,
		ox: content.x + (content.w-vw*k)/2 - vx*k,
		oy: content.y + (content.h-vh*k)/2 - vy*k,
	}
	root := svgPaint{fill: "black", stroke: "none", strokeWidth: 1, opacity: 1}.with(b.node)
	ic.walk(b.node, root)
}

func (ic *iconCanvas) walk(n *html.Node, sp svgPaint) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		csp := sp.with(c)
		switch c.Data {
		case "g":
			ic.walk(c, csp)
		case "line":
			ic.shape(csp, [][]point{{
				ic.pt(num(c, "x1"), num(c, "y1")),
				ic.pt(num(c, "x2"), num(c, "y2")),
			}}, false)
		case "polyline", "polygon":
			ic.shape(csp, [][]point{ic.points(attr(c, "points"))}, c.Data == "polygon")
		case "circle":
			cx, cy := num(c, "cx"), num(c, "cy")
			center := ic.pt(cx, cy)
			ic.shape(csp, [][]point{circlePoints(center.x, center.y, num(c, "r")*ic.k)}, true)
		case "rect":
			ic.rect(c, csp)
		case "path":
			subs, closed := ic.path(attr(c, "d"))
			ic.shape(csp, subs, closed)
		}
	}
}

func (ic *iconCanvas) shape(sp svgPaint, subs [][]point, closed bool) {
	if fill, ok := ic.paint(sp.fill, sp.opacity); ok {
		var polys [][]point
		for _, sub := range subs {
			if len(sub) >= 3 {
				polys = append(polys, sub)
			}
		}
		fillPolygons(ic.dst, polys, fill)
	}
	if stroke, ok := ic.paint(sp.stroke, sp.opacity); ok {
		var polys [][]point
		for _, sub := range subs {
			polys = append(polys, strokePolygons(sub, sp.strokeWidth*ic.k, closed)...)
		}
		fillPolygons(ic.dst, polys, stroke)
	}
}

func (ic *iconCanvas) rect(n *html.Node, sp svgPaint) {
	o := ic.pt(num(n, "x"), num(n, "y"))
	r := rect{o.x, o.y, num(n, "width") * ic.k, num(n, "height") * ic.k}
	rx := num(n, "rx") * ic.k
	rd := radii{rx, rx, rx, rx}
	if fill, ok := ic.paint(sp.fill, sp.opacity); ok {
		fillRRect(ic.dst, r, rd, fill)
	}
	if stroke, ok := ic.paint(sp.stroke, sp.opacity); ok {
		hw := sp.strokeWidth * ic.k / 2
		fillRing(ic.dst, r.outset(hw), rd.grow(hw), r.outset(-hw), rd.grow(-hw), stroke)
	}
}

func (ic *iconCanvas) points(v string) []point {
	nums := numbers(v)
	out := make([]point, 0, len(nums)/2)
	for i := 0; i+1 < len(nums); i += 2 {
		out = append(out, ic.pt(nums[i], nums[i+1]))
	}
	return out
}

// path supports M, L, H, V and Z in absolute and relative form.
func (ic *iconCanvas) path(d string) ([][]point, bool) {
	var subs [][]point
	var cur []point
	var x, y, sx, sy float64
	closed := false
	cmd := byte(0)
	i := 0
	next := func() (float64, bool) {
		for i < len(d) && (d[i] == ' ' || d[i] == ',' || d[i] == '\n' || d[i] == '\t') {
			i++
		}
		start := i
		if i < len(d) && (d[i] == '-' || d[i] == '+') {
			i++
		}
		for i < len(d) && (d[i] == '.' || (d[i] >= '0' && d[i] <= '9')) {
			i++
		}
		if start == i {
			return 0, false
		}
		f, err := strconv.ParseFloat(d[start:i], 64)
		return f, err == nil
	}
	flush := func() {
		if len(cur) > 1 {
			subs = append(subs, cur)
		}
		cur = nil
	}
	for i < len(d) {
		c := d[i]
		if unicode.IsLetter(rune(c)) {
			cmd = c
			i++
			if cmd == 'Z' || cmd == 'z' {
				closed = true
				x, y = sx, sy
				flush()
			}
			continue
		}
		if c == ' ' || c == ',' || c == '\n' || c == '\t' {
			i++
			continue
		}
		rel := cmd >= 'a' && cmd <= 'z'
		switch cmd | 0x20 {
		case 'm', 'l':
			nx, ok1 := next()
			ny, ok2 := next()
			if !ok1 || !ok2 {
				return subs, closed
			}
			if rel {
				nx, ny = x+nx, y+ny
			}
			if cmd|0x20 == 'm' {
				flush()
				sx, sy = nx, ny
				// Subsequent pairs are implicit line-tos.
				if rel {
					cmd = 'l'
				} else {
					cmd = 'L'
				}
			}
			x, y = nx, ny
			cur = append(cur, ic.pt(x, y))
		case 'h':
			nx, ok := next()
			if !ok {
				return subs, closed
			}
			if rel {
				nx += x
			}
			x = nx
			cur = append(cur, ic.pt(x, y))
		case 'v':
			ny, ok := next()
			if !ok {
				return subs, closed
			}
			if rel {
				ny += y
			}
			y = ny
			cur = append(cur, ic.pt(x, y))
		default:
			// Unsupported command: skip its arguments.
			if _, ok := next(); !ok {
				i++
			}
		}
	}
	flush()
	return subs, closed
}

func num(n *html.Node, key string) float64 {
	return css.Number(attr(n, key), 0)
}

func numbers(v string) []float64 {
	var out []float64
	for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || unicode.IsSpace(r) }) {
		if n, err := strconv.ParseFloat(f, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}
