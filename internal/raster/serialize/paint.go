package serialize

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/freetype"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/fixed"

	"github.com/arran4/chat2png/internal/css"
	"github.com/arran4/chat2png/pkg/logger"
)

type painter struct {
	ctx   context.Context
	e     *engine
	scale float64
	ft    *freetype.Context
	err   error
}

func newPainter(ctx context.Context, e *engine, scale float64) *painter {
	ft := freetype.NewContext()
	ft.SetDPI(72)
	return &painter{ctx: ctx, e: e, scale: scale, ft: ft}
}

func (p *painter) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

// color resolves a color-valued property. Unsupported syntax fails the
// whole paint.
func (p *painter) color(st css.Style, prop, def string) (color.NRGBA, bool) {
	return p.parseColor(st, prop, st.Or(prop, def))
}

func (p *painter) parseColor(st css.Style, prop, v string) (color.NRGBA, bool) {
	cur, err := css.ParseColor(st.Or("color", "#000000"), color.NRGBA{A: 255})
	if err != nil {
		p.fail(fmt.Errorf("serialize: color %q: %w", st.Get("color"), err))
		return color.NRGBA{}, false
	}
	c, err := css.ParseColor(v, cur)
	if err != nil {
		p.fail(fmt.Errorf("serialize: %s %q: %w", prop, v, err))
		return color.NRGBA{}, false
	}
	return c, true
}

func (p *painter) radii(b *box) radii {
	var rd radii
	for i, c := range [...]string{"top-left", "top-right", "bottom-right", "bottom-left"} {
		v := b.style.Get("border-" + c + "-radius")
		if v == "" {
			continue
		}
		base := math.Min(b.w, b.h)
		if px, ok := b.length("border-"+c+"-radius", base, true); ok {
			rd[i] = math.Max(0, px)
		}
	}
	return rd.fit(b.w, b.h)
}

// translation reads translate functions from transform; percentages refer
// to the box's own size.
func translation(b *box) (tx, ty float64) {
	v := strings.TrimSpace(b.style.Get("transform"))
	if v == "" || v == "none" {
		return 0, 0
	}
	for _, fn := range css.Fields(v) {
		open := strings.IndexByte(fn, '(')
		if open < 0 || !strings.HasSuffix(fn, ")") {
			continue
		}
		name := strings.ToLower(fn[:open])
		args := css.SplitCommas(fn[open+1 : len(fn)-1])
		if len(args) == 1 && strings.Contains(args[0], " ") {
			args = css.Fields(args[0])
		}
		arg := func(i int, base float64) float64 {
			if i >= len(args) {
				return 0
			}
			l, ok := css.ParseLength(args[i])
			if !ok {
				return 0
			}
			px, _ := l.Resolve(base, true, b.fontSize())
			return px
		}
		switch name {
		case "translate", "translate3d":
			tx += arg(0, b.w)
			ty += arg(1, b.h)
		case "translatex":
			tx += arg(0, b.w)
		case "translatey":
			ty += arg(0, b.h)
		}
	}
	return tx, ty
}

// paintBox paints b with its border box at (x, y) CSS px.
func (p *painter) paintBox(dst *image.RGBA, b *box, x, y float64) {
	if p.err != nil || p.ctx.Err() != nil {
		return
	}
	tx, ty := translation(b)
	x, y = x+tx, y+ty
	op := clamp(b.number("opacity", 1), 0, 1)
	if op <= 0 {
		return
	}
	target := dst
	var layer *image.RGBA
	if op < 1 {
		layer = image.NewRGBA(dst.Bounds())
		target = layer
	}

	s := p.scale
	border := rect{x * s, y * s, b.w * s, b.h * s}
	rd := p.radii(b).scale(s)
	if !b.hidden() {
		p.paintShadows(target, b, border, rd)
		p.paintBackground(target, b, border, rd)
		p.paintBorders(target, b, border, rd)
		switch b.kind {
		case kindImage:
			p.paintImage(target, b, border, rd)
		case kindSVG:
			p.paintIcon(target, b, border)
		}
	}

	if b.clips() {
		bw := b.border
		pad := border.inset(bw.top*s, bw.right*s, bw.bottom*s, bw.left*s)
		prd := rd.shrink(bw.top*s, bw.right*s, bw.bottom*s, bw.left*s)
		clip := pad.bounds().Intersect(target.Bounds())
		if !clip.Empty() {
			inner := image.NewRGBA(clip)
			p.paintContent(inner, b, x, y)
			draw.DrawMask(target, clip, inner, clip.Min, rrectMask(pad, prd), clip.Min, draw.Over)
		}
	} else {
		p.paintContent(target, b, x, y)
	}

	if layer != nil {
		r := dst.Bounds()
		draw.DrawMask(dst, r, layer, r.Min, image.NewUniform(color.Alpha{A: uint8(op*255 + 0.5)}), image.Point{}, draw.Over)
	}
}

// paintOrder returns children in stacking order: negative z-index,
// in-flow boxes, then positioned boxes by z-index.
func paintOrder(children []*box) []*box {
	var neg, flow, pos []*box
	for _, c := range children {
		switch {
		case !c.positioned():
			flow = append(flow, c)
		case c.zIndex() < 0:
			neg = append(neg, c)
		default:
			pos = append(pos, c)
		}
	}
	byZ := func(list []*box) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].zIndex() < list[j].zIndex() })
	}
	byZ(neg)
	byZ(pos)
	out := make([]*box, 0, len(children))
	out = append(out, neg...)
	out = append(out, flow...)
	return append(out, pos...)
}

func (p *painter) paintContent(dst *image.RGBA, b *box, x, y float64) {
	cx := x + b.border.left + b.padding.left
	cy := y + b.border.top + b.padding.top
	for _, l := range b.lines {
		for _, f := range l.frags {
			if f.atom != nil {
				p.paintBox(dst, f.atom, x+f.atom.x, y+f.atom.y)
				continue
			}
			if f.text == "" || f.ts.style.Get("visibility") == "hidden" {
				continue
			}
			p.drawText(dst, f, cx+f.x, cy+l.y+l.baseline)
		}
	}
	for _, c := range paintOrder(b.children) {
		p.paintBox(dst, c, x+c.x, y+c.y)
	}
}

func (p *painter) drawText(dst *image.RGBA, f fragment, x, baseline float64) {
	col, ok := p.color(f.ts.style, "color", "#000000")
	if !ok || col.A == 0 {
		return
	}
	s := p.scale
	p.ft.SetFont(p.e.fonts.Font(f.ts.font))
	p.ft.SetFontSize(f.ts.size * s)
	p.ft.SetSrc(image.NewUniform(col))
	p.ft.SetDst(dst)
	p.ft.SetClip(dst.Bounds())
	pt := fixed.Point26_6{X: fixed.Int26_6(math.Round(x * s * 64)), Y: fixed.Int26_6(math.Round(baseline * s * 64))}
	if _, err := p.ft.DrawString(f.text, pt); err != nil {
		p.fail(fmt.Errorf("serialize: draw text: %w", err))
		return
	}
	thick := math.Max(1, f.ts.size/14*s)
	if f.ts.strike {
		fillRRect(dst, rect{x * s, (baseline - f.ts.size*0.3) * s, f.w * s, thick}, radii{}, col)
	}
	if f.ts.underline {
		fillRRect(dst, rect{x * s, (baseline + f.ts.size*0.12) * s, f.w * s, thick}, radii{}, col)
	}
}

type shadow struct {
	x, y, blur, spread float64
	color              color.NRGBA
}

func (p *painter) shadows(b *box) []shadow {
	v := strings.TrimSpace(b.style.Get("box-shadow"))
	if v == "" || v == "none" {
		return nil
	}
	var out []shadow
	for _, layer := range css.SplitCommas(v) {
		var lens []float64
		colorText := "currentcolor"
		inset := false
		for _, f := range css.Fields(layer) {
			if strings.EqualFold(f, "inset") {
				inset = true
				continue
			}
			if l, ok := css.ParseLength(f); ok {
				if px, ok := l.Resolve(0, false, b.fontSize()); ok {
					lens = append(lens, px)
					continue
				}
			}
			colorText = f
		}
		if inset || len(lens) < 2 {
			continue
		}
		for len(lens) < 4 {
			lens = append(lens, 0)
		}
		col, ok := p.parseColor(b.style, "box-shadow", colorText)
		if !ok {
			return nil
		}
		out = append(out, shadow{lens[0], lens[1], math.Max(0, lens[2]), lens[3], col})
	}
	return out
}

// paintShadows approximates blurred outer shadows with stacked rounded
// rectangles spanning the blur radius.
func (p *painter) paintShadows(dst *image.RGBA, b *box, r rect, rd radii) {
	list := p.shadows(b)
	s := p.scale
	for i := len(list) - 1; i >= 0; i-- {
		sh := list[i]
		if sh.color.A == 0 {
			continue
		}
		base := rect{r.x + sh.x*s, r.y + sh.y*s, r.w, r.h}
		spread, blur := sh.spread*s, sh.blur*s
		if blur == 0 {
			fillRRect(dst, base.outset(spread), rd.grow(spread), sh.color)
			continue
		}
		n := int(clamp(blur/2, 2, 24))
		a := 1 - math.Pow(1-float64(sh.color.A)/255, 1/float64(n))
		step := sh.color
		step.A = uint8(clamp(a*255+0.5, 1, 255))
		for k := 0; k < n; k++ {
			d := spread + blur - 2*blur*(float64(k)+0.5)/float64(n)
			fillRRect(dst, base.outset(d), rd.grow(d), step)
		}
	}
}

func (p *painter) paintBackground(dst *image.RGBA, b *box, r rect, rd radii) {
	col, ok := p.color(b.style, "background-color", "transparent")
	if !ok {
		return
	}
	fillRRect(dst, r, rd, col)
	v := strings.TrimSpace(b.style.Get("background-image"))
	if v == "" || v == "none" {
		return
	}
	layers := css.SplitCommas(v)
	for i := len(layers) - 1; i >= 0; i-- {
		layer := strings.TrimSpace(layers[i])
		lower := strings.ToLower(layer)
		switch {
		case strings.HasPrefix(lower, "url("):
			img := p.e.image(p.ctx, unquoteURL(layer))
			if img == nil {
				continue
			}
			fit := "fill"
			switch b.style.Get("background-size") {
			case "cover":
				fit = "cover"
			case "contain":
				fit = "contain"
			}
			drawImageFit(dst, img, r, rd, fit)
		case strings.HasPrefix(lower, "linear-gradient("):
			g, err := p.parseLinearGradient(b.style, layer[len("linear-gradient("):len(layer)-1])
			if err != nil {
				logger.Debug("gradient layer skipped", zap.String("layer", layer), zap.Error(err))
				continue
			}
			g.paint(dst, r, rd)
		}
		// Radial and conic gradients are not painted.
	}
}

func unquoteURL(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v[len("url("):], ")")
	return strings.Trim(strings.TrimSpace(v), `"'`)
}

func (p *painter) paintBorders(dst *image.RGBA, b *box, r rect, rd radii) {
	bw := b.border
	if bw == (edges{}) {
		return
	}
	s := p.scale
	sides := [...]string{"top", "right", "bottom", "left"}
	widths := [...]float64{bw.top, bw.right, bw.bottom, bw.left}
	var cols [4]color.NRGBA
	for i, side := range sides {
		if widths[i] == 0 {
			continue
		}
		c, ok := p.color(b.style, "border-"+side+"-color", "currentcolor")
		if !ok {
			return
		}
		cols[i] = c
	}
	uniform := true
	for i := 1; i < 4; i++ {
		if widths[i] != widths[0] || cols[i] != cols[0] {
			uniform = false
		}
	}
	if uniform {
		inner := r.inset(bw.top*s, bw.right*s, bw.bottom*s, bw.left*s)
		fillRing(dst, r, rd, inner, rd.shrink(bw.top*s, bw.right*s, bw.bottom*s, bw.left*s), cols[0])
		return
	}
	strips := [...]rect{
		{r.x, r.y, r.w, bw.top * s},
		{r.x + r.w - bw.right*s, r.y, bw.right * s, r.h},
		{r.x, r.y + r.h - bw.bottom*s, r.w, bw.bottom * s},
		{r.x, r.y, bw.left * s, r.h},
	}
	for i, st := range strips {
		if widths[i] > 0 {
			fillRRect(dst, st, radii{}, cols[i])
		}
	}
}

func (p *painter) paintImage(dst *image.RGBA, b *box, r rect, rd radii) {
	if b.img == nil {
		return
	}
	s := p.scale
	bw, pd := b.border, b.padding
	content := r.inset((bw.top+pd.top)*s, (bw.right+pd.right)*s, (bw.bottom+pd.bottom)*s, (bw.left+pd.left)*s)
	crd := rd.shrink((bw.top+pd.top)*s, (bw.right+pd.right)*s, (bw.bottom+pd.bottom)*s, (bw.left+pd.left)*s)
	drawImageFit(dst, b.img, content, crd, strings.ToLower(b.style.Or("object-fit", "fill")))
}

// drawImageFit scales src into r following object-fit semantics and clips
// it to the rounded rectangle.
func drawImageFit(dst *image.RGBA, src image.Image, r rect, rd radii, fit string) {
	sb := src.Bounds()
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	if sw == 0 || sh == 0 || r.empty() {
		return
	}
	dr, sr := r, sb
	switch fit {
	case "cover":
		k := math.Max(r.w/sw, r.h/sh)
		cw, ch := r.w/k, r.h/k
		x0 := sb.Min.X + int(math.Round((sw-cw)/2))
		y0 := sb.Min.Y + int(math.Round((sh-ch)/2))
		sr = image.Rect(x0, y0, x0+int(math.Max(1, math.Round(cw))), y0+int(math.Max(1, math.Round(ch))))
	case "contain", "scale-down":
		k := math.Min(r.w/sw, r.h/sh)
		if fit == "scale-down" {
			k = math.Min(k, 1)
		}
		dw, dh := sw*k, sh*k
		dr = rect{r.x + (r.w-dw)/2, r.y + (r.h-dh)/2, dw, dh}
	case "none":
		dr = rect{r.x + (r.w-sw)/2, r.y + (r.h-sh)/2, sw, sh}
	}
	db := dr.bounds()
	if db.Empty() {
		return
	}
	scaled := image.NewRGBA(db)
	xdraw.CatmullRom.Scale(scaled, db, src, sr, draw.Src, nil)
	clip := db.Intersect(r.bounds())
	draw.DrawMask(dst, clip, scaled, clip.Min, rrectMask(r, rd), clip.Min, draw.Over)
}

// gradient is a parsed linear-gradient().
type gradient struct {
	angle float64 // degrees, 0 points up
	stops []gradientStop
}

type gradientStop struct {
	color color.NRGBA
	pos   float64
	set   bool
}

var sideAngles = map[string]float64{
	"to top": 0, "to right": 90, "to bottom": 180, "to left": 270,
	"to top right": 45, "to right top": 45, "to bottom right": 135, "to right bottom": 135,
	"to bottom left": 225, "to left bottom": 225, "to top left": 315, "to left top": 315,
}

func (p *painter) parseLinearGradient(st css.Style, args string) (*gradient, error) {
	parts := css.SplitCommas(args)
	g := &gradient{angle: 180}
	if len(parts) > 0 {
		first := strings.ToLower(strings.Join(css.Fields(parts[0]), " "))
		if a, ok := sideAngles[first]; ok {
			g.angle, parts = a, parts[1:]
		} else if strings.HasSuffix(first, "deg") {
			if a, err := strconv.ParseFloat(strings.TrimSuffix(first, "deg"), 64); err == nil {
				g.angle, parts = a, parts[1:]
			}
		}
	}
	cur, err := css.ParseColor(st.Or("color", "#000000"), color.NRGBA{A: 255})
	if err != nil {
		return nil, fmt.Errorf("serialize: color %q: %w", st.Get("color"), err)
	}
	for _, part := range parts {
		fields := css.Fields(part)
		if len(fields) == 0 {
			continue
		}
		// Stops are parsed here rather than through parseColor so a bad
		// stop drops only its layer.
		c, err := css.ParseColor(fields[0], cur)
		if err != nil {
			return nil, fmt.Errorf("serialize: gradient stop %q: %w", fields[0], err)
		}
		stop := gradientStop{color: c}
		if len(fields) > 1 && strings.HasSuffix(fields[1], "%") {
			stop.pos, stop.set = css.Number(fields[1], 0), true
		}
		g.stops = append(g.stops, stop)
	}
	if len(g.stops) == 0 {
		return nil, fmt.Errorf("serialize: linear-gradient without color stops")
	}
	if !g.stops[0].set {
		g.stops[0].pos, g.stops[0].set = 0, true
	}
	if last := &g.stops[len(g.stops)-1]; !last.set {
		last.pos, last.set = 1, true
	}
	for i := 1; i < len(g.stops); i++ {
		if g.stops[i].set {
			continue
		}
		j := i
		for !g.stops[j].set {
			j++
		}
		from, to := g.stops[i-1].pos, g.stops[j].pos
		for k := i; k < j; k++ {
			g.stops[k].pos = from + (to-from)*float64(k-i+1)/float64(j-i+1)
			g.stops[k].set = true
		}
	}
	return g, nil
}

func (g *gradient) at(t float64) color.RGBA {
	st := g.stops
	if t <= st[0].pos {
		return premul(st[0].color)
	}
	for i := 1; i < len(st); i++ {
		if t <= st[i].pos {
			a, b := premul(st[i-1].color), premul(st[i].color)
			span := st[i].pos - st[i-1].pos
			f := 0.0
			if span > 0 {
				f = (t - st[i-1].pos) / span
			}
			mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*f + 0.5) }
			return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), mix(a.A, b.A)}
		}
	}
	return premul(st[len(st)-1].color)
}

func premul(c color.NRGBA) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}

func (g *gradient) paint(dst *image.RGBA, r rect, rd radii) {
	bounds := r.bounds()
	if bounds.Empty() {
		return
	}
	rad := g.angle * math.Pi / 180
	dx, dy := math.Sin(rad), -math.Cos(rad)
	length := math.Abs(r.w*dx) + math.Abs(r.h*dy)
	if length == 0 {
		return
	}
	cx, cy := r.x+r.w/2, r.y+r.h/2
	fill := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			t := ((float64(x)+0.5-cx)*dx+(float64(y)+0.5-cy)*dy)/length + 0.5
			fill.SetRGBA(x, y, g.at(t))
		}
	}
	draw.DrawMask(dst, bounds, fill, bounds.Min, rrectMask(r, rd), bounds.Min, draw.Over)
}
