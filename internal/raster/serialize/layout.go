package serialize

import (
	"math"
	"strings"

	"github.com/arran4/chat2png/internal/css"
)

// Layout follows a reset stylesheet: every box is border-box sized and
// margins never collapse.

func clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// widthLimits returns the min-width and max-width of b against base.
func (b *box) widthLimits(base float64, baseOK bool) (lo, hi float64) {
	lo, _ = b.length("min-width", base, baseOK)
	hi = math.Inf(1)
	if v, ok := b.length("max-width", base, baseOK); ok {
		hi = v
	}
	return lo, hi
}

func (b *box) heightLimits(base float64, baseOK bool) (lo, hi float64) {
	lo, _ = b.length("min-height", base, baseOK)
	hi = math.Inf(1)
	if v, ok := b.length("max-height", base, baseOK); ok {
		hi = v
	}
	return lo, hi
}

// keywordWidth handles width: max-content | min-content | fit-content.
func (e *engine) keywordWidth(b *box, avail float64) (float64, bool) {
	lo, hi := e.intrinsic(b)
	switch strings.ToLower(b.style.Get("width")) {
	case "max-content":
		return hi, true
	case "min-content":
		return lo, true
	case "fit-content", "-webkit-fit-content":
		return math.Min(hi, math.Max(lo, avail)), true
	}
	return 0, false
}

// blockWidth returns the border-box width of an in-flow block child in a
// container whose content box is avail wide.
func (e *engine) blockWidth(b *box, avail float64) float64 {
	if b.shrink || b.replaced() {
		return e.fitWidth(b, avail)
	}
	w, ok := b.length("width", avail, true)
	if !ok {
		if kw, ok := e.keywordWidth(b, avail-b.margin.h()); ok {
			w = kw
		} else {
			w = avail - b.margin.h()
		}
	}
	lo, hi := b.widthLimits(avail, true)
	return math.Max(0, clamp(w, lo, hi))
}

// fitWidth is the shrink-to-fit width used for floats, atoms, absolutely
// positioned boxes and flex items that do not stretch.
func (e *engine) fitWidth(b *box, avail float64) float64 {
	if b.replaced() {
		w, _ := e.replacedSize(b, avail, true, 0, false)
		return w
	}
	w, ok := b.length("width", avail, true)
	if !ok {
		if kw, ok := e.keywordWidth(b, avail-b.margin.h()); ok {
			w = kw
		} else {
			lo, hi := e.intrinsic(b)
			w = math.Min(hi, math.Max(lo, avail-b.margin.h()))
		}
	}
	lo, hi := b.widthLimits(avail, true)
	return math.Max(0, clamp(w, lo, hi))
}

// naturalSize reports the intrinsic size of a replaced element.
func (e *engine) naturalSize(b *box) (w, h float64) {
	if b.kind == kindImage {
		if b.img != nil {
			r := b.img.Bounds()
			return float64(r.Dx()), float64(r.Dy())
		}
		return 0, 0
	}
	w = css.Number(attr(b.node, "width"), 0)
	h = css.Number(attr(b.node, "height"), 0)
	if w == 0 || h == 0 {
		if _, _, vw, vh, ok := viewBox(b.node); ok {
			if w == 0 && h == 0 {
				w, h = vw, vh
			} else if w == 0 {
				w = h * vw / vh
			} else {
				h = w * vh / vw
			}
		}
	}
	if w == 0 {
		w = 24
	}
	if h == 0 {
		h = w
	}
	return w, h
}

// replacedSize resolves width and height of an img or svg, keeping the
// natural aspect ratio when only one side is given.
func (e *engine) replacedSize(b *box, cbW float64, cbWOK bool, cbH float64, cbHOK bool) (w, h float64) {
	nw, nh := e.naturalSize(b)
	w, wok := b.length("width", cbW, cbWOK)
	h, hok := b.length("height", cbH, cbHOK)
	ratio := 1.0
	if nw > 0 && nh > 0 {
		ratio = nw / nh
	}
	switch {
	case wok && hok:
	case wok:
		h = w / ratio
	case hok:
		w = h * ratio
	default:
		w, h = nw, nh
	}
	lo, hi := b.widthLimits(cbW, cbWOK)
	if cw := clamp(w, lo, hi); cw != w {
		if !hok {
			h = cw / ratio
		}
		w = cw
	}
	return math.Max(0, w), math.Max(0, h)
}

// intrinsic returns the min-content and max-content border-box widths.
func (e *engine) intrinsic(b *box) (minW, maxW float64) {
	if b.intrinsicDone {
		return b.minContent, b.maxContent
	}
	_, pad, border, _, _ := b.edges(0, false)
	pb := pad.h() + border.h()
	if w, ok := b.fixedLength("width"); ok {
		minW, maxW = w, w
	} else if b.replaced() {
		w, _ := e.replacedSize(b, 0, false, 0, false)
		minW, maxW = w, w
	} else {
		switch {
		case b.runs != nil:
			minW, maxW = e.inlineIntrinsic(b.runs)
		case b.display == displayFlex && !b.grid && !isColumn(b):
			gap, _ := b.fixedLength("column-gap")
			n := 0
			for _, c := range b.children {
				if c.outOfFlow() {
					continue
				}
				lo, hi := e.intrinsic(c)
				mh := fixedMarginH(c)
				minW += lo + mh
				maxW += hi + mh
				n++
			}
			if n > 1 {
				minW += gap * float64(n-1)
				maxW += gap * float64(n-1)
			}
		default:
			for _, c := range b.children {
				if c.outOfFlow() {
					continue
				}
				lo, hi := e.intrinsic(c)
				mh := fixedMarginH(c)
				minW = math.Max(minW, lo+mh)
				maxW = math.Max(maxW, hi+mh)
			}
		}
		minW += pb
		maxW += pb
	}
	if v, ok := b.fixedLength("max-width"); ok {
		minW, maxW = math.Min(minW, v), math.Min(maxW, v)
	}
	if v, ok := b.fixedLength("min-width"); ok {
		minW, maxW = math.Max(minW, v), math.Max(maxW, v)
	}
	b.intrinsicDone, b.minContent, b.maxContent = true, minW, maxW
	return minW, maxW
}

func isColumn(b *box) bool {
	return strings.HasPrefix(strings.ToLower(b.style.Get("flex-direction")), "column")
}

// layout lays out b at border-box width w. forcedH >= 0 fixes the
// border-box height; cbH is the containing block height for percentages.
func (e *engine) layout(b *box, w, forcedH, cbH float64, cbHOK bool) {
	b.w = w
	b.lines = nil
	contentW := math.Max(0, w-b.padding.h()-b.border.h())
	pv := b.padding.v() + b.border.v()

	hSpec, hOK := b.length("height", cbH, cbHOK)
	if forcedH >= 0 {
		hSpec, hOK = forcedH, true
	}
	minH, maxH := b.heightLimits(cbH, cbHOK)
	if hOK {
		hSpec = clamp(hSpec, minH, maxH)
	}
	innerH := math.Max(0, hSpec-pv)

	var contentH float64
	switch {
	case b.replaced():
		if nw, nh := e.naturalSize(b); !hOK && nw > 0 {
			contentH = w*nh/nw - pv
		}
	case b.display == displayFlex && (b.grid || isColumn(b)):
		contentH = e.layoutFlexColumn(b, contentW, innerH, hOK, minH-pv, maxH-pv)
	case b.display == displayFlex:
		contentH = e.layoutFlexRow(b, contentW, innerH, hOK)
	case b.runs != nil:
		contentH = e.layoutInline(b, contentW)
	default:
		contentH = e.layoutBlock(b, contentW, innerH, hOK)
	}

	if hOK {
		b.h = hSpec
	} else {
		b.h = clamp(contentH+pv, minH, maxH)
	}
	b.h = math.Max(b.h, 0)
	if b.positioned() {
		e.layoutAbsolute(b)
	}
}

func (e *engine) layoutBlock(b *box, W, H float64, hOK bool) float64 {
	left := b.border.left + b.padding.left
	top := b.border.top + b.padding.top
	y := 0.0
	for _, c := range b.children {
		if c.outOfFlow() {
			continue
		}
		c.resolveEdges(W, true)
		cw := e.blockWidth(c, W)
		e.layout(c, cw, -1, H, hOK)
		x := c.margin.left
		if c.autoLeft && c.autoRight {
			x = (W - cw) / 2
		} else if c.autoLeft {
			x = W - cw - c.margin.right
		}
		c.x = left + x
		c.y = top + y + c.margin.top
		y += c.margin.v() + c.h
	}
	return y
}

type flexItem struct {
	b                *box
	basis, hyp, size float64
	lo, hi           float64
	grow, shrink     float64
	frozen           bool
}

// resolveFlexible distributes free space among items. It follows the
// flexbox algorithm loosely: violations are fixed by freezing items and
// redistributing once more.
func resolveFlexible(items []*flexItem, main float64, used func(*flexItem) float64) {
	for _, it := range items {
		it.size, it.frozen = it.hyp, false
	}
	for pass := 0; pass < 4; pass++ {
		free := main
		for _, it := range items {
			free -= used(it)
		}
		growing := free > 0
		var total float64
		for _, it := range items {
			if it.frozen {
				continue
			}
			if growing {
				total += it.grow
			} else {
				total += it.shrink * it.basis
			}
		}
		if total == 0 || math.Abs(free) < 1e-6 {
			return
		}
		violated := false
		for _, it := range items {
			if it.frozen {
				continue
			}
			var share float64
			if growing {
				share = free * it.grow / total
			} else {
				share = free * it.shrink * it.basis / total
			}
			target := it.size + share
			switch {
			case target < it.lo:
				target, it.frozen, violated = it.lo, true, true
			case target > it.hi:
				target, it.frozen, violated = it.hi, true, true
			}
			it.size = target
		}
		if !violated {
			return
		}
	}
}

func alignSelf(container, item *box) string {
	a := strings.ToLower(item.style.Or("align-self", "auto"))
	if a == "auto" {
		a = strings.ToLower(container.style.Or("align-items", "stretch"))
	}
	switch a {
	case "normal":
		return "stretch"
	case "start", "self-start", "baseline", "first baseline":
		return "flex-start"
	case "end", "self-end", "last baseline":
		return "flex-end"
	}
	return a
}

// justify returns the leading offset and the extra gap between items.
func justify(mode string, remaining float64, n int) (lead, between float64) {
	switch strings.ToLower(mode) {
	case "center":
		return remaining / 2, 0
	case "flex-end", "end", "right":
		return remaining, 0
	case "space-between":
		if n > 1 && remaining > 0 {
			return 0, remaining / float64(n-1)
		}
	case "space-around":
		if n > 0 && remaining > 0 {
			s := remaining / float64(n)
			return s / 2, s
		}
	case "space-evenly":
		if remaining > 0 {
			s := remaining / float64(n+1)
			return s, s
		}
	}
	return 0, 0
}

func inFlow(children []*box) []*box {
	out := make([]*box, 0, len(children))
	for _, c := range children {
		if !c.outOfFlow() {
			out = append(out, c)
		}
	}
	return out
}

func (e *engine) layoutFlexRow(b *box, W, H float64, hOK bool) float64 {
	kids := inFlow(b.children)
	gap, _ := b.length("column-gap", W, true)
	items := make([]*flexItem, len(kids))
	for i, c := range kids {
		c.resolveEdges(W, true)
		it := &flexItem{b: c, grow: c.number("flex-grow", 0), shrink: c.number("flex-shrink", 1)}
		basis, ok := c.length("flex-basis", W, true)
		if !ok {
			if c.replaced() {
				basis, _ = e.replacedSize(c, W, true, H, hOK)
			} else if w, wok := c.length("width", W, true); wok {
				basis = w
			} else if kw, kok := e.keywordWidth(c, W); kok {
				basis = kw
			} else {
				_, basis = e.intrinsic(c)
			}
		}
		it.basis = basis
		it.lo, it.hi = c.widthLimits(W, true)
		if _, set := c.style.Lookup("min-width"); !set && !c.clips() {
			lo, _ := e.intrinsic(c)
			if w, wok := c.length("width", W, true); wok {
				lo = math.Min(lo, w)
			}
			it.lo = lo
		}
		it.hyp = clamp(basis, it.lo, it.hi)
		items[i] = it
	}
	gaps := 0.0
	if len(items) > 1 {
		gaps = gap * float64(len(items)-1)
	}
	resolveFlexible(items, W-gaps, func(it *flexItem) float64 { return it.size + it.b.margin.h() })

	cross := 0.0
	for _, it := range items {
		e.layout(it.b, it.size, -1, H, hOK)
		cross = math.Max(cross, it.b.h+it.b.margin.v())
	}
	if hOK {
		cross = H
	}

	used := gaps
	autos := 0
	for _, it := range items {
		used += it.size + it.b.margin.h()
		if it.b.autoLeft {
			autos++
		}
		if it.b.autoRight {
			autos++
		}
	}
	remaining := W - used
	autoShare := 0.0
	if autos > 0 && remaining > 0 {
		autoShare, remaining = remaining/float64(autos), 0
	}
	lead, between := justify(b.style.Get("justify-content"), remaining, len(items))

	left := b.border.left + b.padding.left
	top := b.border.top + b.padding.top
	x := lead
	for _, it := range items {
		c := it.b
		if c.autoLeft {
			x += autoShare
		}
		x += c.margin.left
		c.x = left + x
		x += it.size + c.margin.right + gap + between
		if c.autoRight {
			x += autoShare
		}

		align := alignSelf(b, c)
		if align == "stretch" {
			if _, set := c.length("height", H, hOK); !set {
				lo, hi := c.heightLimits(H, hOK)
				e.layout(c, it.size, clamp(cross-c.margin.v(), lo, hi), H, hOK)
			}
		}
		y := c.margin.top
		switch align {
		case "center":
			y = (cross-c.h-c.margin.v())/2 + c.margin.top
		case "flex-end":
			y = cross - c.h - c.margin.bottom
		}
		c.y = top + y
	}
	return cross
}

func (e *engine) layoutFlexColumn(b *box, W, H float64, hOK bool, minH, maxH float64) float64 {
	kids := inFlow(b.children)
	gap, _ := b.length("row-gap", H, hOK)
	justifyMode := b.style.Get("justify-content")
	if b.grid {
		// place-items: center on a single-column grid.
		justifyMode = b.style.Get("align-content")
		if a := b.style.Get("align-items"); a != "" && a != "normal" && a != "stretch" {
			justifyMode = a
		}
	}
	items := make([]*flexItem, len(kids))
	for i, c := range kids {
		c.resolveEdges(W, true)
		align := alignSelf(b, c)
		if b.grid {
			align = strings.ToLower(b.style.Or("justify-items", "stretch"))
			if align == "normal" {
				align = "stretch"
			}
		}
		var cw float64
		if _, set := c.length("width", W, true); !set && align == "stretch" && !c.replaced() && !c.shrink {
			cw = W - c.margin.h()
			lo, hi := c.widthLimits(W, true)
			cw = math.Max(0, clamp(cw, lo, hi))
		} else {
			cw = e.fitWidth(c, W)
		}
		e.layout(c, cw, -1, H, hOK)

		it := &flexItem{b: c, grow: c.number("flex-grow", 0), shrink: c.number("flex-shrink", 1)}
		if b.grid {
			it.grow, it.shrink = 0, 0
		}
		basis, ok := c.length("flex-basis", H, hOK)
		if !ok {
			basis = c.h
		}
		it.basis = basis
		it.lo, it.hi = c.heightLimits(H, hOK)
		if _, set := c.style.Lookup("min-height"); !set && !c.clips() {
			it.lo = c.h
		}
		it.hyp = clamp(basis, it.lo, it.hi)
		items[i] = it

		// Cross-axis placement.
		x := c.margin.left
		switch align {
		case "center":
			x = (W-cw-c.margin.h())/2 + c.margin.left
		case "flex-end", "end", "right":
			x = W - cw - c.margin.right
		}
		if c.autoLeft && c.autoRight {
			x = (W - cw) / 2
		}
		c.x = b.border.left + b.padding.left + x
	}

	gaps := 0.0
	if len(items) > 1 {
		gaps = gap * float64(len(items)-1)
	}
	sum := gaps
	for _, it := range items {
		sum += it.hyp + it.b.margin.v()
	}
	main := H
	if !hOK {
		main = clamp(sum, minH, maxH)
	}
	resolveFlexible(items, main-gaps, func(it *flexItem) float64 { return it.size + it.b.margin.v() })

	used := gaps
	for _, it := range items {
		if math.Abs(it.size-it.b.h) > 1e-6 {
			e.layout(it.b, it.b.w, it.size, H, hOK)
		}
		used += it.b.h + it.b.margin.v()
	}
	lead, between := justify(justifyMode, main-used, len(items))
	y := lead
	top := b.border.top + b.padding.top
	for _, it := range items {
		c := it.b
		y += c.margin.top
		c.y = top + y
		y += c.h + c.margin.bottom + gap + between
	}
	if !hOK {
		return math.Max(main, used)
	}
	return main
}

// layoutAbsolute positions the absolutely positioned descendants whose
// containing block is cb.
func (e *engine) layoutAbsolute(cb *box) {
	var visit func(p *box, ox, oy float64)
	visit = func(p *box, ox, oy float64) {
		var abs []*box
		for _, c := range p.children {
			switch {
			case c.outOfFlow():
				abs = append(abs, c)
			case !c.positioned():
				visit(c, ox+c.x, oy+c.y)
			}
		}
		for _, c := range abs {
			e.placeAbsolute(cb, c, ox, oy)
		}
	}
	visit(cb, 0, 0)
}

func (e *engine) placeAbsolute(cb, c *box, ox, oy float64) {
	W := math.Max(0, cb.w-cb.border.h())
	H := math.Max(0, cb.h-cb.border.v())
	c.resolveEdges(W, true)
	l, lok := c.length("left", W, true)
	r, rok := c.length("right", W, true)
	t, tok := c.length("top", H, true)
	bt, bok := c.length("bottom", H, true)

	var w float64
	if c.replaced() {
		w, _ = e.replacedSize(c, W, true, H, true)
	} else if sw, ok := c.length("width", W, true); ok {
		lo, hi := c.widthLimits(W, true)
		w = clamp(sw, lo, hi)
	} else if lok && rok {
		lo, hi := c.widthLimits(W, true)
		w = math.Max(0, clamp(W-l-r-c.margin.h(), lo, hi))
	} else {
		w = e.fitWidth(c, W-l-r)
	}
	forced := -1.0
	if _, ok := c.length("height", H, true); !ok && tok && bok && !c.replaced() {
		forced = math.Max(0, H-t-bt-c.margin.v())
	}
	e.layout(c, w, forced, H, true)

	x := c.margin.left
	switch {
	case lok:
		x = l + c.margin.left
	case rok:
		x = W - r - c.margin.right - w
	}
	y := c.margin.top
	switch {
	case tok:
		y = t + c.margin.top
	case bok:
		y = H - bt - c.margin.bottom - c.h
	}
	c.x = cb.border.left + x - ox
	c.y = cb.border.top + y - oy
}
