package serialize

import (
	"context"
	"image"
	"math"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/arran4/chat2png/internal/css"
	"github.com/arran4/chat2png/internal/dom"
	"github.com/arran4/chat2png/pkg/logger"
	"go.uber.org/zap"
)

type display int

const (
	displayNone display = iota
	displayBlock
	displayFlex
	displayInline
)

type kind int

const (
	kindElement kind = iota
	kindAnonymous
	kindImage
	kindSVG
)

type edges struct{ top, right, bottom, left float64 }

func (e edges) h() float64 { return e.left + e.right }
func (e edges) v() float64 { return e.top + e.bottom }

// box is one node of the layout tree. Positions are relative to the parent
// box's border-box origin; all sizes are border-box CSS px.
type box struct {
	node    *html.Node
	style   css.Style
	display display
	kind    kind
	// shrink marks atomic inline-level boxes whose width fits content.
	shrink bool
	// grid boxes lay out like a centered flex column.
	grid bool

	children []*box
	runs     []run
	lines    []line

	img image.Image

	x, y, w, h              float64
	margin, border, padding edges
	autoLeft, autoRight     bool

	intrinsicDone          bool
	minContent, maxContent float64
}

func parseDisplay(v string) (d display, shrink, grid bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "none":
		return displayNone, false, false
	case "", "inline", "contents":
		return displayInline, false, false
	case "flex":
		return displayFlex, false, false
	case "inline-flex":
		return displayFlex, true, false
	case "grid":
		return displayFlex, false, true
	case "inline-grid":
		return displayFlex, true, true
	case "inline-block", "inline-table":
		return displayBlock, true, false
	}
	return displayBlock, false, false
}

func (b *box) fontSize() float64 { return b.style.FontSize() }

// length resolves prop against base. ok is false for auto, none, keywords
// and percentages of an indefinite base.
func (b *box) length(prop string, base float64, baseOK bool) (float64, bool) {
	l, ok := css.ParseLength(b.style.Get(prop))
	if !ok {
		return 0, false
	}
	return l.Resolve(base, baseOK, b.fontSize())
}

// fixedLength resolves prop only when it does not depend on a percentage
// base.
func (b *box) fixedLength(prop string) (float64, bool) {
	return b.length(prop, 0, false)
}

func (b *box) number(prop string, def float64) float64 {
	v, ok := b.style.Lookup(prop)
	if !ok {
		return def
	}
	return css.Number(v, def)
}

func (b *box) position() string {
	return strings.ToLower(b.style.Or("position", "static"))
}

func (b *box) outOfFlow() bool {
	p := b.position()
	return p == "absolute" || p == "fixed"
}

func (b *box) positioned() bool { return b.position() != "static" }

func (b *box) zIndex() int {
	return int(b.number("z-index", 0))
}

func (b *box) clips() bool {
	for _, p := range [...]string{"overflow-x", "overflow-y"} {
		switch b.style.Or(p, "visible") {
		case "hidden", "auto", "scroll", "clip":
			return true
		}
	}
	return false
}

func (b *box) replaced() bool { return b.kind == kindImage || b.kind == kindSVG }

func (b *box) hidden() bool { return b.style.Get("visibility") == "hidden" }

func (b *box) tag() atom.Atom {
	if b.node == nil {
		return 0
	}
	return b.node.DataAtom
}

func borderWidth(b *box, side string) float64 {
	switch b.style.Or("border-"+side+"-style", "none") {
	case "none", "hidden":
		return 0
	}
	v := b.style.Or("border-"+side+"-width", "medium")
	switch v {
	case "thin":
		return 1
	case "medium":
		return 3
	case "thick":
		return 5
	}
	return math.Max(0, css.Px(v, b.fontSize(), 0))
}

// edges computes margins, padding and borders against the containing
// block width. Auto margins resolve to zero and are reported separately.
func (b *box) edges(cbW float64, cbOK bool) (margin, padding, border edges, autoLeft, autoRight bool) {
	side := func(prefix string, i int) (float64, bool) {
		name := prefix + "-" + [...]string{"top", "right", "bottom", "left"}[i]
		if strings.ToLower(b.style.Get(name)) == "auto" {
			return 0, true
		}
		v, _ := b.length(name, cbW, cbOK)
		return v, false
	}
	var m, p [4]float64
	var auto [4]bool
	for i := 0; i < 4; i++ {
		m[i], auto[i] = side("margin", i)
		p[i], _ = side("padding", i)
		p[i] = math.Max(0, p[i])
	}
	margin = edges{m[0], m[1], m[2], m[3]}
	padding = edges{p[0], p[1], p[2], p[3]}
	border = edges{borderWidth(b, "top"), borderWidth(b, "right"), borderWidth(b, "bottom"), borderWidth(b, "left")}
	return margin, padding, border, auto[3], auto[1]
}

// resolveEdges stores the edges for layout.
func (b *box) resolveEdges(cbW float64, cbOK bool) {
	b.margin, b.padding, b.border, b.autoLeft, b.autoRight = b.edges(cbW, cbOK)
}

// fixedMarginH is the horizontal margin that does not depend on the
// containing block, used for intrinsic contributions.
func fixedMarginH(b *box) float64 {
	m, _, _, _, _ := b.edges(0, false)
	return m.h()
}

// run is a piece of inline content: text with its style, a forced break
// or an atomic inline box.
type run struct {
	text  string
	style css.Style
	br    bool
	atom  *box
}

// builder turns the DOM into a box tree.
type builder struct {
	ctx  context.Context
	e    *engine
	keep func(*html.Node) bool
}

func (bd *builder) compute(n *html.Node) css.Style {
	st, err := bd.e.res.Compute(n)
	if err != nil {
		logger.Debug("style unreadable, using inherited values", zap.String("tag", n.Data), zap.Error(err))
	}
	return st
}

func (bd *builder) build(n *html.Node) *box {
	if n == nil || n.Type != html.ElementNode || !bd.keep(n) {
		return nil
	}
	st := bd.compute(n)
	d, shrink, grid := parseDisplay(st.Get("display"))
	if d == displayNone {
		return nil
	}
	b := &box{node: n, style: st, display: d, shrink: shrink, grid: grid}
	switch {
	case n.Namespace == "svg":
		b.kind = kindSVG
		if d == displayInline {
			b.display = displayBlock
		}
		return b
	case n.DataAtom == atom.Img:
		b.kind = kindImage
		b.display = displayBlock
		b.img = bd.e.image(bd.ctx, strings.TrimSpace(attr(n, "src")))
		return b
	}
	if b.display == displayInline {
		// A lone inline element at the top acts as a block container.
		b.display = displayBlock
	}
	bd.children(b)
	return b
}

func (bd *builder) children(b *box) {
	var pending []run
	var kids []*box
	flush := func() {
		if hasContent(pending) {
			kids = append(kids, bd.anonymous(b, pending))
		}
		pending = nil
	}
	for c := b.node.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			pending = append(pending, run{text: c.Data, style: b.style})
		case html.ElementNode:
			if !bd.keep(c) {
				continue
			}
			cs := bd.compute(c)
			d, _, _ := parseDisplay(cs.Get("display"))
			switch {
			case d == displayNone:
				continue
			case c.DataAtom == atom.Br:
				pending = append(pending, run{br: true, style: b.style})
				continue
			case d == displayInline && c.Namespace != "svg" && c.DataAtom != atom.Img:
				bd.inline(c, cs, &pending)
				continue
			}
			kb := bd.build(c)
			if kb == nil {
				continue
			}
			if kb.outOfFlow() {
				kids = append(kids, kb)
				continue
			}
			flush()
			kids = append(kids, kb)
		}
	}
	if len(kids) == 0 && b.display != displayFlex {
		if hasContent(pending) {
			b.runs = pending
		}
		return
	}
	flush()
	b.children = kids
}

func (bd *builder) inline(n *html.Node, st css.Style, out *[]run) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			*out = append(*out, run{text: c.Data, style: st})
		case html.ElementNode:
			if !bd.keep(c) {
				continue
			}
			cs := bd.compute(c)
			d, _, _ := parseDisplay(cs.Get("display"))
			switch {
			case d == displayNone:
			case c.DataAtom == atom.Br:
				*out = append(*out, run{br: true, style: st})
			case d == displayInline && c.Namespace != "svg" && c.DataAtom != atom.Img:
				bd.inline(c, cs, out)
			default:
				if kb := bd.build(c); kb != nil {
					kb.shrink = true
					*out = append(*out, run{atom: kb, style: cs})
				}
			}
		}
	}
}

func (bd *builder) anonymous(parent *box, runs []run) *box {
	st := css.Style{}
	for k, v := range parent.style {
		if css.IsInherited(k) {
			st[k] = v
		}
	}
	return &box{style: st, display: displayBlock, kind: kindAnonymous, runs: runs}
}

func hasContent(runs []run) bool {
	for _, r := range runs {
		if r.br || r.atom != nil {
			return true
		}
		if strings.TrimSpace(r.text) != "" {
			return true
		}
		if preservesSpaces(r.style) && r.text != "" {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string { return dom.AttrOr(n, key, "") }
