// Package expand turns the clipped chat viewport of an export clone into an
// auto-height layout so the whole conversation is captured.
package expand

import (
	"golang.org/x/net/html"

	"github.com/arran4/chat2png/internal/css"
	"github.com/arran4/chat2png/internal/dom"
)

// Marker attributes locating the two containers.
const (
	ViewportAttr = "data-chat-viewport"
	ScrollAttr   = "data-chat-scroll"
)

// Result reports which containers were found and changed.
type Result struct {
	Viewport bool
	Scroll   bool
}

// Expand removes height clamps and overflow clipping below root. Missing
// containers are skipped; Expand never fails.
//
// The viewport keeps its former fixed height as a min-height, so a
// conversation that already fits renders exactly as it does in viewport mode
// and longer ones grow downwards.
func Expand(root *html.Node) Result {
	var res Result
	if root == nil {
		return res
	}
	if vp := dom.FindByAttr(root, ViewportAttr); vp != nil {
		pairs := []string{"height", "auto", "max-height", "none"}
		if h := fixedHeight(vp); h != "" {
			pairs = append(pairs, "min-height", h)
		}
		res.Viewport = css.SetProperties(vp, pairs...) == nil
	}
	if sc := dom.FindByAttr(root, ScrollAttr); sc != nil {
		res.Scroll = css.SetProperties(sc,
			"overflow", "visible",
			"overflow-y", "visible",
			"height", "auto",
			"max-height", "none",
		) == nil
	}
	return res
}

// fixedHeight returns n's inline height when it is an absolute length.
func fixedHeight(n *html.Node) string {
	d, err := css.Inline(n)
	if err != nil {
		return ""
	}
	h, ok := d.Get("height")
	if !ok {
		return ""
	}
	l, ok := css.ParseLength(h)
	if !ok || l.Unit == css.UnitAuto || l.Unit == css.UnitNone || l.Unit == css.UnitPercent {
		return ""
	}
	return h
}
