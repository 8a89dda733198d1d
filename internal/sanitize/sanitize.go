// Package sanitize rewrites color values that sRGB-only rasterizers cannot
// paint. It runs on the export clone only: every rewrite is written to the
// element's own inline style.
//
// The pass never fails. An element whose style cannot be read, or whose
// inspection panics, is counted as skipped and the walk continues.
package sanitize

import (
	"fmt"
	"sort"

	"golang.org/x/net/html"

	"github.com/arran4/chat2png/internal/css"
	"github.com/arran4/chat2png/internal/dom"
)

// Replacement values for disallowed colors.
const (
	TransparentValue = "transparent"
	TextFallback     = "#ffffff"
	BorderFallback   = "rgba(255,255,255,0.12)"
	NoneValue        = "none"
)

var effectProperties = []string{"box-shadow", "text-shadow", "filter"}

var colorFallbacks = []struct {
	prop, value string
}{
	{"background-color", TransparentValue},
	{"color", TextFallback},
	{"border-top-color", BorderFallback},
	{"border-right-color", BorderFallback},
	{"border-bottom-color", BorderFallback},
	{"border-left-color", BorderFallback},
}

// Result counts what a pass changed.
type Result struct {
	Elements         int
	CustomProperties int
	Effects          int
	Colors           int
	Skipped          int
	Errors           []error
}

// Rewritten returns the total number of property rewrites.
func (r Result) Rewritten() int {
	return r.CustomProperties + r.Effects + r.Colors
}

// Sanitize rewrites disallowed color values at and below root.
func Sanitize(root *html.Node) Result {
	var res Result
	if root == nil {
		return res
	}
	resolver := css.NewResolver()
	for _, n := range dom.Elements(root) {
		res.Elements++
		if err := sanitizeElement(resolver, n, &res); err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, err)
		}
	}
	return res
}

func sanitizeElement(r *css.Resolver, n *html.Node, res *Result) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sanitize: <%s>: panic: %v", n.Data, p)
		}
	}()

	style, err := r.Compute(n)
	if err != nil {
		return err
	}

	var custom []string
	for prop, v := range style {
		if css.IsCustomProperty(prop) && css.HasDisallowedColor(v) {
			custom = append(custom, prop)
		}
	}
	if len(custom) > 0 {
		sort.Strings(custom)
		pairs := make([]string, 0, len(custom)*2)
		for _, prop := range custom {
			pairs = append(pairs, prop, TransparentValue)
		}
		if err := override(n, pairs); err != nil {
			return err
		}
		res.CustomProperties += len(custom)
		r.Forget(n)
		if style, err = r.Compute(n); err != nil {
			return err
		}
	}

	var pairs []string
	for _, prop := range effectProperties {
		if css.HasDisallowedColor(style.Get(prop)) {
			pairs = append(pairs, prop, NoneValue)
			res.Effects++
		}
	}
	for _, fb := range colorFallbacks {
		if css.HasDisallowedColor(style.Get(fb.prop)) {
			pairs = append(pairs, fb.prop, fb.value)
			res.Colors++
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	if err := override(n, pairs); err != nil {
		return err
	}
	r.Forget(n)
	return nil
}

// override sets each property as the last declaration of n's inline style so
// it wins over any shorthand declared earlier in the same block.
func override(n *html.Node, pairs []string) error {
	d, err := css.Inline(n)
	if err != nil {
		return err
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Remove(pairs[i])
		d.Set(pairs[i], pairs[i+1])
	}
	css.SetInline(n, d)
	return nil
}
