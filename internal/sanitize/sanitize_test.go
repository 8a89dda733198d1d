package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/arran4/chat2png/internal/css"
	"github.com/arran4/chat2png/internal/dom"
)

var checked = []string{
	"background-color", "color", "box-shadow", "text-shadow", "filter",
	"border-top-color", "border-right-color", "border-bottom-color", "border-left-color",
}

func fixture() *html.Node {
	bubble := dom.El("div",
		dom.WithStyle("background-color: var(--color-emerald-400); box-shadow: 0 1px 0.5px color-mix(in oklab, #000 13%, transparent); color: #fff"),
		dom.WithText("hola"),
	)
	cursor := dom.El("span", dom.WithStyle("background: color-mix(in oklab, var(--color-emerald-400) 90%, transparent)"))
	border := dom.El("div", dom.WithStyle("border: 1px solid lab(50% 40 59); text-shadow: 0 0 2px hwb(0 0% 0%)"))
	text := dom.El("p", dom.WithStyle("color: light-dark(#000, #fff); filter: drop-shadow(0 0 1px oklch(50% 0.1 10))"))
	plain := dom.El("div", dom.WithStyle("background-color: #1f2c33; border-radius: 16px; padding: 8px 12px"))
	return dom.El("div",
		dom.WithStyle("--color-emerald-400: oklch(76.5% 0.177 163.223); --color-sky-300: oklch(82.8% 0.111 230.318); --radius: 16px"),
		dom.WithChildren(bubble, cursor, border, text, plain),
	)
}

func TestSanitize_RemovesDisallowedTokens(t *testing.T) {
	root := fixture()
	res := Sanitize(root)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, 6, res.Elements)
	assert.Positive(t, res.Rewritten())

	r := css.NewResolver()
	for _, n := range dom.Elements(root) {
		s, err := r.Compute(n)
		require.NoError(t, err)
		for prop, v := range s {
			if css.IsCustomProperty(prop) {
				assert.False(t, css.HasDisallowedColor(v), "%s=%s", prop, v)
			}
		}
		for _, prop := range checked {
			assert.False(t, css.HasDisallowedColor(s.Get(prop)), "<%s> %s=%s", n.Data, prop, s.Get(prop))
		}
	}
}

func TestSanitize_Fallbacks(t *testing.T) {
	root := fixture()
	Sanitize(root)

	r := css.NewResolver()
	bubble := root.FirstChild
	s, _ := r.Compute(bubble)
	assert.Equal(t, "transparent", s.Get("background-color"))
	assert.Equal(t, "none", s.Get("box-shadow"))
	assert.Equal(t, "#fff", s.Get("color"), "supported colors are left alone")

	border := bubble.NextSibling.NextSibling
	s, _ = r.Compute(border)
	assert.Equal(t, BorderFallback, s.Get("border-left-color"))
	assert.Equal(t, "solid", s.Get("border-left-style"), "non-color styling survives")
	assert.Equal(t, "none", s.Get("text-shadow"))

	text := border.NextSibling
	s, _ = r.Compute(text)
	assert.Equal(t, TextFallback, s.Get("color"))
	assert.Equal(t, "none", s.Get("filter"))

	plain := text.NextSibling
	v, _ := dom.GetAttr(plain, "style")
	assert.Equal(t, "background-color: #1f2c33; border-radius: 16px; padding: 8px 12px", v)

	rootStyle, _ := dom.GetAttr(root, "style")
	assert.Contains(t, rootStyle, "--radius: 16px")
	assert.Contains(t, rootStyle, "--color-emerald-400: transparent")
}

func TestSanitize_Idempotent(t *testing.T) {
	root := fixture()
	Sanitize(root)
	once, err := dom.Render(root)
	require.NoError(t, err)

	res := Sanitize(root)
	twice, err := dom.Render(root)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Zero(t, res.Rewritten())
}

func TestSanitize_SkipsUnreadableElements(t *testing.T) {
	broken := dom.El("div", dom.WithStyle("color: oklch(1 2 3"))
	good := dom.El("div", dom.WithStyle("background-color: oklab(0.5 0.1 0.1)"))
	root := dom.El("div", dom.WithChildren(broken, good))

	var res Result
	assert.NotPanics(t, func() { res = Sanitize(root) })
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Errors, 1)

	v, _ := dom.GetAttr(good, "style")
	assert.True(t, strings.HasSuffix(v, "background-color: transparent"), v)
}

func TestSanitize_NilRoot(t *testing.T) {
	assert.Equal(t, Result{}, Sanitize(nil))
}
