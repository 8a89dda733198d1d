package dom

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeepAndDetached(t *testing.T) {
	src := El("div",
		WithAttr("data-chat-root", ""),
		WithStyle("color:#fff"),
		WithChildren(
			El("span", WithText("hola")),
			El("img", WithAttr("src", "data:image/png;base64,AA==")),
		),
	)
	parent := El("section", WithChildren(src))

	c := Clone(src)
	require.NotNil(t, c)
	assert.Nil(t, c.Parent)
	assert.Equal(t, parent, src.Parent)

	SetAttr(c, "style", "color:red")
	SetAttr(c.FirstChild, "data-x", "1")
	c.FirstChild.FirstChild.Data = "changed"

	v, _ := GetAttr(src, "style")
	assert.Equal(t, "color:#fff", v)
	assert.False(t, HasAttr(src.FirstChild, "data-x"))
	assert.Equal(t, "hola", TextContent(src))
}

func TestAttrHelpers(t *testing.T) {
	n := El("div", WithAttr("a", "1"))
	SetAttr(n, "a", "2")
	SetAttr(n, "b", "3")
	assert.Len(t, n.Attr, 2)
	assert.Equal(t, "2", AttrOr(n, "a", ""))
	RemoveAttr(n, "a")
	assert.False(t, HasAttr(n, "a"))
	assert.Equal(t, "def", AttrOr(n, "a", "def"))
}

func TestExcluded(t *testing.T) {
	assert.True(t, Excluded(El("div", WithAttr("data-noexport", "true"))))
	assert.False(t, Excluded(El("div", WithAttr("data-noexport", "false"))))
	assert.False(t, Excluded(El("div")))
}

func TestFindByAttrAndElements(t *testing.T) {
	scroll := El("div", WithAttr("data-chat-scroll", ""))
	root := El("div", WithChildren(
		El("div", WithAttr("data-chat-viewport", ""), WithChildren(scroll)),
	))
	assert.Equal(t, scroll, FindByAttr(root, "data-chat-scroll"))
	assert.Nil(t, FindByAttr(root, "data-missing"))
	assert.Len(t, Elements(root), 3)
}

func TestBodyMountAndRemove(t *testing.T) {
	doc := NewDocument()
	a := El("div")
	b := El("div")
	doc.AppendToBody(a)
	doc.AppendToBody(b)
	assert.True(t, doc.BodyContains(a))
	assert.Len(t, doc.BodyChildren(), 2)

	assert.True(t, doc.RemoveFromBody(a))
	assert.False(t, doc.RemoveFromBody(a))
	assert.False(t, doc.BodyContains(a))

	c := El("div")
	doc.ReplaceInBody(b, c)
	assert.False(t, doc.BodyContains(b))
	assert.True(t, doc.BodyContains(c))
}

func TestConcurrentMounts(t *testing.T) {
	doc := NewDocument()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := El("div")
			doc.AppendToBody(n)
			_ = doc.Clone(n)
			doc.RemoveFromBody(n)
		}()
	}
	wg.Wait()
	assert.Empty(t, doc.BodyChildren())
}

func TestNextFrame(t *testing.T) {
	doc := NewDocument()
	start := time.Now()
	require.NoError(t, doc.NextFrame(context.Background()))
	assert.LessOrEqual(t, time.Since(start), FrameInterval+50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, doc.NextFrame(ctx), context.Canceled)
}

type stubFonts struct{ err error }

func (s stubFonts) Ready(context.Context) error { return s.err }

func TestFontsReady(t *testing.T) {
	doc := NewDocument()
	assert.NoError(t, doc.FontsReady(context.Background()))

	boom := errors.New("font file missing")
	doc.SetFontSource(stubFonts{err: boom})
	assert.ErrorIs(t, doc.FontsReady(context.Background()), boom)
}

func TestRenderDocument(t *testing.T) {
	doc := NewDocument()
	doc.AddHeadStyle("*{box-sizing:border-box}")
	doc.AppendToBody(El("p", WithText("hi")))
	var buf bytes.Buffer
	require.NoError(t, doc.Render(&buf))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<style>*{box-sizing:border-box}</style>")
	assert.Contains(t, out, "<p>hi</p>")
}
