package readiness

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/arran4/chat2png/internal/dom"
	"github.com/arran4/chat2png/internal/resource"
)

// fakeLoader behaves according to the src prefix:
// cached:*, ok:*, fail:*, hang:*, panic:*, slow:* (local, 150ms decode).
type fakeLoader struct {
	loads atomic.Int32
}

func (f *fakeLoader) Cached(src string) (image.Image, bool) {
	if strings.HasPrefix(src, "cached:") {
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), true
	}
	return nil, false
}

func (f *fakeLoader) IsLocal(src string) bool {
	return !strings.HasPrefix(src, "hang:")
}

func (f *fakeLoader) Load(ctx context.Context, src string, _ bool) (image.Image, error) {
	f.loads.Add(1)
	switch {
	case strings.HasPrefix(src, "ok:"):
		return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
	case strings.HasPrefix(src, "slow:"):
		select {
		case <-time.After(150 * time.Millisecond):
			return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	case strings.HasPrefix(src, "hang:"):
		<-ctx.Done()
		return nil, ctx.Err()
	case strings.HasPrefix(src, "panic:"):
		panic("decoder exploded")
	}
	return nil, errors.New("broken image")
}

func TestWait_MixedOutcomes(t *testing.T) {
	root := dom.El("div", dom.WithChildren(
		dom.El("img", dom.WithAttr("src", "cached:a")),
		dom.El("img", dom.WithAttr("src", "ok:b")),
		dom.El("img", dom.WithAttr("src", "fail:c")),
		dom.El("img", dom.WithAttr("src", "panic:d")),
		dom.El("img"),
		dom.El("img", dom.WithAttr("src", "slow:e")),
	))
	set := resource.NewSet()
	loader := &fakeLoader{}

	rep := Wait(context.Background(), root, loader, set, Options{Timeout: time.Second, DecodeTimeout: 50 * time.Millisecond})

	assert.Equal(t, 6, rep.Total)
	assert.Equal(t, 3, rep.Ready)
	assert.Equal(t, 3, rep.Failed)
	assert.Zero(t, rep.TimedOut)
	assert.Equal(t, []string{"cached:a", "ok:b", "slow:e"}, set.Sources())
}

func TestWait_BoundedByGlobalTimeout(t *testing.T) {
	var children []*html.Node
	for i := 0; i < 20; i++ {
		children = append(children, dom.El("img", dom.WithAttr("src", "hang:"+string(rune('a'+i)))))
	}
	children = append(children, dom.El("img", dom.WithAttr("src", "ok:x")))
	root := dom.El("div", dom.WithChildren(children...))

	opts := Options{Timeout: 200 * time.Millisecond, DecodeTimeout: 80 * time.Millisecond}
	start := time.Now()
	rep := Wait(context.Background(), root, &fakeLoader{}, resource.NewSet(), opts)
	elapsed := time.Since(start)

	assert.Equal(t, 21, rep.Total)
	assert.Equal(t, 1, rep.Ready)
	assert.Equal(t, 20, rep.TimedOut)
	assert.GreaterOrEqual(t, elapsed, opts.Timeout-10*time.Millisecond)
	assert.LessOrEqual(t, elapsed, opts.Timeout+opts.DecodeTimeout)
}

func TestWait_NoImages(t *testing.T) {
	loader := &fakeLoader{}
	rep := Wait(context.Background(), dom.El("div"), loader, resource.NewSet(), Options{})
	assert.Equal(t, Report{Elapsed: rep.Elapsed}, rep)
	assert.Zero(t, loader.loads.Load())
}

func TestWait_ParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root := dom.El("div", dom.WithChildren(dom.El("img", dom.WithAttr("src", "hang:z"))))
	var rep Report
	require.NotPanics(t, func() {
		rep = Wait(ctx, root, &fakeLoader{}, resource.NewSet(), Options{})
	})
	assert.Equal(t, 1, rep.TimedOut)
}

func TestWait_RealLoaderDataURL(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src := dataURL(t, img)
	root := dom.El("div", dom.WithChildren(dom.El("img", dom.WithAttr("src", src))))
	set := resource.NewSet()

	rep := Wait(context.Background(), root, resource.NewLoader(), set, Options{})
	assert.Equal(t, 1, rep.Ready)
	got, ok := set.Get(src)
	require.True(t, ok)
	assert.Equal(t, 4, got.Bounds().Dx())
}

func dataURL(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return resource.EncodeDataURL("image/png", buf.Bytes())
}
