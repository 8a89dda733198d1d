package capture

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/arran4/chat2png/internal/dom"
	"github.com/arran4/chat2png/internal/raster"
	"github.com/arran4/chat2png/internal/resource"
)

func exportTree() (container, clone *html.Node) {
	clone = dom.El("div", dom.WithStyle("width: 100%; max-width: 430px"), dom.WithChildren(
		dom.El("p", dom.WithText("Hola")),
		dom.El("img", dom.WithAttr("src", "https://cdn.example.test/wall.png")),
		dom.El("img", dom.WithAttr("src", "avatar.png")),
		dom.El("div", dom.WithAttr("data-noexport", "true"), dom.WithText("Preview only")),
	))
	container = dom.El("div", dom.WithStyle("position: fixed; left: -10000px; top: 0; padding: 24px"), dom.WithChildren(clone))
	return container, clone
}

func TestDocument(t *testing.T) {
	container, clone := exportTree()
	set := resource.NewSet()
	set.Put("avatar.png", image.NewRGBA(image.Rect(0, 0, 2, 2)))

	page, err := Document(clone, raster.Options{
		Background: "#070b10",
		CacheBust:  true,
		Filter:     raster.ExcludeMarked,
		Images:     set,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "box-sizing:border-box")
	assert.Contains(t, page, TargetAttr+`="true"`)
	assert.Contains(t, page, "Hola")
	assert.NotContains(t, page, "Preview only")
	assert.Contains(t, page, `src="data:image/png;base64,`)
	assert.Contains(t, page, "wall.png?_cb=")
	assert.Contains(t, page, "left: 0")
	assert.NotContains(t, page, "-10000px")
	assert.Contains(t, page, "background:#070b10")

	// The live nodes are left as they were.
	assert.False(t, dom.HasAttr(clone, TargetAttr))
	assert.Contains(t, dom.AttrOr(container, "style", ""), "-10000px")
	assert.Equal(t, "avatar.png", dom.AttrOr(dom.FindAll(clone, "img")[1], "src", ""))
}

func TestDocumentWithoutCacheBust(t *testing.T) {
	_, clone := exportTree()
	page, err := Document(clone, raster.Options{})
	require.NoError(t, err)
	assert.Contains(t, page, `src="https://cdn.example.test/wall.png"`)
	assert.Contains(t, page, "Preview only")
}

func TestDocumentRejectsExcludedRoot(t *testing.T) {
	_, err := Document(nil, raster.Options{})
	assert.ErrorIs(t, err, raster.ErrEmpty)

	root := dom.El("div", dom.WithAttr("data-noexport", "true"))
	_, err = Document(root, raster.Options{Filter: raster.ExcludeMarked})
	assert.ErrorIs(t, err, raster.ErrEmpty)
}

func chromeAvailable() bool {
	if os.Getenv("CHROME_PATH") != "" {
		return true
	}
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func TestRasterizeWithChrome(t *testing.T) {
	if testing.Short() || !chromeAvailable() {
		t.Skip("chrome not available")
	}
	_, clone := exportTree()
	dom.SetAttr(clone, "style", "width: 120px; height: 40px; background: #ff0000")
	data, err := New(Options{}).Rasterize(context.Background(), clone, raster.Options{Scale: 2, Filter: raster.ExcludeMarked})
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 240, img.Bounds().Dx())
}
