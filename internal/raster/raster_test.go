package raster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/arran4/chat2png/internal/dom"
)

type namedBackend string

func (b namedBackend) Name() string { return string(b) }

func (b namedBackend) Rasterize(context.Context, *html.Node, Options) ([]byte, error) {
	return nil, nil
}

const (
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15"
	ipadUA    = "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15"
	desktopUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/126.0 Safari/537.36"
	androidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/126.0 Mobile"
)

func TestSelectorAuto(t *testing.T) {
	s, err := NewSelector(namedBackend("serialize"), namedBackend("capture"), "", "")
	require.NoError(t, err)

	assert.Equal(t, "capture", s.Select(iphoneUA).Name())
	assert.Equal(t, "capture", s.Select(ipadUA).Name())
	assert.Equal(t, "capture", s.Select("ipod touch").Name())
	assert.Equal(t, "serialize", s.Select(desktopUA).Name())
	assert.Equal(t, "serialize", s.Select(androidUA).Name())
	assert.Equal(t, "serialize", s.Select("").Name())
}

func TestSelectorForcedAndMissingCapture(t *testing.T) {
	s, err := NewSelector(namedBackend("serialize"), namedBackend("capture"), "", "serialize")
	require.NoError(t, err)
	assert.Equal(t, "serialize", s.Select(iphoneUA).Name())

	s, err = NewSelector(namedBackend("serialize"), namedBackend("capture"), "", "CAPTURE")
	require.NoError(t, err)
	assert.Equal(t, "capture", s.Select(desktopUA).Name())

	s, err = NewSelector(namedBackend("serialize"), nil, "", "auto")
	require.NoError(t, err)
	assert.Equal(t, "serialize", s.Select(iphoneUA).Name())

	_, err = NewSelector(namedBackend("serialize"), nil, "", "capture")
	assert.Error(t, err)
	_, err = NewSelector(nil, nil, "", "")
	assert.Error(t, err)
	_, err = NewSelector(namedBackend("serialize"), nil, "(", "")
	assert.Error(t, err)
	_, err = NewSelector(namedBackend("serialize"), nil, "", "gpu")
	assert.Error(t, err)
}

func TestSelectorCustomPattern(t *testing.T) {
	s, err := NewSelector(namedBackend("serialize"), namedBackend("capture"), `(?i)android`, "")
	require.NoError(t, err)
	assert.Equal(t, "capture", s.Select(androidUA).Name())
	assert.Equal(t, "serialize", s.Select(iphoneUA).Name())
}

func TestOptions(t *testing.T) {
	o := Options{}.WithDefaults()
	assert.Equal(t, DefaultScale, o.Scale)
	assert.Equal(t, DefaultViewportWidth, o.ViewportWidth)
	assert.True(t, o.Keep(dom.El("div")))

	o.Filter = ExcludeMarked
	assert.False(t, o.Keep(dom.El("div", dom.WithAttr("data-noexport", "true"))))
	assert.True(t, o.Keep(dom.El("div", dom.WithAttr("data-noexport", "false"))))
}
