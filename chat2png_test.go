package chat2png

import (
	"bytes"
	"context"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arran4/chat2png/internal/chat"
	"github.com/arran4/chat2png/internal/config"
	"github.com/arran4/chat2png/internal/export"
	"github.com/arran4/chat2png/internal/preview"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(Options{
		Backend: "serialize",
		Scale:   1,
		Now:     func() time.Time { return time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	require.NoError(t, r.Fonts(context.Background()))
	return r
}

func TestRender(t *testing.T) {
	r := newRenderer(t)
	name, data, err := r.Render(context.Background(), chat.New(), export.ModeViewport)
	require.NoError(t, err)
	assert.Equal(t, "chat-whatsapp-dark-2024-01-15.png", name)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
	assert.Positive(t, img.Bounds().Dy())
}

func TestRenderFull(t *testing.T) {
	r := newRenderer(t)
	c := chat.New()
	c.Platform = chat.Messenger
	c.Theme = chat.Light
	name, _, err := r.Render(context.Background(), c, export.ModeFull)
	require.NoError(t, err)
	assert.Equal(t, "chat-full-messenger-light-2024-01-15.png", name)
}

func TestSession(t *testing.T) {
	r, err := NewRenderer(Options{Backend: "serialize", Badge: preview.DefaultBadge})
	require.NoError(t, err)
	s := r.NewSession(chat.New())
	defer s.Close()

	page, err := s.HTML()
	require.NoError(t, err)
	assert.Contains(t, page, preview.AttrRoot)
	assert.Contains(t, page, preview.DefaultBadge)

	require.NoError(t, s.Store.Dispatch(chat.SetContactName("Zoe")))
	page, err = s.HTML()
	require.NoError(t, err)
	assert.Contains(t, page, "Zoe")
}

func TestNewRendererRejectsUnknownBackend(t *testing.T) {
	_, err := NewRenderer(Options{Backend: "gpu"})
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Raster.Timeout = 0
	cfg.Export.RichText = true
	opts := OptionsFromConfig(cfg, nil)
	assert.Equal(t, time.Duration(-1), opts.RasterTimeout)
	assert.True(t, opts.RichText)
	assert.Equal(t, cfg.Export.ImageTimeout, opts.ImageTimeout)
	assert.Equal(t, "auto", opts.Backend)
}
