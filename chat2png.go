// Package chat2png renders WhatsApp and Messenger style chat mock-ups and
// exports them as PNG images.
//
// A Renderer owns what every export shares: fonts, the image loader and
// cache, and the raster backends. A Session is one live conversation with
// its own state store, document and preview.
package chat2png

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arran4/chat2png/internal/chat"
	"github.com/arran4/chat2png/internal/config"
	"github.com/arran4/chat2png/internal/dom"
	"github.com/arran4/chat2png/internal/export"
	"github.com/arran4/chat2png/internal/fonts"
	"github.com/arran4/chat2png/internal/metrics"
	"github.com/arran4/chat2png/internal/preview"
	"github.com/arran4/chat2png/internal/raster"
	"github.com/arran4/chat2png/internal/raster/capture"
	"github.com/arran4/chat2png/internal/raster/serialize"
	"github.com/arran4/chat2png/internal/readiness"
	"github.com/arran4/chat2png/internal/resource"
)

// ErrNothingExported is returned by Render when the preview had no
// mounted root.
var ErrNothingExported = errors.New("chat2png: nothing exported")

// Options configure a Renderer. Zero values enable the defaults: bundled
// Go fonts, automatic backend selection, scale 2, a 2.5s image deadline
// and a 60s raster timeout.
type Options struct {
	Fonts fonts.Config
	// Backend is auto, serialize or capture.
	Backend       string
	MobilePattern string
	ChromePath    string
	// BaseDir resolves relative image paths. Defaults to the working
	// directory.
	BaseDir      string
	FetchTimeout time.Duration

	Scale         float64
	ViewportWidth float64
	ImageTimeout  time.Duration
	DecodeTimeout time.Duration
	// RasterTimeout bounds a backend call. Negative leaves it unbounded.
	RasterTimeout time.Duration

	RichText bool
	// Badge labels on-screen previews. It never appears in exports.
	Badge string

	Metrics *metrics.Metrics
	Now     func() time.Time
}

// OptionsFromConfig maps the configuration file onto renderer options.
func OptionsFromConfig(cfg *config.Config, m *metrics.Metrics) Options {
	rt := cfg.Raster.Timeout
	if rt == 0 {
		rt = -1
	}
	return Options{
		Fonts:         cfg.Fonts,
		Backend:       cfg.Raster.Backend,
		MobilePattern: cfg.Raster.MobilePattern,
		ChromePath:    cfg.Raster.ChromePath,
		BaseDir:       cfg.Raster.BaseDir,
		FetchTimeout:  cfg.Raster.FetchTimeout,
		Scale:         cfg.Export.Scale,
		ViewportWidth: cfg.Export.ViewportWidth,
		ImageTimeout:  cfg.Export.ImageTimeout,
		DecodeTimeout: cfg.Export.DecodeTimeout,
		RasterTimeout: rt,
		RichText:      cfg.Export.RichText,
		Metrics:       m,
	}
}

// Renderer builds sessions and runs exports.
type Renderer struct {
	opts     Options
	fonts    *fonts.Loader
	loader   *resource.Loader
	selector *raster.Selector
}

// NewRenderer starts loading fonts and prepares the raster backends. The
// capture backend is only constructed when the backend mode allows it.
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	switch {
	case opts.RasterTimeout == 0:
		opts.RasterTimeout = capture.DefaultTimeout
	case opts.RasterTimeout < 0:
		opts.RasterTimeout = 0
	}
	baseDir := strings.TrimSpace(opts.BaseDir)
	if baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			baseDir = wd
		}
	} else if !filepath.IsAbs(baseDir) {
		if abs, err := filepath.Abs(baseDir); err == nil {
			baseDir = abs
		}
	}
	opts.BaseDir = baseDir

	fl := fonts.LoadAsync(opts.Fonts)
	loader := resource.NewLoader(
		resource.WithBaseDir(baseDir),
		resource.WithHTTPClient(&http.Client{Timeout: opts.FetchTimeout}),
	)

	var capt raster.Backend
	if !strings.EqualFold(opts.Backend, raster.ModeSerialize) {
		capt = capture.New(capture.Options{ChromePath: opts.ChromePath, Timeout: opts.RasterTimeout})
	}
	sel, err := raster.NewSelector(serialize.NewAsync(fl, loader), capt, opts.MobilePattern, opts.Backend)
	if err != nil {
		return nil, err
	}
	return &Renderer{opts: opts, fonts: fl, loader: loader, selector: sel}, nil
}

// Fonts waits for font loading and reports its error.
func (r *Renderer) Fonts(ctx context.Context) error {
	return r.fonts.Ready(ctx)
}

// Session is one conversation mounted into its own document.
type Session struct {
	r       *Renderer
	Store   *chat.Store
	Preview *preview.Preview
}

// NewSession mounts c.
func (r *Renderer) NewSession(c chat.Conversation) *Session {
	doc := dom.NewDocument()
	doc.SetFontSource(r.fonts)
	st := chat.NewStore(c)
	p := preview.New(doc, st, preview.Options{RichText: r.opts.RichText, Badge: r.opts.Badge})
	return &Session{r: r, Store: st, Preview: p}
}

func (r *Renderer) exportOptions(saver export.Saver) export.Options {
	return export.Options{
		Selector: r.selector,
		Saver:    saver,
		Loader:   r.loader,
		Readiness: readiness.Options{
			Timeout:       r.opts.ImageTimeout,
			DecodeTimeout: r.opts.DecodeTimeout,
		},
		Scale:         r.opts.Scale,
		ViewportWidth: r.opts.ViewportWidth,
		RasterTimeout: r.opts.RasterTimeout,
		Metrics:       r.opts.Metrics,
		Now:           r.opts.Now,
	}
}

// Export runs one export of the session's preview and hands the PNG to
// saver. Use export.WithUserAgent on ctx to pick the backend for a client.
func (s *Session) Export(ctx context.Context, mode export.Mode, saver export.Saver) (*export.Result, error) {
	e, err := export.New(s.Preview, s.r.exportOptions(saver))
	if err != nil {
		return nil, err
	}
	return e.Export(ctx, mode)
}

// HTML renders the session's document.
func (s *Session) HTML() (string, error) {
	var b strings.Builder
	if err := s.Preview.Document().Render(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Close unmounts the preview.
func (s *Session) Close() {
	s.Preview.Close()
}

// Render exports c in mode and returns the file name and PNG bytes.
func (r *Renderer) Render(ctx context.Context, c chat.Conversation, mode export.Mode) (string, []byte, error) {
	s := r.NewSession(c)
	defer s.Close()

	var saver export.MemorySaver
	res, err := s.Export(ctx, mode, &saver)
	if err != nil {
		return "", nil, err
	}
	if res == nil {
		return "", nil, ErrNothingExported
	}
	name, data := saver.Last()
	return name, data, nil
}
