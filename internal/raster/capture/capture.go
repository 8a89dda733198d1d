// Package capture rasterizes the export clone with headless Chrome. It is
// the backend for clients whose own DOM serialization produces blank
// images: the page is rebuilt from the clone and screenshotted after a
// real paint.
package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/arran4/chat2png/internal/raster"
	"github.com/arran4/chat2png/pkg/logger"
)

// DefaultTimeout bounds a single capture, browser start included.
const DefaultTimeout = 60 * time.Second

// Options configure the browser.
type Options struct {
	// ChromePath overrides the browser binary. Empty falls back to the
	// CHROME_PATH environment variable, then to chromedp's lookup.
	ChromePath string
	Timeout    time.Duration
}

// Backend implements raster.Backend on top of chromedp.
type Backend struct {
	opts Options
}

// New returns a capture backend.
func New(opts Options) *Backend {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Backend{opts: opts}
}

func (b *Backend) Name() string { return raster.ModeCapture }

func (b *Backend) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("headless", true),
		chromedp.WSURLReadTimeout(b.opts.Timeout),
	)
	path := b.opts.ChromePath
	if path == "" {
		path = os.Getenv("CHROME_PATH")
	}
	if path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	return opts
}

// Rasterize writes the page to a temporary file, loads it in Chrome and
// screenshots the target element at opts.Scale.
func (b *Backend) Rasterize(ctx context.Context, root *html.Node, opts raster.Options) ([]byte, error) {
	opts = opts.WithDefaults()
	page, err := Document(root, opts)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "chat2png-capture-*.html")
	if err != nil {
		return nil, fmt.Errorf("capture: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.WriteString(page); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("capture: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("capture: close temp file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug(fmt.Sprintf("chromedp: "+format, args...))
		}),
	)
	defer browserCancel()

	start := time.Now()
	var buf []byte
	sel := "[" + TargetAttr + "]"
	err = chromedp.Run(browserCtx,
		chromedp.EmulateViewport(int64(opts.ViewportWidth), 800),
		// Without the override Chrome paints unset backgrounds white.
		emulation.SetDefaultBackgroundColorOverride().WithColor(&cdp.RGBA{A: 0}),
		chromedp.Navigate("file://"+tmpPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.ScreenshotScale(sel, opts.Scale, &buf, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("capture: chrome: %w", err)
	}
	logger.Debug("capture finished",
		zap.Int("bytes", len(buf)),
		zap.Duration("duration", time.Since(start)),
	)
	return buf, nil
}
