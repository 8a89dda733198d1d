// Package raster defines the backends that turn an export clone into PNG
// bytes and the selector that picks one per export.
package raster

import (
	"context"
	"errors"
	"image"

	"golang.org/x/net/html"

	"github.com/arran4/chat2png/internal/dom"
	"github.com/arran4/chat2png/internal/resource"
)

const (
	DefaultScale = 2.0
	// DefaultViewportWidth is the layout width offered to the offscreen
	// container when nothing else constrains it.
	DefaultViewportWidth = 1280.0
)

// ErrEmpty is returned when the target lays out to a zero-sized box.
var ErrEmpty = errors.New("raster: target has no size")

// Backend rasterizes a subtree to PNG bytes.
type Backend interface {
	Name() string
	Rasterize(ctx context.Context, root *html.Node, opts Options) ([]byte, error)
}

// ImageLoader fetches images the readiness pass did not leave in the set.
type ImageLoader interface {
	Load(ctx context.Context, src string, bust bool) (image.Image, error)
}

// Options tune a single rasterization.
type Options struct {
	Scale      float64
	Background string
	// CacheBust forces remote images to be refetched instead of reused.
	CacheBust bool
	// Filter reports whether a node is rendered. Nil renders everything.
	Filter        func(*html.Node) bool
	Images        *resource.Set
	Loader        ImageLoader
	ViewportWidth float64
}

// Keep applies the filter.
func (o Options) Keep(n *html.Node) bool {
	return o.Filter == nil || o.Filter(n)
}

// WithDefaults fills zero fields.
func (o Options) WithDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = DefaultViewportWidth
	}
	return o
}

// ExcludeMarked is the exclusion filter used by exports: marked nodes are
// skipped together with their subtree.
func ExcludeMarked(n *html.Node) bool {
	return !dom.Excluded(n)
}
