// Package serialize is the default raster backend. It lays the export
// clone out from its inline styles and paints it with freetype and
// x/image, without a browser.
//
// The painter understands sRGB colors only. Modern color functions such as
// oklch() or color-mix() make it fail with css.ErrUnsupportedColor, so
// exports sanitize the clone before rasterizing.
package serialize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/arran4/chat2png/internal/css"
	"github.com/arran4/chat2png/internal/fonts"
	"github.com/arran4/chat2png/internal/raster"
	"github.com/arran4/chat2png/pkg/logger"
)

// Backend implements raster.Backend.
type Backend struct {
	fonts   *fonts.Set
	pending *fonts.Loader
	loader  raster.ImageLoader
}

// New returns a backend drawing with set. loader fetches images missing
// from the per-export set; it may be nil.
func New(set *fonts.Set, loader raster.ImageLoader) *Backend {
	if set == nil {
		set = fonts.MustDefault()
	}
	return &Backend{fonts: set, loader: loader}
}

// NewAsync returns a backend whose fonts come from l. Rasterizing waits for
// l to finish.
func NewAsync(l *fonts.Loader, loader raster.ImageLoader) *Backend {
	return &Backend{pending: l, loader: loader}
}

func (bk *Backend) fontSet(ctx context.Context) (*fonts.Set, error) {
	if bk.pending == nil {
		return bk.fonts, nil
	}
	set, err := bk.pending.Set(ctx)
	if err != nil {
		return nil, fmt.Errorf("serialize: fonts: %w", err)
	}
	return set, nil
}

func (bk *Backend) Name() string { return raster.ModeSerialize }

// Rasterize renders root and encodes it as PNG.
func (bk *Backend) Rasterize(ctx context.Context, root *html.Node, opts raster.Options) ([]byte, error) {
	img, err := bk.Render(ctx, root, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("serialize: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// engine holds the state of one rasterization.
type engine struct {
	res    *css.Resolver
	fonts  *fonts.Set
	faces  *fonts.Faces
	opts   raster.Options
	images map[string]image.Image
	widths map[widthKey]float64
}

func (e *engine) image(ctx context.Context, src string) image.Image {
	if src == "" {
		return nil
	}
	if img, ok := e.images[src]; ok {
		return img
	}
	img, ok := e.opts.Images.Get(src)
	if !ok && e.opts.Loader != nil {
		loaded, err := e.opts.Loader.Load(ctx, src, e.opts.CacheBust)
		if err != nil {
			logger.Debug("image unavailable, painting without it", zap.Error(err))
		} else {
			img = loaded
			e.opts.Images.Put(src, img)
		}
	}
	e.images[src] = img
	return img
}

// layoutRoot is the box laid out against the viewport: the clone's
// offscreen container when there is one, so the clone gets the width the
// container gives it.
func layoutRoot(n *html.Node) *html.Node {
	p := n.Parent
	if p == nil || p.Type != html.ElementNode {
		return n
	}
	switch p.DataAtom {
	case atom.Body, atom.Html:
		return n
	}
	return p
}

func find(b *box, n *html.Node, x, y float64) (*box, float64, float64) {
	if b.node == n {
		return b, x, y
	}
	for _, c := range b.children {
		if found, fx, fy := find(c, n, x+c.x, y+c.y); found != nil {
			return found, fx, fy
		}
	}
	return nil, 0, 0
}

// lay builds and lays out the tree around root and returns root's box.
func (bk *Backend) lay(ctx context.Context, root *html.Node, opts raster.Options) (*engine, *box, error) {
	if root == nil || root.Type != html.ElementNode || !opts.Keep(root) {
		return nil, nil, fmt.Errorf("serialize: %w", raster.ErrEmpty)
	}
	set, err := bk.fontSet(ctx)
	if err != nil {
		return nil, nil, err
	}
	e := &engine{
		res:    css.NewResolver(),
		fonts:  set,
		faces:  set.NewFaces(),
		opts:   opts,
		images: make(map[string]image.Image),
		widths: make(map[widthKey]float64),
	}
	bd := &builder{ctx: ctx, e: e, keep: opts.Keep}
	rb := bd.build(layoutRoot(root))
	if rb == nil {
		return nil, nil, fmt.Errorf("serialize: %w", raster.ErrEmpty)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	vw := opts.ViewportWidth
	rb.resolveEdges(vw, true)
	var w float64
	if rb.outOfFlow() || rb.shrink {
		w = e.fitWidth(rb, vw)
	} else {
		w = e.blockWidth(rb, vw)
	}
	e.layout(rb, w, -1, 0, false)

	target, _, _ := find(rb, root, 0, 0)
	if target == nil {
		return nil, nil, fmt.Errorf("serialize: %w", raster.ErrEmpty)
	}
	return e, target, nil
}

// Render lays out and paints root at opts.Scale.
func (bk *Backend) Render(ctx context.Context, root *html.Node, opts raster.Options) (*image.RGBA, error) {
	opts = opts.WithDefaults()
	if opts.Loader == nil && bk.loader != nil {
		opts.Loader = bk.loader
	}
	e, target, err := bk.lay(ctx, root, opts)
	if err != nil {
		return nil, err
	}
	s := opts.Scale
	W, H := int(math.Ceil(target.w*s)), int(math.Ceil(target.h*s))
	if W <= 0 || H <= 0 {
		return nil, fmt.Errorf("serialize: %w", raster.ErrEmpty)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, W, H))
	if opts.Background != "" {
		bg, err := css.ParseColor(opts.Background, color.NRGBA{A: 255})
		if err != nil {
			return nil, fmt.Errorf("serialize: background: %w", err)
		}
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	}
	p := newPainter(ctx, e, s)
	p.paintBox(canvas, target, 0, 0)
	if p.err != nil {
		return nil, p.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return canvas, nil
}
