// Package export turns the live chat preview into a PNG.
//
// Every export works on its own deep copy of the preview, mounted in an
// offscreen container appended to the document body. The copy is expanded
// (full-conversation mode), has its images settled, is stripped of colors
// the rasterizers cannot paint, and is then rasterized by the backend the
// selector picks for the requesting client. The container is removed when
// the export returns, whatever the outcome. The live preview is only ever
// read.
package export

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/arran4/chat2png/internal/chat"
	"github.com/arran4/chat2png/internal/css"
	"github.com/arran4/chat2png/internal/dom"
	"github.com/arran4/chat2png/internal/expand"
	"github.com/arran4/chat2png/internal/metrics"
	"github.com/arran4/chat2png/internal/raster"
	"github.com/arran4/chat2png/internal/readiness"
	"github.com/arran4/chat2png/internal/resource"
	"github.com/arran4/chat2png/internal/sanitize"
	apperrors "github.com/arran4/chat2png/pkg/errors"
	"github.com/arran4/chat2png/pkg/idgen"
	"github.com/arran4/chat2png/pkg/logger"
	"github.com/arran4/chat2png/pkg/telemetry"
)

type Mode string

const (
	ModeViewport Mode = "viewport"
	ModeFull     Mode = "full"
)

// ParseMode accepts "viewport" and "full"; empty means viewport.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeViewport:
		return ModeViewport, nil
	case ModeFull:
		return ModeFull, nil
	}
	return "", fmt.Errorf("export: unknown mode %q", s)
}

// ContainerAttr marks the offscreen container of an export.
const ContainerAttr = "data-export-container"

// ContainerPadding is the frame drawn around the copy.
const ContainerPadding = "24px"

// Source is the mounted preview an export copies.
type Source interface {
	Document() *dom.Document
	// Snapshot returns the preview element and the theme and platform it
	// shows, read together. The root is nil when nothing is mounted.
	Snapshot() (*html.Node, chat.Theme, chat.Platform)
}

// ImageLoader settles images for the readiness wait and lets the
// rasterizer fetch what is still missing.
type ImageLoader interface {
	readiness.Loader
	raster.ImageLoader
}

// Options configure an Exporter.
type Options struct {
	Selector *raster.Selector
	Saver    Saver
	Loader   ImageLoader

	Readiness     readiness.Options
	Scale         float64
	ViewportWidth float64
	// RasterTimeout bounds the backend call. Zero leaves it unbounded.
	RasterTimeout time.Duration
	// UserAgent identifies the client when the context carries none.
	UserAgent string

	Metrics *metrics.Metrics
	// Now stamps filenames. Defaults to time.Now.
	Now func() time.Time
}

// Exporter runs exports of one Source.
type Exporter struct {
	src  Source
	opts Options
}

// New validates opts and returns an exporter.
func New(src Source, opts Options) (*Exporter, error) {
	if src == nil {
		return nil, fmt.Errorf("export: nil source")
	}
	if opts.Selector == nil {
		return nil, fmt.Errorf("export: nil backend selector")
	}
	if opts.Saver == nil {
		return nil, fmt.Errorf("export: nil saver")
	}
	if opts.Loader == nil {
		opts.Loader = resource.NewLoader()
	}
	if opts.Scale <= 0 {
		opts.Scale = raster.DefaultScale
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Exporter{src: src, opts: opts}, nil
}

type userAgentKey struct{}

// WithUserAgent attaches the requesting client's identification string to
// ctx. It decides the raster backend of exports run with ctx.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey{}, ua)
}

func (e *Exporter) userAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return e.opts.UserAgent
}

// Filename names an export: chat-{platform}-{theme}-{date}.png, with a
// "full-" infix for full-conversation exports. The date is UTC.
func Filename(mode Mode, platform chat.Platform, theme chat.Theme, now time.Time) string {
	prefix := "chat-"
	if mode == ModeFull {
		prefix = "chat-full-"
	}
	return fmt.Sprintf("%s%s-%s-%s.png", prefix, platform, theme, now.UTC().Format(time.DateOnly))
}

// Request is one export, fixed when it starts.
type Request struct {
	ID         string
	Mode       Mode
	Background string
	Scale      float64
	Filename   string
	UserAgent  string
}

// Result describes a finished export.
type Result struct {
	Request
	Backend   string
	Size      int
	Images    readiness.Report
	Expanded  expand.Result
	Sanitized sanitize.Result
	Duration  time.Duration
}

// ExportViewport exports the chat as it appears on screen. It returns nil
// and no error when nothing is mounted.
func (e *Exporter) ExportViewport(ctx context.Context) (*Result, error) {
	return e.Export(ctx, ModeViewport)
}

// ExportFullConversation exports the whole conversation as one tall image.
// It returns nil and no error when nothing is mounted.
func (e *Exporter) ExportFullConversation(ctx context.Context) (*Result, error) {
	return e.Export(ctx, ModeFull)
}

func (e *Exporter) skip(mode Mode) (*Result, error) {
	logger.Debug("export skipped: nothing mounted", zap.String("mode", string(mode)))
	e.opts.Metrics.RecordExport(string(mode), "none", metrics.ResultSkipped, 0)
	return nil, nil
}

func (e *Exporter) abort(mode Mode, start time.Time, cause error) (*Result, error) {
	e.opts.Metrics.RecordExport(string(mode), "none", metrics.ResultError, time.Since(start))
	return nil, apperrors.Wrap(apperrors.ErrCodeExportAbort, "export cancelled", cause)
}

// Export runs the pipeline in the given mode.
func (e *Exporter) Export(ctx context.Context, mode Mode) (res *Result, err error) {
	start := time.Now()
	backendName := "none"

	doc := e.src.Document()
	if doc == nil {
		return e.skip(mode)
	}

	// Let pending font loads and the last preview paint land before the
	// preview is read.
	if err := doc.FontsReady(ctx); err != nil {
		if ctx.Err() != nil {
			return e.abort(mode, start, ctx.Err())
		}
		logger.Debug("fonts not ready, continuing", zap.String("mode", string(mode)), zap.Error(err))
	}
	if err := doc.NextFrame(ctx); err != nil {
		return e.abort(mode, start, err)
	}

	root, theme, platform := e.src.Snapshot()
	if root == nil {
		return e.skip(mode)
	}

	req := Request{
		ID:         idgen.NewRequestID(),
		Mode:       mode,
		Background: theme.Background(),
		Scale:      e.opts.Scale,
		Filename:   Filename(mode, platform, theme, e.opts.Now()),
		UserAgent:  e.userAgent(ctx),
	}
	log := logger.With(zap.String("export_id", req.ID), zap.String("mode", string(mode)))

	ctx, span := telemetry.StartSpan(ctx, "export", telemetry.WithExportAttributes(string(mode), string(platform), string(theme)))
	defer span.End()
	defer func() {
		result := metrics.ResultOK
		if err != nil {
			result = metrics.ResultError
			telemetry.SetSpanError(span, err)
			log.Warn("export failed", zap.String("backend", backendName), zap.Error(err))
		} else {
			telemetry.SetSpanOK(span)
		}
		e.opts.Metrics.RecordExport(string(mode), backendName, result, time.Since(start))
	}()

	clone := doc.Clone(root)
	container := dom.El("div",
		dom.WithAttr(ContainerAttr, req.ID),
		dom.WithStyle(containerStyle(req.Background)),
		dom.WithChildren(clone),
	)
	doc.AppendToBody(container)
	defer func() {
		removed := doc.RemoveFromBody(container)
		log.Debug("offscreen container removed", zap.Bool("removed", removed))
	}()

	res = &Result{Request: req}

	if mode == ModeFull {
		doc.Update(func() { res.Expanded = expand.Expand(clone) })
		log.Debug("layout expanded",
			zap.Bool("viewport", res.Expanded.Viewport),
			zap.Bool("scroll", res.Expanded.Scroll),
		)
	}

	images := resource.NewSet()
	res.Images = e.waitImages(ctx, clone, images)
	e.opts.Metrics.RecordImages(res.Images.Ready, res.Images.Failed, res.Images.TimedOut)
	log.Debug("images settled",
		zap.Int("total", res.Images.Total),
		zap.Int("failed", res.Images.Failed),
		zap.Int("timed_out", res.Images.TimedOut),
		zap.Duration("elapsed", res.Images.Elapsed),
	)

	doc.Update(func() { res.Sanitized = sanitize.Sanitize(clone) })
	e.opts.Metrics.RecordSanitized(res.Sanitized.Rewritten())
	span.SetAttributes(telemetry.AttrSanitizedRules.Int(res.Sanitized.Rewritten()))
	log.Debug("styles sanitized",
		zap.Int("rewritten", res.Sanitized.Rewritten()),
		zap.Int("skipped", res.Sanitized.Skipped),
	)

	doc.Update(func() {
		for _, n := range []*html.Node{container, clone} {
			if err := css.SetProperties(n, "transform", "translateZ(0)", "will-change", "transform"); err != nil {
				log.Debug("repaint nudge skipped", zap.Error(err))
			}
		}
	})
	if err := doc.NextFrame(ctx); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeExportAbort, "export cancelled", err)
	}

	backend := e.opts.Selector.Select(req.UserAgent)
	backendName = backend.Name()
	res.Backend = backendName
	span.SetAttributes(telemetry.AttrExportBackend.String(backendName))

	data, err := e.rasterize(ctx, backend, clone, raster.Options{
		Scale:         req.Scale,
		Background:    req.Background,
		CacheBust:     true,
		Filter:        raster.ExcludeMarked,
		Images:        images,
		Loader:        e.opts.Loader,
		ViewportWidth: e.opts.ViewportWidth,
	})
	if err != nil {
		return nil, apperrors.ErrRaster(backendName, err)
	}
	res.Size = len(data)

	if err := e.opts.Saver.Save(ctx, req.Filename, data); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeSave, "save export", err)
	}
	span.SetAttributes(telemetry.AttrExportFilename.String(req.Filename))
	res.Duration = time.Since(start)
	log.Info("export finished",
		zap.String("backend", backendName),
		zap.String("filename", req.Filename),
		zap.Int("bytes", res.Size),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func containerStyle(bg string) string {
	return "position: fixed; left: -10000px; top: 0; z-index: 999999; padding: " + ContainerPadding +
		"; width: max-content; background: " + bg
}

func (e *Exporter) waitImages(ctx context.Context, clone *html.Node, set *resource.Set) readiness.Report {
	ctx, span := telemetry.StartSpan(ctx, "export.readiness")
	defer span.End()
	rep := readiness.Wait(ctx, clone, e.opts.Loader, set, e.opts.Readiness)
	span.SetAttributes(
		telemetry.AttrImagesTotal.Int(rep.Total),
		telemetry.AttrImagesReady.Int(rep.Ready),
		telemetry.AttrImagesFailed.Int(rep.Failed),
		telemetry.AttrImagesTimedOut.Int(rep.TimedOut),
	)
	return rep
}

func (e *Exporter) rasterize(ctx context.Context, backend raster.Backend, clone *html.Node, opts raster.Options) (data []byte, err error) {
	ctx, span := telemetry.StartSpan(ctx, "export.rasterize")
	defer span.End()
	if e.opts.RasterTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.RasterTimeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("export: backend %s panicked: %v", backend.Name(), p)
		}
		telemetry.SetSpanError(span, err)
	}()
	data, err = backend.Rasterize(ctx, clone, opts)
	if err == nil && len(data) == 0 {
		err = raster.ErrEmpty
	}
	telemetry.AddSpanEvent(span, "rasterized", attribute.Int("bytes", len(data)))
	return data, err
}
