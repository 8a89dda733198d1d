package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/arran4/chat2png/internal/chat"
	"github.com/arran4/chat2png/internal/css"
	"github.com/arran4/chat2png/internal/dom"
	"github.com/arran4/chat2png/internal/metrics"
	"github.com/arran4/chat2png/internal/preview"
	"github.com/arran4/chat2png/internal/raster"
	"github.com/arran4/chat2png/internal/raster/serialize"
	"github.com/arran4/chat2png/internal/readiness"
	apperrors "github.com/arran4/chat2png/pkg/errors"
)

var testDay = time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return testDay }

func onePixelPNG() []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1)))
	return buf.Bytes()
}

// fakeBackend records what it was asked to rasterize.
type fakeBackend struct {
	name  string
	doc   *dom.Document
	err   error
	panic bool

	mu        sync.Mutex
	calls     int
	markup    string
	opts      raster.Options
	mounted   bool
	container *html.Node
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Rasterize(_ context.Context, root *html.Node, opts raster.Options) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.opts = opts
	f.markup, _ = dom.Render(root)
	f.container = root.Parent
	f.mounted = f.doc != nil && f.doc.BodyContains(root.Parent)
	if f.panic {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return onePixelPNG(), nil
}

type nopLoader struct{}

func (nopLoader) Cached(string) (image.Image, bool) { return nil, false }
func (nopLoader) IsLocal(string) bool               { return false }
func (nopLoader) Load(context.Context, string, bool) (image.Image, error) {
	return nil, errors.New("offline")
}

// blockingLoader never finishes a load before its context ends.
type blockingLoader struct{ nopLoader }

func (blockingLoader) Load(ctx context.Context, _ string, _ bool) (image.Image, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type staticSource struct {
	doc      *dom.Document
	root     *html.Node
	theme    chat.Theme
	platform chat.Platform
}

func (s *staticSource) Document() *dom.Document { return s.doc }
func (s *staticSource) Snapshot() (*html.Node, chat.Theme, chat.Platform) {
	return s.root, s.theme, s.platform
}

// dispatchingFonts commits a store change while the export waits on fonts.
type dispatchingFonts struct {
	store   *chat.Store
	actions []chat.Action
	once    sync.Once
}

func (d *dispatchingFonts) Ready(context.Context) error {
	var err error
	d.once.Do(func() {
		for _, a := range d.actions {
			if err = d.store.Dispatch(a); err != nil {
				return
			}
		}
	})
	return err
}

type fixture struct {
	doc     *dom.Document
	store   *chat.Store
	preview *preview.Preview
	backend *fakeBackend
	capture *fakeBackend
	saver   *MemorySaver
	exp     *Exporter
}

func newFixture(t *testing.T, conv chat.Conversation) *fixture {
	t.Helper()
	doc := dom.NewDocument()
	store := chat.NewStore(conv)
	p := preview.New(doc, store, preview.Options{Badge: preview.DefaultBadge})
	t.Cleanup(p.Close)

	f := &fixture{
		doc: doc, store: store, preview: p,
		backend: &fakeBackend{name: raster.ModeSerialize, doc: doc},
		capture: &fakeBackend{name: raster.ModeCapture, doc: doc},
		saver:   &MemorySaver{},
	}
	sel, err := raster.NewSelector(f.backend, f.capture, "", raster.ModeAuto)
	require.NoError(t, err)
	f.exp, err = New(p, Options{
		Selector: sel,
		Saver:    f.saver,
		Loader:   nopLoader{},
		Now:      fixedNow,
	})
	require.NoError(t, err)
	return f
}

func renderDoc(t *testing.T, doc *dom.Document) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, doc.Render(&b))
	return b.String()
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "chat-whatsapp-dark-2024-01-15.png", Filename(ModeViewport, chat.WhatsApp, chat.Dark, testDay))
	assert.Equal(t, "chat-full-messenger-light-2024-01-15.png", Filename(ModeFull, chat.Messenger, chat.Light, testDay))
	// The date is taken in UTC.
	local := time.Date(2024, 1, 16, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	assert.Equal(t, "chat-whatsapp-dark-2024-01-15.png", Filename(ModeViewport, chat.WhatsApp, chat.Dark, local))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeViewport, m)
	m, err = ParseMode("full")
	require.NoError(t, err)
	assert.Equal(t, ModeFull, m)
	_, err = ParseMode("wide")
	assert.Error(t, err)
}

func TestExportViewport(t *testing.T) {
	f := newFixture(t, chat.New())
	res, err := f.exp.ExportViewport(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)

	name, data := f.saver.Last()
	assert.Equal(t, "chat-whatsapp-dark-2024-01-15.png", name)
	assert.Equal(t, onePixelPNG(), data)
	assert.Equal(t, raster.ModeSerialize, res.Backend)
	assert.Equal(t, ModeViewport, res.Mode)
	assert.NotEmpty(t, res.ID)

	opts := f.backend.opts
	assert.Equal(t, 2.0, opts.Scale)
	assert.Equal(t, "#070b10", opts.Background)
	assert.True(t, opts.CacheBust)
	assert.NotNil(t, opts.Images)
	require.NotNil(t, opts.Filter)
}

func TestExportFullConversationFilenameAndExpansion(t *testing.T) {
	conv := chat.New()
	conv.Platform, conv.Theme = chat.Messenger, chat.Light
	f := newFixture(t, conv)

	res, err := f.exp.ExportFullConversation(context.Background())
	require.NoError(t, err)
	name, _ := f.saver.Last()
	assert.Equal(t, "chat-full-messenger-light-2024-01-15.png", name)
	assert.True(t, res.Expanded.Viewport)
	assert.True(t, res.Expanded.Scroll)
	assert.Equal(t, "#f3f4f6", f.backend.opts.Background)
	assert.Contains(t, f.backend.markup, "max-height: none")
	assert.Contains(t, f.backend.markup, "min-height: 640px")
}

func TestViewportModeDoesNotExpand(t *testing.T) {
	f := newFixture(t, chat.New())
	res, err := f.exp.ExportViewport(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Expanded.Viewport)
	assert.NotContains(t, f.backend.markup, "max-height: none")
}

func TestLiveDOMUnchanged(t *testing.T) {
	f := newFixture(t, chat.New())
	before := renderDoc(t, f.doc)
	root := f.preview.Root()

	_, err := f.exp.ExportViewport(context.Background())
	require.NoError(t, err)
	_, err = f.exp.ExportFullConversation(context.Background())
	require.NoError(t, err)

	assert.Equal(t, before, renderDoc(t, f.doc))
	assert.Same(t, root, f.preview.Root())
	// The preview still carries its wide-gamut colors; only the copy lost them.
	assert.True(t, css.HasDisallowedColor(before))
}

func TestContainerMountedDuringRasterAndRemovedAfter(t *testing.T) {
	f := newFixture(t, chat.New())
	before := f.doc.BodyChildren()

	_, err := f.exp.ExportViewport(context.Background())
	require.NoError(t, err)

	assert.True(t, f.backend.mounted)
	require.NotNil(t, f.backend.container)
	assert.True(t, dom.HasAttr(f.backend.container, ContainerAttr))
	style := dom.AttrOr(f.backend.container, "style", "")
	assert.Contains(t, style, "left: -10000px")
	assert.Contains(t, style, "width: max-content")
	assert.Contains(t, style, "transform: translateZ(0)")
	assert.Equal(t, before, f.doc.BodyChildren())
}

func TestContainerRemovedOnFailure(t *testing.T) {
	f := newFixture(t, chat.New())
	before := renderDoc(t, f.doc)
	f.backend.err = errors.New("canvas tainted")

	res, err := f.exp.ExportViewport(context.Background())
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRaster))
	assert.ErrorContains(t, err, "canvas tainted")
	assert.Equal(t, 0, f.saver.Calls())
	assert.Equal(t, before, renderDoc(t, f.doc))
}

func TestContainerRemovedOnPanic(t *testing.T) {
	f := newFixture(t, chat.New())
	before := f.doc.BodyChildren()
	f.backend.panic = true

	_, err := f.exp.ExportFullConversation(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRaster))
	assert.Equal(t, before, f.doc.BodyChildren())
}

func TestExportCopiesPreviewRenderedDuringFontWait(t *testing.T) {
	conv := chat.New()
	conv.ContactName = "Before Wait"
	f := newFixture(t, conv)
	f.doc.SetFontSource(&dispatchingFonts{
		store:   f.store,
		actions: []chat.Action{chat.SetContactName("After Wait"), chat.SetTheme(chat.Light)},
	})

	res, err := f.exp.ExportViewport(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Contains(t, renderDoc(t, f.doc), "After Wait")
	assert.Contains(t, f.backend.markup, "After Wait")
	assert.NotContains(t, f.backend.markup, "Before Wait")
	name, _ := f.saver.Last()
	assert.Equal(t, "chat-whatsapp-light-2024-01-15.png", name)
	assert.Equal(t, chat.Light.Background(), f.backend.opts.Background)
}

func TestMissingSourceIsNoop(t *testing.T) {
	doc := dom.NewDocument()
	saver := &MemorySaver{}
	backend := &fakeBackend{name: raster.ModeSerialize}
	sel, err := raster.NewSelector(backend, nil, "", raster.ModeAuto)
	require.NoError(t, err)
	exp, err := New(&staticSource{doc: doc, theme: chat.Dark, platform: chat.WhatsApp}, Options{Selector: sel, Saver: saver})
	require.NoError(t, err)

	res, err := exp.ExportViewport(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 0, saver.Calls())
	assert.Equal(t, 0, backend.calls)
	assert.Empty(t, doc.BodyChildren())
}

func TestSanitizedBeforeRaster(t *testing.T) {
	f := newFixture(t, chat.New())
	res, err := f.exp.ExportViewport(context.Background())
	require.NoError(t, err)
	assert.Positive(t, res.Sanitized.Rewritten())
	assert.False(t, css.HasDisallowedColor(f.backend.markup))
}

func TestExcludedNodesFiltered(t *testing.T) {
	f := newFixture(t, chat.New())
	_, err := f.exp.ExportViewport(context.Background())
	require.NoError(t, err)

	// The badge is still in the copy; the backend is told to skip it.
	badge := dom.FindByAttr(f.backend.container, preview.AttrNoExport)
	require.NotNil(t, badge)
	assert.False(t, f.backend.opts.Keep(badge))
	assert.True(t, f.backend.opts.Keep(f.backend.container.FirstChild))
}

func TestBackendSelectedPerClient(t *testing.T) {
	f := newFixture(t, chat.New())
	ctx := WithUserAgent(context.Background(), "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15")
	res, err := f.exp.ExportViewport(ctx)
	require.NoError(t, err)
	assert.Equal(t, raster.ModeCapture, res.Backend)
	assert.Equal(t, 1, f.capture.calls)
	assert.Equal(t, 0, f.backend.calls)
}

func TestReadinessIsBounded(t *testing.T) {
	doc := dom.NewDocument()
	root := dom.El("div", dom.WithStyle("width: 100px"), dom.WithChildren(
		dom.El("img", dom.WithAttr("src", "https://slow.example.test/a.png")),
	))
	doc.AppendToBody(root)
	backend := &fakeBackend{name: raster.ModeSerialize, doc: doc}
	sel, err := raster.NewSelector(backend, nil, "", raster.ModeAuto)
	require.NoError(t, err)
	saver := &MemorySaver{}
	exp, err := New(&staticSource{doc: doc, root: root, theme: chat.Dark, platform: chat.WhatsApp}, Options{
		Selector:  sel,
		Saver:     saver,
		Loader:    blockingLoader{},
		Readiness: readiness.Options{Timeout: 50 * time.Millisecond, DecodeTimeout: 10 * time.Millisecond},
		Now:       fixedNow,
	})
	require.NoError(t, err)

	start := time.Now()
	res, err := exp.ExportViewport(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, res.Images.Total)
	assert.Equal(t, 1, res.Images.TimedOut)
	assert.Equal(t, 1, saver.Calls())
}

func TestConcurrentExportsOwnTheirContainers(t *testing.T) {
	f := newFixture(t, chat.New())
	before := f.doc.BodyChildren()
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(full bool) {
			defer wg.Done()
			var err error
			if full {
				_, err = f.exp.ExportFullConversation(context.Background())
			} else {
				_, err = f.exp.ExportViewport(context.Background())
			}
			errs <- err
		}(i%2 == 0)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 4, f.saver.Calls())
	assert.Equal(t, before, f.doc.BodyChildren())
}

func TestMetricsRecorded(t *testing.T) {
	f := newFixture(t, chat.New())
	m := metrics.New()
	f.exp.opts.Metrics = m
	_, err := f.exp.ExportViewport(context.Background())
	require.NoError(t, err)
	f.backend.err = errors.New("nope")
	_, err = f.exp.ExportViewport(context.Background())
	require.Error(t, err)

	mfs, err := m.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range mfs {
		if mf.GetName() == "chat2png_exports_total" {
			found = true
			assert.Len(t, mf.GetMetric(), 2)
		}
	}
	assert.True(t, found)
}

func TestCancelledContext(t *testing.T) {
	f := newFixture(t, chat.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.exp.ExportViewport(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeExportAbort))
	assert.Equal(t, 0, f.saver.Calls())
}

// ---- With the real serialize backend ----

func newSerializeExporter(t *testing.T, src Source) (*Exporter, *MemorySaver) {
	t.Helper()
	sel, err := raster.NewSelector(serialize.New(nil, nil), nil, "", raster.ModeAuto)
	require.NoError(t, err)
	saver := &MemorySaver{}
	exp, err := New(src, Options{Selector: sel, Saver: saver, Loader: nopLoader{}, Now: fixedNow})
	require.NoError(t, err)
	return exp, saver
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestFullConversationAtLeastViewportHeight(t *testing.T) {
	conv := chat.New()
	for i := 0; i < 40; i++ {
		side := chat.Them
		if i%2 == 0 {
			side = chat.Me
		}
		conv.Messages = append(conv.Messages, chat.NewText(side, "mensaje de prueba con algo de texto", testDay))
	}
	doc := dom.NewDocument()
	p := preview.New(doc, chat.NewStore(conv), preview.Options{})
	defer p.Close()
	exp, saver := newSerializeExporter(t, p)

	_, err := exp.ExportViewport(context.Background())
	require.NoError(t, err)
	_, data := saver.Last()
	viewport := decode(t, data).Bounds()

	_, err = exp.ExportFullConversation(context.Background())
	require.NoError(t, err)
	_, data = saver.Last()
	full := decode(t, data).Bounds()

	assert.Equal(t, viewport.Dx(), full.Dx())
	assert.Greater(t, full.Dy(), viewport.Dy())
}

func TestShortConversationSameHeightInBothModes(t *testing.T) {
	doc := dom.NewDocument()
	p := preview.New(doc, chat.NewStore(chat.New()), preview.Options{})
	defer p.Close()
	exp, saver := newSerializeExporter(t, p)

	_, err := exp.ExportViewport(context.Background())
	require.NoError(t, err)
	_, data := saver.Last()
	viewport := decode(t, data).Bounds()

	_, err = exp.ExportFullConversation(context.Background())
	require.NoError(t, err)
	_, data = saver.Last()
	assert.Equal(t, viewport, decode(t, data).Bounds())
}

func TestEmptyChatExports(t *testing.T) {
	conv := chat.New()
	conv.Messages = nil
	doc := dom.NewDocument()
	p := preview.New(doc, chat.NewStore(conv), preview.Options{})
	defer p.Close()
	exp, saver := newSerializeExporter(t, p)

	for _, mode := range []Mode{ModeViewport, ModeFull} {
		res, err := exp.Export(context.Background(), mode)
		require.NoError(t, err)
		require.NotNil(t, res)
		_, data := saver.Last()
		b := decode(t, data).Bounds()
		assert.Positive(t, b.Dx())
		assert.Positive(t, b.Dy())
	}
}

func TestDisallowedBackgroundPaintsTransparent(t *testing.T) {
	doc := dom.NewDocument()
	root := dom.El("div", dom.WithStyle("width: 100px; height: 50px; background-color: oklch(62.8% 0.258 29.23)"))
	doc.AppendToBody(root)
	exp, saver := newSerializeExporter(t, &staticSource{doc: doc, root: root, theme: chat.Dark, platform: chat.WhatsApp})

	res, err := exp.ExportViewport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sanitized.Colors)

	_, data := saver.Last()
	img := decode(t, data)
	require.Equal(t, image.Rect(0, 0, 200, 100), img.Bounds())
	got := color.NRGBAModel.Convert(img.At(100, 50)).(color.NRGBA)
	assert.Equal(t, color.NRGBA{0x07, 0x0b, 0x10, 0xff}, got)
	// The live element keeps its original color.
	assert.Contains(t, dom.AttrOr(root, "style", ""), "oklch(")
}

func TestGradientWithDisallowedStopStillExports(t *testing.T) {
	doc := dom.NewDocument()
	root := dom.El("div", dom.WithStyle("width: 100px; height: 50px; background: linear-gradient(oklch(62.8% 0.258 29.23), #000)"))
	doc.AppendToBody(root)
	exp, saver := newSerializeExporter(t, &staticSource{doc: doc, root: root, theme: chat.Dark, platform: chat.WhatsApp})

	res, err := exp.ExportViewport(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)

	_, data := saver.Last()
	img := decode(t, data)
	got := color.NRGBAModel.Convert(img.At(100, 50)).(color.NRGBA)
	assert.Equal(t, color.NRGBA{0x07, 0x0b, 0x10, 0xff}, got)
}

func TestDirSaverWritesReadableFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := filepath.Join(t.TempDir(), "out")
	s := &DirSaver{Dir: dir}
	require.NoError(t, s.Save(context.Background(), "chat-whatsapp-dark-2024-01-15.png", onePixelPNG()))

	want := filepath.Join(dir, "chat-whatsapp-dark-2024-01-15.png")
	assert.Equal(t, want, s.LastPath())
	info, err := os.Stat(want)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, onePixelPNG(), data)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".chat2png-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
