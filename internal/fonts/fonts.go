// Package fonts loads the TrueType fonts the painter draws with. Missing
// paths fall back to the bundled Go fonts.
package fonts

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Style selects one of the loaded faces.
type Style int

const (
	Regular Style = iota
	Bold
	Italic
	BoldItalic
	Mono
)

// Config names optional font files; empty paths use the Go fonts.
type Config struct {
	RegularPath    string `yaml:"regular"`
	BoldPath       string `yaml:"bold"`
	ItalicPath     string `yaml:"italic"`
	BoldItalicPath string `yaml:"bold_italic"`
	MonoPath       string `yaml:"mono"`
}

// Set holds parsed fonts. A Set is immutable and safe to share.
type Set struct {
	fonts [5]*truetype.Font
}

func loadFont(path string, fallback []byte) (*truetype.Font, error) {
	data := fallback
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("fonts: %w", err)
		}
		data = b
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fonts: parse %q: %w", path, err)
	}
	return f, nil
}

// Load parses the configured fonts.
func Load(cfg Config) (*Set, error) {
	specs := [5]struct {
		path     string
		fallback []byte
	}{
		Regular:    {cfg.RegularPath, goregular.TTF},
		Bold:       {cfg.BoldPath, gobold.TTF},
		Italic:     {cfg.ItalicPath, goitalic.TTF},
		BoldItalic: {cfg.BoldItalicPath, gobolditalic.TTF},
		Mono:       {cfg.MonoPath, gomono.TTF},
	}
	var s Set
	for i, spec := range specs {
		f, err := loadFont(spec.path, spec.fallback)
		if err != nil {
			return nil, err
		}
		s.fonts[i] = f
	}
	return &s, nil
}

// MustDefault returns the bundled Go fonts.
func MustDefault() *Set {
	s, err := Load(Config{})
	if err != nil {
		panic(err)
	}
	return s
}

// Font returns the font for style.
func (s *Set) Font(style Style) *truetype.Font {
	if style < Regular || style > Mono {
		style = Regular
	}
	return s.fonts[style]
}

// Pick maps CSS font properties to a Style.
func Pick(weight, fontStyle, family string) Style {
	if strings.Contains(strings.ToLower(family), "mono") {
		return Mono
	}
	bold := IsBold(weight)
	italic := fontStyle == "italic" || fontStyle == "oblique"
	switch {
	case bold && italic:
		return BoldItalic
	case bold:
		return Bold
	case italic:
		return Italic
	}
	return Regular
}

// IsBold reports whether a font-weight value renders with the bold face.
func IsBold(weight string) bool {
	switch weight {
	case "bold", "bolder":
		return true
	case "", "normal", "lighter":
		return false
	}
	n, err := strconv.Atoi(weight)
	return err == nil && n >= 600
}

type faceKey struct {
	style Style
	size  int32 // 1/64 px
}

// Faces caches font.Face values per style and size. truetype faces keep
// internal glyph caches, so a Faces value belongs to one goroutine.
type Faces struct {
	set   *Set
	faces map[faceKey]font.Face
}

// NewFaces returns an empty face cache over s.
func (s *Set) NewFaces() *Faces {
	return &Faces{set: s, faces: make(map[faceKey]font.Face)}
}

// Face returns the face for style at size px.
func (f *Faces) Face(style Style, size float64) font.Face {
	key := faceKey{style, int32(math.Round(size * 64))}
	if face, ok := f.faces[key]; ok {
		return face
	}
	face := truetype.NewFace(f.set.Font(style), &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	f.faces[key] = face
	return face
}

// Measure returns the advance width of s in px.
func (f *Faces) Measure(style Style, size float64, s string) float64 {
	if s == "" || size <= 0 {
		return 0
	}
	return float64(font.MeasureString(f.Face(style, size), s)) / 64
}

// Metrics returns ascent and descent in px.
func (f *Faces) Metrics(style Style, size float64) (ascent, descent float64) {
	m := f.Face(style, size).Metrics()
	return float64(m.Ascent) / 64, float64(m.Descent) / 64
}

// Loader parses fonts in the background and reports readiness, so callers
// can start building documents before the font files are read.
type Loader struct {
	done chan struct{}
	set  *Set
	err  error
}

// LoadAsync starts loading cfg.
func LoadAsync(cfg Config) *Loader {
	l := &Loader{done: make(chan struct{})}
	go func() {
		defer close(l.done)
		l.set, l.err = Load(cfg)
	}()
	return l
}

// Ready blocks until loading finished and returns its error.
func (l *Loader) Ready(ctx context.Context) error {
	select {
	case <-l.done:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Set waits for loading and returns the fonts.
func (l *Loader) Set(ctx context.Context) (*Set, error) {
	if err := l.Ready(ctx); err != nil {
		return nil, err
	}
	return l.set, nil
}
