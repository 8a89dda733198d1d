package fonts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load(Config{})
	require.NoError(t, err)
	for st := Regular; st <= Mono; st++ {
		assert.NotNil(t, s.Font(st))
	}
	assert.Equal(t, s.Font(Regular), s.Font(Style(42)))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(Config{BoldPath: filepath.Join(t.TempDir(), "nope.ttf")})
	assert.Error(t, err)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ttf")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))
	_, err := Load(Config{RegularPath: path})
	assert.ErrorContains(t, err, "parse")
}

func TestPick(t *testing.T) {
	assert.Equal(t, Regular, Pick("400", "normal", "sans-serif"))
	assert.Equal(t, Bold, Pick("600", "normal", "sans-serif"))
	assert.Equal(t, Bold, Pick("bold", "", ""))
	assert.Equal(t, Italic, Pick("400", "italic", ""))
	assert.Equal(t, BoldItalic, Pick("700", "italic", ""))
	assert.Equal(t, Mono, Pick("700", "italic", "ui-monospace, monospace"))
	assert.False(t, IsBold("500"))
}

func TestMeasureScalesWithSize(t *testing.T) {
	f := MustDefault().NewFaces()
	w15 := f.Measure(Regular, 15, "Jajajaja")
	w30 := f.Measure(Regular, 30, "Jajajaja")
	assert.Positive(t, w15)
	assert.InDelta(t, w15*2, w30, 1.0)
	assert.Greater(t, f.Measure(Bold, 15, "Jajajaja"), w15*0.9)
	assert.Zero(t, f.Measure(Regular, 15, ""))

	asc, desc := f.Metrics(Regular, 15)
	assert.Positive(t, asc)
	assert.Positive(t, desc)
}

func TestLoaderReady(t *testing.T) {
	l := LoadAsync(Config{})
	require.NoError(t, l.Ready(context.Background()))
	s, err := l.Set(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s.Font(Mono))

	bad := LoadAsync(Config{MonoPath: "/does/not/exist.ttf"})
	assert.Error(t, bad.Ready(context.Background()))
}
