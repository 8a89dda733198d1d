package export

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Saver delivers the finished PNG. It plays the part of the browser
// download: the CLI writes a file, the HTTP API streams an attachment.
type Saver interface {
	Save(ctx context.Context, filename string, data []byte) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, filename string, data []byte) error

func (f SaverFunc) Save(ctx context.Context, filename string, data []byte) error {
	return f(ctx, filename, data)
}

// DirSaver writes exports into a directory, creating it when needed. The
// file appears atomically under its final name.
type DirSaver struct {
	Dir string

	mu       sync.Mutex
	lastPath string
}

// NewDirSaver returns a saver writing into dir.
func NewDirSaver(dir string) *DirSaver {
	return &DirSaver{Dir: dir}
}

func (s *DirSaver) Save(ctx context.Context, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".chat2png-*.png")
	if err != nil {
		return fmt.Errorf("export: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("export: write %s: %w", filename, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("export: chmod %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("export: close %s: %w", filename, err)
	}
	dst := filepath.Join(dir, filepath.Base(filename))
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("export: rename %s: %w", filename, err)
	}
	s.mu.Lock()
	s.lastPath = dst
	s.mu.Unlock()
	return nil
}

// LastPath returns where the most recent export was written.
func (s *DirSaver) LastPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPath
}

// HTTPSaver streams the export as a download.
type HTTPSaver struct {
	W http.ResponseWriter
}

func (s HTTPSaver) Save(_ context.Context, filename string, data []byte) error {
	h := s.W.Header()
	h.Set("Content-Type", "image/png")
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	s.W.WriteHeader(http.StatusOK)
	if _, err := s.W.Write(data); err != nil {
		return fmt.Errorf("export: write response: %w", err)
	}
	return nil
}

// MemorySaver keeps the last export in memory.
type MemorySaver struct {
	mu       sync.Mutex
	filename string
	data     []byte
	calls    int
}

func (s *MemorySaver) Save(_ context.Context, filename string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filename = filename
	s.data = append([]byte(nil), data...)
	s.calls++
	return nil
}

// Last returns the most recent export.
func (s *MemorySaver) Last() (string, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filename, s.data
}

// Calls returns how many exports were saved.
func (s *MemorySaver) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
