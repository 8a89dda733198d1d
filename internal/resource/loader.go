// Package resource resolves and decodes the images referenced by a chat
// preview: data URIs, local files and remote URLs.
package resource

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxImageBytes caps how much of a single image is read.
const MaxImageBytes = 16 << 20

// ErrUnsupportedSource is returned for sources no resolver handles.
var ErrUnsupportedSource = errors.New("resource: unsupported image source")

// fetchFunc returns the raw bytes of a source.
type fetchFunc func(ctx context.Context) ([]byte, error)

// resolver maps a source to a cache key and a fetch function. bust asks
// remote resolvers to defeat intermediate caches.
type resolver func(src string, bust bool) (key string, fetch fetchFunc, err error)

// Loader resolves image sources by scheme and decodes them, sharing decoded
// results through a Cache.
type Loader struct {
	client    *http.Client
	baseDir   string
	cache     *Cache
	resolvers map[string]resolver
	now       func() time.Time
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHTTPClient sets the client used for http and https sources.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) { l.client = c }
}

// WithBaseDir resolves relative file paths against dir.
func WithBaseDir(dir string) LoaderOption {
	return func(l *Loader) { l.baseDir = dir }
}

// WithCache shares decoded images through c.
func WithCache(c *Cache) LoaderOption {
	return func(l *Loader) { l.cache = c }
}

// NewLoader returns a loader for data:, file:, relative path and http(s)
// sources.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		l.client = &http.Client{Timeout: 15 * time.Second}
	}
	if l.cache == nil {
		l.cache = NewCache()
	}
	l.resolvers = map[string]resolver{
		"":      l.resolveLocal,
		"file":  l.resolveLocal,
		"data":  l.resolveData,
		"http":  l.resolveRemote,
		"https": l.resolveRemote,
	}
	return l
}

// Cache returns the loader's shared cache.
func (l *Loader) Cache() *Cache { return l.cache }

func schemeOf(src string) string {
	if strings.HasPrefix(strings.ToLower(src), "data:") {
		return "data"
	}
	if idx := strings.Index(src, "://"); idx != -1 {
		return strings.ToLower(src[:idx])
	}
	return ""
}

// IsLocal reports whether src can be decoded without network access.
func (l *Loader) IsLocal(src string) bool {
	switch schemeOf(strings.TrimSpace(src)) {
	case "", "file", "data":
		return true
	}
	return false
}

// Cached returns the decoded image for src when it is already complete.
func (l *Loader) Cached(src string) (image.Image, bool) {
	src = strings.TrimSpace(src)
	r, ok := l.resolvers[schemeOf(src)]
	if !ok {
		return nil, false
	}
	key, _, err := r(src, false)
	if err != nil {
		return nil, false
	}
	return l.cache.Get(key)
}

// Load resolves, fetches and decodes src. With bust set the shared cache is
// not consulted and remote URLs carry a cache-busting query parameter; the
// decoded result is still cached for later loads.
func (l *Loader) Load(ctx context.Context, src string, bust bool) (image.Image, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errors.New("resource: empty image source")
	}
	scheme := schemeOf(src)
	r, ok := l.resolvers[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, scheme)
	}
	key, fetch, err := r(src, bust)
	if err != nil {
		return nil, err
	}
	if !bust {
		if img, ok := l.cache.Get(key); ok {
			return img, nil
		}
	}
	data, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	img, err := Decode(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("resource: decode %s: %w", abbreviate(src), err)
	}
	l.cache.Put(key, img)
	return img, nil
}

// Decode decodes data, giving up when ctx is done.
func Decode(ctx context.Context, data []byte) (image.Image, error) {
	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)
	go func() {
		img, _, err := image.Decode(bytes.NewReader(data))
		ch <- result{img, err}
	}()
	select {
	case r := <-ch:
		return r.img, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) resolveLocal(src string, _ bool) (string, fetchFunc, error) {
	path := strings.TrimPrefix(src, "file://")
	if !filepath.IsAbs(path) && l.baseDir != "" {
		path = filepath.Join(l.baseDir, path)
	}
	cleaned := filepath.Clean(path)
	if !filepath.IsAbs(cleaned) {
		if abs, err := filepath.Abs(cleaned); err == nil {
			cleaned = abs
		}
	}
	fetch := func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(cleaned)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, MaxImageBytes))
	}
	return cleaned, fetch, nil
}

func (l *Loader) resolveData(src string, _ bool) (string, fetchFunc, error) {
	_, data, err := ParseDataURL(src)
	if err != nil {
		return "", nil, err
	}
	fetch := func(ctx context.Context) ([]byte, error) {
		return data, ctx.Err()
	}
	return src, fetch, nil
}

func (l *Loader) resolveRemote(src string, bust bool) (string, fetchFunc, error) {
	target := src
	if bust {
		u, err := url.Parse(src)
		if err != nil {
			return "", nil, fmt.Errorf("resource: bad url %q: %w", src, err)
		}
		q := u.Query()
		q.Set("_cb", strconv.FormatInt(l.now().UnixNano(), 10))
		u.RawQuery = q.Encode()
		target = u.String()
	}
	fetch := func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("resource: fetching image %s: %s", src, resp.Status)
		}
		return io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes))
	}
	return src, fetch, nil
}

// ParseDataURL splits a data: URL into its media type and payload.
func ParseDataURL(src string) (mediaType string, data []byte, err error) {
	if !strings.HasPrefix(strings.ToLower(src), "data:") {
		return "", nil, errors.New("resource: not a data url")
	}
	meta, payload, ok := strings.Cut(src[len("data:"):], ",")
	if !ok {
		return "", nil, errors.New("resource: data url without payload")
	}
	isBase64 := false
	params := strings.Split(meta, ";")
	mediaType = strings.ToLower(strings.TrimSpace(params[0]))
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}
	if isBase64 {
		data, err = base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
		if err != nil {
			return "", nil, fmt.Errorf("resource: data url: %w", err)
		}
		return mediaType, data, nil
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("resource: data url: %w", err)
	}
	return mediaType, []byte(unescaped), nil
}

// EncodeDataURL builds a base64 data: URL.
func EncodeDataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func abbreviate(src string) string {
	if len(src) > 64 {
		return src[:61] + "..."
	}
	return src
}
