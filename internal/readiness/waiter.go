// Package readiness waits for the images of an export clone to settle.
//
// Wait never fails: an image that cannot be decoded or loaded, or that is
// still pending at the deadline, is treated as ready so a broken avatar never
// blocks an export. The outcome is reported for logs and metrics only.
package readiness

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/arran4/chat2png/internal/dom"
	"github.com/arran4/chat2png/internal/resource"
	"github.com/arran4/chat2png/pkg/logger"
)

// Defaults for Options.
const (
	DefaultTimeout       = 2500 * time.Millisecond
	DefaultDecodeTimeout = 800 * time.Millisecond
)

// Loader is what the waiter needs from resource.Loader.
type Loader interface {
	Cached(src string) (image.Image, bool)
	IsLocal(src string) bool
	Load(ctx context.Context, src string, bust bool) (image.Image, error)
}

// Options bounds the wait.
type Options struct {
	// Timeout is the global deadline shared by every image.
	Timeout time.Duration
	// DecodeTimeout bounds the decode of locally available bytes before the
	// waiter falls back to waiting out the global deadline.
	DecodeTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.DecodeTimeout <= 0 {
		o.DecodeTimeout = DefaultDecodeTimeout
	}
	return o
}

// Report summarizes a wait.
type Report struct {
	Total    int
	Ready    int
	Failed   int
	TimedOut int
	Elapsed  time.Duration
}

type state int

const (
	stateReady state = iota
	stateFailed
	stateTimedOut
)

// Wait settles every <img> at or below root, storing decoded images in set
// keyed by their src attribute. It returns once every image has settled or
// the global deadline has passed.
func Wait(ctx context.Context, root *html.Node, loader Loader, set *resource.Set, opts Options) Report {
	start := time.Now()
	opts = opts.withDefaults()

	// Attributes are read up front; goroutines never touch the tree.
	var srcs []string
	for _, img := range dom.FindAll(root, "img") {
		srcs = append(srcs, strings.TrimSpace(dom.AttrOr(img, "src", "")))
	}
	rep := Report{Total: len(srcs)}
	if len(srcs) == 0 {
		rep.Elapsed = time.Since(start)
		return rep
	}

	gctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	results := make(chan state, len(srcs))
	for _, src := range srcs {
		go func(src string) {
			st := stateFailed
			defer func() {
				if p := recover(); p != nil {
					logger.Warn("image wait panicked", zap.Any("panic", p))
					st = stateFailed
				}
				results <- st
			}()
			st = waitOne(gctx, src, loader, set, opts)
		}(src)
	}

	pending := len(srcs)
collect:
	for pending > 0 {
		select {
		case st := <-results:
			pending--
			switch st {
			case stateReady:
				rep.Ready++
			case stateTimedOut:
				rep.TimedOut++
			default:
				rep.Failed++
			}
		case <-gctx.Done():
			break collect
		}
	}
	rep.TimedOut += pending
	rep.Elapsed = time.Since(start)
	return rep
}

func waitOne(ctx context.Context, src string, loader Loader, set *resource.Set, opts Options) state {
	if src == "" || loader == nil {
		return stateFailed
	}
	if img, ok := loader.Cached(src); ok {
		set.Put(src, img)
		return stateReady
	}

	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("readiness: load %q panicked: %v", src, p)}
			}
		}()
		img, err := loader.Load(ctx, src, false)
		done <- result{img, err}
	}()

	finish := func(r result) state {
		if r.err != nil || r.img == nil {
			if ctx.Err() != nil {
				return stateTimedOut
			}
			return stateFailed
		}
		set.Put(src, r.img)
		return stateReady
	}

	if loader.IsLocal(src) {
		decode := time.NewTimer(opts.DecodeTimeout)
		defer decode.Stop()
		select {
		case r := <-done:
			return finish(r)
		case <-decode.C:
			logger.Debug("image decode exceeded sub-timeout, waiting for load",
				zap.Duration("decode_timeout", opts.DecodeTimeout))
		case <-ctx.Done():
			return stateTimedOut
		}
	}

	select {
	case r := <-done:
		return finish(r)
	case <-ctx.Done():
		return stateTimedOut
	}
}
