package raster

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultMobilePattern matches user agents of mobile WebKit browsers, where
// the serializing renderer produces blank images and the paint capture is
// used instead.
const DefaultMobilePattern = `(?i)(iphone|ipad|ipod)`

const (
	ModeAuto      = "auto"
	ModeSerialize = "serialize"
	ModeCapture   = "capture"
)

// Selector chooses a backend from a client identification string.
type Selector struct {
	serialize Backend
	capture   Backend
	mobile    *regexp.Regexp
	mode      string
}

// NewSelector builds a selector. An empty pattern uses DefaultMobilePattern
// and an empty mode means auto. A nil capture backend makes every export
// use serialize.
func NewSelector(serialize, capture Backend, pattern, mode string) (*Selector, error) {
	if serialize == nil {
		return nil, fmt.Errorf("raster: serialize backend is required")
	}
	if pattern == "" {
		pattern = DefaultMobilePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("raster: mobile pattern: %w", err)
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case "":
		mode = ModeAuto
	case ModeAuto, ModeSerialize:
	case ModeCapture:
		if capture == nil {
			return nil, fmt.Errorf("raster: capture backend forced but not available")
		}
	default:
		return nil, fmt.Errorf("raster: unknown backend %q", mode)
	}
	return &Selector{serialize: serialize, capture: capture, mobile: re, mode: mode}, nil
}

// IsMobileWebKit reports whether ident carries a mobile WebKit marker.
func (s *Selector) IsMobileWebKit(ident string) bool {
	return s.mobile.MatchString(ident)
}

// Select returns the backend for ident.
func (s *Selector) Select(ident string) Backend {
	switch s.mode {
	case ModeSerialize:
		return s.serialize
	case ModeCapture:
		return s.capture
	}
	if s.capture != nil && s.IsMobileWebKit(ident) {
		return s.capture
	}
	return s.serialize
}
