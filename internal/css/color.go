package css

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnsupportedColor is returned for color syntax the painter cannot
// represent, most notably the wide-gamut and relative color functions.
var ErrUnsupportedColor = errors.New("css: unsupported color syntax")

// disallowedColor matches the color functions that sRGB-only rasterizers do
// not understand.
var disallowedColor = regexp.MustCompile(`(?i)\b(?:oklch|oklab|lab|lch|color-mix|color|hwb|light-dark)\(`)

// HasDisallowedColor reports whether v uses a color function outside the
// supported rgb/hsl/hex set.
func HasDisallowedColor(v string) bool {
	return disallowedColor.MatchString(v)
}

// Transparent is fully transparent black.
var Transparent = color.NRGBA{}

// ParseColor parses a CSS color. current resolves the currentcolor keyword.
func ParseColor(s string, current color.NRGBA) (color.NRGBA, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return Transparent, fmt.Errorf("css: empty color")
	case HasDisallowedColor(v):
		return Transparent, fmt.Errorf("%w: %s", ErrUnsupportedColor, s)
	case v == "transparent":
		return Transparent, nil
	case v == "currentcolor":
		return current, nil
	case strings.HasPrefix(v, "#"):
		return parseHex(v[1:])
	case strings.HasPrefix(v, "rgb(") || strings.HasPrefix(v, "rgba("):
		return parseRGB(v)
	case strings.HasPrefix(v, "hsl(") || strings.HasPrefix(v, "hsla("):
		return parseHSL(v)
	}
	if c, ok := namedColors[v]; ok {
		return c, nil
	}
	if strings.Contains(v, "(") {
		return Transparent, fmt.Errorf("%w: %s", ErrUnsupportedColor, s)
	}
	return Transparent, fmt.Errorf("css: unknown color %q", s)
}

// IsColor reports whether v parses as a supported color, or is a color
// function the painter would reject. Used to classify shorthand parts.
func IsColor(v string) bool {
	if HasDisallowedColor(v) {
		return true
	}
	_, err := ParseColor(v, Transparent)
	return err == nil
}

func parseHex(h string) (color.NRGBA, error) {
	expand := func(c byte) byte {
		v := hexVal(c)
		return v<<4 | v
	}
	for i := 0; i < len(h); i++ {
		if hexVal(h[i]) == 0xff {
			return Transparent, fmt.Errorf("css: bad hex color #%s", h)
		}
	}
	switch len(h) {
	case 3:
		return color.NRGBA{expand(h[0]), expand(h[1]), expand(h[2]), 0xff}, nil
	case 4:
		return color.NRGBA{expand(h[0]), expand(h[1]), expand(h[2]), expand(h[3])}, nil
	case 6:
		return color.NRGBA{hexByte(h[0:2]), hexByte(h[2:4]), hexByte(h[4:6]), 0xff}, nil
	case 8:
		return color.NRGBA{hexByte(h[0:2]), hexByte(h[2:4]), hexByte(h[4:6]), hexByte(h[6:8])}, nil
	}
	return Transparent, fmt.Errorf("css: bad hex color #%s", h)
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0xff
}

func hexByte(s string) byte {
	return hexVal(s[0])<<4 | hexVal(s[1])
}

// funcArgs returns the arguments of "name(a, b, c)" or "name(a b c / d)".
func funcArgs(v string) ([]string, error) {
	open := strings.IndexByte(v, '(')
	if open < 0 || !strings.HasSuffix(v, ")") {
		return nil, fmt.Errorf("css: bad function %q", v)
	}
	inner := strings.TrimSpace(v[open+1 : len(v)-1])
	inner = strings.ReplaceAll(inner, "/", " ")
	inner = strings.ReplaceAll(inner, ",", " ")
	return strings.Fields(inner), nil
}

func parseRGB(v string) (color.NRGBA, error) {
	args, err := funcArgs(v)
	if err != nil {
		return Transparent, err
	}
	if len(args) != 3 && len(args) != 4 {
		return Transparent, fmt.Errorf("css: bad rgb %q", v)
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		f, err := parseChannel(args[i], 255)
		if err != nil {
			return Transparent, err
		}
		ch[i] = clampByte(f)
	}
	a := uint8(0xff)
	if len(args) == 4 {
		f, err := parseAlpha(args[3])
		if err != nil {
			return Transparent, err
		}
		a = clampByte(f * 255)
	}
	return color.NRGBA{ch[0], ch[1], ch[2], a}, nil
}

func parseHSL(v string) (color.NRGBA, error) {
	args, err := funcArgs(v)
	if err != nil {
		return Transparent, err
	}
	if len(args) != 3 && len(args) != 4 {
		return Transparent, fmt.Errorf("css: bad hsl %q", v)
	}
	h, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "deg"), 64)
	if err != nil {
		return Transparent, fmt.Errorf("css: bad hue %q", args[0])
	}
	s, err := parseChannel(args[1], 1)
	if err != nil {
		return Transparent, err
	}
	l, err := parseChannel(args[2], 1)
	if err != nil {
		return Transparent, err
	}
	a := 1.0
	if len(args) == 4 {
		if a, err = parseAlpha(args[3]); err != nil {
			return Transparent, err
		}
	}
	r, g, b := hslToRGB(math.Mod(math.Mod(h, 360)+360, 360)/360, s, l)
	return color.NRGBA{clampByte(r * 255), clampByte(g * 255), clampByte(b * 255), clampByte(a * 255)}, nil
}

// parseChannel parses "12", "12.5" or "40%" where 100% maps to scale.
func parseChannel(s string, scale float64) (float64, error) {
	if strings.HasSuffix(s, "%") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("css: bad channel %q", s)
		}
		return f / 100 * scale, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("css: bad channel %q", s)
	}
	return f, nil
}

func parseAlpha(s string) (float64, error) {
	if strings.HasSuffix(s, "%") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("css: bad alpha %q", s)
		}
		return clamp01(f / 100), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("css: bad alpha %q", s)
	}
	return clamp01(f), nil
}

func hslToRGB(h, s, l float64) (float64, float64, float64) {
	if s == 0 {
		return l, l, l
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return hueToRGB(p, q, h+1.0/3), hueToRGB(p, q, h), hueToRGB(p, q, h-1.0/3)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

func clampByte(f float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, f))))
}

// WithAlpha scales c's alpha by a in [0,1].
func WithAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = clampByte(float64(c.A) * clamp01(a))
	return c
}

var namedColors = map[string]color.NRGBA{
	"black":      {0, 0, 0, 255},
	"white":      {255, 255, 255, 255},
	"red":        {255, 0, 0, 255},
	"green":      {0, 128, 0, 255},
	"lime":       {0, 255, 0, 255},
	"blue":       {0, 0, 255, 255},
	"yellow":     {255, 255, 0, 255},
	"orange":     {255, 165, 0, 255},
	"purple":     {128, 0, 128, 255},
	"gray":       {128, 128, 128, 255},
	"grey":       {128, 128, 128, 255},
	"silver":     {192, 192, 192, 255},
	"navy":       {0, 0, 128, 255},
	"teal":       {0, 128, 128, 255},
	"aqua":       {0, 255, 255, 255},
	"cyan":       {0, 255, 255, 255},
	"magenta":    {255, 0, 255, 255},
	"fuchsia":    {255, 0, 255, 255},
	"maroon":     {128, 0, 0, 255},
	"olive":      {128, 128, 0, 255},
	"pink":       {255, 192, 203, 255},
	"gold":       {255, 215, 0, 255},
	"skyblue":    {135, 206, 235, 255},
	"darkgray":   {169, 169, 169, 255},
	"lightgray":  {211, 211, 211, 255},
	"whitesmoke": {245, 245, 245, 255},
}
