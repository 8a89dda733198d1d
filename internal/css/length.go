package css

import (
	"strconv"
	"strings"
)

// Unit is the unit of a Length.
type Unit int

const (
	UnitPx Unit = iota
	UnitPercent
	UnitEm
	UnitRem
	UnitAuto
	UnitNone
)

// RootFontSize is the rem base in px.
const RootFontSize = 16

// Length is a parsed CSS length.
type Length struct {
	Value float64
	Unit  Unit
}

// ParseLength parses px, %, em, rem, unitless zero, auto and none. Other
// keywords (max-content, fit-content) are reported as not ok.
func ParseLength(s string) (Length, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "":
		return Length{}, false
	case "auto":
		return Length{Unit: UnitAuto}, true
	case "none":
		return Length{Unit: UnitNone}, true
	case "0":
		return Length{}, true
	}
	unit := UnitPx
	num := ""
	switch {
	case strings.HasSuffix(v, "px"):
		num = v[:len(v)-2]
	case strings.HasSuffix(v, "%"):
		num, unit = v[:len(v)-1], UnitPercent
	case strings.HasSuffix(v, "rem"):
		num, unit = v[:len(v)-3], UnitRem
	case strings.HasSuffix(v, "em"):
		num, unit = v[:len(v)-2], UnitEm
	default:
		// Unitless non-zero numbers are not lengths.
		return Length{}, false
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}

// IsAuto reports whether l is the auto keyword.
func (l Length) IsAuto() bool { return l.Unit == UnitAuto }

// Resolve converts l to px. base is the percentage reference (ok=false when
// it is indefinite) and fontSize the em reference.
func (l Length) Resolve(base float64, baseOK bool, fontSize float64) (float64, bool) {
	switch l.Unit {
	case UnitPx:
		return l.Value, true
	case UnitPercent:
		if !baseOK {
			return 0, false
		}
		return base * l.Value / 100, true
	case UnitEm:
		return l.Value * fontSize, true
	case UnitRem:
		return l.Value * RootFontSize, true
	}
	return 0, false
}

// Px resolves s to px with no percentage base, returning def when s is not
// an absolute length.
func Px(s string, fontSize, def float64) float64 {
	l, ok := ParseLength(s)
	if !ok {
		return def
	}
	if v, ok := l.Resolve(0, false, fontSize); ok {
		return v
	}
	return def
}

// Number parses a unitless number such as opacity or flex-grow.
func Number(s string, def float64) float64 {
	v := strings.TrimSpace(s)
	if strings.HasSuffix(v, "%") {
		f, err := strconv.ParseFloat(v[:len(v)-1], 64)
		if err != nil {
			return def
		}
		return f / 100
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
