package css

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// maxVarDepth bounds var() substitution to stop reference cycles.
const maxVarDepth = 16

// Style is a resolved set of longhand properties for one element.
type Style map[string]string

// Get returns the resolved value or "" when unset.
func (s Style) Get(prop string) string { return s[prop] }

// Lookup returns the resolved value and whether it is set.
func (s Style) Lookup(prop string) (string, bool) {
	v, ok := s[prop]
	return v, ok
}

// Or returns the resolved value or def when unset.
func (s Style) Or(prop, def string) string {
	if v, ok := s[prop]; ok && v != "" {
		return v
	}
	return def
}

// FontSize returns the computed font size in px.
func (s Style) FontSize() float64 {
	return Px(s["font-size"], RootFontSize, RootFontSize)
}

type entry struct {
	style Style
	err   error
}

// Resolver computes element styles from inline declarations, tag defaults
// and inheritance, caching the result per node. A Resolver is not safe for
// concurrent use; each export owns one.
type Resolver struct {
	cache map[*html.Node]entry
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{cache: make(map[*html.Node]entry)}
}

// Forget drops cached styles for n and its descendants. Call it after
// changing n's inline style.
func (r *Resolver) Forget(n *html.Node) {
	delete(r.cache, n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.Forget(c)
	}
}

// Compute returns the resolved style of element n. When n's own style
// attribute cannot be parsed the returned style still carries inherited and
// default values, and the parse error is returned alongside it.
func (r *Resolver) Compute(n *html.Node) (Style, error) {
	if n == nil || n.Type != html.ElementNode {
		return initialStyle(), nil
	}
	if e, ok := r.cache[n]; ok {
		return e.style, e.err
	}
	parent := initialStyle()
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			parent, _ = r.Compute(p)
			break
		}
	}
	s, err := compute(n, parent)
	r.cache[n] = entry{style: s, err: err}
	return s, err
}

func compute(n *html.Node, parent Style) (Style, error) {
	s := make(Style, len(parent)+8)
	for k, v := range parent {
		if IsInherited(k) {
			s[k] = v
		}
	}
	for _, d := range userAgent[strings.ToLower(n.Data)] {
		s[d.Property] = d.Value
	}
	if n.Namespace == "svg" {
		s["display"] = "block"
	}

	decls, err := Inline(n)
	if err != nil {
		return s, fmt.Errorf("css: <%s>: %w", n.Data, err)
	}

	// Custom properties first so same-block references see them.
	var custom []string
	for _, d := range decls.list {
		if IsCustomProperty(d.Property) {
			s[d.Property] = d.Value
			custom = append(custom, d.Property)
		}
	}
	for _, prop := range custom {
		v, ok := substitute(s[prop], s, 0)
		if !ok {
			delete(s, prop)
			continue
		}
		s[prop] = v
	}

	for _, d := range decls.list {
		if IsCustomProperty(d.Property) {
			continue
		}
		v, ok := substitute(d.Value, s, 0)
		if !ok {
			// Invalid at computed-value time: fall back to inherit/initial.
			continue
		}
		for _, ld := range Expand(d.Property, v) {
			applyKeyword(s, parent, ld.Property, ld.Value)
		}
	}

	absolutizeFontSize(s, parent)
	return s, nil
}

func applyKeyword(s, parent Style, prop, value string) {
	switch strings.ToLower(value) {
	case "inherit":
		if v, ok := parent[prop]; ok {
			s[prop] = v
		} else {
			delete(s, prop)
		}
	case "initial", "unset", "revert":
		if init, ok := initialStyle()[prop]; ok {
			s[prop] = init
		} else if value == "unset" && IsInherited(prop) {
			s[prop] = parent[prop]
		} else {
			delete(s, prop)
		}
	default:
		s[prop] = value
	}
}

func absolutizeFontSize(s, parent Style) {
	v, ok := s["font-size"]
	if !ok {
		return
	}
	l, ok := ParseLength(v)
	if !ok {
		return
	}
	base := parent.FontSize()
	switch l.Unit {
	case UnitEm:
		s["font-size"] = formatPx(l.Value * base)
	case UnitPercent:
		s["font-size"] = formatPx(l.Value * base / 100)
	case UnitRem:
		s["font-size"] = formatPx(l.Value * RootFontSize)
	}
}

func formatPx(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64) + "px"
}

// substitute replaces var(--name, fallback) references in v using s.
// ok is false when a reference is undefined and has no fallback.
func substitute(v string, s Style, depth int) (string, bool) {
	if !strings.Contains(v, "var(") {
		return v, true
	}
	if depth > maxVarDepth {
		return "", false
	}
	var b strings.Builder
	for {
		i := strings.Index(v, "var(")
		if i < 0 {
			b.WriteString(v)
			break
		}
		b.WriteString(v[:i])
		end := matchParen(v, i+3)
		if end < 0 {
			return "", false
		}
		inner := v[i+4 : end]
		name, fallback, hasFallback := strings.Cut(inner, ",")
		name = strings.TrimSpace(name)
		repl, ok := s[name]
		if ok {
			repl, ok = substitute(repl, s, depth+1)
		}
		if !ok {
			if !hasFallback {
				return "", false
			}
			repl, ok = substitute(strings.TrimSpace(fallback), s, depth+1)
			if !ok {
				return "", false
			}
		}
		b.WriteString(repl)
		v = v[end+1:]
	}
	return strings.TrimSpace(b.String()), true
}

// matchParen returns the index of the parenthesis closing the one at open.
func matchParen(v string, open int) int {
	depth := 0
	for i := open; i < len(v); i++ {
		switch v[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
