// Package css implements the small slice of CSS the exporter needs: inline
// declaration blocks, shorthand expansion, inheritance, custom properties
// with var() substitution, colors and lengths.
package css

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ErrMalformed is returned for declaration blocks with unbalanced
// parentheses or quotes.
var ErrMalformed = errors.New("css: malformed declaration block")

// Declaration is one "property: value" pair.
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// Declarations is an ordered declaration block. Later entries for the same
// property replace earlier ones.
type Declarations struct {
	list []Declaration
}

// ParseDeclarations parses the contents of a style attribute.
func ParseDeclarations(s string) (Declarations, error) {
	var d Declarations
	parts, err := splitTopLevel(s, ';')
	if err != nil {
		return d, err
	}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.IndexByte(part, ':')
		if i <= 0 {
			// Browsers drop invalid declarations and keep going.
			continue
		}
		prop := normalizeProperty(part[:i])
		val := strings.TrimSpace(part[i+1:])
		important := false
		if lower := strings.ToLower(val); strings.HasSuffix(lower, "!important") {
			important = true
			val = strings.TrimSpace(val[:len(val)-len("!important")])
		}
		if prop == "" {
			continue
		}
		d.Set(prop, val)
		if important {
			d.list[d.index(prop)].Important = true
		}
	}
	return d, nil
}

func normalizeProperty(p string) string {
	p = strings.TrimSpace(p)
	if IsCustomProperty(p) {
		return p
	}
	return strings.ToLower(p)
}

// IsCustomProperty reports whether prop is an author-defined "--" property.
func IsCustomProperty(prop string) bool {
	return strings.HasPrefix(prop, "--")
}

func (d *Declarations) index(prop string) int {
	for i, decl := range d.list {
		if decl.Property == prop {
			return i
		}
	}
	return -1
}

// Get returns the value for prop.
func (d Declarations) Get(prop string) (string, bool) {
	prop = normalizeProperty(prop)
	if i := d.index(prop); i >= 0 {
		return d.list[i].Value, true
	}
	return "", false
}

// Set sets prop, keeping its position if it already exists.
func (d *Declarations) Set(prop, value string) {
	prop = normalizeProperty(prop)
	if i := d.index(prop); i >= 0 {
		d.list[i].Value = value
		d.list[i].Important = false
		return
	}
	d.list = append(d.list, Declaration{Property: prop, Value: value})
}

// Remove deletes prop.
func (d *Declarations) Remove(prop string) {
	prop = normalizeProperty(prop)
	out := d.list[:0]
	for _, decl := range d.list {
		if decl.Property != prop {
			out = append(out, decl)
		}
	}
	d.list = out
}

// Len returns the number of declarations.
func (d Declarations) Len() int { return len(d.list) }

// All returns a copy of the declarations in order.
func (d Declarations) All() []Declaration {
	out := make([]Declaration, len(d.list))
	copy(out, d.list)
	return out
}

// String renders the block in style attribute form.
func (d Declarations) String() string {
	var b strings.Builder
	for i, decl := range d.list {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(decl.Property)
		b.WriteString(": ")
		b.WriteString(decl.Value)
		if decl.Important {
			b.WriteString(" !important")
		}
	}
	return b.String()
}

// Inline parses n's style attribute.
func Inline(n *html.Node) (Declarations, error) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == "style" {
			return ParseDeclarations(a.Val)
		}
	}
	return Declarations{}, nil
}

// SetInline writes d back to n's style attribute.
func SetInline(n *html.Node, d Declarations) {
	s := d.String()
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == "style" {
			n.Attr[i].Val = s
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: s})
}

// SetProperties sets each prop/value pair on n's inline style. pairs must
// have even length.
func SetProperties(n *html.Node, pairs ...string) error {
	if len(pairs)%2 != 0 {
		return fmt.Errorf("css: odd number of property arguments")
	}
	d, err := Inline(n)
	if err != nil {
		return err
	}
	for i := 0; i < len(pairs); i += 2 {
		d.Set(pairs[i], pairs[i+1])
	}
	SetInline(n, d)
	return nil
}

// splitTopLevel splits s on sep where sep is outside parentheses and quotes.
func splitTopLevel(s string, sep byte) ([]string, error) {
	var (
		out   []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return nil, ErrMalformed
			}
		case c == sep && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if depth != 0 || quote != 0 {
		return nil, ErrMalformed
	}
	return append(out, s[start:]), nil
}

// Fields splits a value on whitespace outside parentheses, so
// "0 1px rgba(0, 0, 0, .2)" yields three fields.
func Fields(v string) []string {
	var (
		out   []string
		depth int
		start = -1
	)
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c == '(':
			depth++
			if start < 0 {
				start = i
			}
		case c == ')':
			depth--
		case (c == ' ' || c == '\t' || c == '\n') && depth == 0:
			if start >= 0 {
				out = append(out, v[start:i])
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		out = append(out, v[start:])
	}
	return out
}

// SplitCommas splits a value on top-level commas and trims each part.
func SplitCommas(v string) []string {
	parts, err := splitTopLevel(v, ',')
	if err != nil {
		return []string{strings.TrimSpace(v)}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
