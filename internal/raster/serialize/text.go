package serialize

import (
	"math"
	"strings"
	"unicode"

	"github.com/arran4/chat2png/internal/css"
	"github.com/arran4/chat2png/internal/fonts"
)

const ellipsis = "…"

// textStyle is the resolved text appearance of a run.
type textStyle struct {
	font       fonts.Style
	size       float64
	color      string
	strike     bool
	underline  bool
	lineHeight float64
	style      css.Style
}

func newTextStyle(st css.Style) textStyle {
	size := st.FontSize()
	deco := strings.ToLower(st.Get("text-decoration-line") + " " + st.Get("text-decoration"))
	return textStyle{
		font:       fonts.Pick(st.Get("font-weight"), st.Get("font-style"), st.Get("font-family")),
		size:       size,
		color:      st.Or("color", "#000000"),
		strike:     strings.Contains(deco, "line-through"),
		underline:  strings.Contains(deco, "underline"),
		lineHeight: lineHeight(st, size),
		style:      st,
	}
}

func lineHeight(st css.Style, size float64) float64 {
	v := strings.TrimSpace(st.Or("line-height", "normal"))
	if v == "normal" {
		return size * 1.2
	}
	if l, ok := css.ParseLength(v); ok {
		if px, ok := l.Resolve(size, true, size); ok {
			return px
		}
	}
	return size * css.Number(v, 1.2)
}

func whiteSpace(st css.Style) string { return strings.ToLower(st.Or("white-space", "normal")) }

func preservesSpaces(st css.Style) bool {
	switch whiteSpace(st) {
	case "pre", "pre-wrap", "break-spaces":
		return true
	}
	return false
}

func preservesNewlines(st css.Style) bool {
	switch whiteSpace(st) {
	case "pre", "pre-wrap", "pre-line", "break-spaces":
		return true
	}
	return false
}

func wraps(st css.Style) bool {
	switch whiteSpace(st) {
	case "nowrap", "pre":
		return false
	}
	return true
}

func breaksWords(st css.Style) bool {
	switch st.Get("overflow-wrap") {
	case "break-word", "anywhere":
		return true
	}
	switch st.Get("word-break") {
	case "break-all", "break-word":
		return true
	}
	return false
}

type token struct {
	text    string
	space   bool
	newline bool
	atom    *box
	ts      textStyle
	w       float64
}

// fragment is a token placed on a line. x is relative to the content box.
type fragment struct {
	text string
	x, w float64
	ts   textStyle
	atom *box
}

type line struct {
	y, h, baseline float64
	w              float64
	frags          []fragment
}

// splitTextPreserveSpaces splits s into alternating runs of spaces and
// non-spaces.
func splitTextPreserveSpaces(s string) []string {
	if s == "" {
		return nil
	}
	var parts []string
	var current strings.Builder
	lastType := 0 // 0 unknown, 1 space, 2 non-space
	for _, r := range s {
		typ := 2
		if unicode.IsSpace(r) {
			typ = 1
		}
		if lastType != 0 && typ != lastType {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteRune(r)
		lastType = typ
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// tokenize flattens runs into words, spaces, breaks and atoms, collapsing
// white space where the style asks for it. Atom widths are left to the
// caller.
func (e *engine) tokenize(runs []run) []token {
	var out []token
	prevSpace := true
	for _, r := range runs {
		switch {
		case r.br:
			out = append(out, token{newline: true, ts: newTextStyle(r.style)})
			prevSpace = true
			continue
		case r.atom != nil:
			out = append(out, token{atom: r.atom})
			prevSpace = false
			continue
		}
		ts := newTextStyle(r.style)
		text := strings.ReplaceAll(r.text, "\r\n", "\n")
		text = strings.ReplaceAll(text, "\t", "    ")
		if !preservesNewlines(r.style) {
			text = strings.NewReplacer("\n", " ", "\r", " ").Replace(text)
		}
		collapse := !preservesSpaces(r.style)
		for i, seg := range strings.Split(text, "\n") {
			if i > 0 {
				out = append(out, token{newline: true, ts: ts})
				prevSpace = true
			}
			for _, piece := range splitTextPreserveSpaces(seg) {
				space := unicode.IsSpace([]rune(piece)[0])
				if space && collapse {
					if prevSpace {
						continue
					}
					piece = " "
				}
				out = append(out, token{text: piece, space: space, ts: ts, w: e.measure(ts, piece)})
				prevSpace = space
			}
		}
	}
	return out
}

func (e *engine) measure(ts textStyle, s string) float64 {
	if s == "" {
		return 0
	}
	key := widthKey{ts.font, ts.size, s}
	if w, ok := e.widths[key]; ok {
		return w
	}
	w := e.faces.Measure(ts.font, ts.size, s)
	e.widths[key] = w
	return w
}

type widthKey struct {
	font fonts.Style
	size float64
	text string
}

// breakLongToken splits a word that is wider than maxWidth at character
// boundaries.
func (e *engine) breakLongToken(ts textStyle, token string, maxWidth float64) []string {
	var parts []string
	var current strings.Builder
	var width float64
	for _, r := range token {
		ch := string(r)
		charWidth := e.measure(ts, ch)
		if width+charWidth > maxWidth && current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
			width = 0
		}
		current.WriteString(ch)
		width += charWidth
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	if len(parts) == 0 {
		parts = append(parts, token)
	}
	return parts
}

// wrapTokens breaks tokens into lines no wider than maxWidth where the
// style allows. breakWords=false is used for intrinsic sizing.
func (e *engine) wrapTokens(tokens []token, maxWidth float64, breakWords bool) []line {
	var lines []line
	var cur []fragment
	var curW float64
	hasWord := false

	flush := func(force bool) {
		for len(cur) > 0 && cur[len(cur)-1].atom == nil && strings.TrimSpace(cur[len(cur)-1].text) == "" &&
			!preservesSpaces(cur[len(cur)-1].ts.style) {
			curW -= cur[len(cur)-1].w
			cur = cur[:len(cur)-1]
		}
		if len(cur) == 0 && !force {
			return
		}
		lines = append(lines, line{frags: cur, w: math.Max(0, curW)})
		cur, curW, hasWord = nil, 0, false
	}
	push := func(t token, text string, w float64) {
		cur = append(cur, fragment{text: text, w: w, ts: t.ts, atom: t.atom})
		curW += w
	}

	for _, t := range tokens {
		switch {
		case t.newline:
			if len(cur) == 0 {
				// Give empty lines the height of the break's text.
				cur = append(cur, fragment{ts: t.ts})
			}
			flush(true)
		case t.space:
			if len(cur) == 0 && !preservesSpaces(t.ts.style) {
				continue
			}
			if wraps(t.ts.style) && curW+t.w > maxWidth && hasWord {
				flush(false)
				continue
			}
			push(t, t.text, t.w)
		default:
			st := t.ts.style
			if t.atom != nil {
				st = t.atom.style
			}
			if wraps(st) && curW+t.w > maxWidth && hasWord {
				flush(false)
			}
			if t.atom == nil && breakWords && wraps(st) && breaksWords(st) && t.w > maxWidth-curW {
				parts := e.breakLongToken(t.ts, t.text, math.Max(maxWidth, 1))
				for i, p := range parts {
					if i > 0 {
						flush(false)
					}
					push(t, p, e.measure(t.ts, p))
					hasWord = true
				}
				continue
			}
			push(t, t.text, t.w)
			hasWord = true
		}
	}
	flush(false)
	return lines
}

func (e *engine) atomTokens(tokens []token, sizeOf func(*box) float64) {
	for i := range tokens {
		if a := tokens[i].atom; a != nil {
			tokens[i].w = sizeOf(a)
		}
	}
}

// inlineIntrinsic returns the min-content and max-content widths of inline
// content.
func (e *engine) inlineIntrinsic(runs []run) (minW, maxW float64) {
	for pass, limit := range [2]float64{0, math.Inf(1)} {
		tokens := e.tokenize(runs)
		e.atomTokens(tokens, func(a *box) float64 {
			lo, hi := e.intrinsic(a)
			if pass == 0 {
				return lo + fixedMarginH(a)
			}
			return hi + fixedMarginH(a)
		})
		w := 0.0
		for _, l := range e.wrapTokens(tokens, limit, false) {
			w = math.Max(w, l.w)
		}
		if pass == 0 {
			minW = w
		} else {
			maxW = w
		}
	}
	return minW, maxW
}

// layoutInline lays out b's runs inside a content box of width W and
// returns the content height.
func (e *engine) layoutInline(b *box, W float64) float64 {
	tokens := e.tokenize(b.runs)
	e.atomTokens(tokens, func(a *box) float64 {
		a.resolveEdges(W, true)
		w := e.fitWidth(a, W)
		e.layout(a, w, -1, 0, false)
		return w + a.margin.h()
	})
	b.lines = e.wrapTokens(tokens, W, true)

	strut := newTextStyle(b.style)
	align := strings.ToLower(b.style.Or("text-align", "start"))
	truncate := b.clips() && b.style.Get("text-overflow") == "ellipsis"
	y := 0.0
	for i := range b.lines {
		l := &b.lines[i]
		if truncate && l.w > W {
			e.truncate(l, W)
		}
		above, below := e.halfLeading(strut)
		for _, f := range l.frags {
			var a, d float64
			if f.atom != nil {
				a, d = f.atom.h+f.atom.margin.v(), 0
			} else {
				a, d = e.halfLeading(f.ts)
			}
			above, below = math.Max(above, a), math.Max(below, d)
		}
		x := 0.0
		if l.w < W {
			switch align {
			case "center", "-webkit-center":
				x = (W - l.w) / 2
			case "right", "end", "-webkit-right":
				x = W - l.w
			}
		}
		for j := range l.frags {
			f := &l.frags[j]
			f.x = x
			if f.atom != nil {
				f.atom.x = b.border.left + b.padding.left + x + f.atom.margin.left
				f.atom.y = b.border.top + b.padding.top + y + above - f.atom.h - f.atom.margin.bottom
			}
			x += f.w
		}
		l.y, l.baseline, l.h = y, above, above+below
		y += l.h
	}
	return y
}

// halfLeading splits a style's line height around its baseline.
func (e *engine) halfLeading(ts textStyle) (above, below float64) {
	asc, desc := e.faces.Metrics(ts.font, ts.size)
	lead := (ts.lineHeight - (asc + desc)) / 2
	return lead + asc, ts.lineHeight - lead - asc
}

// truncate cuts l to fit W and appends an ellipsis.
func (e *engine) truncate(l *line, W float64) {
	if len(l.frags) == 0 {
		return
	}
	last := l.frags[len(l.frags)-1].ts
	ew := e.measure(last, ellipsis)
	var out []fragment
	w := 0.0
	for _, f := range l.frags {
		if f.atom != nil {
			if w+f.w+ew > W {
				break
			}
			out = append(out, f)
			w += f.w
			continue
		}
		if w+f.w+ew <= W {
			out = append(out, f)
			w += f.w
			continue
		}
		var kept strings.Builder
		kw := 0.0
		for _, r := range f.text {
			cw := e.measure(f.ts, string(r))
			if w+kw+cw+ew > W {
				break
			}
			kept.WriteRune(r)
			kw += cw
		}
		if kept.Len() > 0 {
			out = append(out, fragment{text: kept.String(), w: kw, ts: f.ts})
			w += kw
		}
		last = f.ts
		break
	}
	out = append(out, fragment{text: ellipsis, w: ew, ts: last})
	l.frags = out
	l.w = w + ew
}
