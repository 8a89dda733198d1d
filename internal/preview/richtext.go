package preview

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/arran4/chat2png/internal/dom"
)

// richText turns message markup (emphasis, strong, strikethrough, inline
// code) into preview nodes. Anything else the Markdown renderer emits is
// stripped by the policy.
type richText struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func newRichText() *richText {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("p", "br", "strong", "em", "del", "code")
	return &richText{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Strikethrough),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		policy: policy,
	}
}

// Nodes renders src. Paragraph elements are flattened into line breaks so
// the bubble keeps its pre-wrap text layout.
func (r *richText) Nodes(src string) ([]*html.Node, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return nil, fmt.Errorf("preview: markdown: %w", err)
	}
	clean := strings.TrimSpace(r.policy.Sanitize(buf.String()))
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	frag, err := html.ParseFragment(strings.NewReader(clean), ctx)
	if err != nil {
		return nil, fmt.Errorf("preview: parse markup: %w", err)
	}

	var out []*html.Node
	for _, n := range frag {
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) == "" {
			continue
		}
		if dom.IsElement(n, "p") {
			if len(out) > 0 {
				out = append(out, dom.El("br"), dom.El("br"))
			}
			for c := n.FirstChild; c != nil; {
				next := c.NextSibling
				n.RemoveChild(c)
				out = append(out, trimBreakNewlines(c))
				c = next
			}
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// trimBreakNewlines drops the newline the renderer writes after each hard
// break, which pre-wrap would otherwise show as an extra line.
func trimBreakNewlines(n *html.Node) *html.Node {
	if n.Type == html.TextNode {
		n.Data = strings.TrimPrefix(n.Data, "\n")
	}
	return n
}
