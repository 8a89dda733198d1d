package capture

import (
	"bytes"
	"fmt"
	"image/png"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/arran4/chat2png/internal/css"
	"github.com/arran4/chat2png/internal/dom"
	"github.com/arran4/chat2png/internal/raster"
	"github.com/arran4/chat2png/internal/resource"
)

// TargetAttr marks the captured element in the generated page.
const TargetAttr = "data-export-target"

// reset mirrors the layout assumptions of the preview markup: border-box
// sizing, no default spacing, block-level replaced elements.
const reset = `*,*::before,*::after{box-sizing:border-box;margin:0;padding:0;border:0 solid}` +
	`html,body{margin:0}img,svg{display:block;max-width:none}` +
	`button{background:transparent;color:inherit;font:inherit;cursor:default}`

// copyFiltered deep-copies n, dropping nodes the filter rejects. The copy
// of target is marked with TargetAttr.
func copyFiltered(n, target *html.Node, keep func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && !keep(n) {
		return nil
	}
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	if n == target {
		dom.SetAttr(c, TargetAttr, "true")
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if cc := copyFiltered(ch, target, keep); cc != nil {
			c.AppendChild(cc)
		}
	}
	return c
}

// Document serializes root, together with its offscreen container, into a
// standalone HTML page. Images already settled in opts.Images are inlined
// as data URLs; other remote images get a cache-busting query when
// opts.CacheBust is set.
func Document(root *html.Node, opts raster.Options) (string, error) {
	if root == nil || root.Type != html.ElementNode || !opts.Keep(root) {
		return "", fmt.Errorf("capture: %w", raster.ErrEmpty)
	}
	outer := root
	if p := root.Parent; p != nil && p.Type == html.ElementNode && p.DataAtom != atom.Body && p.DataAtom != atom.Html {
		outer = p
	}

	copied := copyFiltered(outer, root, opts.Keep)
	if copied == nil {
		return "", fmt.Errorf("capture: %w", raster.ErrEmpty)
	}
	if outer != root {
		// Bring the offscreen container on screen for the capture.
		if err := css.SetProperties(copied, "position", "absolute", "left", "0", "top", "0"); err != nil {
			return "", fmt.Errorf("capture: container style: %w", err)
		}
	}

	stamp := strconv.FormatInt(time.Now().UnixNano(), 10)
	var inlineErr error
	dom.Walk(copied, func(n *html.Node) bool {
		if !dom.IsElement(n, "img") {
			return true
		}
		src := strings.TrimSpace(dom.AttrOr(n, "src", ""))
		if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
			return true
		}
		if img, ok := opts.Images.Get(src); ok {
			var buf bytes.Buffer
			if err := png.Encode(&buf, img); err != nil {
				inlineErr = err
				return false
			}
			dom.SetAttr(n, "src", resource.EncodeDataURL("image/png", buf.Bytes()))
			return true
		}
		if opts.CacheBust {
			if u, err := url.Parse(src); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
				q := u.Query()
				q.Set("_cb", stamp)
				u.RawQuery = q.Encode()
				dom.SetAttr(n, "src", u.String())
			}
		}
		return true
	})
	if inlineErr != nil {
		return "", fmt.Errorf("capture: inline image: %w", inlineErr)
	}

	bg := "transparent"
	if opts.Background != "" {
		bg = opts.Background
	}
	page := dom.El("html", dom.WithChildren(
		dom.El("head", dom.WithChildren(
			dom.El("meta", dom.WithAttr("charset", "utf-8")),
			dom.El("style", dom.WithText(reset)),
		)),
		dom.El("body", dom.WithStyle("background:"+bg), dom.WithChildren(copied)),
	))
	out, err := dom.Render(page)
	if err != nil {
		return "", fmt.Errorf("capture: render page: %w", err)
	}
	return "<!DOCTYPE html>" + out, nil
}
