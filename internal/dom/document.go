// Package dom holds the in-memory document the chat preview is mounted in.
//
// A Document owns an html/head/body tree built on golang.org/x/net/html. The
// body's child list and everything reachable from it is guarded by a single
// RWMutex: the preview re-renders under the write lock, exporters clone the
// preview under the read lock and mount their own offscreen containers under
// the write lock.
package dom

import (
	"context"
	"io"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FrameInterval is the length of one rendering frame.
const FrameInterval = time.Second / 60

// FontSource reports when the fonts used for painting are available.
type FontSource interface {
	Ready(ctx context.Context) error
}

// Document is a minimal DOM document.
type Document struct {
	mu    sync.RWMutex
	root  *html.Node
	head  *html.Node
	body  *html.Node
	epoch time.Time

	fontsMu sync.RWMutex
	fonts   FontSource
}

// NewDocument creates an empty document with html, head and body elements.
func NewDocument() *Document {
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	htmlEl := El("html", WithAttr("lang", "en"))
	head := El("head")
	head.AppendChild(El("meta", WithAttr("charset", "utf-8")))
	body := El("body", WithStyle("margin:0"))
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)
	root.AppendChild(htmlEl)
	return &Document{root: root, head: head, body: body, epoch: time.Now()}
}

// SetFontSource registers the font loader FontsReady waits on.
func (d *Document) SetFontSource(f FontSource) {
	d.fontsMu.Lock()
	d.fonts = f
	d.fontsMu.Unlock()
}

// FontsReady blocks until the registered font source is ready. Without a
// font source it returns immediately.
func (d *Document) FontsReady(ctx context.Context) error {
	d.fontsMu.RLock()
	f := d.fonts
	d.fontsMu.RUnlock()
	if f == nil {
		return ctx.Err()
	}
	return f.Ready(ctx)
}

// NextFrame blocks until the next frame boundary of the document clock.
func (d *Document) NextFrame(ctx context.Context) error {
	elapsed := time.Since(d.epoch)
	wait := FrameInterval - elapsed%FrameInterval
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AppendToBody appends n as the last child of body.
func (d *Document) AppendToBody(n *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	Detach(n)
	d.body.AppendChild(n)
}

// RemoveFromBody detaches n if it is a direct child of body.
func (d *Document) RemoveFromBody(n *html.Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n == nil || n.Parent != d.body {
		return false
	}
	d.body.RemoveChild(n)
	return true
}

// ReplaceInBody swaps old for n, keeping old's position. When old is nil or
// no longer in body, n is appended.
func (d *Document) ReplaceInBody(old, n *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	Detach(n)
	if old != nil && old.Parent == d.body {
		d.body.InsertBefore(n, old)
		d.body.RemoveChild(old)
		return
	}
	d.body.AppendChild(n)
}

// BodyContains reports whether n is a direct child of body.
func (d *Document) BodyContains(n *html.Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return n != nil && n.Parent == d.body
}

// BodyChildren returns a snapshot of body's element children.
func (d *Document) BodyChildren() []*html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*html.Node
	for c := d.body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Clone deep-copies n under the read lock.
func (d *Document) Clone(n *html.Node) *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Clone(n)
}

// Read runs fn with the document read-locked.
func (d *Document) Read(fn func()) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn()
}

// Update runs fn with the document write-locked.
func (d *Document) Update(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// AddHeadStyle appends a <style> element to head.
func (d *Document) AddHeadStyle(css string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := El("style")
	st.AppendChild(Text(css))
	d.head.AppendChild(st)
}

// Render writes the whole document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return html.Render(w, d.root)
}

// IsBody reports whether n is this document's body element.
func (d *Document) IsBody(n *html.Node) bool {
	return n != nil && n == d.body && n.DataAtom == atom.Body
}
