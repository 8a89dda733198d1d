// Package preview renders the chat mock into a dom.Document and keeps it in
// sync with a chat.Store.
package preview

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/arran4/chat2png/internal/chat"
	"github.com/arran4/chat2png/internal/dom"
	"github.com/arran4/chat2png/pkg/logger"
)

// DefaultBadge labels the on-screen preview. It is never exported.
const DefaultBadge = "Vista previa"

// Options configure a Preview.
type Options struct {
	// RichText renders message text as Markdown (emphasis, strong,
	// strikethrough and inline code).
	RichText bool
	// Badge is the preview-only label. Empty hides it.
	Badge string
}

// Preview is the live chat mock. Every committed store state replaces the
// mounted subtree under the document write lock.
type Preview struct {
	doc   *dom.Document
	opts  Options
	rich  *richText
	unsub func()

	mu     sync.RWMutex
	root   *html.Node
	conv   chat.Conversation
	closed bool
}

// New renders the store's current state into doc and subscribes to later
// changes.
func New(doc *dom.Document, store *chat.Store, opts Options) *Preview {
	p := &Preview{doc: doc, opts: opts}
	if opts.RichText {
		p.rich = newRichText()
	}
	p.render(store.Snapshot())
	p.unsub = store.Subscribe(p.render)
	return p
}

func (p *Preview) render(c chat.Conversation) {
	n := newBuilder(c, p.rich, p.opts.Badge).mount()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.doc.ReplaceInBody(p.root, n)
	p.root = n
	p.conv = c
	logger.Debug("preview rendered",
		zap.String("platform", string(c.Platform)),
		zap.String("theme", string(c.Theme)),
		zap.Int("messages", len(c.Messages)),
	)
}

// Root returns the mounted preview element, or nil once closed.
func (p *Preview) Root() *html.Node {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.root
}

func (p *Preview) Document() *dom.Document { return p.doc }

// Snapshot returns the mounted root together with the theme and platform
// it was rendered from.
func (p *Preview) Snapshot() (*html.Node, chat.Theme, chat.Platform) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.root, p.conv.Theme, p.conv.Platform
}

func (p *Preview) Theme() chat.Theme {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conv.Theme
}

func (p *Preview) Platform() chat.Platform {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conv.Platform
}

// Conversation returns the state currently on screen.
func (p *Preview) Conversation() chat.Conversation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conv.Clone()
}

// Close unsubscribes from the store and unmounts the preview.
func (p *Preview) Close() {
	if p.unsub != nil {
		p.unsub()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.doc.RemoveFromBody(p.root)
	p.root = nil
}
