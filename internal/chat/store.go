package chat

import (
	"maps"
	"slices"
	"sync"
)

// Action is a state transition applied by Store.Dispatch.
type Action interface {
	apply(c *Conversation) error
}

type (
	SetPlatform      Platform
	SetTheme         Theme
	SetOS            OS
	SetContactName   string
	SetContactAvatar string
	SetMeAvatar      string
	SetWallpaper     string
	// AddMessage appends one message.
	AddMessage Message
	// ClearMessages empties the conversation.
	ClearMessages struct{}
	// LoadDemo restores the sample messages.
	LoadDemo struct{}
	// Replace swaps the whole conversation, e.g. after loading a file.
	Replace Conversation
)

func (a SetPlatform) apply(c *Conversation) error {
	next := *c
	next.Platform = Platform(a)
	if err := next.Validate(); err != nil {
		return err
	}
	c.Platform = next.Platform
	return nil
}

func (a SetTheme) apply(c *Conversation) error {
	next := *c
	next.Theme = Theme(a)
	if err := next.Validate(); err != nil {
		return err
	}
	c.Theme = next.Theme
	return nil
}

func (a SetOS) apply(c *Conversation) error {
	next := *c
	next.OS = OS(a)
	if err := next.Validate(); err != nil {
		return err
	}
	c.OS = next.OS
	return nil
}

func (a SetContactName) apply(c *Conversation) error {
	c.ContactName = string(a)
	return nil
}

func (a SetContactAvatar) apply(c *Conversation) error {
	c.ContactAvatar = string(a)
	return nil
}

func (a SetMeAvatar) apply(c *Conversation) error {
	c.MeAvatar = string(a)
	return nil
}

func (a SetWallpaper) apply(c *Conversation) error {
	c.Wallpaper = string(a)
	return nil
}

func (a AddMessage) apply(c *Conversation) error {
	m := Message(a)
	if err := m.Validate(); err != nil {
		return err
	}
	c.Messages = append(c.Messages, m)
	return nil
}

func (ClearMessages) apply(c *Conversation) error {
	c.Messages = nil
	return nil
}

func (LoadDemo) apply(c *Conversation) error {
	c.Messages = SampleMessages()
	return nil
}

func (a Replace) apply(c *Conversation) error {
	next := Conversation(a).Clone()
	next.Normalize()
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Store owns a conversation. Every change goes through Dispatch, and
// subscribers see each committed state in order.
type Store struct {
	mu    sync.Mutex
	state Conversation

	subMu  sync.Mutex
	subs   map[int]func(Conversation)
	nextID int
}

// NewStore returns a store holding initial.
func NewStore(initial Conversation) *Store {
	initial.Normalize()
	return &Store{state: initial.Clone(), subs: make(map[int]func(Conversation))}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Dispatch applies a and notifies subscribers. A rejected action leaves
// the state untouched.
func (s *Store) Dispatch(a Action) error {
	s.mu.Lock()
	next := s.state.Clone()
	if err := a.apply(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	snap := next.Clone()
	// Notify under the subscriber lock so concurrent dispatches are seen
	// in commit order.
	s.subMu.Lock()
	s.mu.Unlock()
	defer s.subMu.Unlock()
	for _, id := range slices.Sorted(maps.Keys(s.subs)) {
		s.subs[id](snap)
	}
	return nil
}

// Subscribe registers fn for future states and returns a function that
// removes it. fn must not call Dispatch or Subscribe.
func (s *Store) Subscribe(fn func(Conversation)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}
