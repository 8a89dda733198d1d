// Package chat holds the conversation model shown in the preview and the
// state container that owns it.
package chat

import (
	"errors"
	"fmt"
	"strings"
)

type Platform string

const (
	WhatsApp  Platform = "whatsapp"
	Messenger Platform = "messenger"
)

type Theme string

const (
	Dark  Theme = "dark"
	Light Theme = "light"
)

// Background is the export backdrop for the theme.
func (t Theme) Background() string {
	if t == Light {
		return "#f3f4f6"
	}
	return "#070b10"
}

type OS string

const (
	Android OS = "android"
	IOS     OS = "ios"
)

type Side string

const (
	Me   Side = "me"
	Them Side = "them"
)

type Kind string

const (
	Text  Kind = "text"
	Audio Kind = "audio"
)

// Status is the delivery state shown next to outgoing WhatsApp messages.
type Status string

const (
	Sent      Status = "sent"
	Delivered Status = "delivered"
	Read      Status = "read"
)

// DefaultContactName is used for new conversations.
const DefaultContactName = "Benito Camelo"

var (
	ErrInvalidPlatform = errors.New("chat: invalid platform")
	ErrInvalidTheme    = errors.New("chat: invalid theme")
	ErrInvalidOS       = errors.New("chat: invalid os")
	ErrInvalidMessage  = errors.New("chat: invalid message")
)

// Message is one bubble. Type defaults to text when empty.
type Message struct {
	ID   string `json:"id" yaml:"id"`
	Side Side   `json:"side" yaml:"side"`
	Time string `json:"time" yaml:"time"`
	Type Kind   `json:"type,omitempty" yaml:"type,omitempty"`
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// Status only applies to outgoing messages on WhatsApp.
	Status Status `json:"status,omitempty" yaml:"status,omitempty"`

	DurationSec  int    `json:"duration_sec,omitempty" yaml:"duration_sec,omitempty"`
	IsPlayed     *bool  `json:"is_played,omitempty" yaml:"is_played,omitempty"`
	WaveformSeed *int64 `json:"waveform_seed,omitempty" yaml:"waveform_seed,omitempty"`
}

// Kind returns the message type with the text default applied.
func (m Message) Kind() Kind {
	if m.Type == "" {
		return Text
	}
	return m.Type
}

// Unplayed reports whether an incoming audio shows the unplayed marker.
func (m Message) Unplayed() bool {
	return m.Side != Me && (m.IsPlayed == nil || !*m.IsPlayed)
}

// Seed returns the waveform seed, derived from the ID when unset.
func (m Message) Seed() uint32 {
	if m.WaveformSeed != nil {
		return uint32(*m.WaveformSeed)
	}
	return HashToInt(m.ID)
}

// Validate checks the fields the preview relies on.
func (m Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	if m.Side != Me && m.Side != Them {
		return fmt.Errorf("%w: side %q", ErrInvalidMessage, m.Side)
	}
	switch m.Kind() {
	case Text:
		if strings.TrimSpace(m.Text) == "" {
			return fmt.Errorf("%w: empty text", ErrInvalidMessage)
		}
	case Audio:
		if m.DurationSec < 0 {
			return fmt.Errorf("%w: negative duration", ErrInvalidMessage)
		}
	default:
		return fmt.Errorf("%w: type %q", ErrInvalidMessage, m.Type)
	}
	switch m.Status {
	case "", Sent, Delivered, Read:
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidMessage, m.Status)
	}
	return nil
}

// Conversation is everything the preview renders.
type Conversation struct {
	Platform    Platform  `json:"platform" yaml:"platform"`
	Theme       Theme     `json:"theme" yaml:"theme"`
	OS          OS        `json:"os" yaml:"os"`
	ContactName string    `json:"contact_name" yaml:"contact_name"`
	Messages    []Message `json:"messages" yaml:"messages"`

	// Image sources, usually data URLs from Ingest. The wallpaper is only
	// shown on WhatsApp.
	ContactAvatar string `json:"contact_avatar,omitempty" yaml:"contact_avatar,omitempty"`
	MeAvatar      string `json:"me_avatar,omitempty" yaml:"me_avatar,omitempty"`
	Wallpaper     string `json:"wallpaper,omitempty" yaml:"wallpaper,omitempty"`
}

// New returns the conversation a fresh session starts with.
func New() Conversation {
	return Conversation{
		Platform:    WhatsApp,
		Theme:       Dark,
		OS:          Android,
		ContactName: DefaultContactName,
		Messages:    SampleMessages(),
	}
}

// Normalize fills empty enum fields with their defaults.
func (c *Conversation) Normalize() {
	if c.Platform == "" {
		c.Platform = WhatsApp
	}
	if c.Theme == "" {
		c.Theme = Dark
	}
	if c.OS == "" {
		c.OS = Android
	}
}

func (c Conversation) Validate() error {
	switch c.Platform {
	case WhatsApp, Messenger:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPlatform, c.Platform)
	}
	switch c.Theme {
	case Dark, Light:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTheme, c.Theme)
	}
	switch c.OS {
	case Android, IOS:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOS, c.OS)
	}
	for i, m := range c.Messages {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// Initial is the letter shown in avatar placeholders.
func (c Conversation) Initial() string {
	for _, r := range strings.TrimSpace(c.ContactName) {
		return strings.ToUpper(string(r))
	}
	return "A"
}

// Clone returns a copy that shares nothing mutable with c.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		if m.IsPlayed != nil {
			v := *m.IsPlayed
			m.IsPlayed = &v
		}
		if m.WaveformSeed != nil {
			v := *m.WaveformSeed
			m.WaveformSeed = &v
		}
		out.Messages[i] = m
	}
	return out
}
