package chat

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arran4/chat2png/pkg/idgen"
)

// Parse decodes a conversation from YAML or JSON, fills defaults and
// validates it. Media fields may name image files, which are read relative
// to baseDir and inlined as data URLs.
func Parse(data []byte, baseDir string) (Conversation, error) {
	var c Conversation
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Conversation{}, fmt.Errorf("chat: parse conversation: %w", err)
	}
	c.Normalize()
	if c.ContactName == "" {
		c.ContactName = DefaultContactName
	}
	for i := range c.Messages {
		if c.Messages[i].ID == "" {
			c.Messages[i].ID = idgen.NewMessageID()
		}
	}
	for _, field := range []*string{&c.ContactAvatar, &c.MeAvatar, &c.Wallpaper} {
		if err := inlineMedia(field, baseDir); err != nil {
			return Conversation{}, err
		}
	}
	if err := c.Validate(); err != nil {
		return Conversation{}, err
	}
	return c, nil
}

// LoadFile reads a conversation file. Relative media paths resolve against
// the file's directory.
func LoadFile(path string) (Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Conversation{}, fmt.Errorf("chat: read conversation: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

func inlineMedia(field *string, baseDir string) error {
	v := strings.TrimSpace(*field)
	if v == "" || strings.HasPrefix(v, "data:") || strings.Contains(v, "://") {
		return nil
	}
	if !filepath.IsAbs(v) {
		v = filepath.Join(baseDir, v)
	}
	url, err := IngestFile(v)
	if err != nil {
		return err
	}
	*field = url
	return nil
}
