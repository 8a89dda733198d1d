// Package idgen provides ID generation for conversations, messages and
// requests.
package idgen

import (
	"github.com/google/uuid"
	"github.com/rs/xid"
)

// NewID generates a globally unique, time-sortable 20-character identifier.
func NewID() string {
	return xid.New().String()
}

// NewConversationID generates an ID for a stored conversation.
func NewConversationID() string {
	return NewID()
}

// NewRequestID generates an ID for request tracking.
func NewRequestID() string {
	return NewID()
}

// NewMessageID generates a random UUID for a chat message. Message IDs are
// used as element keys in the preview tree, so they only need to be unique
// within a conversation; UUIDs also survive being pasted into JSON fixtures.
func NewMessageID() string {
	return uuid.NewString()
}
