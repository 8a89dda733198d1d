package idgen

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewID()
		if len(id) != 20 {
			t.Fatalf("NewID() length = %d, want 20", len(id))
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("NewID() returned duplicate %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewMessageID(t *testing.T) {
	id := NewMessageID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("NewMessageID() = %q is not a UUID: %v", id, err)
	}
	if NewMessageID() == id {
		t.Error("NewMessageID() should not repeat")
	}
}
