package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arran4/chat2png/internal/chat"
	apperrors "github.com/arran4/chat2png/pkg/errors"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Ping(ctx))

	rec, err := s.Create(ctx, chat.New())
	require.NoError(t, err)
	assert.Len(t, rec.ID, 20)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Conversation, got.Conversation)
	assert.Equal(t, rec.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())

	c := got.Conversation
	c.Platform = chat.Messenger
	c.ContactName = "Ana"
	updated, err := s.Update(ctx, rec.ID, c)
	require.NoError(t, err)
	assert.Equal(t, chat.Messenger, updated.Conversation.Platform)
	assert.Equal(t, "Ana", updated.Conversation.ContactName)

	require.NoError(t, s.Delete(ctx, rec.ID))
	_, err = s.Get(ctx, rec.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
	assert.True(t, apperrors.HasCode(s.Delete(ctx, rec.ID), apperrors.ErrCodeNotFound))
}

func TestCreateRejectsInvalid(t *testing.T) {
	s := newStore(t)
	c := chat.New()
	c.Platform = "telegram"
	_, err := s.Create(context.Background(), c)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestUpdateMissing(t *testing.T) {
	s := newStore(t)
	_, err := s.Update(context.Background(), "nope", chat.New())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestListOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 3 {
		s.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		rec, err := s.Create(ctx, chat.New())
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	all, err := s.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	page, err := s.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chat2png.db")
	s, err := Open(path)
	require.NoError(t, err)
	rec, err := s.Create(context.Background(), chat.New())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}
