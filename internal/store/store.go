// Package store persists conversations in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/arran4/chat2png/internal/chat"
	apperrors "github.com/arran4/chat2png/pkg/errors"
	"github.com/arran4/chat2png/pkg/idgen"
	"github.com/arran4/chat2png/pkg/logger"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = "file::memory:"

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	platform   TEXT NOT NULL,
	theme      TEXT NOT NULL,
	contact    TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);
`

// Record is a stored conversation.
type Record struct {
	ID           string            `json:"id"`
	Conversation chat.Conversation `json:"conversation"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Store is a SQLite backed conversation repository.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if path != MemoryPath && !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, apperrors.Wrap(apperrors.ErrCodeDBConnection, "create database directory", err)
			}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeDBConnection, "open database", err)
	}
	// One writer; also keeps an in-memory database on a single connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=10000",
	}
	if path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, apperrors.Wrap(apperrors.ErrCodeDBConnection, "set pragma", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrCodeDBMigration, "apply schema", err)
	}
	logger.Debug("Conversation store opened", zap.String("path", path))
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeDBConnection, "ping database", err)
	}
	return nil
}

// Create validates and stores c under a new ID.
func (s *Store) Create(ctx context.Context, c chat.Conversation) (Record, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return Record{}, apperrors.Wrap(apperrors.ErrCodeValidation, err.Error(), err)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return Record{}, apperrors.ErrInternal("encode conversation", err)
	}
	now := s.now().UTC()
	rec := Record{ID: idgen.NewConversationID(), Conversation: c, CreatedAt: now, UpdatedAt: now}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, platform, theme, contact, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(c.Platform), string(c.Theme), c.ContactName, string(data),
		now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return Record{}, apperrors.Wrap(apperrors.ErrCodeDBQuery, "insert conversation", err)
	}
	return rec, nil
}

// Get returns the conversation with id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, data, created_at, updated_at FROM conversations WHERE id = ?`, id)
	rec, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, apperrors.ErrNotFound("conversation " + id)
	}
	if err != nil {
		return Record{}, apperrors.Wrap(apperrors.ErrCodeDBQuery, "get conversation", err)
	}
	return rec, nil
}

// List returns conversations, most recently updated first. limit <= 0 means
// no limit.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data, created_at, updated_at FROM conversations
		 ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`, limit, max(offset, 0))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeDBQuery, "list conversations", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeDBQuery, "scan conversation", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeDBQuery, "list conversations", err)
	}
	return out, nil
}

// Update replaces the conversation stored under id.
func (s *Store) Update(ctx context.Context, id string, c chat.Conversation) (Record, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return Record{}, apperrors.Wrap(apperrors.ErrCodeValidation, err.Error(), err)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return Record{}, apperrors.ErrInternal("encode conversation", err)
	}
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET platform = ?, theme = ?, contact = ?, data = ?, updated_at = ?
		 WHERE id = ?`,
		string(c.Platform), string(c.Theme), c.ContactName, string(data), now.UnixMilli(), id)
	if err != nil {
		return Record{}, apperrors.Wrap(apperrors.ErrCodeDBQuery, "update conversation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Record{}, apperrors.ErrNotFound("conversation " + id)
	}
	return s.Get(ctx, id)
}

// Delete removes the conversation with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeDBQuery, "delete conversation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound("conversation " + id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(r scanner) (Record, error) {
	var (
		rec              Record
		data             string
		created, updated int64
	)
	if err := r.Scan(&rec.ID, &data, &created, &updated); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(data), &rec.Conversation); err != nil {
		return Record{}, fmt.Errorf("decode conversation %s: %w", rec.ID, err)
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	rec.UpdatedAt = time.UnixMilli(updated).UTC()
	return rec, nil
}
