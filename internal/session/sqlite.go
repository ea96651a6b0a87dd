package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id)`,
}

// SQLiteStore persists sessions in a SQLite database.
type SQLiteStore struct {
	db         *sql.DB
	maxHistory int
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string, maxHistory int) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate session db: %w", err)
		}
	}

	return &SQLiteStore{db: db, maxHistory: normalizeMaxHistory(maxHistory)}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession implements Store.
func (s *SQLiteStore) CreateSession(ctx context.Context) (string, error) {
	id := newSessionID()
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions(id, created_at) VALUES(?, ?)`, id, now())
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// GetHistory implements Store.
func (s *SQLiteStore) GetHistory(ctx context.Context, sessionID string) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, s.maxHistory*2)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return "", fmt.Errorf("failed to scan history: %w", err)
		}
		messages = append(messages, Message{Role: Role(role), Content: content})
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}

	// newest first from the query
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return formatHistory(messages), nil
}

// AddExchange implements Store. Messages beyond the retention window are
// deleted in the same transaction.
func (s *SQLiteStore) AddExchange(ctx context.Context, sessionID, query, answer string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := now()
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO sessions(id, created_at) VALUES(?, ?)`, sessionID, ts); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	for _, m := range []Message{{Role: RoleUser, Content: query}, {Role: RoleAssistant, Content: answer}} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages(session_id, role, content, created_at) VALUES(?, ?, ?, ?)`,
			sessionID, string(m.Role), m.Content, ts); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE session_id = ? AND id NOT IN (
			SELECT id FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?
		)`, sessionID, sessionID, s.maxHistory*2); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	return tx.Commit()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
