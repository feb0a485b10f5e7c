// Package store persists sessions and messages in SQLite. Message
// content is the raw markdown source exactly as streamed; nothing
// rendered is ever written back.
package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/quillchat/quill/internal/config"
	"github.com/quillchat/quill/internal/domain"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database for session and message persistence.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the SQLite database in the quill data
// directory.
func OpenStore() (*Store, error) {
	dir, err := config.DataDir()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	dsn := filepath.Join(dir, "quill.db")

	db, err := sql.Open("sqlite", dsn+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewFromDB creates a Store from an existing *sql.DB and runs migrations.
// This is useful for testing with an in-memory database.
func NewFromDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			provider TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			total_tokens INTEGER DEFAULT 0,
			input_tokens INTEGER DEFAULT 0,
			output_tokens INTEGER DEFAULT 0,
			message_count INTEGER DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tokens INTEGER DEFAULT 0,
			sequence INTEGER NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`); err != nil {
		return err
	}

	_, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC);
		CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, sequence);
	`)
	return err
}

// ---------------------------------------------------------------------------
// Session CRUD
// ---------------------------------------------------------------------------

const sessionColumns = `id, title, provider, model, total_tokens, input_tokens, output_tokens, message_count, created_at, updated_at`

// CreateSession inserts a new session for the given provider and model.
// The title starts empty and is filled after the first exchange.
func (s *Store) CreateSession(providerName, model string) (*domain.Session, error) {
	sess := &domain.Session{
		ID:        domain.NewID(),
		Provider:  providerName,
		Model:     model,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, title, provider, model, created_at, updated_at)
		 VALUES (?, '', ?, ?, datetime(?), datetime(?))`,
		sess.ID, sess.Provider, sess.Model,
		sess.CreatedAt.UTC().Format(time.RFC3339),
		sess.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession retrieves a session by its full ID.
func (s *Store) GetSession(id string) (*domain.Session, error) {
	row := s.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// LatestSession returns the most recently updated session. Used by the
// -c flag to continue where the user left off.
func (s *Store) LatestSession() (*domain.Session, error) {
	row := s.db.QueryRow(
		`SELECT ` + sessionColumns + ` FROM sessions ORDER BY updated_at DESC LIMIT 1`)
	return scanSession(row)
}

// FindSessionByPrefix matches a session by ID prefix, most recent first.
func (s *Store) FindSessionByPrefix(prefix string) (*domain.Session, error) {
	row := s.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE id LIKE ? || '%' ORDER BY updated_at DESC LIMIT 1`, prefix)
	return scanSession(row)
}

// ListSessions returns the most recent sessions, up to limit.
func (s *Store) ListSessions(limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT `+sessionColumns+` FROM sessions ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var sess domain.Session
		var createdStr, updatedStr string
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.Provider, &sess.Model,
			&sess.TotalTokens, &sess.InputTokens, &sess.OutputTokens,
			&sess.MessageCount, &createdStr, &updatedStr); err != nil {
			return nil, err
		}
		sess.CreatedAt = parseDBTime(createdStr)
		sess.UpdatedAt = parseDBTime(updatedStr)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session and its messages (via ON DELETE CASCADE).
func (s *Store) DeleteSession(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// UpdateSessionTitle sets the title of a session.
func (s *Store) UpdateSessionTitle(id, title string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET title = ?, updated_at = datetime('now') WHERE id = ?`,
		title, id)
	return err
}

// UpdateSessionTokens sets the accumulated token counts for a session.
func (s *Store) UpdateSessionTokens(id string, inputTokens, outputTokens int) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET total_tokens = ?, input_tokens = ?, output_tokens = ?, updated_at = datetime('now') WHERE id = ?`,
		inputTokens+outputTokens, inputTokens, outputTokens, id)
	return err
}

// UpdateSessionModel sets the model for a session.
func (s *Store) UpdateSessionModel(id, model string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET model = ?, updated_at = datetime('now') WHERE id = ?`,
		model, id)
	return err
}

// UpdateSessionProvider sets the provider for a session.
func (s *Store) UpdateSessionProvider(id, providerName string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET provider = ?, updated_at = datetime('now') WHERE id = ?`,
		providerName, id)
	return err
}

// TouchSession updates the session's updated_at timestamp.
func (s *Store) TouchSession(id string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET updated_at = datetime('now') WHERE id = ?`, id)
	return err
}

// ---------------------------------------------------------------------------
// Message CRUD
// ---------------------------------------------------------------------------

// AppendMessage stores one message for a session. The sequence number
// is assigned MAX+1 inside a transaction so concurrent appends cannot
// collide.
func (s *Store) AppendMessage(sessionID, role, content string, tokens int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(sequence), 0) FROM messages WHERE session_id = ?`, sessionID).
		Scan(&seq); err != nil {
		return err
	}
	seq++

	if _, err := tx.Exec(
		`INSERT INTO messages (id, session_id, role, content, tokens, sequence)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		domain.NewID(), sessionID, role, content, tokens, seq); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`UPDATE sessions SET message_count = ?, updated_at = datetime('now') WHERE id = ?`,
		seq, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

// GetMessages returns all messages for a session, ordered by sequence.
func (s *Store) GetMessages(sessionID string) ([]domain.TranscriptMessage, error) {
	rows, err := s.db.Query(
		`SELECT role, content FROM messages WHERE session_id = ? ORDER BY sequence`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.TranscriptMessage
	for rows.Next() {
		var m domain.TranscriptMessage
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func scanSession(row *sql.Row) (*domain.Session, error) {
	var sess domain.Session
	var createdStr, updatedStr string
	err := row.Scan(&sess.ID, &sess.Title, &sess.Provider, &sess.Model,
		&sess.TotalTokens, &sess.InputTokens, &sess.OutputTokens,
		&sess.MessageCount, &createdStr, &updatedStr)
	if err != nil {
		return nil, err
	}
	sess.CreatedAt = parseDBTime(createdStr)
	sess.UpdatedAt = parseDBTime(updatedStr)
	return &sess, nil
}

// parseDBTime accepts both sqlite's datetime() format and RFC3339.
func parseDBTime(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
