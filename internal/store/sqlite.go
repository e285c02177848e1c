// ABOUTME: SQLite journal of chat sessions using modernc.org/sqlite
// ABOUTME: Records sessions and their settled messages with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/2389/coven-chat/internal/conversation"
)

// SQLiteStore implements conversation.Journal using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ conversation.Journal = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("SQLite journal initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			context_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_started
			ON sessions(started_at);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			sender TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
			UNIQUE (session_id, seq)
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// StartSession records a session. Starting an existing session is a no-op.
func (s *SQLiteStore) StartSession(ctx context.Context, sessionID, contextID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sessions (id, context_id, started_at)
		VALUES (?, ?, ?)
	`, sessionID, contextID, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// AppendMessage adds msg at the end of the session. It returns ErrNotFound if
// the session was never started.
func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID string, msg conversation.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var title string
	err = tx.QueryRowContext(ctx, `SELECT title FROM sessions WHERE id = ?`, sessionID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("querying session: %w", err)
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE session_id = ?`, sessionID,
	).Scan(&seq); err != nil {
		return fmt.Errorf("computing sequence: %w", err)
	}

	id := uuid.New().String()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, seq, sender, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, sessionID, seq, string(msg.Sender), msg.Body, s.now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	if title == "" && msg.Sender == conversation.SenderUser {
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET title = ? WHERE id = ?`, titleFrom(msg.Body), sessionID,
		); err != nil {
			return fmt.Errorf("setting session title: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing message: %w", err)
	}

	s.logger.Debug("journaled message", "id", id, "session_id", sessionID, "seq", seq)
	return nil
}

// GetSession retrieves one session with its message count.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.context_id, s.title, s.started_at, COUNT(m.id)
		FROM sessions s
		LEFT JOIN messages m ON m.session_id = s.id
		WHERE s.id = ?
		GROUP BY s.id
	`, id)

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions returns sessions that have messages, newest first.
// limit defaults to 20 and is capped at 1000.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 1000 {
		limit = 1000
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.context_id, s.title, s.started_at, COUNT(m.id)
		FROM sessions s
		JOIN messages m ON m.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC, s.rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return sessions, nil
}

// GetEntries returns a session's messages in order. It returns ErrNotFound
// for an unknown session.
func (s *SQLiteStore) GetEntries(ctx context.Context, sessionID string) ([]*Entry, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, seq, sender, body, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var createdAtStr string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Seq, &e.Sender, &e.Body, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing message created_at: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return entries, nil
}

// GetMessages returns a session's messages as transcript messages.
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string) ([]conversation.Message, error) {
	entries, err := s.GetEntries(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]conversation.Message, 0, len(entries))
	for _, e := range entries {
		out = append(out, conversation.Message{
			Sender: conversation.Sender(e.Sender),
			Body:   e.Body,
			Status: conversation.StatusFinal,
		})
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var session Session
	var startedAtStr string
	if err := row.Scan(&session.ID, &session.ContextID, &session.Title, &startedAtStr, &session.MessageCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning session row: %w", err)
	}

	var err error
	session.StartedAt, err = time.Parse(time.RFC3339, startedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	return &session, nil
}
