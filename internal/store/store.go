// ABOUTME: Journal data types and errors for the local session store
// ABOUTME: Defines Session and Entry records returned by SQLiteStore queries

package store

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested session does not exist
var ErrNotFound = errors.New("not found")

// maxTitleLen bounds a session title derived from its first user message.
const maxTitleLen = 80

// Session is one journaled transcript.
type Session struct {
	ID           string
	ContextID    string // empty for a fresh session
	Title        string
	StartedAt    time.Time
	MessageCount int
}

// Entry is one journaled message.
type Entry struct {
	ID        string
	SessionID string
	Seq       int
	Sender    string
	Body      string
	CreatedAt time.Time
}

// titleFrom shortens body to a single-line session title.
func titleFrom(body string) string {
	body = strings.TrimSpace(body)
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = strings.TrimSpace(body[:i])
	}
	runes := []rune(body)
	if len(runes) > maxTitleLen {
		return string(runes[:maxTitleLen-3]) + "..."
	}
	return body
}
