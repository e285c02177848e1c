// Package store keeps a local journal of chat sessions in SQLite.
//
// # Overview
//
// The backend owns conversation state; the journal is a local record of what
// this client sent and received, used by the history and export commands.
// SQLiteStore implements conversation.Journal:
//
//	s, err := store.NewSQLiteStore(path)
//	ctrl := conversation.New(gw, ch, conversation.WithJournal(s))
//
// # Data Model
//
//   - Session: one transcript identity (a fresh session, or a loaded context)
//   - Entry: one settled message within a session, ordered by Seq
//
// A session's title is taken from its first user message.
//
// # Implementation
//
// The database uses modernc.org/sqlite (pure Go), WAL journaling, and foreign
// keys. The schema is created on open. Timestamps are stored as RFC3339 UTC.
package store
