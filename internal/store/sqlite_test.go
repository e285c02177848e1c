// ABOUTME: Tests for the SQLite journal
// ABOUTME: Covers session creation, message ordering, titles, listing, and not-found handling

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/2389/coven-chat/internal/backend"
	"github.com/2389/coven-chat/internal/conversation"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

// fixedClock makes started_at ordering deterministic.
func fixedClock(s *SQLiteStore, start time.Time) {
	current := start
	s.now = func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func msg(sender conversation.Sender, body string) conversation.Message {
	return conversation.Message{Sender: sender, Body: body, Status: conversation.StatusFinal}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "chat.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestAppendAndGetMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.StartSession(ctx, "s1", ""); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	want := []conversation.Message{
		msg(conversation.SenderUser, "hello"),
		msg(conversation.SenderAgent, "hi there"),
		msg(conversation.SenderSystem, "Error: Unable to fetch a response."),
	}
	for _, m := range want {
		if err := store.AppendMessage(ctx, "s1", m); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	got, err := store.GetMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}

	entries, err := store.GetEntries(ctx, "s1")
	if err != nil {
		t.Fatalf("GetEntries failed: %v", err)
	}
	for i, e := range entries {
		if e.Seq != i+1 {
			t.Errorf("entry %d: expected seq %d, got %d", i, i+1, e.Seq)
		}
		if e.ID == "" {
			t.Errorf("entry %d has no id", i)
		}
	}
}

func TestStartSession_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.StartSession(ctx, "s1", "ctx-a"); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if err := store.StartSession(ctx, "s1", "ctx-b"); err != nil {
		t.Fatalf("second StartSession failed: %v", err)
	}

	session, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session.ContextID != "ctx-a" {
		t.Errorf("expected context ctx-a to be kept, got %q", session.ContextID)
	}
}

func TestAppendMessage_UnknownSession(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendMessage(context.Background(), "missing", msg(conversation.SenderUser, "hi"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession: expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetEntries(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEntries: expected ErrNotFound, got %v", err)
	}
}

func TestSessionTitle_FromFirstUserMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.StartSession(ctx, "s1", ""); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	for _, m := range []conversation.Message{
		msg(conversation.SenderAgent, "welcome"),
		msg(conversation.SenderUser, "  plan a trip\nto Lisbon"),
		msg(conversation.SenderUser, "second question"),
	} {
		if err := store.AppendMessage(ctx, "s1", m); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	session, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session.Title != "plan a trip" {
		t.Errorf("expected title %q, got %q", "plan a trip", session.Title)
	}
	if session.MessageCount != 3 {
		t.Errorf("expected 3 messages, got %d", session.MessageCount)
	}
}

func TestListSessions_NewestFirstSkipsEmpty(t *testing.T) {
	store := newTestStore(t)
	fixedClock(store, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for _, id := range []string{"old", "empty", "new"} {
		if err := store.StartSession(ctx, id, ""); err != nil {
			t.Fatalf("StartSession(%s) failed: %v", id, err)
		}
	}
	for _, id := range []string{"old", "new"} {
		if err := store.AppendMessage(ctx, id, msg(conversation.SenderUser, "from "+id)); err != nil {
			t.Fatalf("AppendMessage(%s) failed: %v", id, err)
		}
	}

	sessions, err := store.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "new" || sessions[1].ID != "old" {
		t.Errorf("expected [new old], got [%s %s]", sessions[0].ID, sessions[1].ID)
	}
	if !sessions[0].StartedAt.After(sessions[1].StartedAt) {
		t.Errorf("expected newest first, got %v then %v", sessions[0].StartedAt, sessions[1].StartedAt)
	}

	limited, err := store.ListSessions(ctx, 1)
	if err != nil {
		t.Fatalf("ListSessions(1) failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "new" {
		t.Errorf("expected only the newest session, got %+v", limited)
	}
}

func TestTitleFrom(t *testing.T) {
	long := strings.Repeat("a", 100)
	tests := []struct {
		in, want string
	}{
		{"hello", "hello"},
		{"  padded  ", "padded"},
		{"first\nsecond", "first"},
		{long, strings.Repeat("a", maxTitleLen-3) + "..."},
	}
	for _, tc := range tests {
		if got := titleFrom(tc.in); got != tc.want {
			t.Errorf("titleFrom(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestJournalThroughController(t *testing.T) {
	store := newTestStore(t)

	ctrl := conversation.New(staticGateway{reply: "hi there"}, nil, conversation.WithJournal(store))
	defer ctrl.Close()

	if !ctrl.SendMessage("hello") {
		t.Fatal("send rejected")
	}
	ctrl.Wait()

	got, err := store.GetMessages(context.Background(), ctrl.SessionID())
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(got) != 2 || got[0].Body != "hello" || got[1].Body != "hi there" {
		t.Errorf("unexpected journal contents: %+v", got)
	}
}

// staticGateway answers every chat with reply.
type staticGateway struct {
	reply string
}

func (g staticGateway) Chat(context.Context, string) (backend.ChatReply, error) {
	return backend.ChatReply{Body: g.reply}, nil
}

func (g staticGateway) Reset(context.Context) (backend.ResetAck, error) {
	return backend.ResetAck{}, nil
}

func (g staticGateway) LoadContext(context.Context, string) ([]backend.HistoryEntry, error) {
	return nil, nil
}
