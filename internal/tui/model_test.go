// ABOUTME: Tests for the chat TUI model and the event forwarder
// ABOUTME: Drives Update with key and refresh messages against fake controller and directory

package tui

import (
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/backend"
	"github.com/2389/coven-chat/internal/conversation"
	"github.com/2389/coven-chat/internal/directory"
	"github.com/2389/coven-chat/internal/events"
	"github.com/2389/coven-chat/internal/notify"
)

type fakeConversation struct {
	state  conversation.State
	sent   []string
	resets int
	busy   bool
}

func (f *fakeConversation) Snapshot() conversation.State { return f.state }

func (f *fakeConversation) SendMessage(text string) bool {
	if f.busy || text == "" {
		return false
	}
	f.sent = append(f.sent, text)
	return true
}

func (f *fakeConversation) Reset() { f.resets++ }

type fakeSessions struct {
	listing    directory.Listing
	active     string
	selected   []string
	newSession int
	refreshes  int
}

func (f *fakeSessions) Listing() directory.Listing { return f.listing }
func (f *fakeSessions) Active() string             { return f.active }
func (f *fakeSessions) Select(id string)           { f.selected = append(f.selected, id) }
func (f *fakeSessions) RequestNewSession()         { f.newSession++ }
func (f *fakeSessions) Refresh()                   { f.refreshes++ }

func newTestModel(conv *fakeConversation, sessions *fakeSessions) Model {
	m := New(conv, sessions, "Coven Chat")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func loaded(pairs ...string) directory.Listing {
	l := directory.Listing{State: directory.StateLoaded}
	for i := 0; i+1 < len(pairs); i += 2 {
		l.Contexts = append(l.Contexts, backend.ContextDescriptor{ID: pairs[i], Title: pairs[i+1]})
	}
	return l
}

func TestModel_EnterSendsAndClearsInput(t *testing.T) {
	conv := &fakeConversation{}
	m := newTestModel(conv, &fakeSessions{})

	m = typeText(t, m, "hello")
	assert.Equal(t, "hello", m.input.Value())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"hello"}, conv.sent)
	assert.Equal(t, "", m.input.Value())
}

func TestModel_RejectedSendKeepsInput(t *testing.T) {
	conv := &fakeConversation{busy: true}
	m := newTestModel(conv, &fakeSessions{})

	m = typeText(t, m, "queued")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, conv.sent)
	assert.Equal(t, "queued", m.input.Value())
}

func TestModel_InputCharLimit(t *testing.T) {
	m := newTestModel(&fakeConversation{}, &fakeSessions{})
	assert.Equal(t, inputCharLimit, m.input.CharLimit)
}

func TestModel_GlobalKeys(t *testing.T) {
	conv := &fakeConversation{}
	sessions := &fakeSessions{}
	m := newTestModel(conv, sessions)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})

	assert.Equal(t, 1, conv.resets)
	assert.Equal(t, 1, sessions.newSession)
	assert.Equal(t, 1, sessions.refreshes)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_SidebarNavigationSelects(t *testing.T) {
	sessions := &fakeSessions{listing: loaded("a", "Trip planning", "b", "Research")}
	m := newTestModel(&fakeConversation{}, sessions)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusSidebar, m.focus)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor, "cursor stops at the last entry")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"b"}, sessions.selected)

	// Typing in the sidebar does not reach the input.
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	assert.Equal(t, 0, m.cursor)
	assert.Equal(t, "", m.input.Value())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusInput, m.focus)
}

func TestModel_TranscriptRendering(t *testing.T) {
	conv := &fakeConversation{}
	m := newTestModel(conv, &fakeSessions{})
	assert.Contains(t, m.renderTranscript(), "No messages yet. Start a conversation!")

	conv.state = conversation.State{
		Busy: true,
		Transcript: []conversation.Message{
			{Sender: conversation.SenderUser, Body: "hello", Status: conversation.StatusFinal},
			{Sender: conversation.SenderAgent, Body: conversation.PendingBody, Status: conversation.StatusPending},
		},
	}
	m = update(t, m, transcriptChangedMsg{})

	out := m.renderTranscript()
	assert.Contains(t, out, "You")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "Thinking...")
	assert.Equal(t, placeholderBusy, m.input.Placeholder)
	assert.Contains(t, m.renderStatus(), "working")

	conv.state.Busy = false
	m = update(t, m, transcriptChangedMsg{})
	assert.Equal(t, placeholderReady, m.input.Placeholder)
}

func TestModel_SidebarStates(t *testing.T) {
	tests := []struct {
		name    string
		listing directory.Listing
		want    string
	}{
		{"loading", directory.Listing{State: directory.StateLoading}, "Loading..."},
		{"error", directory.Listing{State: directory.StateError}, "Failed to load conversations"},
		{"empty", directory.Listing{State: directory.StateLoaded}, "No conversations yet"},
		{"loaded", loaded("a", "Trip planning"), "Trip planning"},
		{"untitled falls back to id", loaded("ctx-7", ""), "ctx-7"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sessions := &fakeSessions{}
			m := newTestModel(&fakeConversation{}, sessions)
			sessions.listing = tc.listing
			m = update(t, m, directoryChangedMsg{})
			assert.Contains(t, m.renderSidebar(), tc.want)
		})
	}
}

func TestModel_CursorClampedOnShrink(t *testing.T) {
	sessions := &fakeSessions{listing: loaded("a", "A", "b", "B", "c", "C")}
	m := newTestModel(&fakeConversation{}, sessions)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})

	sessions.listing = loaded("a", "A")
	m = update(t, m, directoryChangedMsg{})
	assert.Equal(t, 0, m.cursor)
}

func TestModel_ToastInStatus(t *testing.T) {
	m := newTestModel(&fakeConversation{}, &fakeSessions{})

	m = update(t, m, toastMsg{n: notify.Notification{
		Title:       "Failed to send message",
		Description: "Could not connect to chat API. Please try again.",
		Severity:    notify.SeverityError,
	}})

	assert.Contains(t, m.renderStatus(), "Failed to send message: Could not connect to chat API. Please try again.")
	assert.NotEmpty(t, m.View())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

// collector records forwarded messages.
type collector struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (c *collector) send(msg tea.Msg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *collector) has(want tea.Msg) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.msgs {
		if m == want {
			return true
		}
	}
	return false
}

func TestForwarder_DeliversEventsAndToasts(t *testing.T) {
	ch := events.NewChannel(nil)
	c := &collector{}
	fwd := NewForwarder(ch, c.send)
	defer fwd.Close()

	ch.Publish(events.Event{Topic: events.TranscriptChanged})
	ch.Publish(events.Event{Topic: events.DirectoryChanged})
	toast := notify.Notification{Title: "Chat reset"}
	fwd.Notify(toast)

	require.Eventually(t, func() bool {
		return c.has(transcriptChangedMsg{}) && c.has(directoryChangedMsg{}) && c.has(toastMsg{n: toast})
	}, 2*time.Second, 10*time.Millisecond)
}

func TestForwarder_NeverBlocksPublisher(t *testing.T) {
	ch := events.NewChannel(nil)
	release := make(chan struct{})
	fwd := NewForwarder(ch, func(tea.Msg) { <-release })

	done := make(chan struct{})
	go func() {
		for range 100 {
			ch.Publish(events.Event{Topic: events.TranscriptChanged})
			fwd.Notify(notify.Notification{Title: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked on a stalled UI")
	}

	close(release)
	fwd.Close()
	assert.Equal(t, 0, ch.Subscribers(events.TranscriptChanged))
}
