// ABOUTME: Controller owns the active transcript and applies async backend results
// ABOUTME: A generation counter discards stale results after reset or context switches

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-chat/internal/backend"
	"github.com/2389/coven-chat/internal/events"
	"github.com/2389/coven-chat/internal/notify"
)

const (
	// PendingBody is shown while the agent reply is outstanding.
	PendingBody = "Thinking..."

	// SendFailedBody replaces the placeholder when a send fails.
	SendFailedBody = "Error: Unable to fetch a response."

	defaultResetAck = "Workflow reset successfully."
	journalTimeout  = 5 * time.Second
)

// Gateway is what the controller needs from the backend.
type Gateway interface {
	Chat(ctx context.Context, text string) (backend.ChatReply, error)
	Reset(ctx context.Context) (backend.ResetAck, error)
	LoadContext(ctx context.Context, id string) ([]backend.HistoryEntry, error)
}

// Journal records settled messages locally.
type Journal interface {
	StartSession(ctx context.Context, sessionID, contextID string) error
	AppendMessage(ctx context.Context, sessionID string, msg Message) error
}

// State is a consistent snapshot of the controller.
type State struct {
	Transcript []Message
	Busy       bool
	Generation uint64
	ContextID  string
	SessionID  string
}

// Controller serialises every mutation of the active session.
type Controller struct {
	gateway  Gateway
	events   *events.Channel
	notifier notify.Notifier
	journal  Journal
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	unsubs []func()

	mu         sync.Mutex
	transcript []Message
	generation uint64
	opSeq      uint64
	activeOp   uint64 // 0 when idle
	contextID  string
	sessionID  string
	closed     bool

	journalMu      sync.Mutex
	journalSession string // last session started in the journal
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithNotifier routes user-facing notifications to n.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithJournal records settled messages to j.
func WithJournal(j Journal) Option {
	return func(c *Controller) { c.journal = j }
}

// New creates a controller with an empty transcript at generation 0 and
// subscribes it to session switch and new session requests on ch.
func New(gateway Gateway, ch *events.Channel, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		gateway:    gateway,
		events:     ch,
		notifier:   notify.Discard,
		logger:     slog.Default(),
		ctx:        ctx,
		cancel:     cancel,
		transcript: []Message{},
		sessionID:  uuid.New().String(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "conversation")

	if ch != nil {
		_, unsubSwitch := ch.Subscribe(events.SessionSwitchRequested, func(e events.Event) error {
			if !c.LoadContext(e.ContextID) {
				return fmt.Errorf("switch to %q not accepted", e.ContextID)
			}
			return nil
		})
		_, unsubNew := ch.Subscribe(events.NewSessionRequested, func(events.Event) error {
			c.Reset()
			return nil
		})
		c.unsubs = append(c.unsubs, unsubSwitch, unsubNew)
	}
	return c
}

// Transcript returns a copy of the current transcript.
func (c *Controller) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.transcript...)
}

// Busy reports whether an operation is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeOp != 0
}

// Generation returns the current generation.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// ContextID returns the loaded context id, or "" for a fresh session.
func (c *Controller) ContextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contextID
}

// SessionID returns the journal key of the current transcript.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Snapshot returns the whole state under one lock.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Transcript: append([]Message(nil), c.transcript...),
		Busy:       c.activeOp != 0,
		Generation: c.generation,
		ContextID:  c.contextID,
		SessionID:  c.sessionID,
	}
}

// SendMessage appends text and a pending placeholder, then asks the backend
// for a reply. It returns false without side effects when text is blank or an
// operation is already in flight.
func (c *Controller) SendMessage(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if c.activeOp != 0 {
		c.mu.Unlock()
		c.logger.Debug("send rejected while busy")
		return false
	}
	gen := c.generation
	token := c.beginOpLocked()
	session, contextID := c.sessionID, c.contextID
	user := Message{Sender: SenderUser, Body: text, Status: StatusFinal}
	c.transcript = append(c.transcript, user, Message{Sender: SenderAgent, Body: PendingBody, Status: StatusPending})
	c.wg.Add(1)
	c.mu.Unlock()

	c.publishTranscript(gen)
	go c.runSend(gen, token, session, contextID, user)
	return true
}

func (c *Controller) runSend(gen, token uint64, session, contextID string, user Message) {
	defer c.wg.Done()

	c.record(session, contextID, user)
	reply, err := c.gateway.Chat(c.ctx, user.Body)

	c.mu.Lock()
	changed := c.finishOpLocked(token)
	if c.closed || c.generation != gen {
		current, closed := c.generation, c.closed
		c.mu.Unlock()
		c.logger.Debug("discarding stale chat result",
			"issued_generation", gen,
			"current_generation", current,
			"closed", closed,
			"error", err)
		if changed {
			c.publishTranscript(current)
		}
		if err == nil && !closed {
			c.publish(events.Event{Topic: events.ContextsChanged, Generation: current})
		}
		return
	}

	c.removePendingLocked()
	msg := Message{Sender: SenderAgent, Body: reply.Body, Status: StatusFinal}
	if err != nil {
		msg = Message{Sender: SenderSystem, Body: SendFailedBody, Status: StatusFinal}
	}
	c.transcript = append(c.transcript, msg)
	c.mu.Unlock()

	c.publishTranscript(gen)

	if err != nil {
		c.logger.Warn("chat failed", "error", err)
		c.notify("Failed to send message", describeError(err), notify.SeverityError)
		return
	}
	c.record(session, contextID, msg)
	c.publish(events.Event{Topic: events.ContextsChanged, Generation: gen})
}

// Reset clears the transcript immediately, starts a new generation, and asks
// the backend to discard its conversation state.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.bumpLocked()
	c.transcript = []Message{}
	c.contextID = ""
	c.sessionID = uuid.New().String()
	gen := c.generation
	token := c.beginOpLocked()
	c.wg.Add(1)
	c.mu.Unlock()

	c.publishTranscript(gen)
	go c.runReset(gen, token)
}

func (c *Controller) runReset(gen, token uint64) {
	defer c.wg.Done()

	ack, err := c.gateway.Reset(c.ctx)

	c.mu.Lock()
	changed := c.finishOpLocked(token)
	current, closed := c.generation, c.closed
	stale := closed || current != gen
	c.mu.Unlock()

	if changed {
		c.publishTranscript(current)
	}
	if closed {
		return
	}

	if err != nil {
		c.logger.Warn("reset failed", "error", err, "stale", stale)
		if !stale {
			c.notify("Failed to reset chat", describeError(err), notify.SeverityError)
		}
		return
	}

	c.publish(events.Event{Topic: events.ContextsChanged, Generation: current})
	if stale {
		c.logger.Debug("reset acknowledged after newer operation",
			"issued_generation", gen,
			"current_generation", current)
		return
	}

	msg := ack.Acknowledgement
	if msg == "" {
		msg = defaultResetAck
	}
	c.notify("Chat reset", msg, notify.SeverityInfo)
	c.publish(events.Event{Topic: events.SessionReset, Generation: gen})
}

// LoadContext makes id the active conversation. The current transcript stays
// visible until the history arrives; on failure it is kept. It returns false
// when id is blank.
func (c *Controller) LoadContext(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.bumpLocked()
	gen := c.generation
	token := c.beginOpLocked()
	c.wg.Add(1)
	c.mu.Unlock()

	c.publishTranscript(gen)
	go c.runLoad(gen, token, id)
	return true
}

func (c *Controller) runLoad(gen, token uint64, id string) {
	defer c.wg.Done()

	history, err := c.gateway.LoadContext(c.ctx, id)

	c.mu.Lock()
	changed := c.finishOpLocked(token)
	if c.closed || c.generation != gen {
		current := c.generation
		c.mu.Unlock()
		c.logger.Debug("discarding stale load result",
			"context_id", id,
			"issued_generation", gen,
			"current_generation", current)
		if changed {
			c.publishTranscript(current)
		}
		return
	}

	if err != nil {
		c.mu.Unlock()
		c.publishTranscript(gen)
		c.logger.Warn("load context failed", "context_id", id, "error", err)
		c.notify("Failed to load the conversation", describeError(err), notify.SeverityError)
		return
	}

	c.transcript = messagesFromHistory(history)
	c.contextID = id
	c.sessionID = uuid.New().String()
	session := c.sessionID
	c.mu.Unlock()

	c.publishTranscript(gen)
	c.startJournal(session, id)
	c.notify("Chat loaded", fmt.Sprintf("Loaded %d messages", len(history)), notify.SeverityInfo)
}

// Wait blocks until every in-flight operation has been applied or discarded.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close unsubscribes from the channel, cancels in-flight requests, and waits
// for their goroutines. Later operations are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	c.cancel()
	c.wg.Wait()
}

// bumpLocked advances the generation and drops the placeholder of any
// superseded send. Caller holds c.mu.
func (c *Controller) bumpLocked() {
	c.generation++
	c.removePendingLocked()
}

func (c *Controller) beginOpLocked() uint64 {
	c.opSeq++
	c.activeOp = c.opSeq
	return c.activeOp
}

// finishOpLocked clears busy if token is still current.
func (c *Controller) finishOpLocked(token uint64) bool {
	if c.activeOp != token {
		return false
	}
	c.activeOp = 0
	return true
}

func (c *Controller) removePendingLocked() {
	kept := c.transcript[:0]
	for _, m := range c.transcript {
		if !m.Pending() {
			kept = append(kept, m)
		}
	}
	c.transcript = kept
}

func (c *Controller) publishTranscript(gen uint64) {
	c.publish(events.Event{Topic: events.TranscriptChanged, Generation: gen})
}

func (c *Controller) publish(e events.Event) {
	if c.events != nil {
		c.events.Publish(e)
	}
}

func (c *Controller) notify(title, description string, severity notify.Severity) {
	c.notifier.Notify(notify.Notification{
		Title:       title,
		Description: description,
		Severity:    severity,
	})
}

// startJournal opens a journal session; failures are logged only.
func (c *Controller) startJournal(session, contextID string) {
	if c.journal == nil {
		return
	}
	c.journalMu.Lock()
	defer c.journalMu.Unlock()
	c.startJournalLocked(session, contextID)
}

func (c *Controller) startJournalLocked(session, contextID string) bool {
	if c.journalSession == session {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	if err := c.journal.StartSession(ctx, session, contextID); err != nil {
		c.logger.Error("failed to start journal session",
			"error", err,
			"session_id", session,
			"context_id", contextID)
		return false
	}
	c.journalSession = session
	return true
}

// record appends msg to the journal under session, starting it if needed.
func (c *Controller) record(session, contextID string, msg Message) {
	if c.journal == nil {
		return
	}
	c.journalMu.Lock()
	defer c.journalMu.Unlock()

	if !c.startJournalLocked(session, contextID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	if err := c.journal.AppendMessage(ctx, session, msg); err != nil {
		c.logger.Error("failed to journal message",
			"error", err,
			"session_id", session,
			"sender", msg.Sender)
		return
	}
	c.logger.Debug("message journaled", "session_id", session, "sender", msg.Sender)
}

// describeError turns a gateway failure into notification text.
func describeError(err error) string {
	var be *backend.Error
	if !errors.As(err, &be) {
		return err.Error()
	}
	switch {
	case be.Kind == backend.KindTransport && be.StatusCode == 0:
		return "Could not connect to chat API. Please try again."
	case be.Kind == backend.KindMalformed:
		return "The backend sent an unexpected response."
	case be.Detail != "":
		return fmt.Sprintf("Backend returned status %d: %s", be.StatusCode, be.Detail)
	default:
		return fmt.Sprintf("Backend returned status %d", be.StatusCode)
	}
}
