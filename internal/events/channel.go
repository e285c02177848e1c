// ABOUTME: Synchronous in-process pub/sub hub for cross-surface session notifications
// ABOUTME: Fans out typed events to handlers in registration order with failure isolation

package events

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Topic identifies a kind of notification carried by the Channel.
type Topic int

const (
	SessionReset Topic = iota + 1
	SessionSwitchRequested
	NewSessionRequested
	ContextsChanged
	TranscriptChanged
	DirectoryChanged
)

var topicNames = map[Topic]string{
	SessionReset:           "session-reset",
	SessionSwitchRequested: "session-switch-requested",
	NewSessionRequested:    "new-session-requested",
	ContextsChanged:        "contexts-changed",
	TranscriptChanged:      "transcript-changed",
	DirectoryChanged:       "directory-changed",
}

// String returns the wire-style name of the topic.
func (t Topic) String() string {
	if name, ok := topicNames[t]; ok {
		return name
	}
	return fmt.Sprintf("topic(%d)", int(t))
}

// Valid reports whether t is one of the declared topics.
func (t Topic) Valid() bool {
	_, ok := topicNames[t]
	return ok
}

// Event is the payload delivered to handlers.
type Event struct {
	Topic      Topic
	ContextID  string // SessionSwitchRequested
	Generation uint64 // TranscriptChanged
}

// Handler receives published events. A returned error is logged and does not
// stop delivery to other handlers.
type Handler func(Event) error

type subscription struct {
	id      string
	handler Handler
}

// Channel is the process-wide event hub. It holds no domain state.
type Channel struct {
	mu     sync.RWMutex
	subs   map[Topic][]subscription
	logger *slog.Logger
}

// NewChannel creates a channel. Pass nil logger for default.
func NewChannel(logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		subs:   make(map[Topic][]subscription),
		logger: logger.With("component", "events"),
	}
}

// Subscribe registers handler for topic. It returns the subscription ID and
// a function that removes the subscription; calling it more than once is a
// no-op.
func (c *Channel) Subscribe(topic Topic, handler Handler) (string, func()) {
	subID := uuid.New().String()

	c.mu.Lock()
	c.subs[topic] = append(c.subs[topic], subscription{id: subID, handler: handler})
	c.mu.Unlock()

	c.logger.Debug("subscriber added", "topic", topic.String(), "sub_id", subID)

	var once sync.Once
	return subID, func() {
		once.Do(func() { c.Unsubscribe(topic, subID) })
	}
}

// Unsubscribe removes the subscription with the given ID from topic.
func (c *Channel) Unsubscribe(topic Topic, subID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.subs[topic]
	for i, s := range subs {
		if s.id != subID {
			continue
		}
		// Copy so an in-progress Publish keeps its own snapshot intact.
		next := make([]subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(c.subs, topic)
		} else {
			c.subs[topic] = next
		}
		c.logger.Debug("subscriber removed", "topic", topic.String(), "sub_id", subID)
		return
	}
}

// Subscribers returns the number of handlers registered for topic.
func (c *Channel) Subscribers(topic Topic) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs[topic])
}

// Publish delivers event to every handler subscribed to event.Topic at the
// time of the call.
func (c *Channel) Publish(event Event) {
	if !event.Topic.Valid() {
		c.logger.Warn("publish on unknown topic ignored", "topic", event.Topic.String())
		return
	}

	c.mu.RLock()
	targets := c.subs[event.Topic]
	c.mu.RUnlock()

	for _, s := range targets {
		c.dispatch(event, s)
	}
}

func (c *Channel) dispatch(event Event, s subscription) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event handler panicked",
				"topic", event.Topic.String(),
				"sub_id", s.id,
				"panic", r)
		}
	}()

	if err := s.handler(event); err != nil {
		c.logger.Warn("event handler failed",
			"topic", event.Topic.String(),
			"sub_id", s.id,
			"error", err)
	}
}
