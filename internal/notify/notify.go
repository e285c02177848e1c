// ABOUTME: Transient user-facing notifications ("toasts") raised by chat operations
// ABOUTME: Center fans notifications out to sinks and suppresses repeats inside a window

// Package notify carries transient notifications from the chat engine to
// whatever surface presents them.
package notify

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"
)

// Severity of a notification.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "info"
}

// Notification is a short-lived message for the user.
type Notification struct {
	Title       string
	Description string
	Severity    Severity
	At          time.Time
}

// Notifier accepts notifications.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(Notification) {})

// maxRemembered bounds the suppression memory.
const maxRemembered = 256

type seenEntry struct {
	at      time.Time
	element *list.Element
}

// Center delivers notifications to its sinks. An identical notification
// (same severity, title, and description) seen within the window is dropped.
type Center struct {
	mu     sync.Mutex
	sinks  []Notifier
	window time.Duration
	seen   map[string]*seenEntry
	order  *list.List // keys, oldest at front
	now    func() time.Time
	logger *slog.Logger
}

// NewCenter creates a center. A zero window disables suppression.
func NewCenter(window time.Duration, logger *slog.Logger) *Center {
	if logger == nil {
		logger = slog.Default()
	}
	return &Center{
		window: window,
		seen:   make(map[string]*seenEntry),
		order:  list.New(),
		now:    time.Now,
		logger: logger.With("component", "notify"),
	}
}

// AddSink registers a sink. Sinks receive notifications in registration order.
func (c *Center) AddSink(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, n)
}

// Notify stamps n if needed and forwards it unless it is a recent duplicate.
func (c *Center) Notify(n Notification) {
	c.mu.Lock()
	now := c.now()
	if n.At.IsZero() {
		n.At = now
	}
	if c.suppressLocked(n, now) {
		c.mu.Unlock()
		c.logger.Debug("duplicate notification suppressed", "title", n.Title)
		return
	}
	sinks := c.sinks
	c.mu.Unlock()

	for _, s := range sinks {
		s.Notify(n)
	}
}

// suppressLocked reports whether n repeats a notification inside the window,
// recording it otherwise. Must be called with mu held.
func (c *Center) suppressLocked(n Notification, now time.Time) bool {
	if c.window <= 0 {
		return false
	}

	c.pruneLocked(now)

	key := n.Severity.String() + "\x00" + n.Title + "\x00" + n.Description
	if _, ok := c.seen[key]; ok {
		return true
	}

	if len(c.seen) >= maxRemembered {
		c.evictOldestLocked()
	}
	c.seen[key] = &seenEntry{at: now, element: c.order.PushBack(key)}
	return false
}

// pruneLocked drops entries older than the window; the list is time ordered.
func (c *Center) pruneLocked(now time.Time) {
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		key, _ := front.Value.(string)
		entry := c.seen[key]
		if entry != nil && now.Sub(entry.at) < c.window {
			return
		}
		c.order.Remove(front)
		delete(c.seen, key)
	}
}

func (c *Center) evictOldestLocked() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, key)
}

// LogSink writes notifications to a logger.
type LogSink struct {
	Logger *slog.Logger
}

// Notify logs n at info or error level.
func (s LogSink) Notify(n Notification) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if n.Severity == SeverityError {
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, n.Title, "description", n.Description, "component", "notify")
}
