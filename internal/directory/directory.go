// ABOUTME: Session Directory: read model of backend contexts for the sidebar
// ABOUTME: Publishes switch and new-session requests and refreshes on ContextsChanged

package directory

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/2389/coven-chat/internal/backend"
	"github.com/2389/coven-chat/internal/events"
)

// Lister is what the directory needs from the backend.
type Lister interface {
	ListContexts(ctx context.Context) ([]backend.ContextDescriptor, error)
}

// State of a Listing.
type State int

const (
	StateLoading State = iota
	StateLoaded
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Listing is a snapshot of the directory read model.
type Listing struct {
	State      State
	Contexts   []backend.ContextDescriptor
	Err        error
	Refreshing bool
}

// Directory tracks the backend's contexts and the active selection.
type Directory struct {
	lister Lister
	events *events.Channel
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	unsubs []func()

	mu       sync.Mutex
	listing  Listing
	seq      uint64
	inFlight int
	active   string
	closed   bool
}

// New creates a directory in the Loading state. It subscribes to ch so that
// ContextsChanged triggers a refresh and session resets clear the selection.
func New(lister Lister, ch *events.Channel, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Directory{
		lister: lister,
		events: ch,
		logger: logger.With("component", "directory"),
		ctx:    ctx,
		cancel: cancel,
		listing: Listing{
			State:    StateLoading,
			Contexts: []backend.ContextDescriptor{},
		},
	}

	if ch != nil {
		_, unsubChanged := ch.Subscribe(events.ContextsChanged, func(events.Event) error {
			d.Refresh()
			return nil
		})
		clearSelection := func(events.Event) error {
			d.clearActive()
			return nil
		}
		_, unsubReset := ch.Subscribe(events.SessionReset, clearSelection)
		_, unsubNew := ch.Subscribe(events.NewSessionRequested, clearSelection)
		d.unsubs = append(d.unsubs, unsubChanged, unsubReset, unsubNew)
	}
	return d
}

// Listing returns the current read model.
func (d *Directory) Listing() Listing {
	d.mu.Lock()
	defer d.mu.Unlock()
	l := d.listing
	l.Contexts = append([]backend.ContextDescriptor(nil), d.listing.Contexts...)
	return l
}

// Active returns the id of the last selected context, or "".
func (d *Directory) Active() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Refresh starts a listing call. Results of older refreshes are discarded.
func (d *Directory) Refresh() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.seq++
	seq := d.seq
	d.inFlight++
	if d.listing.State != StateLoading {
		d.listing.Refreshing = true
	}
	d.wg.Add(1)
	d.mu.Unlock()

	d.publishChanged()
	go d.runRefresh(seq)
}

func (d *Directory) runRefresh(seq uint64) {
	defer d.wg.Done()

	contexts, err := d.lister.ListContexts(d.ctx)

	d.mu.Lock()
	d.inFlight--
	if d.closed {
		d.mu.Unlock()
		return
	}
	if seq != d.seq {
		d.listing.Refreshing = d.inFlight > 0
		d.mu.Unlock()
		d.logger.Debug("discarding stale listing", "issued_seq", seq)
		return
	}

	d.listing.Refreshing = false
	if err != nil {
		d.listing.Err = err
		// A failed refresh keeps a previously loaded list on screen.
		if d.listing.State != StateLoaded {
			d.listing.State = StateError
		}
	} else {
		d.listing = Listing{State: StateLoaded, Contexts: contexts}
		if d.listing.Contexts == nil {
			d.listing.Contexts = []backend.ContextDescriptor{}
		}
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Warn("listing contexts failed", "error", err)
	}
	d.publishChanged()
}

// Select marks id active and asks the controller to load it.
func (d *Directory) Select(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.active = id
	d.mu.Unlock()

	d.publishChanged()
	d.publish(events.Event{Topic: events.SessionSwitchRequested, ContextID: id})
}

// RequestNewSession asks the controller for a fresh session.
func (d *Directory) RequestNewSession() {
	d.publish(events.Event{Topic: events.NewSessionRequested})
}

// Wait blocks until every started refresh has settled.
func (d *Directory) Wait() {
	d.wg.Wait()
}

// Close unsubscribes, cancels running refreshes, and waits for them.
func (d *Directory) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	unsubs := d.unsubs
	d.unsubs = nil
	d.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	d.cancel()
	d.wg.Wait()
}

func (d *Directory) clearActive() {
	d.mu.Lock()
	changed := d.active != ""
	d.active = ""
	d.mu.Unlock()
	if changed {
		d.publishChanged()
	}
}

func (d *Directory) publishChanged() {
	d.publish(events.Event{Topic: events.DirectoryChanged})
}

func (d *Directory) publish(e events.Event) {
	if d.events != nil {
		d.events.Publish(e)
	}
}
