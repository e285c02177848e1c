// ABOUTME: Tests for the Session Directory read model
// ABOUTME: Covers listing states, refresh ordering, selection events, and the wire scenario

package directory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/backend"
	"github.com/2389/coven-chat/internal/events"
)

type listResult struct {
	contexts []backend.ContextDescriptor
	err      error
}

// gatedLister blocks each ListContexts call until the test releases it.
type gatedLister struct {
	calls chan chan listResult
}

func newGatedLister() *gatedLister {
	return &gatedLister{calls: make(chan chan listResult, 8)}
}

func (l *gatedLister) ListContexts(ctx context.Context) ([]backend.ContextDescriptor, error) {
	release := make(chan listResult, 1)
	l.calls <- release
	select {
	case r := <-release:
		return r.contexts, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *gatedLister) next(t *testing.T) chan listResult {
	t.Helper()
	select {
	case c := <-l.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ListContexts")
		return nil
	}
}

func descriptors(pairs ...string) []backend.ContextDescriptor {
	var out []backend.ContextDescriptor
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, backend.ContextDescriptor{ID: pairs[i], Title: pairs[i+1]})
	}
	return out
}

func TestDirectory_InitialLoading(t *testing.T) {
	d := New(newGatedLister(), nil, nil)
	defer d.Close()

	l := d.Listing()
	assert.Equal(t, StateLoading, l.State)
	assert.Empty(t, l.Contexts)
	assert.False(t, l.Refreshing)
}

func TestDirectory_RefreshLoads(t *testing.T) {
	lister := newGatedLister()
	d := New(lister, nil, nil)
	defer d.Close()

	d.Refresh()
	lister.next(t) <- listResult{contexts: descriptors("a", "Trip planning", "b", "Research")}
	d.Wait()

	l := d.Listing()
	assert.Equal(t, StateLoaded, l.State)
	assert.Equal(t, descriptors("a", "Trip planning", "b", "Research"), l.Contexts)
	assert.NoError(t, l.Err)
}

func TestDirectory_ErrorState(t *testing.T) {
	lister := newGatedLister()
	d := New(lister, nil, nil)
	defer d.Close()

	d.Refresh()
	lister.next(t) <- listResult{err: errors.New("unreachable")}
	d.Wait()

	l := d.Listing()
	assert.Equal(t, StateError, l.State)
	assert.EqualError(t, l.Err, "unreachable")
}

func TestDirectory_RefreshKeepsPreviousList(t *testing.T) {
	lister := newGatedLister()
	d := New(lister, nil, nil)
	defer d.Close()

	d.Refresh()
	lister.next(t) <- listResult{contexts: descriptors("a", "One")}
	d.Wait()

	d.Refresh()
	release := lister.next(t)
	l := d.Listing()
	assert.Equal(t, StateLoaded, l.State)
	assert.True(t, l.Refreshing)
	assert.Equal(t, descriptors("a", "One"), l.Contexts)

	// A failed refresh keeps the loaded list and reports the error.
	release <- listResult{err: errors.New("timeout")}
	d.Wait()
	l = d.Listing()
	assert.Equal(t, StateLoaded, l.State)
	assert.False(t, l.Refreshing)
	assert.Equal(t, descriptors("a", "One"), l.Contexts)
	assert.Error(t, l.Err)
}

func TestDirectory_StaleRefreshDiscarded(t *testing.T) {
	lister := newGatedLister()
	d := New(lister, nil, nil)
	defer d.Close()

	d.Refresh()
	first := lister.next(t)
	d.Refresh()
	second := lister.next(t)

	second <- listResult{contexts: descriptors("new", "Newest")}
	first <- listResult{contexts: descriptors("old", "Outdated")}
	d.Wait()

	l := d.Listing()
	assert.Equal(t, descriptors("new", "Newest"), l.Contexts)
	assert.False(t, l.Refreshing)
}

func TestDirectory_SelectPublishesSwitch(t *testing.T) {
	ch := events.NewChannel(nil)
	d := New(newGatedLister(), ch, nil)
	defer d.Close()

	var got []events.Event
	ch.Subscribe(events.SessionSwitchRequested, func(e events.Event) error {
		got = append(got, e)
		return nil
	})

	d.Select("ctx-1")
	d.Select("   ")

	require.Len(t, got, 1)
	assert.Equal(t, "ctx-1", got[0].ContextID)
	assert.Equal(t, "ctx-1", d.Active())
}

func TestDirectory_NewSessionClearsActive(t *testing.T) {
	ch := events.NewChannel(nil)
	d := New(newGatedLister(), ch, nil)
	defer d.Close()

	requested := 0
	ch.Subscribe(events.NewSessionRequested, func(events.Event) error {
		requested++
		return nil
	})

	d.Select("ctx-1")
	d.RequestNewSession()

	assert.Equal(t, 1, requested)
	assert.Equal(t, "", d.Active())

	d.Select("ctx-2")
	ch.Publish(events.Event{Topic: events.SessionReset})
	assert.Equal(t, "", d.Active())
}

func TestDirectory_ContextsChangedTriggersRefresh(t *testing.T) {
	ch := events.NewChannel(nil)
	lister := newGatedLister()
	d := New(lister, ch, nil)
	defer d.Close()

	var mu sync.Mutex
	changes := 0
	ch.Subscribe(events.DirectoryChanged, func(events.Event) error {
		mu.Lock()
		changes++
		mu.Unlock()
		return nil
	})

	ch.Publish(events.Event{Topic: events.ContextsChanged})
	lister.next(t) <- listResult{contexts: descriptors("a", "Trip")}
	d.Wait()

	assert.Equal(t, descriptors("a", "Trip"), d.Listing().Contexts)
	mu.Lock()
	assert.Equal(t, 2, changes)
	mu.Unlock()
}

func TestDirectory_StringEncodedListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get-contexts", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"contexts": "{'a': 'Trip planning'}"}`))
	}))
	defer srv.Close()

	d := New(backend.New(srv.URL), nil, nil)
	defer d.Close()

	d.Refresh()
	d.Wait()

	l := d.Listing()
	assert.Equal(t, StateLoaded, l.State)
	assert.Equal(t, []backend.ContextDescriptor{{ID: "a", Title: "Trip planning"}}, l.Contexts)
}

func TestDirectory_CloseStopsRefresh(t *testing.T) {
	ch := events.NewChannel(nil)
	lister := newGatedLister()
	d := New(lister, ch, nil)

	d.Refresh()
	lister.next(t)
	d.Close()

	assert.Equal(t, StateLoading, d.Listing().State)
	assert.Equal(t, 0, ch.Subscribers(events.ContextsChanged))

	d.Refresh()
	select {
	case <-lister.calls:
		t.Fatal("refresh after close reached the lister")
	default:
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "loaded", StateLoaded.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "unknown", State(99).String())
}
