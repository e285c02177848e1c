// ABOUTME: Forwards Event Channel notifications and toasts into the Bubble Tea program
// ABOUTME: Coalesces re-render signals on a pump goroutine so publishers never block on the UI

package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389/coven-chat/internal/events"
	"github.com/2389/coven-chat/internal/notify"
)

// maxQueuedToasts bounds toasts waiting for the UI; extras are dropped.
const maxQueuedToasts = 16

type transcriptChangedMsg struct{}

type directoryChangedMsg struct{}

type toastMsg struct {
	n notify.Notification
}

// Forwarder turns channel events into tea messages. Publishing may happen
// inside Update, so handlers only signal the pump and return.
type Forwarder struct {
	send func(tea.Msg)

	transcript chan struct{}
	directory  chan struct{}
	toasts     chan notify.Notification
	done       chan struct{}

	wg        sync.WaitGroup
	closeOnce sync.Once
	unsubs    []func()
}

// NewForwarder subscribes to the render topics on ch and starts delivering
// to send, typically (*tea.Program).Send.
func NewForwarder(ch *events.Channel, send func(tea.Msg)) *Forwarder {
	f := &Forwarder{
		send:       send,
		transcript: make(chan struct{}, 1),
		directory:  make(chan struct{}, 1),
		toasts:     make(chan notify.Notification, maxQueuedToasts),
		done:       make(chan struct{}),
	}

	_, unsubTranscript := ch.Subscribe(events.TranscriptChanged, func(events.Event) error {
		signal(f.transcript)
		return nil
	})
	_, unsubDirectory := ch.Subscribe(events.DirectoryChanged, func(events.Event) error {
		signal(f.directory)
		return nil
	})
	f.unsubs = []func(){unsubTranscript, unsubDirectory}

	// Changes made before the subscription existed still need a render.
	signal(f.transcript)
	signal(f.directory)

	f.wg.Add(1)
	go f.pump()
	return f
}

// Notify queues a toast. It implements notify.Notifier.
func (f *Forwarder) Notify(n notify.Notification) {
	select {
	case <-f.done:
	case f.toasts <- n:
	default:
	}
}

// Close unsubscribes and stops the pump.
func (f *Forwarder) Close() {
	f.closeOnce.Do(func() {
		for _, unsub := range f.unsubs {
			unsub()
		}
		close(f.done)
	})
	f.wg.Wait()
}

func (f *Forwarder) pump() {
	defer f.wg.Done()
	for {
		select {
		case <-f.done:
			return
		case <-f.transcript:
			f.send(transcriptChangedMsg{})
		case <-f.directory:
			f.send(directoryChangedMsg{})
		case n := <-f.toasts:
			f.send(toastMsg{n: n})
		}
	}
}

func signal(c chan struct{}) {
	select {
	case c <- struct{}{}:
	default:
	}
}
