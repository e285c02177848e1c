// Package conversation owns the single active chat session shown by the
// message panel.
//
// # Overview
//
// The Controller holds the canonical transcript and drives the three remote
// operations that change it: sending a message, resetting the session, and
// loading a persisted context. Views never mutate the transcript; they call
// Controller methods and re-render on TranscriptChanged:
//
//	ch := events.NewChannel(logger)
//	ctrl := conversation.New(gw, ch, conversation.WithNotifier(center))
//	ctrl.SendMessage("hello")
//
// # Generations
//
// Every operation that replaces the transcript wholesale (Reset, LoadContext)
// advances the generation counter. Remote calls run on their own goroutines
// and record the generation they were issued under; on completion the result
// is applied only if the generation is unchanged. Stale results are dropped
// without touching the transcript, so a slow reply can never land in a
// session the user has already left.
//
// # Busy
//
// At most one operation is in flight from the controller's point of view.
// Each send, reset, or load takes a fresh operation token and busy is set
// while a token is held. A completion clears busy only if its token is still
// the current one, so a superseded send cannot unlock the input of the load
// that replaced it.
//
// # Journal
//
// When a Journal is configured, final messages from live exchanges are
// recorded under SessionID. Journal writes use their own timeout and never
// block the transcript.
package conversation
