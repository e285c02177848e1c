// Package events provides the in-process Event Channel shared by the chat
// surfaces.
//
// # Overview
//
// The message panel and the session sidebar never call each other. They
// observe and mutate the same logical session through a single Channel
// instance that is constructed once by the entry point and injected into the
// Conversation Controller, the Session Directory, and the view adapters:
//
//	ch := events.NewChannel(logger)
//	ctrl := conversation.New(gw, ch)
//	dir := directory.New(gw, ch, logger)
//
// # Topics
//
// Topics form a closed set:
//
//   - SessionReset: the active session was reset (no payload)
//   - SessionSwitchRequested: a context was selected (ContextID)
//   - NewSessionRequested: the user asked for a fresh session (no payload)
//   - ContextsChanged: the persisted session listing may have changed
//   - TranscriptChanged: the controller mutated the transcript (Generation)
//   - DirectoryChanged: the directory read model changed
//
// # Delivery
//
// Publish is synchronous. Handlers run in registration order, at most once
// per Publish call, on the publishing goroutine. A handler that returns an
// error or panics is logged and skipped; the remaining handlers still run.
// Handlers are invoked without the channel lock held, so they may publish,
// subscribe, or unsubscribe.
package events
