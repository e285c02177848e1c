// Package backend is the typed boundary to the remote conversational backend.
//
// # Overview
//
// The backend is an opaque HTTP service speaking JSON. Client wraps its four
// conversation operations plus a liveness probe:
//
//   - Chat: POST /chat {"message": text} -> {"response": text}
//   - Reset: POST /reset -> {"message": text}
//   - LoadContext: POST /load-context {"id": id} (or ?id=) -> {"chat_history": [...]}
//   - ListContexts: GET /get-contexts -> {"contexts": {...} | "{...}"}
//   - Ping: GET / -> {"message": text}
//
// Each call is a single request/response exchange. The client never retries
// and never caches.
//
// # Normalisation
//
// Revisions of the backend disagree on payload shapes. The client absorbs the
// differences so callers only ever see one form:
//
//   - the chat reply field name is configurable (WithResponseField)
//   - history may be a flat list of strings (sender inferred from position,
//     even indexes are the user) or a list of tagged objects
//   - the context listing may be a JSON object or a string holding a JSON
//     object or a Python dict literal; a listing that cannot be parsed is
//     reported as empty rather than as an error
//
// # Errors
//
// Every failure is a *Error matching exactly one of ErrTransport (the backend
// could not be reached or answered with a non-2xx status) or
// ErrMalformedResponse (the body did not have the expected shape):
//
//	reply, err := c.Chat(ctx, "hello")
//	if errors.Is(err, backend.ErrTransport) {
//		// unreachable or non-2xx
//	}
package backend
