// ABOUTME: HTTP client for the remote conversational backend (chat, reset, contexts)
// ABOUTME: Translates JSON request/response exchanges into typed results without retries

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultResponseField is the chat reply field used by current backends.
	DefaultResponseField = "response"

	// DefaultTimeout bounds a single request. Agent workflows can be slow.
	DefaultTimeout = 60 * time.Second

	// maxErrorBody caps how much of a non-2xx body is read for diagnostics.
	maxErrorBody = 64 << 10
)

// LoadContextMode selects how the context id is sent to /load-context.
type LoadContextMode string

const (
	LoadContextBody  LoadContextMode = "body"
	LoadContextQuery LoadContextMode = "query"
)

// Role is the author of a history entry.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// ChatReply is the agent's answer to a chat message.
type ChatReply struct {
	Body string
}

// ResetAck is the backend's acknowledgement of a reset.
type ResetAck struct {
	Acknowledgement string
}

// HistoryEntry is one message of a loaded context, in canonical form.
type HistoryEntry struct {
	Role Role
	Body string
}

// ContextDescriptor identifies a persisted conversation known to the backend.
type ContextDescriptor struct {
	ID    string
	Title string
}

// Client talks to the backend over HTTP.
type Client struct {
	baseURL       string
	client        *http.Client
	responseField string
	loadMode      LoadContextMode
	token         string
	logger        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the per-request timeout on the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithResponseField sets the JSON field holding the chat reply.
func WithResponseField(field string) Option {
	return func(c *Client) {
		if field != "" {
			c.responseField = field
		}
	}
}

// WithLoadContextMode chooses between a JSON body and a query parameter.
func WithLoadContextMode(mode LoadContextMode) Option {
	return func(c *Client) {
		if mode != "" {
			c.loadMode = mode
		}
	}
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		client:        &http.Client{Timeout: DefaultTimeout},
		responseField: DefaultResponseField,
		loadMode:      LoadContextBody,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "backend")
	return c
}

// BaseURL returns the normalised base address.
func (c *Client) BaseURL() string { return c.baseURL }

// Chat sends a user message and returns the agent's reply.
func (c *Client) Chat(ctx context.Context, text string) (ChatReply, error) {
	const op = "chat"

	obj, err := c.exchange(ctx, op, http.MethodPost, "/chat", nil, map[string]string{"message": text})
	if err != nil {
		return ChatReply{}, err
	}

	body, err := optionalString(obj, c.responseField)
	if err != nil {
		return ChatReply{}, malformedError(op, err)
	}
	return ChatReply{Body: body}, nil
}

// Reset asks the backend to discard its current conversation state.
func (c *Client) Reset(ctx context.Context) (ResetAck, error) {
	const op = "reset"

	obj, err := c.exchange(ctx, op, http.MethodPost, "/reset", nil, nil)
	if err != nil {
		return ResetAck{}, err
	}

	// The reset already happened remotely; an odd acknowledgement is not fatal.
	ack, err := optionalString(obj, "message")
	if err != nil {
		c.logger.Debug("ignoring non-string reset acknowledgement", "error", err)
		ack = ""
	}
	return ResetAck{Acknowledgement: ack}, nil
}

// LoadContext makes id the backend's active conversation and returns its history.
func (c *Client) LoadContext(ctx context.Context, id string) ([]HistoryEntry, error) {
	const op = "load_context"

	var (
		query url.Values
		body  any
	)
	if c.loadMode == LoadContextQuery {
		query = url.Values{"id": []string{id}}
	} else {
		body = map[string]string{"id": id}
	}

	obj, err := c.exchange(ctx, op, http.MethodPost, "/load-context", query, body)
	if err != nil {
		return nil, err
	}

	history, err := normalizeHistory(obj["chat_history"])
	if err != nil {
		return nil, malformedError(op, err)
	}
	return history, nil
}

// ListContexts returns the contexts known to the backend, in payload order.
// A payload that cannot be understood yields an empty list, not an error.
func (c *Client) ListContexts(ctx context.Context) ([]ContextDescriptor, error) {
	const op = "list_contexts"

	obj, err := c.exchange(ctx, op, http.MethodGet, "/get-contexts", nil, nil)
	if err != nil {
		if errors.Is(err, ErrMalformedResponse) {
			c.logger.Warn("context listing unreadable, treating as empty", "error", err)
			return []ContextDescriptor{}, nil
		}
		return nil, err
	}

	descriptors, err := normalizeContexts(obj["contexts"])
	if err != nil {
		c.logger.Warn("context listing malformed, treating as empty", "error", err)
		return []ContextDescriptor{}, nil
	}
	return descriptors, nil
}

// Ping fetches the backend's root greeting.
func (c *Client) Ping(ctx context.Context) (string, error) {
	const op = "ping"

	obj, err := c.exchange(ctx, op, http.MethodGet, "/", nil, nil)
	if err != nil {
		return "", err
	}
	msg, err := optionalString(obj, "message")
	if err != nil {
		return "", malformedError(op, err)
	}
	return msg, nil
}

// exchange performs one request and decodes the response as a JSON object.
func (c *Client) exchange(ctx context.Context, op, method, path string, query url.Values, payload any) (map[string]json.RawMessage, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, transportError(op, fmt.Errorf("marshaling request: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, transportError(op, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(op, fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	c.logger.Debug("backend exchange",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorResponse(op, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(op, fmt.Errorf("reading response: %w", err))
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, malformedError(op, fmt.Errorf("decoding response: %w", err))
	}
	if obj == nil {
		return nil, malformedError(op, errors.New("response is not a JSON object"))
	}
	return obj, nil
}

// errorResponse builds a transport error from a non-2xx response, extracting
// the FastAPI "detail" or a generic "error" field when present.
func errorResponse(op string, resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	e := &Error{
		Kind:       KindTransport,
		Op:         op,
		StatusCode: resp.StatusCode,
	}

	var parsed struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		switch d := parsed.Detail.(type) {
		case string:
			e.Detail = d
		case nil:
			e.Detail = parsed.Error
		default:
			if raw, err := json.Marshal(d); err == nil {
				e.Detail = string(raw)
			}
		}
	} else {
		e.Detail = strings.TrimSpace(string(body))
	}
	return e
}

// optionalString reads obj[field] as a string. Absent and null fields yield "".
func optionalString(obj map[string]json.RawMessage, field string) (string, error) {
	raw, ok := obj[field]
	if !ok || isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("field %q is not a string", field)
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
