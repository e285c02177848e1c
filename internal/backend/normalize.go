// ABOUTME: Normalises the backend's varying history and context-listing payload shapes
// ABOUTME: Produces canonical HistoryEntry and ContextDescriptor slices for callers

package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// contentKeys are tried in order for the body of a tagged history message.
var contentKeys = []string{"content", "body", "text", "message"}

// normalizeHistory converts a chat_history payload into canonical entries.
// Untagged entries take their role from position: even indexes are the user.
func normalizeHistory(raw json.RawMessage) ([]HistoryEntry, error) {
	if isNull(raw) {
		return []HistoryEntry{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("chat_history is not a list: %w", err)
	}

	history := make([]HistoryEntry, 0, len(items))
	for i, item := range items {
		entry, err := normalizeHistoryItem(i, item)
		if err != nil {
			return nil, fmt.Errorf("chat_history[%d]: %w", i, err)
		}
		history = append(history, entry)
	}
	return history, nil
}

func normalizeHistoryItem(index int, raw json.RawMessage) (HistoryEntry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return HistoryEntry{}, errors.New("empty entry")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return HistoryEntry{}, err
		}
		return HistoryEntry{Role: roleByPosition(index), Body: s}, nil

	case '{':
		var obj map[string]any
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return HistoryEntry{}, err
		}
		role, ok := roleFromTag(obj)
		if !ok {
			role = roleByPosition(index)
		}
		return HistoryEntry{Role: role, Body: contentOf(obj)}, nil

	default:
		return HistoryEntry{}, fmt.Errorf("unsupported entry %s", truncate(string(trimmed), 40))
	}
}

func roleByPosition(index int) Role {
	if index%2 == 0 {
		return RoleUser
	}
	return RoleAgent
}

func roleFromTag(obj map[string]any) (Role, bool) {
	for _, key := range []string{"sender", "role"} {
		tag, ok := obj[key].(string)
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(tag)) {
		case "user", "human":
			return RoleUser, true
		case "agent", "assistant", "ai", "model", "bot":
			return RoleAgent, true
		case "system":
			return RoleSystem, true
		}
	}
	return "", false
}

// contentOf returns the message text of a tagged entry. Entries carrying
// content blocks instead of a flat string have their text blocks joined.
func contentOf(obj map[string]any) string {
	for _, key := range contentKeys {
		if s, ok := obj[key].(string); ok {
			return s
		}
	}

	blocks, ok := obj["blocks"].([]any)
	if !ok {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		block, ok := b.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := block["text"].(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// normalizeContexts converts a contexts payload into descriptors. The payload
// is a JSON object or a string holding a JSON object or Python dict literal.
func normalizeContexts(raw json.RawMessage) ([]ContextDescriptor, error) {
	trimmed := bytes.TrimSpace(raw)
	if isNull(trimmed) {
		return []ContextDescriptor{}, nil
	}

	var pairs []literalPair
	switch trimmed[0] {
	case '{':
		p, err := orderedJSONObject(trimmed)
		if err != nil {
			return nil, err
		}
		pairs = p
	case '"':
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return nil, err
		}
		if strings.TrimSpace(encoded) == "" {
			return []ContextDescriptor{}, nil
		}
		p, err := parseDictLiteral(encoded)
		if err != nil {
			return nil, err
		}
		pairs = p
	default:
		return nil, fmt.Errorf("contexts has unsupported shape %s", truncate(string(trimmed), 40))
	}

	descriptors := make([]ContextDescriptor, 0, len(pairs))
	for _, p := range pairs {
		title, ok := scalarText(p.Value)
		if !ok {
			continue
		}
		descriptors = append(descriptors, ContextDescriptor{ID: p.Key, Title: title})
	}
	return descriptors, nil
}

// orderedJSONObject decodes a JSON object keeping key order.
func orderedJSONObject(data []byte) ([]literalPair, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected object")
	}

	var pairs []literalPair
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.New("expected object key")
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		pairs = append(pairs, literalPair{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// scalarText renders a listing value as a title. Containers are rejected.
func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case nil:
		return "", true
	case literalNumber:
		return string(t), true
	default:
		return "", false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
