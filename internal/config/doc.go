// Package config loads coven-chat configuration.
//
// # Overview
//
// Configuration is read from YAML (or TOML, by file extension) with
// environment variable expansion. Every field has a default, so a missing
// file at a default location is not an error.
//
// # Configuration File
//
// Locations, in order:
//
//  1. The --config flag
//  2. Path from COVEN_CHAT_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/coven/chat.yaml
//  4. ~/.config/coven/chat.yaml
//
// A file named explicitly by (1) or (2) must exist.
//
// # Environment Variable Expansion
//
// Values can reference environment variables:
//
//	backend:
//	  token: "${COVEN_TOKEN}"
//
// Unset variables expand to an empty string.
//
// # Example
//
//	backend:
//	  base_url: "http://localhost:8000/api"
//	  response_field: "response"
//	  load_context_mode: "body"
//	  timeout: "60s"
//	journal:
//	  enabled: true
//	  path: "~/.local/share/coven/chat.db"
//	notifications:
//	  dedupe_window: "2s"
//	logging:
//	  level: "info"
//	  format: "text"
package config
