// Package auth locates and inspects the bearer token sent to the backend.
//
// The token is read from COVEN_TOKEN or from the token file written by the
// other coven tools ($XDG_CONFIG_HOME/coven/token). The client cannot verify
// the signature, so Inspect only reads claims to warn about expired tokens
// before a request fails.
package auth
