// ABOUTME: Bearer token discovery from env and the shared coven token file
// ABOUTME: Reads JWT claims without verification to report subject and expiry

package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// EnvToken names the environment variable holding the token.
const EnvToken = "COVEN_TOKEN"

// TokenInfo is what Inspect can tell about a token.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time // zero if the token has no exp claim
}

// TokenPath returns the shared token file location.
func TokenPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locating home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "coven", "token"), nil
}

// LoadToken returns the token from the environment, else from the token
// file. A missing token is not an error; it returns "".
func LoadToken() (string, error) {
	if token := strings.TrimSpace(os.Getenv(EnvToken)); token != "" {
		return token, nil
	}

	path, err := TokenPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Inspect reads token claims without verifying the signature. It returns
// ErrExpiredToken, along with the info, when exp is in the past.
func Inspect(token string) (*TokenInfo, error) {
	return inspectAt(token, time.Now())
}

func inspectAt(token string, now time.Time) (*TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	info := &TokenInfo{}
	info.Subject, _ = claims.GetSubject()

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if exp != nil {
		info.ExpiresAt = exp.Time
		if !now.Before(exp.Time) {
			return info, ErrExpiredToken
		}
	}
	return info, nil
}
