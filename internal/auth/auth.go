package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MinAccessKeyLength is the shortest access key the client will even send to
// the backend.
const MinAccessKeyLength = 16

const tokenFileName = "token"

var (
	ErrKeyRequired   = errors.New("access key is required")
	ErrKeyTooShort   = errors.New("invalid access key format")
	ErrTokenNotFound = errors.New("no stored token")
)

// ValidateAccessKeyFormat checks the key locally before any network call.
func ValidateAccessKeyFormat(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrKeyRequired
	}
	if len(key) < MinAccessKeyLength {
		return ErrKeyTooShort
	}
	return nil
}

// TokenStore persists the access token as a raw string in the data
// directory, the terminal counterpart of browser local storage.
type TokenStore struct {
	dir string
}

func NewTokenStore(dir string) *TokenStore {
	return &TokenStore{dir: dir}
}

func (s *TokenStore) path() string {
	return filepath.Join(s.dir, tokenFileName)
}

// Save writes the token, creating the data directory if needed.
func (s *TokenStore) Save(token string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(s.path(), []byte(token), 0o600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

// Load returns the stored token, or ErrTokenNotFound when none exists.
func (s *TokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrTokenNotFound
	}
	return token, nil
}

// Clear removes the stored token. Missing files are not an error.
func (s *TokenStore) Clear() error {
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}
