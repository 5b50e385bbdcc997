package server

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
)

// KeyRegistry holds the set of admin-issued access keys and the bearer
// tokens minted for validated clients. Everything lives in memory; keys are
// loaded once at startup.
type KeyRegistry struct {
	mu     sync.RWMutex
	keys   map[string]struct{}
	tokens map[string]struct{}
}

// NewKeyRegistry builds a registry from a comma-separated key list, the
// format used by the GRYT_ACCESS_KEYS environment variable.
func NewKeyRegistry(keyList string) *KeyRegistry {
	r := &KeyRegistry{
		keys:   make(map[string]struct{}),
		tokens: make(map[string]struct{}),
	}
	for _, key := range strings.Split(keyList, ",") {
		key = strings.TrimSpace(key)
		if key != "" {
			r.keys[key] = struct{}{}
		}
	}
	return r
}

// KeyCount reports how many access keys are registered.
func (r *KeyRegistry) KeyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// Validate exchanges a valid access key for a fresh bearer token.
func (r *KeyRegistry) Validate(accessKey string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keys[accessKey]; !ok {
		return "", false
	}

	token, err := GenerateKey(32)
	if err != nil {
		return "", false
	}
	r.tokens[token] = struct{}{}
	return token, true
}

// CheckToken reports whether the bearer token was issued by this registry.
func (r *KeyRegistry) CheckToken(token string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tokens[token]
	return ok
}

// GenerateKey returns a cryptographically secure random key, base64 URL
// encoded so it is safe in environment variables and headers.
func GenerateKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
