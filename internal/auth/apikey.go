package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
)

// apiKeyPrefix marks a Senate-issued API key so authMiddleware can tell an
// ApiKey header from a bearer JWT at a glance in logs and error messages.
const apiKeyPrefix = "senate_key_"

// apiKeyEntry is what APIKeyStore keeps for one issued key: enough to
// reconstruct the Claims a JWT would have carried, plus the Argon2id hash of
// the key's secret half.
type apiKeyEntry struct {
	hash string
	role Role
}

// APIKeyStore issues and verifies long-lived Senate API keys, for
// machine callers (CI pipelines, other services) that can't go through an
// interactive JWT login flow. Keys are held in-process only: restarting the
// Senate invalidates every previously issued key, which is acceptable for
// the non-interactive callers this surface targets.
type APIKeyStore struct {
	mu      sync.RWMutex
	entries map[string]apiKeyEntry // keyed by caller ID
}

// NewAPIKeyStore constructs an empty APIKeyStore.
func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{entries: make(map[string]apiKeyEntry)}
}

// IssueAPIKey mints a new API key for callerID with the given role,
// replacing any key previously issued to that caller. The returned string is
// the only time the raw key is available; only its Argon2id hash is kept.
func (s *APIKeyStore) IssueAPIKey(callerID string, role Role) (string, error) {
	if callerID == "" {
		return "", fmt.Errorf("auth: caller_id must not be empty")
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("auth: generate api key secret: %w", err)
	}
	rawSecret := base64.RawURLEncoding.EncodeToString(secret)

	hash, err := HashAPIKey(rawSecret)
	if err != nil {
		return "", fmt.Errorf("auth: hash api key: %w", err)
	}

	s.mu.Lock()
	s.entries[callerID] = apiKeyEntry{hash: hash, role: role}
	s.mu.Unlock()

	return apiKeyPrefix + callerID + "." + rawSecret, nil
}

// Verify checks a raw ApiKey header value and, if it matches a live entry,
// returns the Claims a JWT for the same caller would have carried.
//
// Malformed keys and unknown callers run DummyVerify before returning, and a
// bad secret for a known caller runs the real VerifyAPIKey, so every path
// costs one Argon2id hash and the time Verify takes does not reveal whether
// callerID has ever been issued a key.
func (s *APIKeyStore) Verify(rawKey string) (*Claims, bool) {
	callerID, secret, ok := splitAPIKey(rawKey)
	if !ok {
		DummyVerify()
		return nil, false
	}

	s.mu.RLock()
	entry, found := s.entries[callerID]
	s.mu.RUnlock()

	if !found {
		DummyVerify()
		return nil, false
	}

	valid, err := VerifyAPIKey(secret, entry.hash)
	if err != nil || !valid {
		return nil, false
	}

	return &Claims{CallerID: callerID, Role: entry.role}, true
}

// Revoke removes callerID's key, if one exists.
func (s *APIKeyStore) Revoke(callerID string) {
	s.mu.Lock()
	delete(s.entries, callerID)
	s.mu.Unlock()
}

// splitAPIKey parses "senate_key_<caller_id>.<secret>" into its two halves.
func splitAPIKey(rawKey string) (callerID, secret string, ok bool) {
	if !strings.HasPrefix(rawKey, apiKeyPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(rawKey, apiKeyPrefix)

	idx := strings.LastIndex(rest, ".")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}
