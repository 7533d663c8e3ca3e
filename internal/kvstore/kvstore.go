// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kvstore provides the local key/value storage used for session and
// conversation persistence.
//
// The client persists exactly three keys: the bearer token, the serialized
// user record, and the current conversation id. Storage is modeled as a small
// injected interface so state packages can be tested against the in-memory
// backend, while the real client uses the file or SQLite backend.
package kvstore

// Well-known storage keys.
const (
	KeyAuthToken      = "auth_token"
	KeyUser           = "user"
	KeyConversationID = "conversation_id"
)

// Store is the minimal key/value contract required by the session and
// transcript state. All backends are single-writer: the running client is
// assumed to be the only process mutating the store.
type Store interface {
	// Get returns the value for key, or ErrKeyNotFound if absent.
	Get(key string) (string, error)

	// Set writes the value for key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes the key. Removing an absent key is not an error.
	Remove(key string) error
}

// ErrKeyNotFound is returned by Get when the key has no stored value.
// Use errors.Is(err, ErrKeyNotFound) to check for this error.
var ErrKeyNotFound = &StoreError{Message: "key not found"}

// StoreError represents a storage-related error.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
