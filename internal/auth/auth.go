// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth owns the authentication session: the current user, the
// bearer token, and their persisted forms in the key/value store.
//
// A session exists only when both the token and the user record are present
// and parseable. The token is written last and rolled back on partial
// failure, so a readable token always implies a readable user.
package auth

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/verniz/verniz-tui/internal/kvstore"
	"github.com/verniz/verniz-tui/internal/model"
)

// Gateway is the slice of the API client the session store needs.
type Gateway interface {
	Login(ctx context.Context, creds model.Credentials) (model.Session, error)
	Logout(ctx context.Context) error
}

// Store manages the authentication session. Safe for concurrent use; UI
// commands run on their own goroutines.
type Store struct {
	mu      sync.Mutex
	kv      kvstore.Store
	gateway Gateway
	session *model.Session
}

// NewStore creates a session store backed by the given key/value store and
// gateway. Call Restore to pick up a persisted session.
func NewStore(kv kvstore.Store, gateway Gateway) *Store {
	return &Store{kv: kv, gateway: gateway}
}

// Restore loads a persisted session. It returns ok=false when the token or
// user record is missing or unparseable; stored values are left untouched
// so a transient read problem never destroys credentials.
func (s *Store) Restore() (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.kv.Get(kvstore.KeyAuthToken)
	if err != nil || token == "" {
		return model.Session{}, false
	}

	userJSON, err := s.kv.Get(kvstore.KeyUser)
	if err != nil {
		return model.Session{}, false
	}

	var user model.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return model.Session{}, false
	}

	session := model.Session{User: user, Token: token}
	s.session = &session
	return session, true
}

// Login authenticates and persists the resulting session. On failure the
// normalized gateway error propagates and nothing is stored.
func (s *Store) Login(ctx context.Context, creds model.Credentials) (model.Session, error) {
	session, err := s.gateway.Login(ctx, creds)
	if err != nil {
		return model.Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userJSON, err := json.Marshal(session.User)
	if err != nil {
		return model.Session{}, err
	}

	// User first, token last: a stored token must always imply a stored
	// user. Roll back the user record when the token write fails.
	if err := s.kv.Set(kvstore.KeyUser, string(userJSON)); err != nil {
		return model.Session{}, err
	}
	if err := s.kv.Set(kvstore.KeyAuthToken, session.Token); err != nil {
		if rmErr := s.kv.Remove(kvstore.KeyUser); rmErr != nil {
			log.Printf("auth: rollback of user record failed: %v", rmErr)
		}
		return model.Session{}, err
	}

	s.session = &session
	return session, nil
}

// Logout invalidates the session remotely on a best-effort basis, then
// always clears local credentials.
func (s *Store) Logout(ctx context.Context) {
	if err := s.gateway.Logout(ctx); err != nil {
		log.Printf("auth: remote logout failed: %v", err)
	}
	s.Purge()
}

// Purge drops the session from memory and storage. It is also registered as
// the gateway's session-expired handler, so a 401 anywhere clears
// credentials before the error reaches the UI.
func (s *Store) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	if err := s.kv.Remove(kvstore.KeyAuthToken); err != nil {
		log.Printf("auth: failed to remove token: %v", err)
	}
	if err := s.kv.Remove(kvstore.KeyUser); err != nil {
		log.Printf("auth: failed to remove user record: %v", err)
	}
}

// Session returns the current session, if any.
func (s *Store) Session() (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return model.Session{}, false
	}
	return *s.session, true
}

// Token returns the current bearer token, or "" without a session. This is
// the gateway's token provider.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return ""
	}
	return s.session.Token
}

// HasRole reports whether the authenticated user carries the role. Always
// false without a session.
func (s *Store) HasRole(role string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return false
	}
	return s.session.User.HasRole(role)
}

// HasAnyRole reports whether the authenticated user's role set intersects
// roles. Always false without a session or with an empty argument list.
func (s *Store) HasAnyRole(roles []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return false
	}
	return s.session.User.HasAnyRole(roles)
}
