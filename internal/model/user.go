// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// USER TYPE
// =============================================================================

// User is the authenticated account record returned by the login endpoint.
// Roles have set semantics: membership-tested, never order-dependent.
type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// HasRole reports whether the user carries the given role label.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user's role set intersects roles.
// An empty argument list always yields false.
func (u User) HasAnyRole(roles []string) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session is an authenticated user paired with the opaque bearer token that
// proves the authentication. A session exists only when both halves were
// present in storage; either missing means "not authenticated".
type Session struct {
	User  User
	Token string
}

// Credentials is the login request payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
