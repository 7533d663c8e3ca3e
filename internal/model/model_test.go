// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "testing"

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("Quero pintar meu quarto")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want %q", msg.Role, RoleUser)
	}
	if msg.Content != "Quero pintar meu quarto" {
		t.Errorf("Content = %q", msg.Content)
	}
	if !msg.HasTimestamp() {
		t.Error("new user message should carry a timestamp")
	}
}

func TestNewAssistantMessage(t *testing.T) {
	msg := NewAssistantMessage("Recomendo tinta acrílica fosca.")

	if msg.Role != RoleAssistant {
		t.Errorf("Role = %q, want %q", msg.Role, RoleAssistant)
	}
	if !msg.HasTimestamp() {
		t.Error("new assistant message should carry a timestamp")
	}
}

func TestMessage_HasTimestamp_Zero(t *testing.T) {
	msg := Message{Role: RoleUser, Content: "x"}
	if msg.HasTimestamp() {
		t.Error("zero timestamp should read as absent")
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewAssistantMessage("uma resposta bastante longa sobre tintas")
	if got := msg.Preview(10); got != "uma res..." {
		t.Errorf("Preview = %q, want %q", got, "uma res...")
	}
}

func TestRole_DisplayName(t *testing.T) {
	if RoleUser.DisplayName() != "You" {
		t.Errorf("RoleUser.DisplayName() = %q", RoleUser.DisplayName())
	}
	if RoleAssistant.DisplayName() != "Assistant" {
		t.Errorf("RoleAssistant.DisplayName() = %q", RoleAssistant.DisplayName())
	}
	if Role("other").DisplayName() != "other" {
		t.Error("unknown role should display as itself")
	}
}

// =============================================================================
// USER / ROLE SET TESTS
// =============================================================================

func TestUser_HasRole(t *testing.T) {
	u := User{ID: "u1", Username: "maria", Roles: []string{"customer", "beta"}}

	if !u.HasRole("customer") {
		t.Error("HasRole(customer) should be true")
	}
	if u.HasRole("admin") {
		t.Error("HasRole(admin) should be false")
	}
}

func TestUser_HasAnyRole(t *testing.T) {
	u := User{ID: "u1", Username: "maria", Roles: []string{"customer"}}

	tests := []struct {
		name  string
		roles []string
		want  bool
	}{
		{"intersecting set", []string{"admin", "customer"}, true},
		{"disjoint set", []string{"admin", "staff"}, false},
		{"empty set", []string{}, false},
		{"nil set", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := u.HasAnyRole(tt.roles); got != tt.want {
				t.Errorf("HasAnyRole(%v) = %v, want %v", tt.roles, got, tt.want)
			}
		})
	}
}

func TestUser_NoRoles(t *testing.T) {
	u := User{ID: "u2", Username: "joao"}
	if u.HasRole("customer") {
		t.Error("user without roles should have no memberships")
	}
	if u.HasAnyRole([]string{"customer"}) {
		t.Error("user without roles should intersect nothing")
	}
}
