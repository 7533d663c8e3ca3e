// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the core data structures shared across verniz-tui:
//
//   - Role and Message: one entry in a chat transcript
//   - User, Session, Credentials: the authentication records
//
// These are plain data types with no behavior beyond simple queries; the
// state machines that own them live in the auth and chat packages.
package model
