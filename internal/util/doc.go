// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across verniz-tui:
//
//   - Atomic file writes with fsync for crash-safe persistence
//   - Rune- and width-aware string truncation for terminal display
//
// These helpers have no dependencies on other internal packages and may be
// imported from anywhere in the module.
package util
