// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"testing"

	"github.com/verniz/verniz-tui/internal/chat"
	"github.com/verniz/verniz-tui/internal/kvstore"
)

// Blank input must not produce a command: a command would start the spinner
// and dispatch a send that no-ops inside the transcript state.
func TestSendCmd_BlankInput(t *testing.T) {
	state := chat.NewState(kvstore.NewMemoryStore(), nil)

	for _, in := range []string{"", "   ", "\t", " \n "} {
		if cmd := sendCmd(state, in); cmd != nil {
			t.Errorf("sendCmd(%q) should be nil for blank input", in)
		}
	}

	if cmd := sendCmd(state, "  tinta fosca  "); cmd == nil {
		t.Error("sendCmd should produce a command for non-blank input")
	}
}
