// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat owns the conversation transcript: the ordered message
// history, the server-assigned conversation id, the loading flag and the
// last error.
//
// Only the conversation id is persisted; the transcript itself lives for
// the process. Messages are append-only and a turn's user message always
// precedes its assistant reply.
package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/verniz/verniz-tui/internal/api"
	"github.com/verniz/verniz-tui/internal/kvstore"
	"github.com/verniz/verniz-tui/internal/model"
)

// Gateway is the slice of the API client the transcript needs.
type Gateway interface {
	SendChat(ctx context.Context, message, conversationID string) (*api.ChatResponse, error)
}

// State is the chat transcript state machine. Safe for concurrent use; UI
// commands run on their own goroutines.
type State struct {
	mu             sync.Mutex
	kv             kvstore.Store
	gateway        Gateway
	messages       []model.Message
	conversationID string
	loading        bool
	lastErr        error
}

// Snapshot is a consistent copy of the transcript for the render loop.
type Snapshot struct {
	Messages       []model.Message
	ConversationID string
	Loading        bool
	LastError      error
}

// NewState creates an empty transcript backed by the given key/value store
// and gateway. Call Restore to pick up a persisted conversation id.
func NewState(kv kvstore.Store, gateway Gateway) *State {
	return &State{kv: kv, gateway: gateway}
}

// Restore loads the persisted conversation id, if any, so the next send
// continues the previous conversation. A missing key is not an error.
func (s *State) Restore() {
	id, err := s.kv.Get(kvstore.KeyConversationID)
	if err != nil {
		if !errors.Is(err, kvstore.ErrKeyNotFound) {
			log.Printf("chat: failed to restore conversation id: %v", err)
		}
		return
	}

	s.mu.Lock()
	s.conversationID = id
	s.mu.Unlock()
}

// SendMessage relays one user message through the gateway and applies the
// outcome to the transcript. Empty (all-whitespace) input is a no-op.
//
// The user message is appended before the request and stays on failure;
// there is no rollback. Run from a command goroutine, never the event loop.
func (s *State) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	s.messages = append(s.messages, model.NewUserMessage(text))
	s.loading = true
	s.lastErr = nil
	conversationID := s.conversationID
	s.mu.Unlock()

	resp, err := s.gateway.SendChat(ctx, text, conversationID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		s.lastErr = err
		return err
	}

	s.messages = append(s.messages, model.NewAssistantMessage(resp.Response))
	// The server's id always wins, first turn or not.
	s.conversationID = resp.ConversationID
	if err := s.kv.Set(kvstore.KeyConversationID, resp.ConversationID); err != nil {
		// The reply is already in the transcript; losing continuity on
		// the next run beats losing the reply now.
		log.Printf("chat: failed to persist conversation id: %v", err)
	}
	return nil
}

// Clear resets the transcript to its initial state and removes the
// persisted conversation id.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.conversationID = ""
	s.loading = false
	s.lastErr = nil
	if err := s.kv.Remove(kvstore.KeyConversationID); err != nil {
		log.Printf("chat: failed to remove conversation id: %v", err)
	}
}

// Snapshot returns a consistent copy for rendering. The message slice is
// copied so the event loop never races an in-flight send.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]model.Message, len(s.messages))
	copy(messages, s.messages)

	return Snapshot{
		Messages:       messages,
		ConversationID: s.conversationID,
		Loading:        s.loading,
		LastError:      s.lastErr,
	}
}

// Len returns the number of messages in the transcript.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
