// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verniz/verniz-tui/internal/model"
)

// =============================================================================
// ENDPOINT TESTS
// =============================================================================

func TestClient_Login(t *testing.T) {
	var gotPath, gotMethod, gotRequestID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotRequestID = r.Header.Get("X-Request-ID")

		var creds model.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "maria", creds.Username)

		json.NewEncoder(w).Encode(map[string]any{
			"token": "tok-123",
			"user": map[string]any{
				"id":       "u1",
				"username": "maria",
				"roles":    []string{"customer"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL)
	session, err := client.Login(context.Background(), model.Credentials{
		Username: "maria",
		Password: "s3cret",
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/v1/account/login", gotPath)
	assert.NotEmpty(t, gotRequestID, "every request carries a correlation id")
	assert.Equal(t, "tok-123", session.Token)
	assert.Equal(t, "maria", session.User.Username)
	assert.Equal(t, []string{"customer"}, session.User.Roles)
}

func TestClient_Logout(t *testing.T) {
	var gotMethod, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL)
	require.NoError(t, client.Logout(context.Background()))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/v1/account/logout", gotPath)
}

func TestClient_SendChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Quero pintar meu quarto", req["message"])
		assert.Equal(t, "conv-1", req["conversation_id"])

		json.NewEncoder(w).Encode(ChatResponse{
			Response:       "Recomendo tinta acrílica.",
			ConversationID: "conv-2",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL).
		WithTokenProvider(func() string { return "tok-123" })

	resp, err := client.SendChat(context.Background(), "Quero pintar meu quarto", "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "Recomendo tinta acrílica.", resp.Response)
	assert.Equal(t, "conv-2", resp.ConversationID)
}

func TestClient_SendChat_FirstTurnOmitsConversationID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, present := req["conversation_id"]
		assert.False(t, present, "empty conversation id must be omitted from the payload")

		json.NewEncoder(w).Encode(ChatResponse{Response: "ok", ConversationID: "conv-1"})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL)
	_, err := client.SendChat(context.Background(), "oi", "")
	require.NoError(t, err)
}

func TestClient_NoTokenNoAuthorizationHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(ChatResponse{Response: "ok", ConversationID: "c"})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL)
	_, err := client.SendChat(context.Background(), "oi", "")
	require.NoError(t, err)
}

// =============================================================================
// ERROR TAXONOMY TESTS
// =============================================================================

func TestClient_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     error
		wantMessage string
	}{
		{
			"401 session expired",
			http.StatusUnauthorized, `{"detail":"token expired"}`,
			ErrSessionExpired, "Session expired. Please log in again.",
		},
		{
			"403 access denied",
			http.StatusForbidden, `{}`,
			ErrAccessDenied, "Access denied.",
		},
		{
			"403 with server detail",
			http.StatusForbidden, `{"detail":"conta bloqueada"}`,
			ErrAccessDenied, "conta bloqueada",
		},
		{
			"404 not found",
			http.StatusNotFound, `{}`,
			ErrNotFound, "Resource not found.",
		},
		{
			"500 server error",
			http.StatusInternalServerError, `{}`,
			ErrServer, "Internal server error. Try again.",
		},
		{
			"422 generic failure",
			http.StatusUnprocessableEntity, `{}`,
			ErrRequestFailed, "Failed to process request.",
		},
		{
			"422 with server detail",
			http.StatusUnprocessableEntity, `{"detail":"mensagem vazia"}`,
			ErrRequestFailed, "mensagem vazia",
		},
		{
			"non-JSON error body",
			http.StatusBadRequest, `gateway exploded`,
			ErrRequestFailed, "Failed to process request.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, server.URL).WithMaxRetries(1)
			_, err := client.SendChat(context.Background(), "oi", "")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantMessage, UserMessage(err))
		})
	}
}

func TestClient_401TriggersSessionExpiredHandler(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var purged atomic.Bool
	client := NewClient(server.URL, server.URL).
		WithMaxRetries(1).
		WithSessionExpiredHandler(func() { purged.Store(true) })

	_, err := client.SendChat(context.Background(), "oi", "")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.True(t, purged.Load(), "401 must invoke the session-expired handler")
}

func TestClient_TransportFailure(t *testing.T) {
	// A closed server yields a connection refusal.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, server.URL).WithMaxRetries(1)
	_, err := client.SendChat(context.Background(), "oi", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, "Connection error. Check your network.", UserMessage(err))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(ChatResponse{Response: "ok", ConversationID: "c"})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL).WithMaxRetries(3)
	resp, err := client.SendChat(context.Background(), "oi", "")

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Response)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL).WithMaxRetries(3)
	_, err := client.SendChat(context.Background(), "oi", "")

	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")
}

func TestClient_ZeroMaxRetriesStillSendsOnce(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(ChatResponse{Response: "ok", ConversationID: "c"})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL).WithMaxRetries(0)
	resp, err := client.SendChat(context.Background(), "oi", "")

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Response)
	assert.Equal(t, int32(1), calls.Load(), "the request must be attempted at least once")
}

func TestUserMessage_UnknownError(t *testing.T) {
	assert.Equal(t, "Failed to process request.", UserMessage(errors.New("boom")))
}
