// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package kvstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// storeFactory builds a fresh store rooted in dir for backend-agnostic tests.
type storeFactory func(t *testing.T, dir string) Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, dir string) Store {
			return NewMemoryStore()
		},
		"file": func(t *testing.T, dir string) Store {
			return NewFileStore(filepath.Join(dir, "state.json"))
		},
		"sqlite": func(t *testing.T, dir string) Store {
			s, err := NewSQLiteStore(filepath.Join(dir, "state.db"))
			if err != nil {
				t.Fatalf("NewSQLiteStore failed: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

// =============================================================================
// BACKEND-AGNOSTIC CONTRACT TESTS
// =============================================================================

func TestStore_SetGetRemove(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t, t.TempDir())

			if _, err := s.Get(KeyAuthToken); !errors.Is(err, ErrKeyNotFound) {
				t.Errorf("Get on empty store = %v, want ErrKeyNotFound", err)
			}

			if err := s.Set(KeyAuthToken, "tok-123"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			v, err := s.Get(KeyAuthToken)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if v != "tok-123" {
				t.Errorf("Get = %q, want %q", v, "tok-123")
			}

			if err := s.Set(KeyAuthToken, "tok-456"); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			v, _ = s.Get(KeyAuthToken)
			if v != "tok-456" {
				t.Errorf("Get after overwrite = %q, want %q", v, "tok-456")
			}

			if err := s.Remove(KeyAuthToken); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			if _, err := s.Get(KeyAuthToken); !errors.Is(err, ErrKeyNotFound) {
				t.Errorf("Get after Remove = %v, want ErrKeyNotFound", err)
			}

			// Removing an absent key is not an error.
			if err := s.Remove("never-set"); err != nil {
				t.Errorf("Remove of absent key = %v, want nil", err)
			}
		})
	}
}

func TestStore_IndependentKeys(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t, t.TempDir())

			s.Set(KeyAuthToken, "tok")
			s.Set(KeyUser, `{"id":"u1"}`)
			s.Set(KeyConversationID, "conv-1")

			s.Remove(KeyConversationID)

			if _, err := s.Get(KeyAuthToken); err != nil {
				t.Errorf("token should survive removal of conversation id: %v", err)
			}
			if _, err := s.Get(KeyUser); err != nil {
				t.Errorf("user should survive removal of conversation id: %v", err)
			}
		})
	}
}

// =============================================================================
// FILE BACKEND
// =============================================================================

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	s1 := NewFileStore(path)
	if err := s1.Set(KeyConversationID, "conv-9"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	s2 := NewFileStore(path)
	v, err := s2.Get(KeyConversationID)
	if err != nil {
		t.Fatalf("Get from second instance failed: %v", err)
	}
	if v != "conv-9" {
		t.Errorf("Get = %q, want %q", v, "conv-9")
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(path)
	if _, err := s.Get(KeyAuthToken); err == nil {
		t.Error("Get on corrupt file should fail")
	}
}

// =============================================================================
// SQLITE BACKEND
// =============================================================================

func TestSQLiteStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")

	s1, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := s1.Set(KeyUser, `{"id":"u1","username":"maria"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	s1.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	v, err := s2.Get(KeyUser)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != `{"id":"u1","username":"maria"}` {
		t.Errorf("Get = %q", v)
	}
}
