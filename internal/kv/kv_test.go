package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func mustOpen(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func TestSetGetDelete(t *testing.T) {
	s := mustOpen(t)
	ctx := t.Context()

	if _, ok, err := s.Get(ctx, "rooms"); err != nil || ok {
		t.Fatalf("Get on empty store = ok %v, err %v", ok, err)
	}

	if err := s.Set(ctx, "rooms", `[{"slug":"cuisine"}]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get(ctx, "rooms")
	if err != nil || !ok || v != `[{"slug":"cuisine"}]` {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}

	if err := s.Delete(ctx, "rooms"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "rooms"); ok {
		t.Error("key still present after Delete")
	}
	if err := s.Delete(ctx, "rooms"); err != nil {
		t.Errorf("Delete of absent key: %v", err)
	}
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set(t.Context(), "lastRoom", "sejour"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	v, ok, err := reopened.Get(t.Context(), "lastRoom")
	if err != nil || !ok || v != "sejour" {
		t.Errorf("after reopen Get = %q, %v, %v", v, ok, err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only config.json, found %d entries", len(entries))
	}
}

func TestClear(t *testing.T) {
	s := mustOpen(t)
	ctx := t.Context()
	for _, k := range []string{"a", "b"} {
		if err := s.Set(ctx, k, "v"); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len after Clear = %d", s.Len())
	}

	reopened, err := Open(s.Path())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Len() != 0 {
		t.Errorf("Len after reopen = %d", reopened.Len())
	}
}

func TestRejectsEmptyKey(t *testing.T) {
	s := mustOpen(t)
	if err := s.Set(t.Context(), "  ", "v"); err == nil {
		t.Error("Set with blank key expected error")
	}
	if _, _, err := s.Get(t.Context(), ""); err == nil {
		t.Error("Get with empty key expected error")
	}
}

func TestCanceledContext(t *testing.T) {
	s := mustOpen(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if err := s.Set(ctx, "k", "v"); err == nil {
		t.Error("Set with canceled context expected error")
	}
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Error("Open of corrupt file expected error")
	}
}
