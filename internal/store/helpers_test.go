package store

import (
	"testing"

	"github.com/ALT-F4-LLC/pasfini/internal/kv"
)

func mustKV(t *testing.T, path string) *kv.Store {
	t.Helper()
	cfg, err := kv.Open(path)
	if err != nil {
		t.Fatalf("kv.Open(%s): %v", path, err)
	}
	return cfg
}
