package testsupport

import (
	"testing"

	"openbst/internal/config"
	"openbst/internal/nodestore"
)

// MustOpenStore opens a nodestore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *nodestore.Store {
	t.Helper()

	store, err := nodestore.Open(cfg)
	if err != nil {
		t.Fatalf("nodestore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
