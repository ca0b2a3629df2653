package testsupport

import (
	"testing"

	"carinspect/internal/config"
	"carinspect/internal/reportstore"
)

// MustOpenStore opens the SQLite report store named by cfg and closes it when
// the test ends.
func MustOpenStore(t testing.TB, cfg *config.Config) *reportstore.SQLite {
	t.Helper()
	store, err := reportstore.OpenSQLite(cfg.Paths.ReportDB)
	if err != nil {
		t.Fatalf("open report store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
