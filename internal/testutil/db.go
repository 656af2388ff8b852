// Package testutil provides shared test fixtures.
package testutil

import (
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quickcourt/quickcourt/internal/db"
)

// NewTestDB opens a migrated SQLite database in a per-test temp dir and
// closes it when the test ends.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "quickcourt.db"))
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Logf("close test db: %v", err)
		}
	})
	return database
}
