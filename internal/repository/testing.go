package repository

import (
	"database/sql"
	"testing"
)

// SetupTestDB creates an in-memory SQLite database with the full schema
// applied through the embedded migrations.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}
