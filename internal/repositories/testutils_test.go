package repositories_test

import (
	"context"
	"github.com/myrjola/kastor/internal/sqlite"
	"github.com/myrjola/kastor/internal/testhelpers"
	"io"
	"testing"
)

// newTestDB creates a new in-memory database with the evidence fixtures for testing purposes.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	db, err := sqlite.NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		cancel()
		if err = db.Close(); err != nil {
			t.Error(err)
		}
	})
	return db
}
