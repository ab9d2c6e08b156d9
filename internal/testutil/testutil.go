// Package testutil provides shared test helpers for setting up stores and sessions.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/jacksnnn/fabublox-process-selector/internal/session"
	"github.com/jacksnnn/fabublox-process-selector/internal/store"
)

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "selector-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SeedSession creates a user and an open session for it. tokenCookie and
// artifact seed the credential sources captured at sign-in; pass empty
// strings for a user with no token sources.
func SeedSession(t *testing.T, db *store.DB, user session.User, tokenCookie, artifact string) *session.Session {
	t.Helper()
	ctx := context.Background()
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	sess, err := db.CreateSession(ctx, user.ID, tokenCookie, artifact)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return sess
}

// Logger returns a quiet logger for tests.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
