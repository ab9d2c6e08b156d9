package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jacksnnn/fabublox-process-selector/internal/apperr"
	"github.com/jacksnnn/fabublox-process-selector/internal/session"
)

// Verify *DB satisfies the session lookup contract at compile time.
var _ session.Provider = (*DB)(nil)

// CreateUser inserts or replaces a user record.
func (db *DB) CreateUser(ctx context.Context, u session.User) error {
	fields := u.CustomFields
	if fields == nil {
		fields = map[string]string{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("store: marshal custom fields: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO users (id, username, upstream_account_id, custom_fields)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username            = excluded.username,
			upstream_account_id = excluded.upstream_account_id,
			custom_fields       = excluded.custom_fields
	`, u.ID, u.Username, u.UpstreamAccountID, string(fieldsJSON))
	if err != nil {
		return fmt.Errorf("store: create user: %w", err)
	}
	return nil
}

// CreateSession opens a session for a user, capturing the credential
// sources (token cookie, identity artifact) present at sign-in. The
// session ID is minted here and returned on the session.
func (db *DB) CreateSession(ctx context.Context, userID, tokenCookie, artifact string) (*session.Session, error) {
	id := uuid.New().String()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token_cookie, artifact)
		VALUES (?, ?, ?, ?)
	`, id, userID, tokenCookie, artifact)
	if err != nil {
		return nil, fmt.Errorf("store: create session: %w", err)
	}
	return db.SessionByID(ctx, id)
}

// SessionByID resolves a session and its user. Returns apperr.ErrNotFound
// for unknown IDs.
func (db *DB) SessionByID(ctx context.Context, id string) (*session.Session, error) {
	var (
		s          session.Session
		u          session.User
		fieldsJSON string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT s.id, s.token_cookie, s.artifact,
		       u.id, u.username, u.upstream_account_id, u.custom_fields
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = ?
	`, id).Scan(&s.ID, &s.TokenCookie, &s.Artifact, &u.ID, &u.Username, &u.UpstreamAccountID, &fieldsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: session by id: %w", err)
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &u.CustomFields); err != nil {
		u.CustomFields = map[string]string{}
	}
	s.User = &u
	return &s, nil
}

// DeleteSession removes a session, e.g. at sign-out.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	return nil
}
