package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SetField upserts one custom-field slot for a document. An empty value
// removes the row: the slot reads back as unset.
func (db *DB) SetField(ctx context.Context, docID, name, value string) error {
	if value == "" {
		_, err := db.conn.ExecContext(ctx, `DELETE FROM document_fields WHERE doc_id = ? AND name = ?`, docID, name)
		if err != nil {
			return fmt.Errorf("store: clear field: %w", err)
		}
		return nil
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO document_fields (doc_id, name, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(doc_id, name) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, docID, name, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: set field: %w", err)
	}
	return nil
}

// Field returns the committed value of one slot, or empty string when unset.
func (db *DB) Field(ctx context.Context, docID, name string) (string, error) {
	var v string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM document_fields WHERE doc_id = ? AND name = ?`, docID, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: get field: %w", err)
	}
	return v, nil
}

// DocumentFields returns every committed slot for a document.
func (db *DB) DocumentFields(ctx context.Context, docID string) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT name, value FROM document_fields WHERE doc_id = ?`, docID)
	if err != nil {
		return nil, fmt.Errorf("store: document fields: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, rows.Err()
}
