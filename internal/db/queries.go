package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/hpungsan/diarist/internal/errors"
)

// Backend is a keyed blob store on top of the blobs table.
type Backend struct {
	db  *sql.DB
	now func() time.Time
}

// NewBackend wraps an initialized database.
func NewBackend(db *sql.DB) *Backend {
	return &Backend{db: db, now: time.Now}
}

// Get returns the value stored under key. found is false when the key is absent.
func (b *Backend) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	err = b.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewUnavailable(err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous value.
func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := b.db.ExecContext(ctx, query, key, value, b.now().UnixMilli()); err != nil {
		return errors.NewUnavailable(err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?`, key); err != nil {
		return errors.NewUnavailable(err)
	}
	return nil
}

// Keys returns every stored key, most recently written first.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT key FROM blobs ORDER BY updated_at DESC, key`)
	if err != nil {
		return nil, errors.NewUnavailable(err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.NewInternal(err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return keys, nil
}
