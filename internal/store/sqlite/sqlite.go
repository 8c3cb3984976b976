package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	_ "modernc.org/sqlite"

	"hisabkitab/backend/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS local_records (
	store TEXT NOT NULL,
	id INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (store, id)
);
CREATE INDEX IF NOT EXISTS local_records_store_seq ON local_records (store, seq);
`

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) GetAll(ctx context.Context, name string) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM local_records WHERE store = ? ORDER BY seq ASC
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]json.RawMessage, 0, 64)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		out = append(out, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetByID(ctx context.Context, name string, id int64) (json.RawMessage, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM local_records WHERE store = ? AND id = ?
	`, name, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return json.RawMessage(body), nil
}

// Put keeps the original seq on overwrite so GetAll stays in insertion order.
func (s *Store) Put(ctx context.Context, name string, id int64, record json.RawMessage) error {
	if !json.Valid(record) {
		return store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_records (store, id, seq, body)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM local_records WHERE store = ?), ?)
		ON CONFLICT(store, id) DO UPDATE SET body = excluded.body
	`, name, id, name, string(record))
	return err
}

func (s *Store) DeleteByID(ctx context.Context, name string, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM local_records WHERE store = ? AND id = ?`, name, id)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
