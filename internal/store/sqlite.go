package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/playperu/shapedrop/internal/game"
)

// SQLiteStore keeps the flat key layout in a single kv table. Update runs in
// one transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore expects db to have the kv table migrated.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) read(ctx context.Context, q querier, sessionID string) (record, error) {
	keys := Keys(sessionID)
	args := make([]any, len(keys))
	byKey := make(map[string]string, len(keys))
	for i, k := range keys {
		args[i] = k
		byKey[k] = fields[i]
	}

	rows, err := q.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE key IN (?`+strings.Repeat(", ?", len(keys)-1)+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", sessionID, err)
	}
	defer rows.Close()

	rec := make(record, len(fields))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		rec[byKey[k]] = v
	}
	return rec, rows.Err()
}

func (s *SQLiteStore) write(ctx context.Context, tx *sql.Tx, sessionID string, rec record) error {
	for _, f := range fields {
		k := Key(sessionID, f)
		v, ok := rec[f]
		var err error
		if ok {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO kv (key, value) VALUES (?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
				k, v,
			)
		} else {
			_, err = tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, k)
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", k, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (game.State, error) {
	rec, err := s.read(ctx, s.db, sessionID)
	if err != nil {
		return game.State{}, err
	}
	return decode(rec)
}

func (s *SQLiteStore) Create(ctx context.Context, sessionID string, st game.State) error {
	rec, err := encode(st)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM kv WHERE key = ?`, Key(sessionID, fieldRound),
	).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrExists
	}
	if err := s.write(ctx, tx, sessionID, rec); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Update(ctx context.Context, sessionID string, fn UpdateFunc) (game.State, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return game.State{}, err
	}
	defer tx.Rollback()

	rec, err := s.read(ctx, tx, sessionID)
	if err != nil {
		return game.State{}, err
	}
	st, err := decode(rec)
	if err != nil {
		return st, err
	}
	if err := fn(&st); err != nil {
		return st, err
	}
	next, err := encode(st)
	if err != nil {
		return st, err
	}
	if err := s.write(ctx, tx, sessionID, next); err != nil {
		return st, err
	}
	if err := tx.Commit(); err != nil {
		return st, fmt.Errorf("committing session %s: %w", sessionID, err)
	}
	return st, nil
}

func (s *SQLiteStore) Check(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
