package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure Go sqlite driver
)

// SQLite keeps the slot table in a local database file.
type SQLite struct{ DB *sql.DB }

// OpenSQLite opens (creating if needed) the database at path, enables WAL and
// creates the slot table.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	// one writer; sqlite serialises writes anyway
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	s := &SQLite{DB: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Migrate(ctx context.Context) error {
	const q = `
create table if not exists kv_slots (
  key        text primary key,
  value      text not null,
  updated_at datetime not null default current_timestamp
)`
	if _, err := s.DB.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("migrate kv_slots: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.DB.QueryRowContext(ctx, `select value from kv_slots where key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	const q = `
insert into kv_slots(key, value) values (?, ?)
on conflict(key) do update set value = excluded.value, updated_at = current_timestamp`
	_, err := s.DB.ExecContext(ctx, q, key, value)
	return err
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	_, err := s.DB.ExecContext(ctx, `delete from kv_slots where key = ?`, key)
	return err
}

func (s *SQLite) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *SQLite) Close() error { return s.DB.Close() }
