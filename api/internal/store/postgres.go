package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

type Postgres struct{ DB *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{DB: db} }

// OpenPostgres opens a pgx-backed pool, pings it and creates the slot table.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	// a single slot needs very few connections
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(1 * time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}

	s := NewPostgres(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Postgres) Migrate(ctx context.Context) error {
	const q = `
create table if not exists kv_slots (
  key        text primary key,
  value      text not null,
  updated_at timestamptz not null default now()
)`
	if _, err := s.DB.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("migrate kv_slots: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	const q = `select value from kv_slots where key=$1`
	var v string
	err := s.DB.QueryRowContext(ctx, q, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Postgres) Set(ctx context.Context, key, value string) error {
	const q = `
insert into kv_slots(key, value)
values ($1,$2)
on conflict (key)
do update set value=excluded.value, updated_at=now()`
	_, err := s.DB.ExecContext(ctx, q, key, value)
	return err
}

func (s *Postgres) Remove(ctx context.Context, key string) error {
	const q = `delete from kv_slots where key=$1`
	_, err := s.DB.ExecContext(ctx, q, key)
	return err
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Postgres) Close() error {
	return s.DB.Close()
}

// DSNSummary describes dsn for logs without the password.
func DSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	host, port := u.Host, ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, u.User.Username())
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, u.User.Username())
}
