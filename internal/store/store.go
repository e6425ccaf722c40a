// Package store открывает физическое хранилище (SQLite или Postgres)
// и применяет к нему DDL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite

	"tabula/internal/ddl"
)

// Store — пул соединений и диалект, которым для него пишется SQL.
type Store struct {
	db      *sql.DB
	dialect ddl.Dialect

	// Postgres: проверка внешних ключей откладывается до коммита
	deferred atomic.Bool
}

// Open выбирает драйвер по имени: sqlite (по умолчанию) или postgres.
func Open(driver, dsn string) (*Store, error) {
	d, err := ddl.ByName(driver)
	if err != nil {
		return nil, err
	}
	if _, ok := d.(ddl.Postgres); ok {
		return OpenPostgres(dsn)
	}
	return OpenSQLite(dsn)
}

// OpenSQLite открывает файл SQLite (или :memory:) с включёнными внешними ключами.
// Соединение одно: PRAGMA foreign_keys действует на соединение, а не на базу.
func OpenSQLite(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if path != ":memory:" {
		path = filepath.Clean(path)
	}
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return &Store{db: db, dialect: ddl.SQLite{UniqueTargets: true, QuoteReserved: true}}, nil
}

// OpenPostgres открывает пул pgx.
func OpenPostgres(url string) (*Store, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("postgres url is required")
	}
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres db: %w", err)
	}
	return &Store{db: db, dialect: ddl.Postgres{}}, nil
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() ddl.Dialect { return s.dialect }

// Close закрывает пул.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginTx открывает транзакцию; в Postgres при отключённых внешних ключах
// их проверка откладывается до коммита.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	if s.deferred.Load() {
		if _, err := tx.ExecContext(ctx, s.dialect.DisableConstraints()); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("defer constraints: %w", err)
		}
	}
	return tx, nil
}

// SetForeignKeys включает или выключает проверку внешних ключей.
func (s *Store) SetForeignKeys(ctx context.Context, enabled bool) error {
	if _, ok := s.dialect.(ddl.Postgres); ok {
		s.deferred.Store(!enabled)
		return nil
	}
	stmt := s.dialect.EnableConstraints()
	if !enabled {
		stmt = s.dialect.DisableConstraints()
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("toggle foreign keys: %w", err)
	}
	return nil
}

// ForeignKeys сообщает, включена ли проверка внешних ключей.
func (s *Store) ForeignKeys(ctx context.Context) (bool, error) {
	if _, ok := s.dialect.(ddl.Postgres); ok {
		return !s.deferred.Load(), nil
	}
	var on int
	if err := s.db.QueryRowContext(ctx, "PRAGMA foreign_keys;").Scan(&on); err != nil {
		return false, fmt.Errorf("read foreign keys pragma: %w", err)
	}
	return on == 1, nil
}
