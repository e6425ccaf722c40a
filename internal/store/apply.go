package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"tabula/internal/ddl"
)

// Apply выполняет скрипт на одном закреплённом соединении: переключатель
// ограничений должен действовать на те же операторы.
// Таблицы, которые уже есть, пропускаются.
func (s *Store) Apply(ctx context.Context, script ddl.Script) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, script.Disable); err != nil {
		return fmt.Errorf("disable constraints: %w", err)
	}
	for _, stmt := range script.Statements {
		sqlText := strings.TrimSpace(stmt)
		if sqlText == "" {
			continue
		}
		if _, err := conn.ExecContext(ctx, sqlText); err != nil {
			if IsAlreadyExists(err) {
				log.Printf("DDL skipped (already exists): %s", statementHead(sqlText))
				continue
			}
			_, _ = conn.ExecContext(ctx, script.Enable)
			return fmt.Errorf("DDL apply failed: %w", err)
		}
	}
	if _, err := conn.ExecContext(ctx, script.Enable); err != nil {
		return fmt.Errorf("enable constraints: %w", err)
	}
	log.Printf("DDL applied: %d statements (%s)", len(script.Statements), s.dialect.Name())
	return nil
}

// IsAlreadyExists — объект уже создан (42P07 duplicate_table, 42710 duplicate_object).
func IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P07" || pgErr.Code == "42710"
	}
	e := strings.ToLower(err.Error())
	return strings.Contains(e, "already exists")
}

// IsConstraint — нарушение ограничения (внешний ключ, unique, not null).
func IsConstraint(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE,
			sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_NOTNULL,
			sqlite3lib.SQLITE_CONSTRAINT:
			return true
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}
	return strings.Contains(strings.ToLower(err.Error()), "constraint failed")
}

// statementHead — оператор до первой скобки: "CREATE TABLE BOOK".
func statementHead(s string) string {
	head, _, _ := strings.Cut(s, "(")
	return strings.TrimSpace(head)
}
