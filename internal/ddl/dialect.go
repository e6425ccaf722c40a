package ddl

import (
	"fmt"
	"strings"

	"tabula/internal/meta"
	"tabula/internal/registry"
)

// Dialect — как конкретная СУБД пишет типы, ключи и переключатель ограничений.
type Dialect interface {
	Name() string
	// IdentityColumn — определение колонки первичного ключа.
	IdentityColumn() string
	// ColumnType — тип колонки с длиной (если она есть).
	ColumnType(c registry.ColumnDescriptor) string
	PrimaryKey(pk registry.PrimaryKeyDescriptor) string
	ForeignKey(column, table, referenced string) string
	DisableConstraints() string
	EnableConstraints() string
	DropTable(table string) string
	// Placeholder — параметр запроса с номером n (с единицы).
	Placeholder(n int) string
	// Returning — СУБД возвращает идентификатор через RETURNING.
	Returning() bool
	// Ident — имя таблицы или колонки в тексте SQL.
	Ident(name string) string
	// SyncIdentity — запрос, сдвигающий генератор идентификаторов за явно
	// записанный _id. Пустая строка: СУБД делает это сама.
	SyncIdentity(table string) string
}

var reserved = map[string]struct{}{
	"user": {}, "select": {}, "table": {}, "insert": {}, "update": {}, "delete": {},
	"where": {}, "join": {}, "group": {}, "order": {}, "limit": {}, "offset": {},
	"primary": {}, "foreign": {}, "key": {}, "constraint": {}, "default": {},
	"from": {}, "into": {}, "values": {}, "unique": {}, "index": {}, "create": {},
	"drop": {}, "alter": {}, "schema": {}, "grant": {}, "revoke": {},
	"references": {}, "check": {}, "column": {}, "by": {}, "and": {}, "or": {},
	"not": {}, "null": {}, "in": {}, "is": {}, "as": {}, "transaction": {},
}

func isReserved(s string) bool { _, ok := reserved[strings.ToLower(s)]; return ok }

// Quote берёт идентификатор в кавычки, только если это ключевое слово SQL.
func Quote(ident string) string {
	if isReserved(ident) {
		return `"` + ident + `"`
	}
	return ident
}

// SQLite — диалект по умолчанию. Текст DDL фиксирован.
type SQLite struct {
	// UniqueTargets объявляет UNIQUE колонки, на которые ссылаются внешние ключи
	// не по идентификатору. Без этого SQLite с включёнными внешними ключами
	// отвергает запись в дочернюю таблицу (foreign key mismatch).
	UniqueTargets bool
	// QuoteReserved берёт в кавычки имена, совпадающие с ключевыми словами SQL.
	// Без него имена пишутся как есть.
	QuoteReserved bool
}

func (d SQLite) Ident(name string) string {
	if d.QuoteReserved {
		return Quote(name)
	}
	return name
}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) IdentityColumn() string { return meta.IdentityColumn + " INTEGER" }

func (SQLite) ColumnType(c registry.ColumnDescriptor) string {
	var t string
	switch c.Storage {
	case meta.StorageNumber:
		t = "INTEGER"
	case meta.StorageText:
		t = "TEXT"
	case meta.StorageReal:
		t = "REAL"
	case meta.StorageBlob:
		t = "BLOB"
	}
	if c.Storage == meta.StorageText && c.Length > 0 {
		t = fmt.Sprintf("%s(%d)", t, c.Length)
	}
	return t
}

func (SQLite) PrimaryKey(pk registry.PrimaryKeyDescriptor) string {
	return fmt.Sprintf("PRIMARY KEY(%s %s)", pk.Column, pk.Order)
}

func (d SQLite) ForeignKey(column, table, referenced string) string {
	return fmt.Sprintf("FOREIGN KEY(%s) REFERENCES %s(%s)", d.Ident(column), d.Ident(table), d.Ident(referenced))
}

func (SQLite) DisableConstraints() string { return "PRAGMA foreign_keys = OFF;" }
func (SQLite) EnableConstraints() string  { return "PRAGMA foreign_keys = ON;" }

func (d SQLite) DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.Ident(table))
}

func (SQLite) Placeholder(int) string { return "?" }
func (SQLite) Returning() bool        { return false }

// SyncIdentity: INTEGER PRIMARY KEY в SQLite берёт max(_id)+1 сам.
func (SQLite) SyncIdentity(string) string { return "" }

// Postgres — диалект для pgx. Порядок первичного ключа не пишется,
// ключевые слова всегда в кавычках.
type Postgres struct{}

func (Postgres) Ident(name string) string { return Quote(name) }

func (Postgres) Name() string { return "postgres" }

func (Postgres) IdentityColumn() string { return meta.IdentityColumn + " BIGSERIAL" }

func (Postgres) ColumnType(c registry.ColumnDescriptor) string {
	switch c.Storage {
	case meta.StorageNumber:
		return "BIGINT"
	case meta.StorageText:
		if c.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.Length)
		}
		return "TEXT"
	case meta.StorageReal:
		return "DOUBLE PRECISION"
	case meta.StorageBlob:
		return "BYTEA"
	}
	return ""
}

func (Postgres) PrimaryKey(pk registry.PrimaryKeyDescriptor) string {
	return fmt.Sprintf("PRIMARY KEY(%s)", pk.Column)
}

// ForeignKey в Postgres откладываемый, иначе SET CONSTRAINTS на него не действует.
func (Postgres) ForeignKey(column, table, referenced string) string {
	return fmt.Sprintf("FOREIGN KEY(%s) REFERENCES %s(%s) DEFERRABLE INITIALLY IMMEDIATE", Quote(column), Quote(table), Quote(referenced))
}

// UniqueReferenced — колонка, на которую ссылается внешний ключ, должна быть UNIQUE.
func (Postgres) UniqueReferenced() bool { return true }

func (d SQLite) UniqueReferenced() bool { return d.UniqueTargets }

func (Postgres) DisableConstraints() string { return "SET CONSTRAINTS ALL DEFERRED;" }
func (Postgres) EnableConstraints() string  { return "SET CONSTRAINTS ALL IMMEDIATE;" }

func (Postgres) DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", Quote(table))
}

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
func (Postgres) Returning() bool          { return true }

// SyncIdentity: BIGSERIAL не видит явно вставленный _id, последовательность
// поднимается до максимума таблицы.
func (Postgres) SyncIdentity(table string) string {
	t := Quote(table)
	return fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', '%s'), (SELECT MAX(%s) FROM %s))",
		t, meta.IdentityColumn, meta.IdentityColumn, t)
}

// ByName возвращает диалект по имени драйвера.
func ByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sqlite", "sqlite3":
		return SQLite{}, nil
	case "postgres", "pgx", "postgresql":
		return Postgres{}, nil
	}
	return nil, fmt.Errorf("unknown dialect: %s", name)
}
