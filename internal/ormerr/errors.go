// Package ormerr — таксономия ошибок регистрации, генерации схемы, маршалинга
// и сохранения. Ошибки сравниваются по коду через errors.Is.
package ormerr

import (
	"fmt"
	"strings"
)

// Code — машиночитаемый код ошибки.
type Code string

const (
	// регистрация
	CodeDuplicateEntityName            Code = "duplicate_entity_name"
	CodeMultiplePrimaryKey             Code = "multiple_primary_key"
	CodePrimaryKeyNotFound             Code = "primary_key_not_found"
	CodeUnsupportedPrimaryKeyType      Code = "unsupported_primary_key_type"
	CodeUnsupportedFieldType           Code = "unsupported_field_type"
	CodeUnsupportedForeignKeyReference Code = "unsupported_foreign_key_reference"
	CodeEntityNotRegistered            Code = "entity_not_registered"
	CodeDuplicateColumnName            Code = "duplicate_column_name"

	// генерация схемы
	CodeCircularDependency Code = "circular_dependency"

	// маршалинг
	CodeColumnNotNullable Code = "column_not_nullable"

	// сохранение
	CodeRecordNotFound Code = "record_not_found"
	CodeNotPersisted   Code = "not_persisted"
	CodeBatchFailed    Code = "batch_failed"
)

// Error — ошибка с кодом и именами сущности/колонки/цикла для диагностики.
type Error struct {
	Code    Code
	Entity  string
	Column  string
	Cycle   []string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Entity != "" {
		b.WriteString(": ")
		b.WriteString(e.Entity)
		if e.Column != "" {
			b.WriteString(".")
			b.WriteString(e.Column)
		}
	}
	if len(e.Cycle) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Cycle, " -> "))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is сравнивает ошибки по коду.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Сентинелы для errors.Is.
var (
	ErrDuplicateEntityName            = &Error{Code: CodeDuplicateEntityName}
	ErrMultiplePrimaryKey             = &Error{Code: CodeMultiplePrimaryKey}
	ErrPrimaryKeyNotFound             = &Error{Code: CodePrimaryKeyNotFound}
	ErrUnsupportedPrimaryKeyType      = &Error{Code: CodeUnsupportedPrimaryKeyType}
	ErrUnsupportedFieldType           = &Error{Code: CodeUnsupportedFieldType}
	ErrUnsupportedForeignKeyReference = &Error{Code: CodeUnsupportedForeignKeyReference}
	ErrEntityNotRegistered            = &Error{Code: CodeEntityNotRegistered}
	ErrDuplicateColumnName            = &Error{Code: CodeDuplicateColumnName}
	ErrCircularDependency             = &Error{Code: CodeCircularDependency}
	ErrColumnNotNullable              = &Error{Code: CodeColumnNotNullable}
	ErrRecordNotFound                 = &Error{Code: CodeRecordNotFound}
	ErrNotPersisted                   = &Error{Code: CodeNotPersisted}
	ErrBatchFailed                    = &Error{Code: CodeBatchFailed}
)

// New создаёт ошибку для сущности и (необязательно) колонки.
func New(code Code, entity, column, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Code: code, Entity: entity, Column: column, Message: msg}
}

// Cycle создаёт ошибку циклической зависимости с перечислением цикла.
func Cycle(path []string, msg string) *Error {
	return &Error{Code: CodeCircularDependency, Cycle: append([]string(nil), path...), Message: msg}
}

// Wrap оборачивает причину с кодом.
func Wrap(code Code, entity, column string, cause error) *Error {
	return &Error{Code: code, Entity: entity, Column: column, Cause: cause}
}

// CodeOf достаёт код из цепочки ошибок; пусто, если кода нет.
func CodeOf(err error) Code {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
