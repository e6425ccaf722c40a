package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"tabula/internal/marshal"
	"tabula/internal/meta"
	"tabula/internal/ormerr"
	"tabula/internal/persist"
	"tabula/internal/registry"
	"tabula/internal/store"
)

type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Коды ошибок в ответах API
const (
	ErrRequired     = "required"
	ErrTypeMismatch = "type_mismatch"
	ErrUnknownField = "unknown_field"
	ErrConstraint   = "constraint_violation"
	ErrNotFound     = "not_found"
	ErrReadOnly     = "readonly_field"
	ErrNotPersisted = "not_persisted"
	ErrInternal     = "internal"
)

func ferr(code, field, msg string) FieldError {
	return FieldError{Code: code, Field: field, Message: msg}
}

// bodyToRow переводит JSON-объект (ключи — имена полей или колонок) в строку
// для маршалера. Идентификатор и blob-поля через тело не пишутся.
func bodyToRow(d *registry.EntityDescriptor, obj map[string]any) (marshal.Row, []FieldError) {
	row := make(marshal.Row, len(obj))
	var errs []FieldError
	for k, v := range obj {
		if k == d.PrimaryKey.Field || k == meta.IdentityColumn {
			errs = append(errs, ferr(ErrReadOnly, k, "Field '"+k+"' is read-only"))
			continue
		}
		col, ok := d.ColumnByField(k)
		if !ok {
			col, ok = d.Column(k)
		}
		if !ok {
			errs = append(errs, ferr(ErrUnknownField, k, "Unknown field"))
			continue
		}
		if col.Kind == meta.KindBlob {
			errs = append(errs, ferr(ErrReadOnly, k, "Blob fields are written via _blob upload"))
			continue
		}
		row[col.Name] = v
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return row, errs
}

// errorResponse выбирает HTTP-статус и тело по ошибке фасада или маршалера.
func errorResponse(err error) (int, []FieldError) {
	field := ""
	var oe *ormerr.Error
	if errors.As(err, &oe) {
		field = oe.Column
	}
	var be *persist.BatchError
	if errors.As(err, &be) && be.Index >= 0 {
		field = strconv.Itoa(be.Index) + "." + field
	}

	if store.IsConstraint(err) {
		return http.StatusConflict, []FieldError{ferr(ErrConstraint, field, err.Error())}
	}
	switch ormerr.CodeOf(err) {
	case ormerr.CodeEntityNotRegistered, ormerr.CodeRecordNotFound:
		return http.StatusNotFound, []FieldError{ferr(ErrNotFound, field, err.Error())}
	case ormerr.CodeColumnNotNullable:
		return http.StatusBadRequest, []FieldError{ferr(ErrRequired, field, "Field is required")}
	case ormerr.CodeUnsupportedFieldType:
		return http.StatusBadRequest, []FieldError{ferr(ErrTypeMismatch, field, err.Error())}
	case ormerr.CodeNotPersisted:
		return http.StatusBadRequest, []FieldError{ferr(ErrNotPersisted, field, err.Error())}
	}
	return http.StatusInternalServerError, []FieldError{ferr(ErrInternal, field, fmt.Sprint(err))}
}

// statusForErrors: 409, если есть конфликтные ошибки, иначе 400.
func statusForErrors(errs []FieldError) int {
	for _, e := range errs {
		if e.Code == ErrConstraint {
			return http.StatusConflict
		}
	}
	return http.StatusBadRequest
}
