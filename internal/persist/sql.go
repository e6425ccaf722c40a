package persist

import (
	"fmt"
	"strings"

	"tabula/internal/ddl"
	"tabula/internal/marshal"
	"tabula/internal/meta"
	"tabula/internal/registry"
)

// Построение DML по дескриптору. Колонки всегда в порядке дескриптора.

func insertSQL(d *registry.EntityDescriptor, row marshal.Row, id int64, dialect ddl.Dialect) (string, []any) {
	var cols, marks []string
	var args []any
	if id != meta.NotPersistedID {
		cols = append(cols, meta.IdentityColumn)
		args = append(args, id)
		marks = append(marks, dialect.Placeholder(len(args)))
	}
	for _, c := range d.Columns {
		v, ok := row[c.Name]
		if !ok {
			continue
		}
		cols = append(cols, dialect.Ident(c.Name))
		args = append(args, v)
		marks = append(marks, dialect.Placeholder(len(args)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s", dialect.Ident(d.Table))
	if len(cols) == 0 {
		b.WriteString(" DEFAULT VALUES")
	} else {
		fmt.Fprintf(&b, "(%s) VALUES (%s)", strings.Join(cols, ", "), strings.Join(marks, ", "))
	}
	if dialect.Returning() {
		b.WriteString(" RETURNING " + meta.IdentityColumn)
	}
	return b.String(), args
}

func selectColumns(d *registry.EntityDescriptor, dialect ddl.Dialect) string {
	cols := make([]string, 0, len(d.Columns)+1)
	cols = append(cols, meta.IdentityColumn)
	for _, c := range d.Columns {
		cols = append(cols, dialect.Ident(c.Name))
	}
	return strings.Join(cols, ", ")
}

func selectByIDSQL(d *registry.EntityDescriptor, dialect ddl.Dialect) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		selectColumns(d, dialect), dialect.Ident(d.Table), meta.IdentityColumn, dialect.Placeholder(1))
}

func listSQL(d *registry.EntityDescriptor, dialect ddl.Dialect) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT %s OFFSET %s",
		selectColumns(d, dialect), dialect.Ident(d.Table), meta.IdentityColumn,
		dialect.Placeholder(1), dialect.Placeholder(2))
}

func countSQL(d *registry.EntityDescriptor, dialect ddl.Dialect) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", dialect.Ident(d.Table))
}

// updateSQL пишет все колонки: отсутствующие в строке становятся NULL.
func updateSQL(d *registry.EntityDescriptor, row marshal.Row, id int64, dialect ddl.Dialect) (string, []any) {
	sets := make([]string, 0, len(d.Columns))
	args := make([]any, 0, len(d.Columns)+1)
	for _, c := range d.Columns {
		args = append(args, row[c.Name])
		sets = append(sets, fmt.Sprintf("%s = %s", dialect.Ident(c.Name), dialect.Placeholder(len(args))))
	}
	args = append(args, id)
	if len(sets) == 0 {
		// обновлять нечего; проверяем только существование
		return fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s", dialect.Ident(d.Table),
			meta.IdentityColumn, meta.IdentityColumn, meta.IdentityColumn, dialect.Placeholder(len(args))), args
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s", dialect.Ident(d.Table),
		strings.Join(sets, ", "), meta.IdentityColumn, dialect.Placeholder(len(args))), args
}

func deleteSQL(d *registry.EntityDescriptor, dialect ddl.Dialect) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = %s", dialect.Ident(d.Table), meta.IdentityColumn, dialect.Placeholder(1))
}
