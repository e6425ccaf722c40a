package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabula/internal/ddl"
	"tabula/internal/marshal"
	"tabula/internal/meta"
	"tabula/internal/meta/metatest"
	"tabula/internal/registry"
)

func book(t *testing.T) *registry.EntityDescriptor {
	t.Helper()
	reg, err := registry.Build(metatest.Library(), "Author", "Book")
	require.NoError(t, err)
	d, err := reg.Lookup("Book")
	require.NoError(t, err)
	return d
}

func TestInsertSQL(t *testing.T) {
	d := book(t)
	row := marshal.Row{"title": "X", "author": int64(5)}

	q, args := insertSQL(d, row, meta.NotPersistedID, ddl.SQLite{})
	assert.Equal(t, "INSERT INTO BOOK(title, author) VALUES (?, ?)", q)
	assert.Equal(t, []any{"X", int64(5)}, args)

	q, args = insertSQL(d, marshal.Row{"title": "X"}, 9, ddl.Postgres{})
	assert.Equal(t, "INSERT INTO BOOK(_id, title) VALUES ($1, $2) RETURNING _id", q)
	assert.Equal(t, []any{int64(9), "X"}, args)

	q, args = insertSQL(d, marshal.Row{}, meta.NotPersistedID, ddl.SQLite{})
	assert.Equal(t, "INSERT INTO BOOK DEFAULT VALUES", q)
	assert.Empty(t, args)
}

func TestSelectAndModifySQL(t *testing.T) {
	d := book(t)

	assert.Equal(t, "SELECT _id, title, author FROM BOOK WHERE _id = $1", selectByIDSQL(d, ddl.Postgres{}))
	assert.Equal(t, "SELECT _id, title, author FROM BOOK ORDER BY _id LIMIT ? OFFSET ?", listSQL(d, ddl.SQLite{}))
	assert.Equal(t, "SELECT COUNT(*) FROM BOOK", countSQL(d, ddl.SQLite{}))
	assert.Equal(t, "DELETE FROM BOOK WHERE _id = ?", deleteSQL(d, ddl.SQLite{}))

	q, args := updateSQL(d, marshal.Row{"title": "Y"}, 3, ddl.Postgres{})
	assert.Equal(t, "UPDATE BOOK SET title = $1, author = $2 WHERE _id = $3", q)
	assert.Equal(t, []any{"Y", nil, int64(3)}, args)
}

func TestReservedNamesFollowDialect(t *testing.T) {
	p := metatest.Provider{"Order": metatest.Entity("Order", metatest.PK(), metatest.Col("group", meta.KindText, true))}
	reg, err := registry.Build(p, "Order")
	require.NoError(t, err)
	d, err := reg.Lookup("Order")
	require.NoError(t, err)

	q, _ := insertSQL(d, marshal.Row{"group": "a"}, meta.NotPersistedID, ddl.SQLite{QuoteReserved: true})
	assert.Equal(t, `INSERT INTO "ORDER"("group") VALUES (?)`, q)
	assert.Equal(t, `SELECT COUNT(*) FROM "ORDER"`, countSQL(d, ddl.Postgres{}))
	assert.Equal(t, "SELECT COUNT(*) FROM ORDER", countSQL(d, ddl.SQLite{}))
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Limit: DefaultLimit}, Page{}.normalize())
	assert.Equal(t, Page{Limit: MaxLimit, Offset: 0}, Page{Limit: 5000, Offset: -3}.normalize())
}
