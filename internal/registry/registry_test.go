package registry

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabula/internal/meta"
	"tabula/internal/meta/metatest"
	"tabula/internal/ormerr"
)

func TestBuildLibrary(t *testing.T) {
	reg, err := Build(metatest.Library(), "Author", "Book")
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"Author", "Book"}, reg.Names())

	book, err := reg.Lookup("Book")
	require.NoError(t, err)
	assert.Equal(t, "BOOK", book.Table)
	assert.Equal(t, []string{"title", "author"}, book.ColumnNames())
	assert.Equal(t, meta.IdentityColumn, book.PrimaryKey.Column)
	assert.Equal(t, meta.OrderAsc, book.PrimaryKey.Order)
	assert.True(t, book.Dependent())

	fk, ok := book.ForeignKey("author")
	require.True(t, ok)
	assert.Equal(t, "Author", fk.Entity)
	assert.Equal(t, "_id", fk.ReferencedColumn)
	assert.True(t, fk.DefaultReference())

	col, ok := book.Column("author")
	require.True(t, ok)
	assert.Equal(t, meta.StorageNumber, col.Storage)
	assert.Equal(t, "Author", col.Target)
}

func TestLookupUnknown(t *testing.T) {
	reg, err := Build(metatest.Library(), "Author")
	require.NoError(t, err)

	_, err = reg.Lookup("Nope")
	assert.ErrorIs(t, err, ormerr.ErrEntityNotRegistered)
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	reg, err := Build(metatest.Library(), "Author", "Book")
	require.NoError(t, err)

	d, ok := reg.Resolve("book")
	require.True(t, ok)
	assert.Equal(t, "Book", d.Name)
	_, ok = reg.Resolve("")
	assert.False(t, ok)
}

func TestBuildValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		p      metatest.Provider
		ids    []string
		want   error
		entity string
		column string
	}{
		{
			name: "missing markup",
			p:    metatest.Provider{"A": {Name: "A", Fields: []meta.FieldSpec{metatest.PK()}}},
			ids:  []string{"A"},
			want: ormerr.ErrEntityNotRegistered, entity: "A",
		},
		{
			name: "unknown identifier",
			p:    metatest.Provider{},
			ids:  []string{"Ghost"},
			want: ormerr.ErrEntityNotRegistered, entity: "Ghost",
		},
		{
			name: "no primary key",
			p:    metatest.Provider{"A": metatest.Entity("A", metatest.Col("x", meta.KindText, true))},
			ids:  []string{"A"},
			want: ormerr.ErrPrimaryKeyNotFound, entity: "A",
		},
		{
			name: "two primary keys",
			p: metatest.Provider{"A": metatest.Entity("A", metatest.PK(),
				meta.FieldSpec{Name: "key", Role: meta.RolePrimaryKey, Kind: meta.KindInt64, Access: metatest.Accessor("key")})},
			ids:  []string{"A"},
			want: ormerr.ErrMultiplePrimaryKey, entity: "A", column: "key",
		},
		{
			name: "text primary key",
			p: metatest.Provider{"A": metatest.Entity("A",
				meta.FieldSpec{Name: "id", Role: meta.RolePrimaryKey, Kind: meta.KindText, Access: metatest.Accessor("id")})},
			ids:  []string{"A"},
			want: ormerr.ErrUnsupportedPrimaryKeyType, entity: "A", column: "id",
		},
		{
			name: "invalid kind",
			p:    metatest.Provider{"A": metatest.Entity("A", metatest.PK(), metatest.Col("x", meta.KindInvalid, true))},
			ids:  []string{"A"},
			want: ormerr.ErrUnsupportedFieldType, entity: "A", column: "x",
		},
		{
			name: "reference to non entity",
			p:    metatest.Provider{"A": metatest.Entity("A", metatest.PK(), metatest.FK("b", "Missing", "", true))},
			ids:  []string{"A"},
			want: ormerr.ErrUnsupportedFieldType, entity: "A", column: "b",
		},
		{
			name: "foreign key on scalar",
			p: metatest.Provider{"A": metatest.Entity("A", metatest.PK(),
				meta.FieldSpec{Name: "x", Role: meta.RoleForeignKey, Kind: meta.KindInt64, Access: metatest.Accessor("x")})},
			ids:  []string{"A"},
			want: ormerr.ErrUnsupportedFieldType, entity: "A", column: "x",
		},
		{
			name: "reference field missing on target",
			p: metatest.Provider{
				"A": metatest.Entity("A", metatest.PK()),
				"B": metatest.Entity("B", metatest.PK(), metatest.FK("a", "A", "code", true)),
			},
			ids:  []string{"A", "B"},
			want: ormerr.ErrUnsupportedForeignKeyReference, entity: "B", column: "a",
		},
		{
			name: "two hop reference",
			p: metatest.Provider{
				"A": metatest.Entity("A", metatest.PK()),
				"B": metatest.Entity("B", metatest.PK(), metatest.FK("a", "A", "", true)),
				"C": metatest.Entity("C", metatest.PK(), metatest.FK("b", "B", "a", true)),
			},
			ids:  []string{"A", "B", "C"},
			want: ormerr.ErrUnsupportedForeignKeyReference, entity: "C", column: "b",
		},
		{
			name: "duplicate column",
			p: metatest.Provider{"A": metatest.Entity("A", metatest.PK(),
				metatest.Col("x", meta.KindText, true),
				meta.FieldSpec{Name: "y", Column: "x", Role: meta.RoleColumn, Kind: meta.KindText, Access: metatest.Accessor("y")})},
			ids:  []string{"A"},
			want: ormerr.ErrDuplicateColumnName, entity: "A", column: "x",
		},
		{
			name: "column shadows identity",
			p: metatest.Provider{"A": metatest.Entity("A", metatest.PK(),
				meta.FieldSpec{Name: "raw", Column: "_id", Role: meta.RoleColumn, Kind: meta.KindInt64, Access: metatest.Accessor("raw")})},
			ids:  []string{"A"},
			want: ormerr.ErrDuplicateColumnName, entity: "A", column: "_id",
		},
		{
			name: "target not registered",
			p:    metatest.Library(),
			ids:  []string{"Book"},
			want: ormerr.ErrEntityNotRegistered, entity: "Book", column: "author",
		},
		{
			name: "no accessor",
			p: metatest.Provider{"A": metatest.Entity("A", metatest.PK(),
				meta.FieldSpec{Name: "x", Role: meta.RoleColumn, Kind: meta.KindText})},
			ids:  []string{"A"},
			want: ormerr.ErrUnsupportedFieldType, entity: "A", column: "x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := Build(tt.p, tt.ids...)
			require.Error(t, err)
			assert.Nil(t, reg)
			assert.ErrorIs(t, err, tt.want)

			var oe *ormerr.Error
			require.True(t, errors.As(err, &oe))
			assert.Equal(t, tt.entity, oe.Entity)
			assert.Equal(t, tt.column, oe.Column)
		})
	}
}

func TestBuildDuplicateNameRegardlessOfOrder(t *testing.T) {
	p := metatest.Library()
	p["Writer"] = metatest.Entity("Author", metatest.PK(), metatest.Col("name", meta.KindText, false))

	for _, ids := range [][]string{{"Author", "Writer"}, {"Writer", "Author"}} {
		_, err := Build(p, ids...)
		assert.ErrorIs(t, err, ormerr.ErrDuplicateEntityName, "ids %v", ids)
	}
}

func TestBuildAlternateReference(t *testing.T) {
	p := metatest.Library()
	p["Book"] = metatest.Entity("Book", metatest.PK(), metatest.FK("author", "Author", "name", false))

	reg, err := Build(p, "Author", "Book")
	require.NoError(t, err)
	book, _ := reg.Lookup("Book")
	fk, _ := book.ForeignKey("author")
	assert.False(t, fk.DefaultReference())
	assert.Equal(t, "name", fk.ReferencedColumn)
	assert.Equal(t, meta.KindText, fk.ReferencedKind)

	col, _ := book.Column("author")
	assert.Equal(t, meta.StorageText, col.Storage)
}

func TestBuildRecordsRelationsAndSkipsIgnored(t *testing.T) {
	p := metatest.Library()
	p["Author"] = metatest.Entity("Author", metatest.PK(),
		metatest.Col("name", meta.KindText, false),
		meta.FieldSpec{Name: "books", Role: meta.RoleOneToMany, Target: "Book"},
		meta.FieldSpec{Name: "scratch", Role: meta.RoleIgnored, Kind: meta.KindInvalid},
	)

	reg, err := Build(p, "Author", "Book")
	require.NoError(t, err)
	author, _ := reg.Lookup("Author")
	assert.Equal(t, []string{"name"}, author.ColumnNames())
	require.Len(t, author.Relations, 1)
	assert.Equal(t, meta.RoleOneToMany, author.Relations[0].Role)
}

func TestHolderBuildsOnce(t *testing.T) {
	var h Holder
	_, err := h.Get()
	require.ErrorIs(t, err, ErrNotBuilt)
	assert.False(t, h.Built())

	var calls atomic.Int32
	build := func() (*Registry, error) {
		calls.Add(1)
		return Build(metatest.Library(), "Author", "Book")
	}

	var wg sync.WaitGroup
	results := make([]*Registry, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg, err := h.Init(build)
			assert.NoError(t, err)
			results[i] = reg
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	got, err := h.Get()
	require.NoError(t, err)
	assert.Same(t, results[0], got)
}

func TestHolderKeepsFailure(t *testing.T) {
	var h Holder
	_, err := h.Init(func() (*Registry, error) { return Build(metatest.Provider{}, "Ghost") })
	require.ErrorIs(t, err, ormerr.ErrEntityNotRegistered)

	_, err = h.Init(func() (*Registry, error) { return Build(metatest.Library(), "Author") })
	assert.ErrorIs(t, err, ormerr.ErrEntityNotRegistered)
}
