package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabula/internal/ddl"
	"tabula/internal/meta/metatest"
	"tabula/internal/registry"
	"tabula/internal/store"
	"tabula/internal/store/storetest"
)

func libraryScript(t *testing.T, d ddl.Dialect) ddl.Script {
	t.Helper()
	reg, err := registry.Build(metatest.Library(), "Author", "Book")
	require.NoError(t, err)
	script, err := ddl.Create(reg, d)
	require.NoError(t, err)
	return script
}

func TestApplyIsRepeatable(t *testing.T) {
	s := storetest.OpenSQLite(t)
	ctx := context.Background()
	script := libraryScript(t, s.Dialect())

	require.NoError(t, s.Apply(ctx, script))
	require.NoError(t, s.Apply(ctx, script))

	var n int
	require.NoError(t, s.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('AUTHOR', 'BOOK')").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestForeignKeysEnforcedAfterApply(t *testing.T) {
	s := storetest.OpenSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.Apply(ctx, libraryScript(t, s.Dialect())))

	on, err := s.ForeignKeys(ctx)
	require.NoError(t, err)
	assert.True(t, on)

	_, err = s.DB().ExecContext(ctx, "INSERT INTO BOOK(title, author) VALUES ('X', 99)")
	require.Error(t, err)
	assert.True(t, store.IsConstraint(err), "got %v", err)

	require.NoError(t, s.SetForeignKeys(ctx, false))
	on, err = s.ForeignKeys(ctx)
	require.NoError(t, err)
	assert.False(t, on)
	_, err = s.DB().ExecContext(ctx, "INSERT INTO BOOK(title, author) VALUES ('X', 99)")
	assert.NoError(t, err)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := store.Open("oracle", "x")
	assert.Error(t, err)

	_, err = store.OpenSQLite(" ")
	assert.Error(t, err)
}

func TestOpenMemory(t *testing.T) {
	s, err := store.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "sqlite", s.Dialect().Name())
	require.NoError(t, s.Apply(context.Background(), libraryScript(t, s.Dialect())))
}

func TestIsAlreadyExists(t *testing.T) {
	assert.False(t, store.IsAlreadyExists(nil))
	assert.False(t, store.IsConstraint(nil))
}

func TestPostgresApply(t *testing.T) {
	s := storetest.OpenPostgres(t)
	ctx := context.Background()
	script := libraryScript(t, s.Dialect())

	require.NoError(t, s.Apply(ctx, script))
	require.NoError(t, s.Apply(ctx, script))

	_, err := s.DB().ExecContext(ctx, "INSERT INTO BOOK(title, author) VALUES ('X', 99)")
	require.Error(t, err)
	assert.True(t, store.IsConstraint(err), "got %v", err)
}
