package ddl

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabula/internal/meta"
	"tabula/internal/meta/metatest"
	"tabula/internal/ormerr"
	"tabula/internal/registry"
)

func build(t *testing.T, p metatest.Provider, ids ...string) *registry.Registry {
	t.Helper()
	reg, err := registry.Build(p, ids...)
	require.NoError(t, err)
	return reg
}

func TestCreateLibrary(t *testing.T) {
	reg := build(t, metatest.Library(), "Book", "Author")

	script, err := Create(reg, SQLite{})
	require.NoError(t, err)
	require.Len(t, script.Statements, 2)
	assert.Equal(t, "CREATE TABLE AUTHOR(_id INTEGER, name TEXT, PRIMARY KEY(_id ASC));", script.Statements[0])
	assert.Equal(t, "CREATE TABLE BOOK(_id INTEGER, title TEXT, author INTEGER, PRIMARY KEY(_id ASC), FOREIGN KEY(author) REFERENCES AUTHOR(_id));", script.Statements[1])
	assert.Contains(t, script.Statements[1], "FOREIGN KEY(author) REFERENCES AUTHOR(_id)")

	all := script.All()
	require.Len(t, all, 4)
	assert.Equal(t, "PRAGMA foreign_keys = OFF;", all[0])
	assert.Equal(t, "PRAGMA foreign_keys = ON;", all[3])
}

func TestCreateRootsOnly(t *testing.T) {
	p := metatest.Provider{}
	var ids []string
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("E%d", i)
		p[name] = metatest.Entity(name, metatest.PK(), metatest.Col("v", meta.KindReal64, true))
		ids = append(ids, name)
	}
	reg := build(t, p, ids...)

	script, err := Create(reg, SQLite{})
	require.NoError(t, err)
	require.Len(t, script.Statements, 5)
	for _, s := range script.Statements {
		assert.Contains(t, s, "PRIMARY KEY(_id ASC)")
		assert.Contains(t, s, "v REAL")
	}
}

func TestCreateTargetFirstForAnyOrder(t *testing.T) {
	p := metatest.Provider{
		"A": metatest.Entity("A", metatest.PK(), metatest.FK("b", "B", "", true)),
		"B": metatest.Entity("B", metatest.PK()),
		"C": metatest.Entity("C", metatest.PK(), metatest.FK("a", "A", "", true), metatest.FK("b", "B", "", true)),
	}
	orders := [][]string{
		{"A", "B", "C"}, {"A", "C", "B"}, {"B", "A", "C"},
		{"B", "C", "A"}, {"C", "A", "B"}, {"C", "B", "A"},
	}
	for _, ids := range orders {
		script, err := Create(build(t, p, ids...), SQLite{})
		require.NoError(t, err)
		pos := map[string]int{}
		for i, s := range script.Statements {
			pos[strings.Fields(s)[2][:1]] = i
		}
		assert.Less(t, pos["B"], pos["A"], "ids %v", ids)
		assert.Less(t, pos["A"], pos["C"], "ids %v", ids)
	}
}

func TestCreateCycle(t *testing.T) {
	p := metatest.Provider{
		"A": metatest.Entity("A", metatest.PK(), metatest.FK("b", "B", "", true)),
		"B": metatest.Entity("B", metatest.PK(), metatest.FK("a", "A", "", true)),
	}
	_, err := Create(build(t, p, "A", "B"), SQLite{})
	require.ErrorIs(t, err, ormerr.ErrCircularDependency)

	var oe *ormerr.Error
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, []string{"A", "B", "A"}, oe.Cycle)
	assert.Contains(t, err.Error(), "A -> B -> A")
}

func TestCreateCycleBehindRoot(t *testing.T) {
	p := metatest.Provider{
		"Root": metatest.Entity("Root", metatest.PK()),
		"X":    metatest.Entity("X", metatest.PK(), metatest.FK("r", "Root", "", true), metatest.FK("y", "Y", "", true)),
		"Y":    metatest.Entity("Y", metatest.PK(), metatest.FK("z", "Z", "", true)),
		"Z":    metatest.Entity("Z", metatest.PK(), metatest.FK("x", "X", "", true)),
	}
	script, err := Create(build(t, p, "Root", "X", "Y", "Z"), SQLite{})
	require.ErrorIs(t, err, ormerr.ErrCircularDependency)
	assert.Empty(t, script.Statements)

	var oe *ormerr.Error
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, []string{"X", "Y", "Z", "X"}, oe.Cycle)
}

func TestCreateSelfReference(t *testing.T) {
	p := metatest.Provider{
		"Root": metatest.Entity("Root", metatest.PK()),
		"Node": metatest.Entity("Node", metatest.PK(), metatest.FK("parent", "Node", "", true)),
	}
	script, err := Create(build(t, p, "Root", "Node"), SQLite{})
	require.NoError(t, err)
	require.Len(t, script.Statements, 2)
	assert.Contains(t, script.Statements[1], "FOREIGN KEY(parent) REFERENCES NODE(_id)")
}

func TestCreateEmptyRegistry(t *testing.T) {
	script, err := Create(build(t, metatest.Provider{}), SQLite{})
	require.NoError(t, err)
	assert.Empty(t, script.Statements)
	assert.Len(t, script.All(), 2)
}

func TestCreateColumnTypes(t *testing.T) {
	p := metatest.Provider{
		"Author": metatest.Entity("Author",
			meta.FieldSpec{Name: "id", Role: meta.RolePrimaryKey, Kind: meta.KindInt64, Order: meta.OrderDesc, Access: metatest.Accessor("id")},
			meta.FieldSpec{Name: "name", Role: meta.RoleColumn, Kind: meta.KindText, Length: 64, Access: metatest.Accessor("name")},
			metatest.Col("born", meta.KindDate, true),
			metatest.Col("alive", meta.KindBool, true),
			metatest.Col("photo", meta.KindBlob, true),
			meta.FieldSpec{Name: "order", Role: meta.RoleColumn, Kind: meta.KindInt16, Access: metatest.Accessor("order")},
		),
		"Book": metatest.Entity("Book", metatest.PK(),
			metatest.FK("writer", "Author", "name", true),
		),
	}
	reg := build(t, p, "Author", "Book")

	script, err := Create(reg, SQLite{})
	require.NoError(t, err)
	assert.Equal(t,
		`CREATE TABLE AUTHOR(_id INTEGER, name TEXT(64), born INTEGER, alive INTEGER, photo BLOB, order INTEGER, PRIMARY KEY(_id DESC));`,
		script.Statements[0])
	assert.Equal(t,
		"CREATE TABLE BOOK(_id INTEGER, writer TEXT, PRIMARY KEY(_id ASC), FOREIGN KEY(writer) REFERENCES AUTHOR(name));",
		script.Statements[1])

	strict, err := Create(reg, SQLite{UniqueTargets: true})
	require.NoError(t, err)
	assert.Contains(t, strict.Statements[0], "name TEXT(64) UNIQUE, born INTEGER")

	quoted, err := Create(reg, SQLite{QuoteReserved: true})
	require.NoError(t, err)
	assert.Contains(t, quoted.Statements[0], `photo BLOB, "order" INTEGER, PRIMARY KEY`)

	pg, err := Create(reg, Postgres{})
	require.NoError(t, err)
	assert.Equal(t,
		`CREATE TABLE AUTHOR(_id BIGSERIAL, name VARCHAR(64) UNIQUE, born BIGINT, alive BIGINT, photo BYTEA, "order" BIGINT, PRIMARY KEY(_id));`,
		pg.Statements[0])
	assert.Equal(t, "SET CONSTRAINTS ALL DEFERRED;", pg.Disable)
}

func TestDrop(t *testing.T) {
	reg := build(t, metatest.Library(), "Author", "Book")

	script := Drop(reg, SQLite{})
	assert.ElementsMatch(t, []string{"DROP TABLE IF EXISTS AUTHOR;", "DROP TABLE IF EXISTS BOOK;"}, script.Statements)
	assert.Equal(t, "PRAGMA foreign_keys = OFF;", script.Disable)

	pg := Drop(reg, Postgres{})
	assert.Contains(t, pg.Statements, "DROP TABLE IF EXISTS BOOK CASCADE;")
}

func TestTableReservedName(t *testing.T) {
	p := metatest.Provider{"Order": metatest.Entity("Order", metatest.PK(), metatest.Col("total", meta.KindReal32, false))}
	reg := build(t, p, "Order")
	e, err := reg.Lookup("Order")
	require.NoError(t, err)

	stmt, err := Table(e, reg, nil)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE ORDER(_id INTEGER, total REAL, PRIMARY KEY(_id ASC));", stmt)

	stmt, err = Table(e, reg, SQLite{QuoteReserved: true})
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE "ORDER"(_id INTEGER, total REAL, PRIMARY KEY(_id ASC));`, stmt)
	assert.Equal(t, `DROP TABLE IF EXISTS "ORDER";`, SQLite{QuoteReserved: true}.DropTable("ORDER"))
	assert.Equal(t, "DROP TABLE IF EXISTS ORDER;", SQLite{}.DropTable("ORDER"))
}

func TestByName(t *testing.T) {
	d, err := ByName("pgx")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
	assert.Equal(t, "$3", d.Placeholder(3))

	d, err = ByName("")
	require.NoError(t, err)
	assert.Equal(t, "?", d.Placeholder(1))

	assert.Equal(t,
		`SELECT setval(pg_get_serial_sequence('"ORDER"', '_id'), (SELECT MAX(_id) FROM "ORDER"))`,
		Postgres{}.SyncIdentity("ORDER"))
	assert.Empty(t, SQLite{}.SyncIdentity("ORDER"))

	_, err = ByName("oracle")
	assert.Error(t, err)
}
