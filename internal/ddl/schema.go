// Package ddl генерирует DDL по построенному реестру: таблицы в порядке
// зависимостей (сначала цели внешних ключей), с переключением проверки
// ограничений вокруг всей последовательности.
package ddl

import (
	"fmt"
	"strings"

	"tabula/internal/ormerr"
	"tabula/internal/registry"
)

// Script — упорядоченные операторы и переключатель ограничений вокруг них.
type Script struct {
	Disable    string
	Statements []string
	Enable     string
}

// All — полная последовательность: Disable, Statements..., Enable.
func (s Script) All() []string {
	out := make([]string, 0, len(s.Statements)+2)
	out = append(out, s.Disable)
	out = append(out, s.Statements...)
	return append(out, s.Enable)
}

func (s Script) String() string { return strings.Join(s.All(), "\n") }

// Create возвращает CREATE TABLE для всех сущностей: сначала корни (без внешних
// ключей) по имени, затем зависимые в порядке обхода в глубину.
// Цикл внешних ключей → CircularDependency с перечислением цикла.
func Create(reg *registry.Registry, d Dialect) (Script, error) {
	if d == nil {
		d = SQLite{}
	}
	entities := reg.Entities()
	g := &generator{
		reg:        reg,
		dialect:    d,
		emitted:    make(map[string]bool, len(entities)),
		visiting:   map[string]bool{},
		referenced: referencedColumns(reg),
	}

	var roots, dependents []*registry.EntityDescriptor
	for _, e := range entities {
		if e.Dependent() {
			dependents = append(dependents, e)
		} else {
			roots = append(roots, e)
		}
	}

	if len(entities) > 0 && len(roots) == 0 {
		// цели-корня нет: ищем цикл, чтобы назвать его в ошибке
		for _, e := range dependents {
			if err := g.emit(e); err != nil {
				return Script{}, err
			}
		}
		return Script{}, ormerr.Cycle(nil, "no entity without foreign keys")
	}

	for _, e := range roots {
		if err := g.emit(e); err != nil {
			return Script{}, err
		}
	}
	for _, e := range dependents {
		if err := g.emit(e); err != nil {
			return Script{}, err
		}
	}

	return Script{
		Disable:    d.DisableConstraints(),
		Statements: g.out,
		Enable:     d.EnableConstraints(),
	}, nil
}

// Drop — DROP TABLE IF EXISTS по каждой сущности; порядок не важен,
// проверка ограничений отключена на время удаления.
func Drop(reg *registry.Registry, d Dialect) Script {
	if d == nil {
		d = SQLite{}
	}
	var stmts []string
	for _, e := range reg.Entities() {
		stmts = append(stmts, d.DropTable(e.Table))
	}
	return Script{
		Disable:    d.DisableConstraints(),
		Statements: stmts,
		Enable:     d.EnableConstraints(),
	}
}

// Table возвращает CREATE TABLE одной сущности без учёта порядка.
func Table(e *registry.EntityDescriptor, reg *registry.Registry, d Dialect) (string, error) {
	if d == nil {
		d = SQLite{}
	}
	g := &generator{reg: reg, dialect: d, referenced: referencedColumns(reg)}
	return g.table(e)
}

type generator struct {
	reg        *registry.Registry
	dialect    Dialect
	emitted    map[string]bool
	visiting   map[string]bool
	stack      []string
	referenced map[string]map[string]bool
	out        []string
}

// emit выпускает сущность после всех целей её внешних ключей.
func (g *generator) emit(e *registry.EntityDescriptor) error {
	if g.emitted[e.Name] {
		return nil
	}
	if g.visiting[e.Name] {
		return ormerr.Cycle(g.cycleFrom(e.Name), "foreign keys form a cycle")
	}
	g.visiting[e.Name] = true
	g.stack = append(g.stack, e.Name)

	for _, col := range e.ForeignKeyOrder {
		fk := e.ForeignKeys[col]
		if fk.Entity == e.Name {
			// ссылка на себя создаётся тем же оператором
			continue
		}
		target, err := g.reg.Lookup(fk.Entity)
		if err != nil {
			return err
		}
		if err := g.emit(target); err != nil {
			return err
		}
	}

	stmt, err := g.table(e)
	if err != nil {
		return err
	}
	g.out = append(g.out, stmt)

	g.stack = g.stack[:len(g.stack)-1]
	delete(g.visiting, e.Name)
	g.emitted[e.Name] = true
	return nil
}

// cycleFrom — путь по стеку от name до вершины и обратно к name.
func (g *generator) cycleFrom(name string) []string {
	start := 0
	for i, n := range g.stack {
		if n == name {
			start = i
			break
		}
	}
	path := append([]string(nil), g.stack[start:]...)
	return append(path, name)
}

func (g *generator) table(e *registry.EntityDescriptor) (string, error) {
	parts := make([]string, 0, len(e.Columns)+2+len(e.ForeignKeyOrder))
	parts = append(parts, g.dialect.IdentityColumn())

	for _, c := range e.Columns {
		typ := g.dialect.ColumnType(c)
		if typ == "" {
			return "", ormerr.New(ormerr.CodeUnsupportedFieldType, e.Name, c.Name, "no %s type for %s", g.dialect.Name(), c.Kind)
		}
		def := g.dialect.Ident(c.Name) + " " + typ
		if u, ok := g.dialect.(interface{ UniqueReferenced() bool }); ok && u.UniqueReferenced() && g.referenced[e.Name][c.Name] {
			def += " UNIQUE"
		}
		parts = append(parts, def)
	}
	parts = append(parts, g.dialect.PrimaryKey(e.PrimaryKey))

	for _, col := range e.ForeignKeyOrder {
		fk := e.ForeignKeys[col]
		target, err := g.reg.Lookup(fk.Entity)
		if err != nil {
			return "", ormerr.New(ormerr.CodeEntityNotRegistered, e.Name, col, "referenced entity %q is not registered", fk.Entity)
		}
		parts = append(parts, g.dialect.ForeignKey(col, target.Table, fk.ReferencedColumn))
	}

	return fmt.Sprintf("CREATE TABLE %s(%s);", g.dialect.Ident(e.Table), strings.Join(parts, ", ")), nil
}

// referencedColumns — колонки, на которые ссылаются внешние ключи не по идентификатору.
func referencedColumns(reg *registry.Registry) map[string]map[string]bool {
	out := map[string]map[string]bool{}
	for _, e := range reg.Entities() {
		for _, fk := range e.ForeignKeys {
			if fk.DefaultReference() {
				continue
			}
			if out[fk.Entity] == nil {
				out[fk.Entity] = map[string]bool{}
			}
			out[fk.Entity][fk.ReferencedColumn] = true
		}
	}
	return out
}
