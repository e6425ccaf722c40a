package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"tabula/internal/meta"
	"tabula/internal/reference"
)

// Provider отдаёт описания сущностей из DSL и создаёт для них *Record.
type Provider struct {
	entities map[string]*Entity
	catalog  reference.Catalog
	byName   map[string]string // разрешённое имя → идентификатор
}

// NewProvider проверяет наследование и справочники enum[@...].
func NewProvider(entities map[string]*Entity, catalog reference.Catalog) (*Provider, error) {
	p := &Provider{entities: entities, catalog: catalog, byName: map[string]string{}}
	for id, e := range entities {
		if _, err := p.Describe(id); err != nil {
			return nil, err
		}
		if !e.Abstract {
			p.byName[e.ResolvedName()] = id
		}
	}
	return p, nil
}

// Load читает DSL из dslDir и справочники из enumsDir.
func Load(dslDir, enumsDir string) (*Provider, error) {
	entities, err := LoadAllEntities(dslDir)
	if err != nil {
		return nil, err
	}
	catalog, err := reference.LoadEnumCatalog(enumsDir)
	if err != nil {
		return nil, fmt.Errorf("load enums: %w", err)
	}
	return NewProvider(entities, catalog)
}

// IDs — идентификаторы неабстрактных сущностей.
func (p *Provider) IDs() []string { return IDs(p.entities) }

// Describe переводит блок DSL в описание для реестра.
func (p *Provider) Describe(id string) (meta.EntitySpec, error) {
	e, ok := p.entities[id]
	if !ok {
		return meta.EntitySpec{}, fmt.Errorf("entity %q is not declared", id)
	}
	fields, err := p.fields(e, nil)
	if err != nil {
		return meta.EntitySpec{}, err
	}
	spec := meta.EntitySpec{Name: e.ResolvedName(), Marked: !e.Abstract}
	for _, f := range fields {
		fs, err := p.fieldSpec(e, f)
		if err != nil {
			return meta.EntitySpec{}, err
		}
		spec.Fields = append(spec.Fields, fs)
	}
	return spec, nil
}

// New создаёт пустую запись сущности по разрешённому имени.
func (p *Provider) New(entity string) (meta.Instance, error) {
	if _, ok := p.byName[entity]; !ok {
		return nil, fmt.Errorf("entity %q is not declared", entity)
	}
	return NewRecord(entity), nil
}

// fields — поля с учётом extends: сначала поля предка.
func (p *Provider) fields(e *Entity, seen map[string]bool) ([]Field, error) {
	if e.Extends == "" {
		return e.Fields, nil
	}
	if seen == nil {
		seen = map[string]bool{}
	}
	if seen[e.ID] {
		return nil, fmt.Errorf("%s:%d: entity %q extends itself", e.File, e.Line, e.ID)
	}
	seen[e.ID] = true
	base, ok := p.entities[e.Extends]
	if !ok {
		return nil, fmt.Errorf("%s:%d: entity %q extends unknown %q", e.File, e.Line, e.ID, e.Extends)
	}
	inherited, err := p.fields(base, seen)
	if err != nil {
		return nil, err
	}
	out := make([]Field, 0, len(inherited)+len(e.Fields))
	own := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		own[f.Name] = true
	}
	for _, f := range inherited {
		if !own[f.Name] {
			out = append(out, f)
		}
	}
	return append(out, e.Fields...), nil
}

func (p *Provider) fieldSpec(e *Entity, f Field) (meta.FieldSpec, error) {
	fs := meta.FieldSpec{
		Name:     f.Name,
		Column:   f.Options["column"],
		Role:     meta.RoleColumn,
		Nullable: !f.Flag("required"),
		Order:    meta.ParseOrder(f.Options["order"]),
		Access:   recordAccessor(f.Name),
	}
	if v, ok := f.Option("length"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fs, fmt.Errorf("%s:%d: %s.%s: invalid length %q", e.File, f.Line, e.ID, f.Name, v)
		}
		fs.Length = n
	}

	switch f.Type {
	case "pk":
		fs.Role, fs.Kind = meta.RolePrimaryKey, meta.KindInt64
	case "enum":
		fs.Kind = meta.KindEnum
		fs.EnumValues = f.Enum
		if f.EnumCatalog != "" {
			values, err := p.catalog.Values(f.EnumCatalog)
			if err != nil {
				return fs, fmt.Errorf("%s:%d: %s.%s: %w", e.File, f.Line, e.ID, f.Name, err)
			}
			fs.EnumValues = values
		}
	case "ref":
		fs.Role, fs.Kind, fs.Target = meta.RoleForeignKey, meta.KindReference, f.Target
		fs.Reference = f.Options["reference"]
	case "link":
		fs.Kind, fs.Target = meta.KindReference, f.Target
	case "list":
		fs.Role, fs.Target = meta.RoleOneToMany, f.Target
	case "set":
		fs.Role, fs.Target = meta.RoleManyToMany, f.Target
	default:
		// неизвестный тип реестр отклонит как UnsupportedFieldType
		fs.Kind, _ = meta.ParseKind(f.Type)
	}

	if f.Flag("pk") {
		fs.Role = meta.RolePrimaryKey
	}
	if f.Flag("ignore") {
		fs.Role = meta.RoleIgnored
	}
	if fs.Role == meta.RolePrimaryKey {
		fs.Nullable = false
	}
	fs.Column = strings.TrimSpace(fs.Column)
	return fs, nil
}
