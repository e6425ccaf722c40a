// Package registry строит и хранит неизменяемые дескрипторы сущностей.
package registry

import (
	"errors"
	"log"
	"sort"
	"strings"

	"tabula/internal/meta"
	"tabula/internal/ormerr"
)

// Registry — проиндексированные дескрипторы. После Build не меняется.
type Registry struct {
	entities map[string]*EntityDescriptor
	names    []string
}

// Lookup возвращает дескриптор по имени сущности.
func (r *Registry) Lookup(name string) (*EntityDescriptor, error) {
	if d, ok := r.entities[name]; ok {
		return d, nil
	}
	return nil, ormerr.New(ormerr.CodeEntityNotRegistered, name, "", "")
}

// Resolve ищет сущность сначала по точному имени, потом регистронезависимо
// (имя из URL, из DSL и т.п.). Неоднозначное совпадение → false.
func (r *Registry) Resolve(name string) (*EntityDescriptor, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	if d, ok := r.entities[name]; ok {
		return d, true
	}
	var found *EntityDescriptor
	for _, n := range r.names {
		if strings.EqualFold(n, name) {
			if found != nil {
				return nil, false
			}
			found = r.entities[n]
		}
	}
	return found, found != nil
}

// Names — имена сущностей, отсортированные.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Entities — дескрипторы в порядке Names.
func (r *Registry) Entities() []*EntityDescriptor {
	out := make([]*EntityDescriptor, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.entities[n])
	}
	return out
}

func (r *Registry) Len() int { return len(r.entities) }

// Build описывает каждую сущность через провайдер, проверяет и индексирует.
// Любая ошибка прерывает построение целиком.
func Build(p meta.Provider, ids ...string) (*Registry, error) {
	if p == nil {
		return nil, errors.New("metadata provider is required")
	}
	b := &builder{provider: p, specs: map[string]meta.EntitySpec{}}
	reg := &Registry{entities: make(map[string]*EntityDescriptor, len(ids))}

	for _, id := range ids {
		d, err := b.entity(id)
		if err != nil {
			return nil, err
		}
		if _, exists := reg.entities[d.Name]; exists {
			return nil, ormerr.New(ormerr.CodeDuplicateEntityName, d.Name, "", "entity %q resolves to an already registered name", id)
		}
		reg.entities[d.Name] = d
		reg.names = append(reg.names, d.Name)
	}
	sort.Strings(reg.names)

	// цели ссылок должны быть зарегистрированы
	for _, n := range reg.names {
		d := reg.entities[n]
		for _, c := range d.Columns {
			if c.Kind != meta.KindReference {
				continue
			}
			if _, ok := reg.entities[c.Target]; !ok {
				return nil, ormerr.New(ormerr.CodeEntityNotRegistered, d.Name, c.Name, "referenced entity %q is not registered", c.Target)
			}
		}
	}
	return reg, nil
}

type builder struct {
	provider meta.Provider
	specs    map[string]meta.EntitySpec
}

// describe кэширует описания: одна цель ссылки может встречаться много раз.
func (b *builder) describe(id string) (meta.EntitySpec, error) {
	if s, ok := b.specs[id]; ok {
		return s, nil
	}
	s, err := b.provider.Describe(id)
	if err != nil {
		return meta.EntitySpec{}, ormerr.Wrap(ormerr.CodeEntityNotRegistered, id, "", err)
	}
	if !s.Marked {
		return meta.EntitySpec{}, ormerr.New(ormerr.CodeEntityNotRegistered, id, "", "missing entity markup")
	}
	if strings.TrimSpace(s.Name) == "" {
		s.Name = id
	}
	b.specs[id] = s
	return s, nil
}

func (b *builder) entity(id string) (*EntityDescriptor, error) {
	spec, err := b.describe(id)
	if err != nil {
		return nil, err
	}
	name := spec.Name

	// первичный ключ
	var pk *meta.FieldSpec
	for i := range spec.Fields {
		if spec.Fields[i].Role != meta.RolePrimaryKey {
			continue
		}
		if pk != nil {
			return nil, ormerr.New(ormerr.CodeMultiplePrimaryKey, name, spec.Fields[i].Name, "")
		}
		pk = &spec.Fields[i]
	}
	if pk == nil {
		return nil, ormerr.New(ormerr.CodePrimaryKeyNotFound, name, "", "")
	}
	if pk.Kind != meta.KindInt64 {
		return nil, ormerr.New(ormerr.CodeUnsupportedPrimaryKeyType, name, pk.Name, "primary key kind is %s, want int64", pk.Kind)
	}
	if pk.Access == nil {
		return nil, ormerr.New(ormerr.CodeUnsupportedFieldType, name, pk.Name, "field has no accessor")
	}

	d := &EntityDescriptor{
		Name:  name,
		Table: strings.ToUpper(name),
		PrimaryKey: PrimaryKeyDescriptor{
			Column: meta.IdentityColumn,
			Field:  pk.Name,
			Order:  orderOr(pk.Order),
			Access: pk.Access,
		},
		ForeignKeys: map[string]ForeignKeyDescriptor{},
	}

	// типы полей
	targets := map[string]meta.EntitySpec{}
	for _, f := range spec.Fields {
		switch f.Role {
		case meta.RolePrimaryKey, meta.RoleIgnored:
			continue
		case meta.RoleOneToMany, meta.RoleManyToMany:
			log.Printf("%s.%s: %s relation is recorded but not stored", name, f.Name, f.Role)
			d.Relations = append(d.Relations, RelationDescriptor{Field: f.Name, Role: f.Role, Target: f.Target})
			continue
		}
		if f.Access == nil {
			return nil, ormerr.New(ormerr.CodeUnsupportedFieldType, name, f.ColumnName(), "field has no accessor")
		}
		switch {
		case f.Kind.Scalar():
			if f.Role == meta.RoleForeignKey {
				return nil, ormerr.New(ormerr.CodeUnsupportedFieldType, name, f.ColumnName(), "foreign key field must reference an entity, got %s", f.Kind)
			}
		case f.Kind == meta.KindReference:
			t, err := b.describe(f.Target)
			if err != nil {
				return nil, ormerr.New(ormerr.CodeUnsupportedFieldType, name, f.ColumnName(), "reference target %q is not an entity", f.Target)
			}
			targets[f.Name] = t
		default:
			return nil, ormerr.New(ormerr.CodeUnsupportedFieldType, name, f.ColumnName(), "unsupported kind %s", f.Kind)
		}
	}

	// колонки и внешние ключи
	seen := map[string]struct{}{meta.IdentityColumn: {}}
	for _, f := range spec.Fields {
		if f.Role != meta.RoleColumn && f.Role != meta.RoleForeignKey {
			continue
		}
		col := ColumnDescriptor{
			Name:       f.ColumnName(),
			Field:      f.Name,
			Kind:       f.Kind,
			Nullable:   f.Nullable,
			Length:     f.Length,
			EnumValues: append([]string(nil), f.EnumValues...),
			Access:     f.Access,
		}
		col.Storage, _ = meta.StorageOf(f.Kind)

		if f.Kind == meta.KindReference {
			target := targets[f.Name]
			col.Target = target.Name
			if f.Role == meta.RoleForeignKey {
				fk, err := foreignKey(name, col.Name, f, target)
				if err != nil {
					return nil, err
				}
				col.Storage, _ = meta.StorageOf(fk.ReferencedKind)
				d.ForeignKeys[col.Name] = fk
				d.ForeignKeyOrder = append(d.ForeignKeyOrder, col.Name)
			}
		}

		if _, dup := seen[col.Name]; dup {
			return nil, ormerr.New(ormerr.CodeDuplicateColumnName, name, col.Name, "")
		}
		seen[col.Name] = struct{}{}
		d.Columns = append(d.Columns, col)
	}
	d.index()
	return d, nil
}

// foreignKey разрешает поле цели, на которое ссылается внешний ключ.
// Допускается только один шаг: поле цели должно быть скаляром.
func foreignKey(entity, column string, f meta.FieldSpec, target meta.EntitySpec) (ForeignKeyDescriptor, error) {
	fk := ForeignKeyDescriptor{
		Column:           column,
		Entity:           target.Name,
		ReferencedColumn: meta.IdentityColumn,
		ReferencedField:  meta.IdentityField,
		ReferencedKind:   meta.KindInt64,
	}
	if f.DefaultReference() {
		return fk, nil
	}
	for _, tf := range target.Fields {
		if tf.Name != f.Reference {
			continue
		}
		if tf.Role == meta.RolePrimaryKey {
			fk.ReferencedField = tf.Name
			return fk, nil
		}
		if tf.Role != meta.RoleColumn || !tf.Kind.Scalar() {
			return fk, ormerr.New(ormerr.CodeUnsupportedForeignKeyReference, entity, column,
				"reference %s.%s has kind %s", target.Name, tf.Name, tf.Kind)
		}
		fk.ReferencedColumn = tf.ColumnName()
		fk.ReferencedField = tf.Name
		fk.ReferencedKind = tf.Kind
		return fk, nil
	}
	return fk, ormerr.New(ormerr.CodeUnsupportedForeignKeyReference, entity, column,
		"reference field %s.%s not found", target.Name, f.Reference)
}

func orderOr(o meta.Order) meta.Order {
	if o == meta.OrderDesc {
		return meta.OrderDesc
	}
	return meta.OrderAsc
}
