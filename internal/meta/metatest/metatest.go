// Package metatest — рукописные описания сущностей и map-экземпляры для тестов ядра.
package metatest

import (
	"fmt"

	"tabula/internal/meta"
)

// Object — экземпляр с значениями в map по имени поля.
type Object struct {
	Entity string
	Values map[string]any
}

func (o *Object) EntityName() string { return o.Entity }

// New создаёт объект: New("Book", "title", "X", "id", int64(1)).
func New(entity string, kv ...any) *Object {
	o := &Object{Entity: entity, Values: map[string]any{}}
	for i := 0; i+1 < len(kv); i += 2 {
		o.Values[kv[i].(string)] = kv[i+1]
	}
	return o
}

// Accessor читает и пишет поле name у *Object.
func Accessor(name string) meta.Accessor {
	return meta.FuncAccessor{
		Get: func(inst meta.Instance) any {
			o, ok := inst.(*Object)
			if !ok {
				return nil
			}
			return o.Values[name]
		},
		Set: func(inst meta.Instance, v any) error {
			o, ok := inst.(*Object)
			if !ok {
				return fmt.Errorf("unexpected instance %T", inst)
			}
			if v == nil {
				delete(o.Values, name)
				return nil
			}
			o.Values[name] = v
			return nil
		},
	}
}

// PK — первичный ключ "id".
func PK() meta.FieldSpec {
	return meta.FieldSpec{Name: meta.IdentityField, Role: meta.RolePrimaryKey, Kind: meta.KindInt64, Access: Accessor(meta.IdentityField)}
}

// Col — обычная колонка.
func Col(name string, kind meta.Kind, nullable bool) meta.FieldSpec {
	return meta.FieldSpec{Name: name, Role: meta.RoleColumn, Kind: kind, Nullable: nullable, Access: Accessor(name)}
}

// FK — внешний ключ на target; reference пустой → идентификатор.
func FK(name, target, reference string, nullable bool) meta.FieldSpec {
	return meta.FieldSpec{
		Name: name, Role: meta.RoleForeignKey, Kind: meta.KindReference,
		Target: target, Reference: reference, Nullable: nullable, Access: Accessor(name),
	}
}

// Entity собирает описание с разметкой.
func Entity(name string, fields ...meta.FieldSpec) meta.EntitySpec {
	return meta.EntitySpec{Name: name, Marked: true, Fields: fields}
}

// Provider — описания по идентификатору. Идентификатор и имя могут различаться.
type Provider map[string]meta.EntitySpec

func (p Provider) Describe(id string) (meta.EntitySpec, error) {
	s, ok := p[id]
	if !ok {
		return meta.EntitySpec{}, fmt.Errorf("unknown entity %q", id)
	}
	return s, nil
}

// New создаёт пустой объект сущности (фабрика для маршалера).
func (p Provider) New(entity string) (meta.Instance, error) {
	for _, s := range p {
		if s.Name == entity {
			return New(entity), nil
		}
	}
	return nil, fmt.Errorf("unknown entity %q", entity)
}

// Library — пример из документации: Author и Book со ссылкой на Author.
func Library() Provider {
	return Provider{
		"Author": Entity("Author",
			PK(),
			Col("name", meta.KindText, false),
		),
		"Book": Entity("Book",
			PK(),
			Col("title", meta.KindText, true),
			FK("author", "Author", "", true),
		),
	}
}
