// Package marshal переводит экземпляры сущностей в строки таблиц и обратно.
// Работает только через дескрипторы реестра и аксессоры; ввода-вывода нет.
package marshal

import (
	"errors"
	"fmt"
	"time"

	"tabula/internal/meta"
	"tabula/internal/ormerr"
	"tabula/internal/registry"
)

// Row — значения колонок одной записи. Пустое значение nullable-колонки
// в строку не попадает.
type Row map[string]any

// Factory создаёт пустой экземпляр сущности по имени.
type Factory interface {
	New(entity string) (meta.Instance, error)
}

// FactoryFunc позволяет использовать функцию как Factory.
type FactoryFunc func(entity string) (meta.Instance, error)

func (f FactoryFunc) New(entity string) (meta.Instance, error) { return f(entity) }

// Marshaler — ToRow/FromRow поверх построенного реестра.
type Marshaler struct {
	reg     *registry.Registry
	factory Factory
}

func New(reg *registry.Registry, factory Factory) *Marshaler {
	return &Marshaler{reg: reg, factory: factory}
}

func (m *Marshaler) Registry() *registry.Registry { return m.reg }

// ToRow читает каждую колонку экземпляра и приводит значение к классу хранения.
// Первичный ключ в строку не входит.
func (m *Marshaler) ToRow(inst meta.Instance) (Row, error) {
	if inst == nil {
		return nil, errors.New("instance is nil")
	}
	d, err := m.reg.Lookup(inst.EntityName())
	if err != nil {
		return nil, err
	}
	row := make(Row, len(d.Columns))
	for _, c := range d.Columns {
		v, err := c.Access.Read(inst)
		if err != nil {
			return nil, ormerr.Wrap(ormerr.CodeUnsupportedFieldType, d.Name, c.Name, err)
		}
		if !empty(v) {
			if c.Kind == meta.KindReference {
				v, err = m.reference(d, c, v)
			} else {
				v, err = encode(c.Kind, c.EnumValues, v)
			}
			if err != nil {
				return nil, asFieldError(d.Name, c.Name, err)
			}
		}
		if empty(v) {
			if !c.Nullable {
				return nil, ormerr.New(ormerr.CodeColumnNotNullable, d.Name, c.Name, "")
			}
			continue
		}
		row[c.Name] = v
	}
	return row, nil
}

// reference приводит ссылку к значению колонки: идентификатор цели или,
// для внешнего ключа с полем reference, значение этого поля (только один шаг).
func (m *Marshaler) reference(d *registry.EntityDescriptor, c registry.ColumnDescriptor, v any) (any, error) {
	target, err := m.reg.Lookup(c.Target)
	if err != nil {
		return nil, err
	}
	fk, isFK := d.ForeignKey(c.Name)
	alternate := isFK && !fk.DefaultReference()

	ref, ok := v.(meta.Instance)
	if !ok {
		// допускаем уже готовое значение ключа
		if alternate {
			return encode(fk.ReferencedKind, nil, v)
		}
		return encode(meta.KindInt64, nil, v)
	}
	if ref.EntityName() != target.Name {
		return nil, fmt.Errorf("expected %s instance, got %s", target.Name, ref.EntityName())
	}

	if !alternate {
		return readIdentity(target, ref)
	}
	tc, ok := target.ColumnByField(fk.ReferencedField)
	if !ok {
		return nil, fmt.Errorf("reference field %s.%s not found", target.Name, fk.ReferencedField)
	}
	if tc.Kind == meta.KindReference {
		return nil, fmt.Errorf("reference field %s.%s is itself a reference", target.Name, tc.Field)
	}
	rv, err := tc.Access.Read(ref)
	if err != nil {
		return nil, err
	}
	if empty(rv) {
		return nil, nil
	}
	return encode(tc.Kind, tc.EnumValues, rv)
}

// FromRow создаёт экземпляр через фабрику и записывает в него значения колонок.
// Колонка _id (если есть в строке) записывается в первичный ключ.
func (m *Marshaler) FromRow(row Row, entity string) (meta.Instance, error) {
	d, err := m.reg.Lookup(entity)
	if err != nil {
		return nil, err
	}
	inst, err := m.newInstance(d.Name)
	if err != nil {
		return nil, err
	}
	if raw, ok := row[meta.IdentityColumn]; ok && raw != nil {
		if err := m.SetIdentity(inst, raw); err != nil {
			return nil, err
		}
	}
	if err := m.Apply(inst, row, false); err != nil {
		return nil, err
	}
	return inst, nil
}

// Apply записывает значения колонок строки в существующий экземпляр.
// partial: отсутствующие колонки не трогаются (частичное обновление);
// иначе отсутствие значения у non-null колонки — ColumnNotNullable.
func (m *Marshaler) Apply(inst meta.Instance, row Row, partial bool) error {
	d, err := m.reg.Lookup(inst.EntityName())
	if err != nil {
		return err
	}
	for _, c := range d.Columns {
		raw, present := row[c.Name]
		if partial && !present {
			continue
		}
		if raw == nil {
			if !c.Nullable {
				return ormerr.New(ormerr.CodeColumnNotNullable, d.Name, c.Name, "")
			}
			if err := c.Access.Write(inst, nil); err != nil {
				return ormerr.Wrap(ormerr.CodeUnsupportedFieldType, d.Name, c.Name, err)
			}
			continue
		}
		var v any
		if c.Kind == meta.KindReference {
			v, err = m.dereference(d, c, raw)
		} else {
			v, err = decode(c.Kind, c.EnumValues, raw)
		}
		if err != nil {
			return asFieldError(d.Name, c.Name, err)
		}
		if err := c.Access.Write(inst, v); err != nil {
			return ormerr.Wrap(ormerr.CodeUnsupportedFieldType, d.Name, c.Name, err)
		}
	}
	return nil
}

// dereference восстанавливает экземпляр цели ссылки с заполненным ключом.
func (m *Marshaler) dereference(d *registry.EntityDescriptor, c registry.ColumnDescriptor, raw any) (any, error) {
	target, err := m.reg.Lookup(c.Target)
	if err != nil {
		return nil, err
	}
	ref, err := m.newInstance(target.Name)
	if err != nil {
		return nil, err
	}
	fk, isFK := d.ForeignKey(c.Name)
	if !isFK || fk.DefaultReference() {
		id, err := toIntLenient(raw)
		if err != nil {
			return nil, err
		}
		if err := target.PrimaryKey.Access.Write(ref, id); err != nil {
			return nil, err
		}
		return ref, nil
	}
	tc, ok := target.ColumnByField(fk.ReferencedField)
	if !ok || tc.Kind == meta.KindReference {
		return nil, fmt.Errorf("reference field %s.%s is not a scalar column", target.Name, fk.ReferencedField)
	}
	v, err := decode(tc.Kind, tc.EnumValues, raw)
	if err != nil {
		return nil, err
	}
	if err := tc.Access.Write(ref, v); err != nil {
		return nil, err
	}
	return ref, nil
}

// Identity возвращает идентификатор экземпляра; пустой → NotPersistedID.
func (m *Marshaler) Identity(inst meta.Instance) (int64, error) {
	d, err := m.reg.Lookup(inst.EntityName())
	if err != nil {
		return 0, err
	}
	v, err := readIdentity(d, inst)
	if err != nil {
		return 0, asFieldError(d.Name, d.PrimaryKey.Field, err)
	}
	return v.(int64), nil
}

// SetIdentity записывает идентификатор (любое целое представление).
func (m *Marshaler) SetIdentity(inst meta.Instance, id any) error {
	d, err := m.reg.Lookup(inst.EntityName())
	if err != nil {
		return err
	}
	n, err := toIntLenient(id)
	if err != nil {
		return asFieldError(d.Name, d.PrimaryKey.Field, err)
	}
	if err := d.PrimaryKey.Access.Write(inst, n); err != nil {
		return ormerr.Wrap(ormerr.CodeUnsupportedFieldType, d.Name, d.PrimaryKey.Field, err)
	}
	return nil
}

// Document — значения полей для внешнего представления (JSON):
// даты как time.Time, bool как bool, ссылки как значение ключа цели.
func (m *Marshaler) Document(inst meta.Instance) (map[string]any, error) {
	d, err := m.reg.Lookup(inst.EntityName())
	if err != nil {
		return nil, err
	}
	id, err := m.Identity(inst)
	if err != nil {
		return nil, err
	}
	out := map[string]any{d.PrimaryKey.Field: id}
	for _, c := range d.Columns {
		v, err := c.Access.Read(inst)
		if err != nil {
			return nil, ormerr.Wrap(ormerr.CodeUnsupportedFieldType, d.Name, c.Name, err)
		}
		if empty(v) {
			out[c.Field] = nil
			continue
		}
		if c.Kind == meta.KindReference {
			if v, err = m.reference(d, c, v); err != nil {
				return nil, asFieldError(d.Name, c.Name, err)
			}
		}
		out[c.Field] = v
	}
	return out, nil
}

func (m *Marshaler) newInstance(entity string) (meta.Instance, error) {
	if m.factory == nil {
		return nil, errors.New("marshal: no instance factory")
	}
	inst, err := m.factory.New(entity)
	if err != nil {
		return nil, fmt.Errorf("create %s instance: %w", entity, err)
	}
	return inst, nil
}

func readIdentity(d *registry.EntityDescriptor, inst meta.Instance) (any, error) {
	v, err := d.PrimaryKey.Access.Read(inst)
	if err != nil {
		return nil, err
	}
	if empty(v) {
		return meta.NotPersistedID, nil
	}
	return encode(meta.KindInt64, nil, v)
}

// empty — значение отсутствует: nil, nil-срез байт, nil *time.Time.
func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []byte:
		return t == nil
	case *time.Time:
		return t == nil
	}
	return false
}

func asFieldError(entity, column string, err error) error {
	var oe *ormerr.Error
	if errors.As(err, &oe) {
		return err
	}
	return ormerr.New(ormerr.CodeUnsupportedFieldType, entity, column, "%v", err)
}
