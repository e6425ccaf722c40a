package registry

import (
	"tabula/internal/meta"
)

// Дескрипторы строятся один раз в Build и дальше только читаются.
// Менять их поля после построения нельзя: реестр разделяется между горутинами.

// ColumnDescriptor описывает колонку таблицы (первичный ключ сюда не входит).
type ColumnDescriptor struct {
	Name       string // имя колонки
	Field      string // имя поля экземпляра
	Kind       meta.Kind
	Nullable   bool
	Length     int
	EnumValues []string
	Target     string       // для Reference: имя целевой сущности
	Storage    meta.Storage // класс хранения (для ссылок — класс поля, на которое ссылаемся)
	Access     meta.Accessor
}

// PrimaryKeyDescriptor — единственный первичный ключ сущности.
type PrimaryKeyDescriptor struct {
	Column string
	Field  string
	Order  meta.Order
	Access meta.Accessor
}

// ForeignKeyDescriptor описывает внешний ключ колонки Column.
type ForeignKeyDescriptor struct {
	Column           string
	Entity           string // на какую сущность ссылаемся
	ReferencedColumn string
	ReferencedField  string
	ReferencedKind   meta.Kind
}

// DefaultReference — ссылка идёт на идентификатор цели.
func (fk ForeignKeyDescriptor) DefaultReference() bool {
	return fk.ReferencedColumn == meta.IdentityColumn
}

// RelationDescriptor — связи OneToMany/ManyToMany. Запоминаются, но в таблицу не пишутся.
type RelationDescriptor struct {
	Field  string
	Role   meta.Role
	Target string
}

// EntityDescriptor — метаданные сущности.
type EntityDescriptor struct {
	Name            string
	Table           string
	Columns         []ColumnDescriptor
	PrimaryKey      PrimaryKeyDescriptor
	ForeignKeys     map[string]ForeignKeyDescriptor // по имени колонки
	ForeignKeyOrder []string                        // порядок объявления внешних ключей
	Relations       []RelationDescriptor

	byColumn map[string]int
	byField  map[string]int
}

// Column ищет колонку по имени.
func (d *EntityDescriptor) Column(name string) (ColumnDescriptor, bool) {
	i, ok := d.byColumn[name]
	if !ok {
		return ColumnDescriptor{}, false
	}
	return d.Columns[i], true
}

// ColumnByField ищет колонку по имени поля.
func (d *EntityDescriptor) ColumnByField(field string) (ColumnDescriptor, bool) {
	i, ok := d.byField[field]
	if !ok {
		return ColumnDescriptor{}, false
	}
	return d.Columns[i], true
}

// ForeignKey возвращает внешний ключ колонки.
func (d *EntityDescriptor) ForeignKey(column string) (ForeignKeyDescriptor, bool) {
	fk, ok := d.ForeignKeys[column]
	return fk, ok
}

// Dependent — у сущности есть хотя бы один внешний ключ.
func (d *EntityDescriptor) Dependent() bool { return len(d.ForeignKeys) > 0 }

// ColumnNames — имена колонок в порядке описания.
func (d *EntityDescriptor) ColumnNames() []string {
	out := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		out = append(out, c.Name)
	}
	return out
}

func (d *EntityDescriptor) index() {
	d.byColumn = make(map[string]int, len(d.Columns))
	d.byField = make(map[string]int, len(d.Columns))
	for i, c := range d.Columns {
		d.byColumn[c.Name] = i
		d.byField[c.Field] = i
	}
}
