// Package meta описывает контракт источника метаданных: сырые описания сущностей
// и полей, роли полей, а также способ чтения/записи значений экземпляров.
// Ядро (registry, ddl, marshal) само типы не инспектирует — всё приходит отсюда.
package meta

import "strings"

const (
	// IdentityField — имя поля-идентификатора по умолчанию.
	IdentityField = "id"
	// IdentityColumn — зарезервированная колонка первичного ключа.
	IdentityColumn = "_id"
	// NotPersistedID — идентификатор ещё не сохранённого экземпляра.
	NotPersistedID int64 = 0
)

// Role — роль поля в описании сущности.
type Role int

const (
	RoleColumn Role = iota
	RolePrimaryKey
	RoleForeignKey
	RoleOneToMany
	RoleManyToMany
	RoleIgnored
)

func (r Role) String() string {
	switch r {
	case RoleColumn:
		return "column"
	case RolePrimaryKey:
		return "primary_key"
	case RoleForeignKey:
		return "foreign_key"
	case RoleOneToMany:
		return "one_to_many"
	case RoleManyToMany:
		return "many_to_many"
	case RoleIgnored:
		return "ignored"
	}
	return "unknown"
}

// Order — направление сортировки первичного ключа (только для текста DDL).
type Order string

const (
	OrderAsc  Order = "ASC"
	OrderDesc Order = "DESC"
)

// ParseOrder: пустая строка и всё неизвестное → ASC.
func ParseOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return OrderDesc
	}
	return OrderAsc
}

// FieldSpec — сырое описание поля, как его отдаёт провайдер.
type FieldSpec struct {
	Name       string
	Column     string // пусто → Name
	Role       Role
	Kind       Kind
	Target     string // идентификатор целевой сущности для Reference / связей
	Nullable   bool
	Length     int
	Order      Order  // только для первичного ключа
	Reference  string // поле цели для внешнего ключа; пусто или "id" → идентификатор
	EnumValues []string
	Access     Accessor
}

// ColumnName возвращает имя колонки с учётом значения по умолчанию.
func (f FieldSpec) ColumnName() string {
	if c := strings.TrimSpace(f.Column); c != "" {
		return c
	}
	return f.Name
}

// DefaultReference — ссылается ли внешний ключ на идентификатор цели.
func (f FieldSpec) DefaultReference() bool {
	r := strings.TrimSpace(f.Reference)
	return r == "" || r == IdentityField
}

// EntitySpec — сырое описание сущности.
type EntitySpec struct {
	Name   string // разрешённое имя сущности (= имя таблицы до upper-case)
	Marked bool   // провайдер признал описание сущностью
	Fields []FieldSpec
}

// Provider отдаёт описание сущности по идентификатору.
// Идентификатор и разрешённое имя могут различаться.
type Provider interface {
	Describe(id string) (EntitySpec, error)
}

// ProviderFunc позволяет использовать функцию как Provider.
type ProviderFunc func(id string) (EntitySpec, error)

func (f ProviderFunc) Describe(id string) (EntitySpec, error) { return f(id) }
