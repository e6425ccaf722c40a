package dsl

// Entity описывает блок entity/abstract из DSL.
type Entity struct {
	ID       string // идентификатор блока (entity <ID>:)
	Name     string // name=... в заголовке; пусто → ID
	Abstract bool   // abstract <ID>: — без разметки сущности
	Extends  string // extends=... в заголовке
	Fields   []Field
	File     string
	Line     int
}

// ResolvedName — имя сущности с учётом name=.
func (e *Entity) ResolvedName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// Field описывает поле сущности
type Field struct {
	Name        string
	Type        string            // int64, text, enum, ref, link, list, set, pk и т.д.
	Target      string            // ref[T], link[T], list[T], set[T]
	Enum        []string          // значения enum[...]
	EnumCatalog string            // enum[@catalog]
	Options     map[string]string // required, length, order, reference, column, ignore, pk
	Line        int
}

func (f Field) Option(name string) (string, bool) {
	if f.Options == nil {
		return "", false
	}
	v, ok := f.Options[name]
	return v, ok
}

func (f Field) Flag(name string) bool {
	v, ok := f.Option(name)
	return ok && v != "false"
}
