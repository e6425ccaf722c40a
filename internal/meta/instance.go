package meta

import "fmt"

// Instance — экземпляр зарегистрированной сущности.
type Instance interface {
	EntityName() string
}

// Accessor читает и пишет одно поле экземпляра.
// Read возвращает nil, если значение пустое.
type Accessor interface {
	Read(inst Instance) (any, error)
	Write(inst Instance, value any) error
}

// FuncAccessor собирает Accessor из пары функций — удобно для рукописных
// таблиц описаний и сгенерированного кода.
type FuncAccessor struct {
	Get func(inst Instance) any
	Set func(inst Instance, value any) error
}

func (a FuncAccessor) Read(inst Instance) (any, error) {
	if a.Get == nil {
		return nil, fmt.Errorf("field is not readable")
	}
	return a.Get(inst), nil
}

func (a FuncAccessor) Write(inst Instance, value any) error {
	if a.Set == nil {
		return fmt.Errorf("field is not writable")
	}
	return a.Set(inst, value)
}
