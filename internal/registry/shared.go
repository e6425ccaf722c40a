package registry

import (
	"errors"
	"sync"
	"sync/atomic"

	"tabula/internal/meta"
)

// ErrNotBuilt — реестр ещё не построен.
var ErrNotBuilt = errors.New("registry is not built")

// Holder — однократная инициализация реестра: Uninitialized → Built.
// Ровно один вызов build выполняется; остальные получают его результат
// (в том числе ошибку). Второй реестр из того же Holder не создаётся.
type Holder struct {
	once  sync.Once
	built atomic.Bool
	reg   *Registry
	err   error
}

// Init выполняет build один раз и возвращает результат первого вызова.
func (h *Holder) Init(build func() (*Registry, error)) (*Registry, error) {
	h.once.Do(func() {
		if build == nil {
			h.err = errors.New("registry build function is required")
		} else {
			h.reg, h.err = build()
		}
		h.built.Store(true)
	})
	return h.reg, h.err
}

// Get возвращает построенный реестр или ErrNotBuilt.
func (h *Holder) Get() (*Registry, error) {
	if !h.built.Load() {
		return nil, ErrNotBuilt
	}
	return h.reg, h.err
}

// Built — состоялся ли переход в Built.
func (h *Holder) Built() bool { return h.built.Load() }

var shared Holder

// Init строит общий на процесс реестр (один раз за время жизни процесса).
func Init(p meta.Provider, ids ...string) (*Registry, error) {
	return shared.Init(func() (*Registry, error) {
		return Build(p, ids...)
	})
}

// Shared возвращает общий реестр.
func Shared() (*Registry, error) { return shared.Get() }
