package dsl

import (
	"encoding/json"
	"fmt"
	"sync"

	"tabula/internal/meta"
)

// Record — экземпляр сущности из DSL: значения полей в map.
// Безопасен для конкурентного чтения и записи.
type Record struct {
	entity string

	mu     sync.RWMutex
	values map[string]any
}

func NewRecord(entity string) *Record {
	return &Record{entity: entity, values: map[string]any{}}
}

func (r *Record) EntityName() string { return r.entity }

func (r *Record) Get(field string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[field]
	return v, ok
}

// Set записывает значение; nil удаляет поле.
func (r *Record) Set(field string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v == nil {
		delete(r.values, field)
		return
	}
	r.values[field] = v
}

// Values — копия значений.
func (r *Record) Values() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// MarshalJSON: вложенные записи (ссылки) пишутся целиком.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Values())
}

// recordAccessor читает и пишет поле *Record.
func recordAccessor(field string) meta.Accessor {
	return meta.FuncAccessor{
		Get: func(inst meta.Instance) any {
			r, ok := inst.(*Record)
			if !ok {
				return nil
			}
			v, _ := r.Get(field)
			return v
		},
		Set: func(inst meta.Instance, v any) error {
			r, ok := inst.(*Record)
			if !ok {
				return fmt.Errorf("expected *dsl.Record, got %T", inst)
			}
			r.Set(field, v)
			return nil
		},
	}
}
