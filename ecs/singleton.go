package ecs

import (
	"reflect"
	"slices"
)

// Singleton provides access to a single per-world value that is not
// attached to any game object. Use it for shared state such as input
// capture flags or frame timing.
type Singleton[T any] struct {
	world *World
	ptr   *T
}

// NewSingleton returns an accessor for the world's value of type T. If the
// value does not exist yet it is created from initializer, or as the zero
// value.
func NewSingleton[T any](w *World, initializer ...T) *Singleton[T] {
	t := reflect.TypeFor[T]()
	if w.singletons == nil {
		w.singletons = make(map[reflect.Type]any)
	}

	ptr, ok := w.singletons[t].(*T)
	if !ok {
		ptr = new(T)
		if len(initializer) > 0 {
			*ptr = initializer[0]
		}
		w.singletons[t] = ptr
	}

	return &Singleton[T]{world: w, ptr: ptr}
}

// Get returns a pointer to the singleton value.
func (s *Singleton[T]) Get() *T {
	return s.ptr
}

// Set replaces the singleton value.
func (s *Singleton[T]) Set(v T) {
	*s.ptr = v
}

// LookupSingleton returns the world's value of type T without creating it.
func LookupSingleton[T any](w *World) (*T, bool) {
	ptr, ok := w.singletons[reflect.TypeFor[T]()].(*T)
	return ptr, ok
}

// SingletonTypes returns the sorted type names of the world's singletons.
func (w *World) SingletonTypes() []string {
	names := make([]string, 0, len(w.singletons))
	for t := range w.singletons {
		names = append(names, t.String())
	}
	slices.Sort(names)
	return names
}
