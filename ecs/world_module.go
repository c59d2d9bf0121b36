package ecs

import (
	"reflect"
	"slices"

	"go.uber.org/zap"
)

// WorldModule is per-world functionality that is not tied to a component
// type, such as a physics scene or a spatial index. A world holds at most one
// module of each type.
type WorldModule interface {
	// Initialize is called once when the module is created. Modules
	// usually register their update functions here.
	Initialize(w *World)
	// Deinitialize is called when the module is deleted or the world is
	// closed.
	Deinitialize()
}

type modulePtr[T any] interface {
	*T
	WorldModule
}

// GetOrCreateModule returns the world's module of type T, creating and
// initializing it first if needed.
func GetOrCreateModule[T any, PT modulePtr[T]](w *World) PT {
	t := reflect.TypeFor[T]()
	if m, ok := w.moduleByType[t]; ok {
		return m.(PT)
	}
	w.checkWriteAccess()

	m := PT(new(T))
	if w.moduleByType == nil {
		w.moduleByType = make(map[reflect.Type]WorldModule)
	}
	w.moduleByType[t] = m
	w.modules = append(w.modules, m)
	m.Initialize(w)
	w.log.Debug("created world module", zap.Stringer("type", t))
	return m
}

// LookupModule returns the world's module of type T without creating it.
func LookupModule[T any, PT modulePtr[T]](w *World) (PT, bool) {
	m, ok := w.moduleByType[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return m.(PT), true
}

// DeleteModule deinitializes and removes the world's module of type T. It
// reports whether the module existed.
func DeleteModule[T any, PT modulePtr[T]](w *World) bool {
	t := reflect.TypeFor[T]()
	m, ok := w.moduleByType[t]
	if !ok {
		return false
	}
	w.checkWriteAccess()

	delete(w.moduleByType, t)
	w.modules = slices.DeleteFunc(w.modules, func(other WorldModule) bool { return other == m })
	m.Deinitialize()
	w.log.Debug("deleted world module", zap.Stringer("type", t))
	return true
}

// ModuleTypes returns the type names of the world's modules in creation
// order.
func (w *World) ModuleTypes() []string {
	names := make([]string, 0, len(w.modules))
	for _, m := range w.modules {
		names = append(names, reflect.TypeOf(m).Elem().String())
	}
	return names
}

// deinitializeModules tears modules down in reverse creation order.
func (w *World) deinitializeModules() {
	for _, m := range slices.Backward(w.modules) {
		m.Deinitialize()
	}
	w.modules = nil
	clear(w.moduleByType)
}
