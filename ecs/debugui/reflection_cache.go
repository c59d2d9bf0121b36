package debugui

import (
	"reflect"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/worldcore/ecs"
)

// FieldKind selects the editor used for a component field.
type FieldKind int

const (
	FieldScalar FieldKind = iota
	FieldVec3
	FieldStruct
	FieldSlice
	FieldMap
	FieldFunc
)

// FieldInfo describes an exported component field. For pointer fields Type
// is the element type.
type FieldInfo struct {
	Name    string
	Index   int
	Type    reflect.Type
	Kind    FieldKind
	Pointer bool
}

var (
	componentBaseType = reflect.TypeFor[ecs.ComponentBase]()
	vec3Type          = reflect.TypeFor[mgl64.Vec3]()
)

func fieldKindOf(t reflect.Type) FieldKind {
	if t == vec3Type {
		return FieldVec3
	}
	switch t.Kind() {
	case reflect.Struct:
		return FieldStruct
	case reflect.Slice, reflect.Array:
		return FieldSlice
	case reflect.Map:
		return FieldMap
	case reflect.Func:
		return FieldFunc
	default:
		return FieldScalar
	}
}

// ReflectionCache remembers the editable fields of component types. It is
// safe for concurrent use.
type ReflectionCache struct {
	types sync.Map // reflect.Type -> []FieldInfo
}

func NewReflectionCache() *ReflectionCache {
	return &ReflectionCache{}
}

// GetFields returns the exported fields of the struct type t in declaration
// order. The embedded ComponentBase is skipped; other types have no fields.
func (rc *ReflectionCache) GetFields(t reflect.Type) []FieldInfo {
	if cached, ok := rc.types.Load(t); ok {
		return cached.([]FieldInfo)
	}

	var fields []FieldInfo
	if t.Kind() == reflect.Struct {
		for i := range t.NumField() {
			sf := t.Field(i)
			if !sf.IsExported() || sf.Type == componentBaseType {
				continue
			}
			info := FieldInfo{Name: sf.Name, Index: i, Type: sf.Type}
			if info.Type.Kind() == reflect.Pointer {
				info.Type = info.Type.Elem()
				info.Pointer = true
			}
			info.Kind = fieldKindOf(info.Type)
			fields = append(fields, info)
		}
	}

	actual, _ := rc.types.LoadOrStore(t, fields)
	return actual.([]FieldInfo)
}

var globalReflectionCache = NewReflectionCache()
