package debugui

import (
	"fmt"
	"reflect"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/worldcore/ecs"
)

func (ci *ComponentInspector) Update() {
	w := ci.World()
	selected := ecs.NewSingleton[Selection](w).Get().Object

	if !imgui.BeginV("Component Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	if !selected.IsValid() {
		imgui.Text("No object selected")
		imgui.End()
		return
	}

	obj, ok := w.TryGetObject(selected)
	if !ok {
		imgui.Text(fmt.Sprintf("Object %s no longer exists", selected))
		imgui.End()
		return
	}

	imgui.Text(fmt.Sprintf("Object: %s (%s)", obj.Name(), selected))
	imgui.Text(fmt.Sprintf("Persistent Id: %s", obj.PersistentId()))
	if key := obj.GlobalKey(); key != "" {
		imgui.Text(fmt.Sprintf("Global Key: %s", key))
	}

	active := obj.ActiveFlag()
	if imgui.Checkbox("Active", &active) {
		obj.SetActiveFlag(active)
	}
	if pos, ok := editVec3("Position", obj.LocalPosition()); ok {
		obj.SetLocalPosition(pos)
	}
	if scale, ok := editVec3("Scale", obj.LocalScaling()); ok {
		obj.SetLocalScaling(scale)
	}
	global := obj.GlobalPosition()
	imgui.Text(fmt.Sprintf("Global Position: %.3f %.3f %.3f", global.X(), global.Y(), global.Z()))
	imgui.Separator()

	for _, h := range obj.Components() {
		c, ok := w.TryGetComponent(h)
		if !ok {
			continue
		}

		if imgui.TreeNodeStr(fmt.Sprintf("%s##%s", c.Manager().Name(), h)) {
			renderComponent(c)
			imgui.TreePop()
		}
	}

	imgui.End()
}

// renderComponent draws an editor for c. Components are edited in place
// through their pointer.
func renderComponent(c ecs.Component) {
	renderFields(reflect.ValueOf(c).Elem())
}

func renderFields(val reflect.Value) {
	for _, field := range globalReflectionCache.GetFields(val.Type()) {
		fieldVal := val.Field(field.Index)
		if field.Pointer {
			if fieldVal.IsNil() {
				imgui.Text(fmt.Sprintf("%s: nil", field.Name))
				continue
			}
			fieldVal = fieldVal.Elem()
		}
		renderField(field, fieldVal)
	}
}

func renderField(field FieldInfo, val reflect.Value) {
	name := field.Name
	switch field.Kind {
	case FieldVec3:
		if v, ok := editVec3(name, val.Interface().(mgl64.Vec3)); ok && val.CanSet() {
			val.Set(reflect.ValueOf(v))
		}
		return

	case FieldStruct:
		if imgui.TreeNodeStr(name) {
			renderFields(val)
			imgui.TreePop()
		}
		return

	case FieldSlice:
		imgui.Text(fmt.Sprintf("%s: [%d items]", name, val.Len()))
		return

	case FieldMap:
		imgui.Text(fmt.Sprintf("%s: map[%d items]", name, val.Len()))
		return

	case FieldFunc:
		imgui.Text(fmt.Sprintf("%s: func", name))
		return
	}

	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := int32(val.Int())
		if inputRow(name, 150, func(id string) bool { return imgui.InputInt(id, &v) }) && val.CanSet() {
			val.SetInt(int64(v))
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := int32(val.Uint())
		if inputRow(name, 150, func(id string) bool { return imgui.InputInt(id, &v) }) && val.CanSet() && v >= 0 {
			val.SetUint(uint64(v))
		}

	case reflect.Float32, reflect.Float64:
		v := float32(val.Float())
		if inputRow(name, 150, func(id string) bool { return imgui.InputFloat(id, &v) }) && val.CanSet() {
			val.SetFloat(float64(v))
		}

	case reflect.Bool:
		v := val.Bool()
		if imgui.Checkbox(name, &v) && val.CanSet() {
			val.SetBool(v)
		}

	case reflect.String:
		v := val.String()
		if inputRow(name, 200, func(id string) bool {
			return imgui.InputTextWithHint(id, "", &v, imgui.InputTextFlagsNone, nil)
		}) && val.CanSet() {
			val.SetString(v)
		}

	default:
		if val.CanInterface() {
			imgui.Text(fmt.Sprintf("%s: %v", name, val.Interface()))
		}
	}
}

func inputRow(name string, width float32, input func(id string) bool) bool {
	imgui.Text(fmt.Sprintf("%s:", name))
	imgui.SameLine()
	imgui.SetNextItemWidth(width)
	return input("##" + name)
}

func editVec3(name string, v mgl64.Vec3) (mgl64.Vec3, bool) {
	f := [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
	if !imgui.InputFloat3(name, &f) {
		return v, false
	}
	return mgl64.Vec3{float64(f[0]), float64(f[1]), float64(f[2])}, true
}
