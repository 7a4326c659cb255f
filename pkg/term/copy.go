package term

import "reflect"

// visitKey identifies a pointer, map or slice already copied. Slices sharing a
// backing array with a different length are distinct values.
type visitKey struct {
	ptr uintptr
	typ reflect.Type
	len int
}

// copier copies slices, maps, arrays and pointers recursively. Strings,
// numbers and other immutable values are returned as they are. Struct fields
// that cannot be set through reflection (unexported) are copied shallowly.
// Values reachable more than once, cycles included, are copied once so the
// copy has the shape of the original.
type copier struct {
	visited map[visitKey]reflect.Value
}

func deepCopy(t Term) Term {
	if t == nil {
		return nil
	}
	c := copier{visited: map[visitKey]reflect.Value{}}
	return c.copy(reflect.ValueOf(t)).Interface()
}

func (c *copier) copy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		key := visitKey{ptr: v.Pointer(), typ: v.Type(), len: v.Len()}
		if out, ok := c.visited[key]; ok && key.len > 0 {
			return out
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		c.visited[key] = out
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(c.copy(v.Index(i)))
		}
		return out

	case reflect.Map:
		if v.IsNil() {
			return v
		}
		key := visitKey{ptr: v.Pointer(), typ: v.Type()}
		if out, ok := c.visited[key]; ok {
			return out
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		c.visited[key] = out
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(c.copy(iter.Key()), c.copy(iter.Value()))
		}
		return out

	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(c.copy(v.Index(i)))
		}
		return out

	case reflect.Ptr:
		if v.IsNil() {
			return v
		}
		key := visitKey{ptr: v.Pointer(), typ: v.Type()}
		if out, ok := c.visited[key]; ok {
			return out
		}
		out := reflect.New(v.Type().Elem())
		c.visited[key] = out
		out.Elem().Set(c.copy(v.Elem()))
		return out

	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(c.copy(v.Elem()))
		return out

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if out.Field(i).CanSet() {
				out.Field(i).Set(c.copy(v.Field(i)))
			}
		}
		return out
	}
	return v
}
