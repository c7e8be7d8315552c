// Package reflector derives stable type names for values, used as a
// fallback when an event does not declare its own wire name.
package reflector

import (
	"reflect"
	"sync"
)

type TypeInfo struct {
	Name string
	Type reflect.Type
}

var (
	mu    sync.RWMutex
	cache = make(map[reflect.Type]TypeInfo)
)

func TypeInfoOf(x any) TypeInfo {
	return typeInfoForType(reflect.TypeOf(x))
}

func TypeInfoFor[T any]() TypeInfo {
	return typeInfoForType(reflect.TypeOf((*T)(nil)).Elem())
}

func typeInfoForType(t reflect.Type) TypeInfo {
	if t == nil {
		return TypeInfo{}
	}

	mu.RLock()
	ti, ok := cache[t]
	mu.RUnlock()
	if ok {
		return ti
	}

	key := t
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	ti = TypeInfo{
		Name: t.PkgPath() + "." + t.Name(),
		Type: t,
	}

	mu.Lock()
	cache[key] = ti
	mu.Unlock()
	return ti
}
