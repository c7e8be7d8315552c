// Package cache provides small in-process caches used as read-side
// optimizations (e.g. snapshot caching).
package cache

type Cache interface {
	Get(key string) (any, bool)
	Put(key string, val any)
	Delete(key string)
}

// TypedCache is a generics wrapper over Cache for a single value type.
type TypedCache[T any] interface {
	Put(key string, val T)
	Get(key string) (T, bool)
	Delete(key string)
}

type typedCache[T any] struct {
	c Cache
}

func NewTyped[T any](c Cache) TypedCache[T] { return &typedCache[T]{c: c} }

func (t *typedCache[T]) Get(key string) (out T, ok bool) {
	v, ok := t.c.Get(key)
	if !ok {
		return out, false
	}
	out, ok = v.(T)
	return out, ok
}

func (t *typedCache[T]) Put(key string, val T) { t.c.Put(key, val) }
func (t *typedCache[T]) Delete(key string)     { t.c.Delete(key) }

var _ TypedCache[any] = (*typedCache[any])(nil)
