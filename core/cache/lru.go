package cache

import (
	"container/list"
	"sync"
)

type LRUOpts struct {
	Size int
}

type entry struct {
	key string
	val any
}

// LRU is a fixed-size least-recently-used cache safe for concurrent use.
type LRU struct {
	mu    sync.Mutex
	size  int
	ll    *list.List
	items map[string]*list.Element
}

func NewLRU(opts LRUOpts) *LRU {
	if opts.Size <= 0 {
		opts.Size = 128
	}
	return &LRU{
		size:  opts.Size,
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

func (l *LRU) Get(key string) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ele, ok := l.items[key]
	if !ok {
		return nil, false
	}
	l.ll.MoveToFront(ele)
	return ele.Value.(*entry).val, true
}

func (l *LRU) Put(key string, val any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ele, ok := l.items[key]; ok {
		l.ll.MoveToFront(ele)
		ele.Value.(*entry).val = val
		return
	}

	ele := l.ll.PushFront(&entry{key: key, val: val})
	l.items[key] = ele
	if l.ll.Len() > l.size {
		last := l.ll.Back()
		if last != nil {
			l.ll.Remove(last)
			delete(l.items, last.Value.(*entry).key)
		}
	}
}

func (l *LRU) Delete(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ele, ok := l.items[key]; ok {
		l.ll.Remove(ele)
		delete(l.items, key)
	}
}

var _ Cache = (*LRU)(nil)
