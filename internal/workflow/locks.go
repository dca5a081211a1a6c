package workflow

import "sync"

// ItemLocks serializes work per item ID. Entries are dropped once no
// goroutine holds or waits for them.
type ItemLocks struct {
	mu    sync.Mutex
	locks map[int64]*itemLock
}

type itemLock struct {
	mu   sync.Mutex
	refs int
}

// NewItemLocks returns an empty lock set.
func NewItemLocks() *ItemLocks {
	return &ItemLocks{locks: make(map[int64]*itemLock)}
}

// Lock blocks until id is free and returns the function releasing it.
func (l *ItemLocks) Lock(id int64) (unlock func()) {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &itemLock{}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *ItemLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
