// Package keylock serialises work per string key inside one process.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

type Locker struct {
	mutex sync.Mutex
	keys  map[string]*entry
}

func New() *Locker {
	return &Locker{keys: make(map[string]*entry)}
}

func (l *Locker) Lock(key string) {
	l.mutex.Lock()
	e, exists := l.keys[key]
	if !exists {
		e = &entry{}
		l.keys[key] = e
	}
	e.refs++
	l.mutex.Unlock()

	e.mu.Lock()
}

func (l *Locker) Unlock(key string) {
	l.mutex.Lock()
	e, exists := l.keys[key]
	if !exists {
		l.mutex.Unlock()
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
	l.mutex.Unlock()

	e.mu.Unlock()
}
