package quota

import "sync"

// ownerLocks hands out one mutex per owner id and forgets it once unused.
type ownerLocks struct {
	mu sync.Mutex
	m  map[string]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func (l *ownerLocks) lock(owner string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*ownerLock)
	}
	entry, ok := l.m[owner]
	if !ok {
		entry = &ownerLock{}
		l.m[owner] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.m, owner)
		}
		l.mu.Unlock()
	}
}
