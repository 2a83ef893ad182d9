package chat

import (
	"sync"
)

// roomLocks hands out one mutex per room id. Join, Leave and role changes
// serialize on it so the capacity and always-has-an-admin invariants hold
// under concurrent callers. Message append and delivery updates never touch
// these locks.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *roomLocks) get(roomID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[roomID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[roomID] = m
	}
	return m
}

var roomMu = &roomLocks{locks: make(map[string]*sync.Mutex)}

// lockRoom locks the per-room mutex and returns the unlock func.
func lockRoom(roomID string) func() {
	m := roomMu.get(roomID)
	m.Lock()
	return m.Unlock
}
