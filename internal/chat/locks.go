package chat

import (
	"sync"
)

// conversationLocks serializes streaming turns per conversation id. Without
// it, concurrent sends into one conversation race on thread-id assignment and
// on the order of messages appended to the external thread.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[uint]*conversationLock
}

type conversationLock struct {
	mu   sync.Mutex
	refs int
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{locks: make(map[uint]*conversationLock)}
}

// acquire blocks until the conversation's lock is held and returns the
// release function. Entries are reference-counted so the map does not grow
// with every conversation ever streamed.
func (l *conversationLocks) acquire(conversationID uint) func() {
	l.mu.Lock()
	lock, ok := l.locks[conversationID]
	if !ok {
		lock = &conversationLock{}
		l.locks[conversationID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, conversationID)
		}
		l.mu.Unlock()
	}
}
