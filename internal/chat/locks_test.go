package chat

import (
	"testing"
	"time"
)

func TestConversationLocksSerializeSameID(t *testing.T) {
	locks := newConversationLocks()

	release := locks.acquire(1)

	acquired := make(chan struct{})
	go func() {
		second := locks.acquire(1)
		close(acquired)
		second()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while the lock was held")
	case <-time.After(20 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire never proceeded after release")
	}
}

func TestConversationLocksIndependentIDs(t *testing.T) {
	locks := newConversationLocks()

	release := locks.acquire(1)
	defer release()

	done := make(chan struct{})
	go func() {
		other := locks.acquire(2)
		other()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquire on a different conversation blocked")
	}
}

func TestConversationLocksEntryReclaimed(t *testing.T) {
	locks := newConversationLocks()

	release := locks.acquire(7)
	release()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.locks) != 0 {
		t.Errorf("lock map holds %d entries after release, want 0", len(locks.locks))
	}
}
