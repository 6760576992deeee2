package exchange

import "sync"

// chatLocks serializes exchanges per chat. Two concurrent sends to the same
// chat run one after the other so their message pairs never interleave;
// sends to different chats do not contend.
type chatLocks struct {
	mu    sync.Mutex
	locks map[uint]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

func newChatLocks() *chatLocks {
	return &chatLocks{locks: make(map[uint]*chatLock)}
}

// acquire blocks until the chat's lock is held and returns the release
// function. Lock entries are reference counted so the map does not grow with
// every chat ever touched.
func (c *chatLocks) acquire(chatID uint) func() {
	c.mu.Lock()
	l, ok := c.locks[chatID]
	if !ok {
		l = &chatLock{}
		c.locks[chatID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, chatID)
		}
		c.mu.Unlock()
	}
}
