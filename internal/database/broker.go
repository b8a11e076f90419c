package database

import "sync"

// waiter is one subscription's doorbell. wake coalesces: any number of writes
// between two re-queries ring it once.
type waiter struct {
	wake chan struct{}
	fail chan error
	done chan struct{}
}

// broker fans committed writes out to the subscriptions of a collection
type broker struct {
	mu      sync.Mutex
	waiters map[string]map[*waiter]struct{}
	closed  bool
}

func newBroker() *broker {
	return &broker{waiters: make(map[string]map[*waiter]struct{})}
}

func (b *broker) register(collection string) *waiter {
	w := &waiter{
		wake: make(chan struct{}, 1),
		fail: make(chan error, 1),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(w.done)
		return w
	}
	set, ok := b.waiters[collection]
	if !ok {
		set = make(map[*waiter]struct{})
		b.waiters[collection] = set
	}
	set[w] = struct{}{}
	return w
}

func (b *broker) unregister(collection string, w *waiter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.waiters[collection]; ok {
		delete(set, w)
		if len(set) == 0 {
			delete(b.waiters, collection)
		}
	}
}

func (b *broker) publish(collection string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for w := range b.waiters[collection] {
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}
}

// failAll delivers err to every live subscription
func (b *broker) failAll(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, set := range b.waiters {
		for w := range set {
			select {
			case w.fail <- err:
			default:
			}
		}
	}
}

func (b *broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, set := range b.waiters {
		for w := range set {
			close(w.done)
		}
	}
	b.waiters = make(map[string]map[*waiter]struct{})
}
