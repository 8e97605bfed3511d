package events

import (
	"sync"

	"github.com/google/uuid"

	"prismatics/pkg/logger"
)

// Broadcaster fans a no-payload "data changed" signal out to all
// currently connected subscribers. There is no queueing and no
// retroactive delivery: a subscriber that connects after a signal
// simply waits for the next one, and a subscriber that has not drained
// its pending signal is not sent another (re-fetching once covers any
// number of coalesced changes).
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]chan struct{}
	log  *logger.Logger
}

// NewBroadcaster creates an empty subscriber registry.
func NewBroadcaster(log *logger.Logger) *Broadcaster {
	return &Broadcaster{
		subs: make(map[string]chan struct{}),
		log:  log.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber and returns its signal channel plus
// a cancel func. Cancel must be called when the connection ends; the
// subscription lifetime is exactly the connection lifetime.
func (b *Broadcaster) Subscribe() (<-chan struct{}, func()) {
	id := uuid.NewString()
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	b.subs[id] = ch
	count := len(b.subs)
	b.mu.Unlock()

	b.log.Debugf("subscriber %s connected (%d total)", id, count)

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
		count := len(b.subs)
		b.mu.Unlock()
		b.log.Debugf("subscriber %s disconnected (%d total)", id, count)
	}
	return ch, cancel
}

// Publish delivers one signal to every current subscriber without
// blocking. A subscriber with an undrained signal is skipped.
func (b *Broadcaster) Publish() {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Len returns the current subscriber count.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
