package event

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// SubscriptionID identifies a handler registration.
type SubscriptionID string

// subscription is one handler registered on one channel.
type subscription struct {
	id        SubscriptionID
	channel   Channel
	handler   Handler
	once      bool
	cancelled atomic.Bool
}

// Registry keeps handler lists per channel in registration order.
// It is safe for concurrent access.
type Registry struct {
	mu   sync.RWMutex
	subs map[Channel][]*subscription
	byID map[SubscriptionID]*subscription
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subs: make(map[Channel][]*subscription),
		byID: make(map[SubscriptionID]*subscription),
	}
}

func (r *Registry) add(channel Channel, h Handler, once bool) *subscription {
	sub := &subscription{
		id:      SubscriptionID(uuid.New().String()),
		channel: channel,
		handler: h,
		once:    once,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.subs[channel] = append(r.subs[channel], sub)
	r.byID[sub.id] = sub
	return sub
}

// remove marks the subscription cancelled and drops it from its channel.
// In-flight deliveries holding a snapshot skip it.
func (r *Registry) remove(id SubscriptionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[id]
	if !ok {
		return false
	}
	sub.cancelled.Store(true)
	delete(r.byID, id)

	subs := r.subs[sub.channel]
	for i, s := range subs {
		if s.id == id {
			// Copy rather than splice so snapshots held by Emit stay intact.
			next := make([]*subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			subs = next
			break
		}
	}
	if len(subs) == 0 {
		delete(r.subs, sub.channel)
	} else {
		r.subs[sub.channel] = subs
	}
	return true
}

// snapshot returns the handler list for a channel. The returned slice is
// never mutated by the registry.
func (r *Registry) snapshot(channel Channel) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subs[channel]
}

// Count returns the number of handlers registered on a channel.
func (r *Registry) Count(channel Channel) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[channel])
}

// Channels returns every channel with at least one handler, sorted.
func (r *Registry) Channels() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]Channel, 0, len(r.subs))
	for ch := range r.subs {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
	return channels
}

// clear cancels and removes every subscription.
func (r *Registry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.byID {
		sub.cancelled.Store(true)
	}
	r.subs = make(map[Channel][]*subscription)
	r.byID = make(map[SubscriptionID]*subscription)
}
