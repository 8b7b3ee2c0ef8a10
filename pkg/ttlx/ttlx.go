// Package ttlx implements the TTL collaborator named in spec §6: the core
// engine carries no notion of expiry, and a Tracker observes a stream of
// insert events from outside and deletes keys once their TTL elapses.
package ttlx

import (
	"container/heap"
	"sync"
	"time"

	"github.com/zeebo/errs"
)

// Class is the error class for this package, matching zeebo/cascade's
// error idiom for collaborators that cross a goroutine/timer boundary.
var Class = errs.Class("ttlx")

// DeleteFunc expires a single key against whatever engine the caller
// wrapped. Tracker is generic only over the key type so this package never
// imports the core's generic Engine type directly, matching persist's
// ReplayFunc decoupling (spec §5: collaborators observe the engine only
// through its API).
type DeleteFunc[K comparable] func(key K) bool

type entry[K comparable] struct {
	expiry time.Time
	key    K
	index  int
}

// expiryHeap is a container/heap min-heap ordered by expiry time. No pack
// dependency offers a timer wheel or expiry heap, so this uses the
// standard library directly, a stdlib choice justified in the design
// ledger.
type expiryHeap[K comparable] []*entry[K]

func (h expiryHeap[K]) Len() int           { return len(h) }
func (h expiryHeap[K]) Less(i, j int) bool { return h[i].expiry.Before(h[j].expiry) }
func (h expiryHeap[K]) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }

func (h *expiryHeap[K]) Push(x interface{}) {
	e := x.(*entry[K])
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *expiryHeap[K]) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Tracker independently maintains a min-heap of (expiry, key) pairs and
// expires keys by calling its DeleteFunc. It is engine-TTL-agnostic: the
// core never stores or reasons about expiry.
type Tracker[K comparable] struct {
	mu     sync.Mutex
	heap   expiryHeap[K]
	byKey  map[K]*entry[K]
	delete DeleteFunc[K]
	now    func() time.Time
}

// NewTracker constructs a Tracker that expires keys through del.
func NewTracker[K comparable](del DeleteFunc[K]) *Tracker[K] {
	return &Tracker[K]{
		byKey:  make(map[K]*entry[K]),
		delete: del,
		now:    time.Now,
	}
}

// Observe registers key for expiry after ttl elapses, called by the
// collaborator's own insert wrapper after a successful engine Insert —
// matching spec §6's "TTL collaborator receives a stream of insert events."
// A zero or negative ttl means no expiry is tracked; an existing
// registration for key has its expiry refreshed.
func (t *Tracker[K]) Observe(key K, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.byKey[key]; ok {
		existing.expiry = t.now().Add(ttl)
		heap.Fix(&t.heap, existing.index)
		return
	}
	e := &entry[K]{expiry: t.now().Add(ttl), key: key}
	heap.Push(&t.heap, e)
	t.byKey[key] = e
}

// Forget removes key from expiry tracking without deleting it from the
// engine, used when a caller deletes a key through its own path first.
func (t *Tracker[K]) Forget(key K) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byKey[key]
	if !ok {
		return
	}
	heap.Remove(&t.heap, e.index)
	delete(t.byKey, key)
}

// Sweep expires every key whose TTL has elapsed as of now, returning the
// count of keys it deleted from the engine.
func (t *Tracker[K]) Sweep() int {
	t.mu.Lock()
	now := t.now()
	var expired []K
	for t.heap.Len() > 0 && !t.heap[0].expiry.After(now) {
		e := heap.Pop(&t.heap).(*entry[K])
		delete(t.byKey, e.key)
		expired = append(expired, e.key)
	}
	t.mu.Unlock()

	for _, key := range expired {
		t.delete(key)
	}
	return len(expired)
}

// Run sweeps on interval until stop is closed, for use as a background
// goroutine in a long-lived server process.
func (t *Tracker[K]) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}

// Len reports the number of keys currently tracked for expiry.
func (t *Tracker[K]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byKey)
}
