// Package inflight tracks merchant order ids that are currently being
// processed by this process. It is the fast-path guard against concurrent
// duplicate submissions: the check and the insert happen under one mutex,
// so two goroutines can never both pass the check for the same key.
//
// The registry has no persistence and no cross-process visibility. Two
// server instances can still race each other; the durable re-check in the
// coordinator narrows, but does not close, that window.
package inflight

import "sync"

// Registry is a process-wide set of in-flight keys. The zero value is not
// usable; construct with NewRegistry.
type Registry struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]struct{})}
}

// TryAcquire atomically checks for key and inserts it when absent.
// On success it returns a release function and true; the caller must
// invoke release on every exit path, typically via defer. When the key is
// already in flight it returns (nil, false).
//
// The release function is idempotent: calling it more than once is safe.
func (r *Registry) TryAcquire(key string) (release func(), ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.keys[key]; exists {
		return nil, false
	}
	r.keys[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.keys, key)
		})
	}, true
}

// Contains reports whether key is currently in flight.
func (r *Registry) Contains(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.keys[key]
	return exists
}

// Len returns the number of in-flight keys, for monitoring.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}
