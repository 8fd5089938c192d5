package iwevent

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Registry maps each catalog kind to its callbacks in registration order.
type Registry struct {
	mu        sync.RWMutex
	callbacks map[EventKind][]Callback
}

func NewRegistry() *Registry {
	r := &Registry{
		callbacks: make(map[EventKind][]Callback, len(catalog)),
	}
	for _, kind := range catalog {
		r.callbacks[kind] = nil
	}
	return r
}

// Register appends cb to the callbacks of kind. Registering the same
// callback twice makes it fire twice.
func (r *Registry) Register(kind EventKind, cb Callback) error {
	if !IsKnown(kind) {
		return fmt.Errorf("%w: %q", ErrUnsupportedEvent, string(kind))
	}
	if cb == nil {
		log.WithField("event", kind).Warn("Ignoring nil callback registration")
		return nil
	}

	r.mu.Lock()
	r.callbacks[kind] = append(r.callbacks[kind], cb)
	r.mu.Unlock()
	return nil
}

// CallbacksFor returns a copy of the callbacks registered for kind.
func (r *Registry) CallbacksFor(kind EventKind) []Callback {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cbs := r.callbacks[kind]
	if len(cbs) == 0 {
		return nil
	}
	out := make([]Callback, len(cbs))
	copy(out, cbs)
	return out
}

// Len returns the number of callbacks registered for kind.
func (r *Registry) Len(kind EventKind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.callbacks[kind])
}
