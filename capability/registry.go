package capability

import (
	"sync"

	"github.com/google/uuid"
)

// idRegistry is the collaborator referenced, but left unspecified, by the
// ordering engine: the id-keyed table associating an opaque user-visible
// identifier with an in-process record. The reference implementation this
// module is modeled on backs the equivalent table with a hand-rolled
// red-black tree whose insertion comparison takes the rb_left branch on
// both the less-than and the greater-or-equal outcome — a copy-paste bug
// that corrupts the tree under concurrent inserts. A plain map guarded by
// a mutex sidesteps that entire bug class; see registry_test.go for the
// scenario that would have tripped it.
type idRegistry[T any] struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]T
}

func newIDRegistry[T any]() *idRegistry[T] {
	return &idRegistry[T]{entries: make(map[uuid.UUID]T)}
}

func (r *idRegistry[T]) insert(id uuid.UUID, value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = value
}

func (r *idRegistry[T]) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

func (r *idRegistry[T]) lookup(id uuid.UUID) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[id]
	return v, ok
}

func (r *idRegistry[T]) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
