package store

import (
	"sync"

	"github.com/Decentr-net/agora/internal/entities"
)

// Registry is a set of mounted stores of one entity kind.
// Confirmed mutations are fanned out through it to every view holding the entity.
type Registry[T Entity[T]] struct {
	mu     sync.RWMutex
	stores map[*Store[T]]struct{}
}

// NewRegistry ...
func NewRegistry[T Entity[T]]() *Registry[T] {
	return &Registry[T]{
		stores: map[*Store[T]]struct{}{},
	}
}

// Mount adds the store to the registry. The returned function unmounts it.
func (r *Registry[T]) Mount(s *Store[T]) func() {
	r.mu.Lock()
	r.stores[s] = struct{}{}
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.stores, s)
		r.mu.Unlock()
	}
}

// Len returns count of mounted stores.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.stores)
}

// Find returns the first mounted copy of the entity.
func (r *Registry[T]) Find(id string) (T, bool) {
	for _, s := range r.mounted() {
		if v, ok := s.Get(id); ok {
			return v, true
		}
	}

	var zero T
	return zero, false
}

// Patch patches the entity in every mounted store. It returns count of patched stores.
func (r *Registry[T]) Patch(id string, p entities.Patch) int {
	return r.each(func(s *Store[T]) bool { return s.Patch(id, p) })
}

// Remove removes the entity from every mounted store.
func (r *Registry[T]) Remove(id string) int {
	return r.each(func(s *Store[T]) bool { return s.Remove(id) })
}

// Insert inserts the entity into mounted stores bound to any of scopes.
func (r *Registry[T]) Insert(item T, pos Position, scopes ...string) int {
	set := make(map[string]struct{}, len(scopes))
	for _, v := range scopes {
		set[v] = struct{}{}
	}

	return r.each(func(s *Store[T]) bool {
		if _, ok := set[s.Scope()]; !ok {
			return false
		}

		s.Insert(item, pos)

		return true
	})
}

func (r *Registry[T]) each(f func(s *Store[T]) bool) int {
	var n int
	for _, s := range r.mounted() {
		if f(s) {
			n++
		}
	}

	return n
}

func (r *Registry[T]) mounted() []*Store[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Store[T], 0, len(r.stores))
	for s := range r.stores {
		out = append(out, s)
	}

	return out
}
