// Package store contains the content store: an observable in-memory collection bound to one scope.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/agora/internal/entities"
)

// ErrStale is returned by Load when a newer load has already been applied.
var ErrStale = errors.New("stale response")

var log = logrus.WithField("package", "store")

// Position is an insert position.
type Position int

const (
	// Front ...
	Front Position = iota
	// Back ...
	Back
)

// Entity is a record the store can hold.
type Entity[T any] interface {
	Key() string
	WithPatch(p entities.Patch) T
}

// FetchFunc fetches a collection for a scope.
type FetchFunc[T any] func(ctx context.Context, scope string) ([]T, error)

// Store is the sole writable copy of one collection.
type Store[T Entity[T]] struct {
	mu      sync.RWMutex
	scope   string
	items   []T
	index   map[string]int
	version uint64

	issued  uint64
	applied uint64

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

// New creates new instance of store bound to the scope.
func New[T Entity[T]](scope string) *Store[T] {
	return &Store[T]{
		scope: scope,
		index: map[string]int{},
		subs:  map[int]func(){},
	}
}

// Scope ...
func (s *Store[T]) Scope() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scope
}

// Version is bumped by every mutation.
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}

// Len ...
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// Get ...
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		var zero T
		return zero, false
	}

	return s.items[i], true
}

// Snapshot returns a copy of items along with the version they belong to.
func (s *Store[T]) Snapshot() ([]T, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, len(s.items))
	copy(out, s.items)

	return out, s.version
}

// Replace replaces the whole collection. Items with duplicated ids keep the first occurrence.
func (s *Store[T]) Replace(items []T) {
	s.mu.Lock()
	s.replace(items)
	s.mu.Unlock()

	s.notify()
}

// Patch merges a partial update into the item with the id.
// Missing id isn't an error, the item may be removed by a concurrent delete.
func (s *Store[T]) Patch(id string, p entities.Patch) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if ok {
		s.items[i] = s.items[i].WithPatch(p)
		s.version++
	}
	s.mu.Unlock()

	if ok {
		s.notify()
	}

	return ok
}

// Remove drops the item with the id. It's idempotent.
func (s *Store[T]) Remove(id string) bool {
	s.mu.Lock()
	ok := s.remove(id)
	if ok {
		s.version++
	}
	s.mu.Unlock()

	if ok {
		s.notify()
	}

	return ok
}

// Insert adds the item to the front or the back of the collection.
// An item with the same id is replaced and moved.
func (s *Store[T]) Insert(item T, pos Position) {
	s.mu.Lock()
	s.remove(item.Key())

	if pos == Front {
		s.items = append([]T{item}, s.items...)
	} else {
		s.items = append(s.items, item)
	}

	s.reindex()
	s.version++
	s.mu.Unlock()

	s.notify()
}

// Subscribe registers f to be called after every mutation. The returned function cancels the subscription.
func (s *Store[T]) Subscribe(f func()) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = f

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()

		delete(s.subs, id)
	}
}

// Load fetches the collection of the scope and replaces the store with it, rebinding the store to the scope.
// Loads are sequenced: if a load issued later has already been applied, the result is dropped and ErrStale returned.
func (s *Store[T]) Load(ctx context.Context, scope string, fetch FetchFunc[T]) error {
	s.mu.Lock()
	s.issued++
	token := s.issued
	s.mu.Unlock()

	items, err := fetch(ctx, scope)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if token < s.applied {
		s.mu.Unlock()

		log.WithField("scope", scope).WithField("token", token).Debug("drop stale response")

		return ErrStale
	}

	s.applied = token
	s.scope = scope
	s.replace(items)
	s.mu.Unlock()

	s.notify()

	return nil
}

func (s *Store[T]) replace(items []T) {
	s.items = make([]T, 0, len(items))
	s.index = make(map[string]int, len(items))

	for _, v := range items {
		if _, ok := s.index[v.Key()]; ok {
			log.WithField("id", v.Key()).Warn("skip duplicated item")
			continue
		}

		s.index[v.Key()] = len(s.items)
		s.items = append(s.items, v)
	}

	s.version++
}

func (s *Store[T]) remove(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}

	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.reindex()

	return true
}

func (s *Store[T]) reindex() {
	s.index = make(map[string]int, len(s.items))
	for i, v := range s.items {
		s.index[v.Key()] = i
	}
}

func (s *Store[T]) notify() {
	s.subMu.Lock()
	subs := make([]func(), 0, len(s.subs))
	for _, f := range s.subs {
		subs = append(subs, f)
	}
	s.subMu.Unlock()

	for _, f := range subs {
		f()
	}
}
