// Package view composes content stores, the registry and projectors into the collections a screen shows.
package view

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/agora/internal/projector"
	"github.com/Decentr-net/agora/internal/store"
)

var log = logrus.WithField("package", "view")

// Item is an entity a view can hold.
type Item[T any] interface {
	store.Entity[T]
	projector.Item
}

// List is a store mounted into the registry for the view lifetime, with its own query and sort key.
type List[T Item[T]] struct {
	s *store.Store[T]
	p *projector.Projector[T]

	unmount     func()
	unsubscribe func()

	mu        sync.Mutex
	query     string
	sort      projector.SortKey
	listeners map[int]func()
	next      int
}

// NewList creates a store bound to the scope and mounts it into the registry.
func NewList[T Item[T]](scope string, r *store.Registry[T]) *List[T] {
	s := store.New[T](scope)

	l := &List[T]{
		s:         s,
		p:         projector.New[T](s),
		sort:      projector.SortRecent,
		listeners: map[int]func(){},
	}
	l.unsubscribe = s.Subscribe(l.changed)
	l.unmount = r.Mount(s)

	return l
}

// Store ...
func (l *List[T]) Store() *store.Store[T] {
	return l.s
}

// Query ...
func (l *List[T]) Query() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.query
}

// SetQuery ...
func (l *List[T]) SetQuery(q string) {
	l.mu.Lock()
	changed := l.query != q
	l.query = q
	l.mu.Unlock()

	if changed {
		l.changed()
	}
}

// Sort ...
func (l *List[T]) Sort() projector.SortKey {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.sort
}

// SetSort ...
func (l *List[T]) SetSort(k projector.SortKey) {
	l.mu.Lock()
	changed := l.sort != k
	l.sort = k
	l.mu.Unlock()

	if changed {
		l.changed()
	}
}

// Items returns the current projection. The returned slice must not be modified.
func (l *List[T]) Items() []T {
	l.mu.Lock()
	q, k := l.query, l.sort
	l.mu.Unlock()

	return l.p.Project(q, k)
}

// OnChange registers f to be called when items, the query or the sort key change.
// The returned function cancels the registration.
func (l *List[T]) OnChange(f func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.next
	l.next++
	l.listeners[id] = f

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		delete(l.listeners, id)
	}
}

// Close unmounts the store. Confirmed mutations aren't delivered to a closed list.
func (l *List[T]) Close() {
	l.unmount()
	l.unsubscribe()
	l.p.Purge()
}

func (l *List[T]) changed() {
	l.mu.Lock()
	listeners := make([]func(), 0, len(l.listeners))
	for _, f := range l.listeners {
		listeners = append(listeners, f)
	}
	l.mu.Unlock()

	for _, f := range listeners {
		f()
	}
}
