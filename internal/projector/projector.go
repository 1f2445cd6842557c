// Package projector derives filtered and sorted read-only views from a content store.
package projector

import (
	"fmt"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SortKey ...
type SortKey string

const (
	// SortRecent sorts by creation time, newest first.
	SortRecent SortKey = "recent"
	// SortOldest sorts by creation time, oldest first.
	SortOldest SortKey = "oldest"
	// SortLikes sorts by likes count descending.
	SortLikes SortKey = "likes"
	// SortDislikes sorts by dislikes count descending.
	SortDislikes SortKey = "dislikes"
)

// ErrInvalidSortKey ...
var ErrInvalidSortKey = fmt.Errorf("invalid sort key")

// ParseSortKey ...
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(s)); k {
	case "":
		return SortRecent, nil
	case SortRecent, SortOldest, SortLikes, SortDislikes:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidSortKey, s)
	}
}

// Item is an entity which can be projected.
type Item interface {
	Pinned() bool
	Created() time.Time
	Counts() (likes uint32, dislikes uint32)
	SearchFields() []string
}

// Project filters items by query and sorts them: pinned items go first, then by the sort key.
// The sort is stable, so ties keep store order. Input slice is never modified.
func Project[T Item](items []T, query string, key SortKey) []T {
	q := strings.ToLower(query)

	out := make([]T, 0, len(items))
	for _, v := range items {
		if matches(v, q) {
			out = append(out, v)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]

		if a.Pinned() != b.Pinned() {
			return a.Pinned()
		}

		return less(a, b, key)
	})

	return out
}

func matches(v Item, q string) bool {
	if q == "" {
		return true
	}

	for _, f := range v.SearchFields() {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}

	return false
}

func less(a, b Item, key SortKey) bool {
	switch key {
	case SortOldest:
		return a.Created().Before(b.Created())
	case SortLikes:
		al, _ := a.Counts()
		bl, _ := b.Counts()
		return al > bl
	case SortDislikes:
		_, ad := a.Counts()
		_, bd := b.Counts()
		return ad > bd
	default:
		return a.Created().After(b.Created())
	}
}

// Source is a versioned collection, usually a *store.Store.
type Source[T any] interface {
	Snapshot() ([]T, uint64)
	Version() uint64
}

const cacheSize = 16

type cacheKey struct {
	version uint64
	query   string
	sort    SortKey
}

// Projector memoizes projections of a source.
// A projection is recomputed only when the source version, the query or the sort key changes.
type Projector[T Item] struct {
	src   Source[T]
	cache *lru.Cache[cacheKey, []T]
}

// New creates new instance of projector.
func New[T Item](src Source[T]) *Projector[T] {
	cache, err := lru.New[cacheKey, []T](cacheSize)
	if err != nil {
		panic(err) // size is a positive constant
	}

	return &Projector[T]{
		src:   src,
		cache: cache,
	}
}

// Project returns projection of the current source state. The returned slice must not be modified.
func (p *Projector[T]) Project(query string, key SortKey) []T {
	k := cacheKey{version: p.src.Version(), query: query, sort: key}
	if v, ok := p.cache.Get(k); ok {
		return v
	}

	items, version := p.src.Snapshot()
	out := Project(items, query, key)

	k.version = version
	p.cache.Add(k, out)

	return out
}

// Purge drops memoized projections.
func (p *Projector[T]) Purge() {
	p.cache.Purge()
}
