// Package media contains an interface for releasing media owned by deleted content.
package media

import (
	"context"
	"fmt"
	"strings"
)

//go:generate mockgen -destination=./mock/media.go -package=mock -source=media.go

// ErrInvalidURL ...
var ErrInvalidURL = fmt.Errorf("invalid media url")

// Releaser releases a media reference, e.g. removes an uploaded image.
type Releaser interface {
	Release(ctx context.Context, url string) error
}

// ReleaserFunc is an adapter to allow the use of ordinary functions as Releaser.
type ReleaserFunc func(ctx context.Context, url string) error

// Release ...
func (f ReleaserFunc) Release(ctx context.Context, url string) error {
	return f(ctx, url)
}

// ObjectName extracts the object name from a media url: the last path segment without query.
func ObjectName(url string) (string, error) {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}

	name := url[strings.LastIndex(url, "/")+1:]
	if name == "" || name == "undefined" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}

	return name, nil
}
