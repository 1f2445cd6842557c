// Package service contains interface of the mutation coordinator: the only write path into content stores.
package service

import (
	"context"
	"errors"

	"github.com/Decentr-net/agora/internal/entities"
)

//go:generate mockgen -destination=./mock/service.go -package=mock -source=service.go

var (
	// ErrPending is returned when another action on the same subject is in flight.
	ErrPending = errors.New("action is pending")
	// ErrInvalidRequest is returned when local validation fails. The server isn't contacted.
	ErrInvalidRequest = errors.New("invalid request")
)

// Service issues mutating actions, awaits confirmation and reconciles mounted stores with the server response.
// No action mutates a store before the server confirms it, and no action is retried.
type Service interface {
	// Pending reports whether an action on the subject is in flight.
	Pending(subject entities.Subject) bool

	Vote(ctx context.Context, subject entities.Subject, direction entities.Direction) (entities.VoteResult, error)
	SetPin(ctx context.Context, subject entities.Subject, pinned bool) error
	Edit(ctx context.Context, subject entities.Subject, p EditParams) error
	// Delete removes the subject. Upstream is responsible for asking the user for confirmation.
	Delete(ctx context.Context, subject entities.Subject) error

	CreatePost(ctx context.Context, topicSlug string, p CreatePostParams) (entities.Post, error)
	CreateComment(ctx context.Context, postID, content string) (entities.Comment, error)
	CreateTopic(ctx context.Context, name string) (entities.Topic, error)

	// Close waits for background cleanups.
	Close()
}

// Notifier shows user-visible notifications.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// EditParams ...
type EditParams struct {
	Title   string // ignored for comments
	Content string
}

// CreatePostParams ...
type CreatePostParams struct {
	Title    string
	Content  string
	ImageURL string
}
