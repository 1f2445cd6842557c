// Package backend contains an interface of the forum server operations the client depends on.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Decentr-net/agora/internal/entities"
)

//go:generate mockgen -destination=./mock/backend.go -package=mock -source=backend.go

var (
	// ErrNotFound ...
	ErrNotFound = fmt.Errorf("not found")
	// ErrTransport is returned when a request never reached the server or its response never came back.
	ErrTransport = errors.New("transport failure")
	// ErrRejected is returned when the server responded with a non-success status.
	ErrRejected = errors.New("rejected by server")
)

// StatusError is a non-success server response.
type StatusError struct {
	Code    int
	Message string
}

// Error ...
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status=%d message=%q", ErrRejected.Error(), e.Code, e.Message)
}

// Is reports ErrRejected for any status and ErrNotFound for 404.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrRejected:
		return true
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	default:
		return false
	}
}

// Backend provides remote operations of the forum server. Every returned record is normalized.
type Backend interface {
	ListTopics(ctx context.Context) ([]entities.Topic, error)
	CreateTopic(ctx context.Context, name string) (entities.Topic, error)

	// ListPosts returns posts of the topic; entities.AllTopics lists posts across all topics.
	ListPosts(ctx context.Context, topicSlug string) ([]entities.Post, error)
	GetPost(ctx context.Context, id string) (entities.Post, error)
	CreatePost(ctx context.Context, topicSlug string, p *CreatePostParams) (entities.Post, error)
	UpdatePost(ctx context.Context, id string, p *UpdatePostParams) (entities.Post, error)
	DeletePost(ctx context.Context, id string) error
	SetPostPin(ctx context.Context, id string, pinned bool) error

	ListComments(ctx context.Context, postID string) ([]entities.Comment, error)
	CreateComment(ctx context.Context, postID, content string) (entities.Comment, error)
	UpdateComment(ctx context.Context, id, content string) (entities.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	SetCommentPin(ctx context.Context, id string, pinned bool) error

	Vote(ctx context.Context, subject entities.Subject, direction entities.Direction) (entities.VoteResult, error)

	GetProfile(ctx context.Context, username string) (entities.Profile, error)
}

// CreatePostParams ...
type CreatePostParams struct {
	Title    string
	Content  string
	ImageURL string
}

// UpdatePostParams ...
type UpdatePostParams struct {
	Title   string
	Content string
}
