// Package impl is implementation of service interface.
package impl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rivo/uniseg"
	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/agora/internal/backend"
	"github.com/Decentr-net/agora/internal/entities"
	"github.com/Decentr-net/agora/internal/media"
	"github.com/Decentr-net/agora/internal/service"
	"github.com/Decentr-net/agora/internal/store"
)

const (
	maxTitleLength   = 255
	maxContentLength = 10000

	releaseTimeout = 30 * time.Second
)

var log = logrus.WithField("package", "service")

// service ...
type srv struct {
	b        backend.Backend
	posts    *store.Registry[entities.Post]
	comments *store.Registry[entities.Comment]
	n        service.Notifier
	r        media.Releaser

	mu      sync.Mutex
	pending map[entities.Subject]struct{}

	wg sync.WaitGroup
}

// New creates new instance of service. Releaser is optional: media of deleted posts is kept when it's nil.
func New(
	b backend.Backend,
	posts *store.Registry[entities.Post],
	comments *store.Registry[entities.Comment],
	n service.Notifier,
	r media.Releaser,
) service.Service {
	return &srv{
		b:        b,
		posts:    posts,
		comments: comments,
		n:        n,
		r:        r,
		pending:  map[entities.Subject]struct{}{},
	}
}

func (s *srv) Pending(subject entities.Subject) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.pending[subject]
	return ok
}

func (s *srv) Vote(ctx context.Context, subject entities.Subject, direction entities.Direction) (entities.VoteResult, error) {
	if !subject.Kind.Valid() || subject.ID == "" || !direction.Valid() {
		return entities.VoteResult{}, s.reject("failed to vote", fmt.Errorf("%w: invalid vote on %s", service.ErrInvalidRequest, subject))
	}

	if !s.acquire(subject) {
		return entities.VoteResult{}, service.ErrPending
	}
	defer s.release(subject)

	res, err := s.b.Vote(ctx, subject, direction)
	if err != nil {
		return entities.VoteResult{}, s.fail("failed to vote", subject, err)
	}

	s.patch(subject, res.Patch())

	return res, nil
}

func (s *srv) SetPin(ctx context.Context, subject entities.Subject, pinned bool) error {
	if !subject.Kind.Valid() || subject.ID == "" {
		return s.reject("failed to pin", fmt.Errorf("%w: invalid subject %s", service.ErrInvalidRequest, subject))
	}

	if !s.acquire(subject) {
		return service.ErrPending
	}
	defer s.release(subject)

	var err error
	switch subject.Kind {
	case entities.PostKind:
		err = s.b.SetPostPin(ctx, subject.ID, pinned)
	case entities.CommentKind:
		err = s.b.SetCommentPin(ctx, subject.ID, pinned)
	}
	if err != nil {
		return s.fail("failed to pin", subject, err)
	}

	s.patch(subject, entities.PinPatch(pinned))

	return nil
}

func (s *srv) Edit(ctx context.Context, subject entities.Subject, p service.EditParams) error {
	if err := validate(subject.Kind, p.Title, p.Content); err != nil {
		return s.reject("failed to edit", err)
	}
	if subject.ID == "" {
		return s.reject("failed to edit", fmt.Errorf("%w: invalid subject %s", service.ErrInvalidRequest, subject))
	}

	if !s.acquire(subject) {
		return service.ErrPending
	}
	defer s.release(subject)

	switch subject.Kind {
	case entities.PostKind:
		post, err := s.b.UpdatePost(ctx, subject.ID, &backend.UpdatePostParams{
			Title:   p.Title,
			Content: p.Content,
		})
		if err != nil {
			return s.fail("failed to edit", subject, err)
		}

		// vote counters and pin flag aren't a part of update response
		s.posts.Patch(subject.ID, entities.Patch{
			Title:     &post.Title,
			Content:   &post.Content,
			ImageURL:  &post.ImageURL,
			UpdatedAt: &post.UpdatedAt,
		})
	case entities.CommentKind:
		comment, err := s.b.UpdateComment(ctx, subject.ID, p.Content)
		if err != nil {
			return s.fail("failed to edit", subject, err)
		}

		s.comments.Patch(subject.ID, entities.Patch{
			Content:   &comment.Content,
			UpdatedAt: &comment.UpdatedAt,
		})
	}

	s.n.Success(fmt.Sprintf("%s updated", subject.Kind))

	return nil
}

func (s *srv) Delete(ctx context.Context, subject entities.Subject) error {
	if !subject.Kind.Valid() || subject.ID == "" {
		return s.reject("failed to delete", fmt.Errorf("%w: invalid subject %s", service.ErrInvalidRequest, subject))
	}

	if !s.acquire(subject) {
		return service.ErrPending
	}
	defer s.release(subject)

	switch subject.Kind {
	case entities.PostKind:
		var image string
		if p, ok := s.posts.Find(subject.ID); ok {
			image = p.ImageURL
		}

		if err := s.b.DeletePost(ctx, subject.ID); err != nil {
			return s.fail("failed to delete", subject, err)
		}

		s.posts.Remove(subject.ID)
		s.releaseMedia(image)
	case entities.CommentKind:
		if err := s.b.DeleteComment(ctx, subject.ID); err != nil {
			return s.fail("failed to delete", subject, err)
		}

		s.comments.Remove(subject.ID)
	}

	s.n.Success(fmt.Sprintf("%s deleted", subject.Kind))

	return nil
}

func (s *srv) CreatePost(ctx context.Context, topicSlug string, p service.CreatePostParams) (entities.Post, error) {
	if err := validate(entities.PostKind, p.Title, p.Content); err != nil {
		return entities.Post{}, s.reject("failed to create post", err)
	}
	if topicSlug == "" || topicSlug == entities.AllTopics {
		return entities.Post{}, s.reject("failed to create post", fmt.Errorf("%w: topic is required", service.ErrInvalidRequest))
	}

	subject := entities.Subject{Kind: entities.PostKind, ID: "new:" + topicSlug}
	if !s.acquire(subject) {
		return entities.Post{}, service.ErrPending
	}
	defer s.release(subject)

	post, err := s.b.CreatePost(ctx, topicSlug, &backend.CreatePostParams{
		Title:    p.Title,
		Content:  p.Content,
		ImageURL: p.ImageURL,
	})
	if err != nil {
		return entities.Post{}, s.fail("failed to create post", subject, err)
	}

	// the server may answer without author and topic preloaded
	scopes := []string{entities.TopicScope(topicSlug), entities.TopicScope(entities.AllTopics)}
	if post.Topic != entities.UnknownTopic {
		scopes = append(scopes, entities.TopicScope(post.Topic.Slug))
	}
	if post.Author != entities.UnknownUser {
		scopes = append(scopes, entities.UserScope(post.Author.Username))
	}

	s.posts.Insert(post, store.Front, scopes...)

	s.n.Success("post created")

	return post, nil
}

func (s *srv) CreateComment(ctx context.Context, postID, content string) (entities.Comment, error) {
	if err := validate(entities.CommentKind, "", content); err != nil {
		return entities.Comment{}, s.reject("failed to create comment", err)
	}
	if postID == "" {
		return entities.Comment{}, s.reject("failed to create comment", fmt.Errorf("%w: post is required", service.ErrInvalidRequest))
	}

	subject := entities.Subject{Kind: entities.CommentKind, ID: "new:" + postID}
	if !s.acquire(subject) {
		return entities.Comment{}, service.ErrPending
	}
	defer s.release(subject)

	comment, err := s.b.CreateComment(ctx, postID, content)
	if err != nil {
		return entities.Comment{}, s.fail("failed to create comment", subject, err)
	}

	if comment.PostID == "" {
		comment.PostID = postID
	}

	scopes := []string{entities.PostScope(postID)}
	if comment.Author != entities.UnknownUser {
		scopes = append(scopes, entities.UserScope(comment.Author.Username))
	}

	s.comments.Insert(comment, store.Front, scopes...)

	s.n.Success("comment created")

	return comment, nil
}

func (s *srv) CreateTopic(ctx context.Context, name string) (entities.Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entities.Topic{}, s.reject("failed to create topic", fmt.Errorf("%w: topic name cannot be empty", service.ErrInvalidRequest))
	}
	if uniseg.GraphemeClusterCount(name) > maxTitleLength {
		return entities.Topic{}, s.reject("failed to create topic", fmt.Errorf("%w: topic name is too long", service.ErrInvalidRequest))
	}

	t, err := s.b.CreateTopic(ctx, name)
	if err != nil {
		log.WithError(err).WithField("name", name).Error("failed to create topic")
		s.n.Error("failed to create topic")

		return entities.Topic{}, fmt.Errorf("failed to create topic: %w", err)
	}

	s.n.Success("topic created")

	return t, nil
}

func (s *srv) Close() {
	s.wg.Wait()
}

func (s *srv) acquire(subject entities.Subject) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[subject]; ok {
		return false
	}
	s.pending[subject] = struct{}{}

	return true
}

func (s *srv) release(subject entities.Subject) {
	s.mu.Lock()
	delete(s.pending, subject)
	s.mu.Unlock()
}

func (s *srv) patch(subject entities.Subject, p entities.Patch) {
	switch subject.Kind {
	case entities.PostKind:
		s.posts.Patch(subject.ID, p)
	case entities.CommentKind:
		s.comments.Patch(subject.ID, p)
	}
}

func (s *srv) fail(msg string, subject entities.Subject, err error) error {
	log.WithError(err).WithField("subject", subject.String()).Error(msg)
	s.n.Error(msg)

	return fmt.Errorf("%s: %w", msg, err)
}

// reject reports an action refused before reaching the server.
func (s *srv) reject(msg string, err error) error {
	log.WithError(err).Info(msg)
	s.n.Error(msg)

	return fmt.Errorf("%s: %w", msg, err)
}

// releaseMedia removes the image in background. Failures don't affect the deletion.
func (s *srv) releaseMedia(url string) {
	if s.r == nil || url == "" {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if err := s.r.Release(ctx, url); err != nil {
			log.WithError(err).WithField("url", url).Warn("failed to release media")
		}
	}()
}

func validate(kind entities.Kind, title, content string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", service.ErrInvalidRequest, kind)
	}

	content = strings.TrimSpace(content)
	title = strings.TrimSpace(title)

	if kind == entities.PostKind && (title == "" || content == "") {
		return fmt.Errorf("%w: title and content cannot be empty", service.ErrInvalidRequest)
	}
	if content == "" {
		return fmt.Errorf("%w: content cannot be empty", service.ErrInvalidRequest)
	}

	if uniseg.GraphemeClusterCount(title) > maxTitleLength {
		return fmt.Errorf("%w: title is longer than %d characters", service.ErrInvalidRequest, maxTitleLength)
	}
	if uniseg.GraphemeClusterCount(content) > maxContentLength {
		return fmt.Errorf("%w: content is longer than %d characters", service.ErrInvalidRequest, maxContentLength)
	}

	return nil
}
