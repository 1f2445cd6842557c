package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Decentr-net/agora/internal/backend"
	"github.com/Decentr-net/agora/internal/entities"
	"github.com/Decentr-net/agora/internal/store"
)

// TopicFeed is a list of posts of one topic or of all topics.
type TopicFeed struct {
	*List[entities.Post]

	b backend.Backend
}

// NewTopicFeed ...
func NewTopicFeed(b backend.Backend, posts *store.Registry[entities.Post]) *TopicFeed {
	return &TopicFeed{
		List: NewList[entities.Post](entities.TopicScope(entities.AllTopics), posts),
		b:    b,
	}
}

// Topic returns slug of the currently shown topic.
func (f *TopicFeed) Topic() string {
	return strings.TrimPrefix(f.Store().Scope(), entities.TopicScope(""))
}

// Open loads posts of the topic. A response superseded by a later load is dropped silently.
func (f *TopicFeed) Open(ctx context.Context, slug string) error {
	if slug == "" {
		slug = entities.AllTopics
	}

	err := f.Store().Load(ctx, entities.TopicScope(slug), func(ctx context.Context, _ string) ([]entities.Post, error) {
		return f.b.ListPosts(ctx, slug)
	})

	switch {
	case errors.Is(err, store.ErrStale):
		log.WithField("topic", slug).Debug("topic load superseded")
		return nil
	case err != nil:
		return fmt.Errorf("failed to load posts of %s: %w", slug, err)
	default:
		return nil
	}
}

// SwitchTopic resets the query and opens another topic.
func (f *TopicFeed) SwitchTopic(ctx context.Context, slug string) error {
	f.SetQuery("")

	return f.Open(ctx, slug)
}

// PostDetail is a single post along with its comments.
type PostDetail struct {
	post     *List[entities.Post]
	comments *List[entities.Comment]

	b backend.Backend
}

// NewPostDetail ...
func NewPostDetail(b backend.Backend, posts *store.Registry[entities.Post], comments *store.Registry[entities.Comment]) *PostDetail {
	return &PostDetail{
		post:     NewList[entities.Post](entities.PostScope(""), posts),
		comments: NewList[entities.Comment](entities.PostScope(""), comments),
		b:        b,
	}
}

// Load fetches the post and its comments concurrently.
func (d *PostDetail) Load(ctx context.Context, postID string) error {
	scope := entities.PostScope(postID)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreStale(d.post.Store().Load(gctx, scope, func(ctx context.Context, _ string) ([]entities.Post, error) {
			p, err := d.b.GetPost(ctx, postID)
			if err != nil {
				return nil, fmt.Errorf("failed to get post: %w", err)
			}

			return []entities.Post{p}, nil
		}))
	})

	g.Go(func() error {
		return ignoreStale(d.comments.Store().Load(gctx, scope, func(ctx context.Context, _ string) ([]entities.Comment, error) {
			c, err := d.b.ListComments(ctx, postID)
			if err != nil {
				return nil, fmt.Errorf("failed to list comments: %w", err)
			}

			return c, nil
		}))
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load post %s: %w", postID, err)
	}

	return nil
}

// Post returns the loaded post.
func (d *PostDetail) Post() (entities.Post, bool) {
	items, _ := d.post.Store().Snapshot()
	if len(items) == 0 {
		return entities.Post{}, false
	}

	return items[0], true
}

// Comments ...
func (d *PostDetail) Comments() *List[entities.Comment] {
	return d.comments
}

// Close ...
func (d *PostDetail) Close() {
	d.post.Close()
	d.comments.Close()
}

// ProfileFeed is a user along with their posts and comments.
type ProfileFeed struct {
	posts    *List[entities.Post]
	comments *List[entities.Comment]

	b backend.Backend

	// apply serializes applying of responses, so user, posts and comments always belong to one profile
	apply sync.Mutex

	mu      sync.RWMutex
	issued  uint64
	applied uint64
	user    entities.User
}

// NewProfileFeed ...
func NewProfileFeed(b backend.Backend, posts *store.Registry[entities.Post], comments *store.Registry[entities.Comment]) *ProfileFeed {
	return &ProfileFeed{
		posts:    NewList[entities.Post](entities.UserScope(""), posts),
		comments: NewList[entities.Comment](entities.UserScope(""), comments),
		b:        b,
	}
}

// Load fetches the profile. Posts and comments with an unknown author are attributed to the user.
// A response superseded by a later load is dropped silently.
func (f *ProfileFeed) Load(ctx context.Context, username string) error {
	f.mu.Lock()
	f.issued++
	token := f.issued
	f.mu.Unlock()

	profile, err := f.b.GetProfile(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to load profile of %s: %w", username, err)
	}

	for i := range profile.Posts {
		if profile.Posts[i].Author == entities.UnknownUser {
			profile.Posts[i].Author = profile.User
		}
	}
	for i := range profile.Comments {
		if profile.Comments[i].Author == entities.UnknownUser {
			profile.Comments[i].Author = profile.User
		}
	}

	f.apply.Lock()
	defer f.apply.Unlock()

	f.mu.Lock()
	if token < f.applied {
		f.mu.Unlock()
		log.WithField("username", username).Debug("profile load superseded")

		return nil
	}
	f.applied = token
	f.user = profile.User
	f.mu.Unlock()

	scope := entities.UserScope(username)

	if err := ignoreStale(f.posts.Store().Load(ctx, scope, func(context.Context, string) ([]entities.Post, error) {
		return profile.Posts, nil
	})); err != nil {
		return err
	}

	return ignoreStale(f.comments.Store().Load(ctx, scope, func(context.Context, string) ([]entities.Comment, error) {
		return profile.Comments, nil
	}))
}

// User ...
func (f *ProfileFeed) User() entities.User {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.user
}

// Posts ...
func (f *ProfileFeed) Posts() *List[entities.Post] {
	return f.posts
}

// Comments ...
func (f *ProfileFeed) Comments() *List[entities.Comment] {
	return f.comments
}

// Close ...
func (f *ProfileFeed) Close() {
	f.posts.Close()
	f.comments.Close()
}

func ignoreStale(err error) error {
	if errors.Is(err, store.ErrStale) {
		return nil
	}

	return err
}
