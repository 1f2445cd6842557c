package view

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Decentr-net/agora/internal/backend"
	"github.com/Decentr-net/agora/internal/backend/mock"
	"github.com/Decentr-net/agora/internal/entities"
	"github.com/Decentr-net/agora/internal/projector"
	"github.com/Decentr-net/agora/internal/store"
)

func ids[T interface{ Key() string }](items []T) []string {
	out := make([]string, len(items))
	for i, v := range items {
		out[i] = v.Key()
	}

	return out
}

func post(id string, created int64) entities.Post {
	return entities.Post{ID: id, Title: "title " + id, CreatedAt: time.Unix(created, 0)}
}

func TestList(t *testing.T) {
	r := store.NewRegistry[entities.Post]()
	l := NewList[entities.Post]("topic:all", r)
	require.Equal(t, 1, r.Len())

	var changes int
	cancel := l.OnChange(func() { changes++ })

	l.Store().Replace([]entities.Post{post("a", 1), post("b", 2), {ID: "c", Title: "pinned", IsPinned: true}})
	require.Equal(t, []string{"c", "b", "a"}, ids(l.Items()))

	l.SetSort(projector.SortOldest)
	require.Equal(t, []string{"c", "a", "b"}, ids(l.Items()))

	l.SetQuery("title")
	require.Equal(t, []string{"a", "b"}, ids(l.Items()))
	l.SetQuery("title")

	r.Patch("a", entities.PinPatch(true))
	require.Equal(t, []string{"a", "b"}, ids(l.Items()))
	require.Equal(t, 4, changes)

	cancel()
	l.Close()
	require.Equal(t, 0, r.Len())

	r.Remove("a")
	require.Equal(t, 3, l.Store().Len(), "closed list isn't mounted")
	require.Equal(t, 4, changes)
}

func TestList_IndependentQueries(t *testing.T) {
	r := store.NewRegistry[entities.Post]()
	a, b := NewList[entities.Post]("topic:all", r), NewList[entities.Post]("topic:all", r)

	a.Store().Replace([]entities.Post{post("x", 1), post("y", 2)})
	b.Store().Replace([]entities.Post{post("x", 1), post("y", 2)})

	a.SetQuery("title x")
	require.Equal(t, []string{"x"}, ids(a.Items()))
	require.Equal(t, []string{"y", "x"}, ids(b.Items()))
}

func TestTopicFeed_StaleSwitchIsDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	b := mock.NewMockBackend(ctrl)

	started, release := make(chan struct{}), make(chan struct{})
	b.EXPECT().ListPosts(gomock.Any(), "topic-1").DoAndReturn(func(context.Context, string) ([]entities.Post, error) {
		close(started)
		<-release
		return []entities.Post{post("a1", 1), post("a2", 2)}, nil
	})
	b.EXPECT().ListPosts(gomock.Any(), "topic-2").Return([]entities.Post{post("b1", 1)}, nil)

	f := NewTopicFeed(b, store.NewRegistry[entities.Post]())
	defer f.Close()

	done := make(chan error)
	go func() { done <- f.Open(context.Background(), "topic-1") }()
	<-started

	f.SetQuery("b1")
	require.NoError(t, f.SwitchTopic(context.Background(), "topic-2"))
	require.Empty(t, f.Query())

	close(release)
	require.NoError(t, <-done, "stale response is not an error")

	require.Equal(t, "topic-2", f.Topic())
	require.Equal(t, []string{"b1"}, ids(f.Items()))
}

func TestTopicFeed_Open(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	b := mock.NewMockBackend(ctrl)
	b.EXPECT().ListPosts(gomock.Any(), entities.AllTopics).Return([]entities.Post{post("1", 1)}, nil)
	b.EXPECT().ListPosts(gomock.Any(), "gone").Return(nil, backend.ErrNotFound)

	f := NewTopicFeed(b, store.NewRegistry[entities.Post]())

	require.NoError(t, f.Open(context.Background(), ""))
	require.Equal(t, entities.AllTopics, f.Topic())

	err := f.Open(context.Background(), "gone")
	require.True(t, errors.Is(err, backend.ErrNotFound))
	require.Equal(t, entities.AllTopics, f.Topic())
	require.Len(t, f.Items(), 1)
}

func TestPostDetail_Load(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	b := mock.NewMockBackend(ctrl)

	// both requests must be in flight at the same time
	inflight := make(chan struct{}, 2)
	wait := func() {
		inflight <- struct{}{}
		for len(inflight) < 2 {
			time.Sleep(time.Millisecond)
		}
	}

	b.EXPECT().GetPost(gomock.Any(), "p1").DoAndReturn(func(context.Context, string) (entities.Post, error) {
		wait()
		return post("p1", 1), nil
	})
	b.EXPECT().ListComments(gomock.Any(), "p1").DoAndReturn(func(context.Context, string) ([]entities.Comment, error) {
		wait()
		return []entities.Comment{
			{ID: "c1", PostID: "p1", CreatedAt: time.Unix(1, 0)},
			{ID: "c2", PostID: "p1", CreatedAt: time.Unix(2, 0)},
		}, nil
	})

	posts, comments := store.NewRegistry[entities.Post](), store.NewRegistry[entities.Comment]()
	d := NewPostDetail(b, posts, comments)

	require.NoError(t, d.Load(context.Background(), "p1"))

	p, ok := d.Post()
	require.True(t, ok)
	require.Equal(t, "p1", p.ID)
	require.Equal(t, []string{"c2", "c1"}, ids(d.Comments().Items()))

	require.Equal(t, 1, comments.Insert(entities.Comment{ID: "c3"}, store.Front, entities.PostScope("p1")))

	d.Close()
	require.Equal(t, 0, posts.Len())
	require.Equal(t, 0, comments.Len())
}

func TestPostDetail_Load_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	b := mock.NewMockBackend(ctrl)
	b.EXPECT().GetPost(gomock.Any(), "p1").Return(entities.Post{}, backend.ErrNotFound)
	b.EXPECT().ListComments(gomock.Any(), "p1").Return(nil, nil).AnyTimes()

	d := NewPostDetail(b, store.NewRegistry[entities.Post](), store.NewRegistry[entities.Comment]())
	defer d.Close()

	err := d.Load(context.Background(), "p1")
	require.True(t, errors.Is(err, backend.ErrNotFound))

	_, ok := d.Post()
	require.False(t, ok)
}

func TestProfileFeed_Load(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bob := entities.User{ID: "u1", Username: "bob"}

	b := mock.NewMockBackend(ctrl)
	b.EXPECT().GetProfile(gomock.Any(), "bob").Return(entities.Profile{
		User:     bob,
		Posts:    []entities.Post{{ID: "p1", Author: entities.UnknownUser}},
		Comments: []entities.Comment{{ID: "c1", Author: entities.UnknownUser}, {ID: "c2", Author: entities.User{ID: "u2"}}},
	}, nil)

	posts, comments := store.NewRegistry[entities.Post](), store.NewRegistry[entities.Comment]()
	f := NewProfileFeed(b, posts, comments)
	defer f.Close()

	require.NoError(t, f.Load(context.Background(), "bob"))
	assert.Equal(t, bob, f.User())

	p, ok := f.Posts().Store().Get("p1")
	require.True(t, ok)
	assert.Equal(t, bob, p.Author)

	c, _ := f.Comments().Store().Get("c1")
	assert.Equal(t, bob, c.Author)
	c, _ = f.Comments().Store().Get("c2")
	assert.Equal(t, "u2", c.Author.ID)

	require.Equal(t, 1, posts.Insert(entities.Post{ID: "p2"}, store.Front, entities.UserScope("bob")))
	require.Equal(t, 2, f.Posts().Store().Len())
}

func TestProfileFeed_StaleLoadIsDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bob := entities.User{ID: "u1", Username: "bob"}
	alice := entities.User{ID: "u2", Username: "alice"}

	b := mock.NewMockBackend(ctrl)

	started, release := make(chan struct{}), make(chan struct{})
	b.EXPECT().GetProfile(gomock.Any(), "bob").DoAndReturn(func(context.Context, string) (entities.Profile, error) {
		close(started)
		<-release
		return entities.Profile{
			User:     bob,
			Posts:    []entities.Post{{ID: "p1", Author: bob}},
			Comments: []entities.Comment{{ID: "c1", Author: bob}},
		}, nil
	})
	b.EXPECT().GetProfile(gomock.Any(), "alice").Return(entities.Profile{
		User:     alice,
		Posts:    []entities.Post{{ID: "p2", Author: alice}},
		Comments: []entities.Comment{{ID: "c2", Author: alice}},
	}, nil)

	f := NewProfileFeed(b, store.NewRegistry[entities.Post](), store.NewRegistry[entities.Comment]())
	defer f.Close()

	done := make(chan error)
	go func() { done <- f.Load(context.Background(), "bob") }()
	<-started

	require.NoError(t, f.Load(context.Background(), "alice"))

	close(release)
	require.NoError(t, <-done, "stale response is not an error")

	assert.Equal(t, alice, f.User())
	assert.Equal(t, []string{"p2"}, ids(f.Posts().Items()))
	assert.Equal(t, []string{"c2"}, ids(f.Comments().Items()))
	assert.Equal(t, entities.UserScope("alice"), f.Posts().Store().Scope())
	assert.Equal(t, entities.UserScope("alice"), f.Comments().Store().Scope())
}
