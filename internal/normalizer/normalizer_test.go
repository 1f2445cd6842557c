package normalizer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Decentr-net/agora/internal/entities"
)

func strPtr(s string) *string { return &s }

func TestNormalizePost(t *testing.T) {
	raw := RawPost{
		ID:        "p1",
		Title:     "title",
		Content:   "<p>content</p>",
		IsPinned:  true,
		CreatedAt: "2024-01-02T03:04:05Z",
		UpdatedAt: "2024-01-02T03:04:06.123Z",
		ImageURL:  strPtr("https://cdn/img.png"),
		Author:    json.RawMessage(`{"ID":"u1","Username":"bob","AvatarURL":"a.png","IsAdmin":true}`),
		Topic:     json.RawMessage(`{"ID":"t1","Name":"Science","Slug":"science"}`),
		Likes:     4,
		Dislikes:  1,
		MyVote:    strPtr("dislike"),
	}

	p := NormalizePost(raw)

	assert.Equal(t, entities.Post{
		ID:        "p1",
		Title:     "title",
		Content:   "<p>content</p>",
		Topic:     entities.Topic{ID: "t1", Name: "Science", Slug: "science"},
		Author:    entities.User{ID: "u1", Username: "bob", AvatarURL: "a.png", IsAdmin: true},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 2, 3, 4, 6, 123000000, time.UTC),
		ImageURL:  "https://cdn/img.png",
		IsPinned:  true,
		Likes:     4,
		Dislikes:  1,
		OwnVote:   entities.VoteDislike,
	}, p)
}

func TestNormalizePost_Defaults(t *testing.T) {
	tt := []struct {
		name   string
		author json.RawMessage
		topic  json.RawMessage
	}{
		{name: "missing"},
		{name: "null", author: json.RawMessage(`null`), topic: json.RawMessage(`null`)},
		{name: "empty object", author: json.RawMessage(`{}`), topic: json.RawMessage(`{}`)},
		{name: "wrong type", author: json.RawMessage(`"bob"`), topic: json.RawMessage(`42`)},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			p := NormalizePost(RawPost{
				ID:        "p1",
				Author:    tc.author,
				Topic:     tc.topic,
				CreatedAt: "yesterday",
				Likes:     -3,
			})

			assert.Equal(t, "p1", p.ID)
			assert.Equal(t, entities.UnknownUser, p.Author)
			assert.Equal(t, "unknown", p.Author.ID)
			assert.Equal(t, entities.UnknownTopic, p.Topic)
			assert.Equal(t, entities.VoteNone, p.OwnVote)
			assert.True(t, p.CreatedAt.IsZero())
			assert.Zero(t, p.Likes)
			assert.False(t, p.IsPinned)
			assert.Empty(t, p.Content)
		})
	}
}

func TestNormalizeComment(t *testing.T) {
	c := NormalizeComment(RawComment{
		ID:        "c1",
		PostID:    "p1",
		Content:   strPtr("hello"),
		CreatedAt: "2024-01-02T03:04:05Z",
		Author:    json.RawMessage(`{"ID":"u1","Username":"bob"}`),
		Likes:     2,
		MyVote:    strPtr("like"),
	})

	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "p1", c.PostID)
	assert.Equal(t, "hello", c.Content)
	assert.Equal(t, "bob", c.Author.Username)
	assert.EqualValues(t, 2, c.Likes)
	assert.Equal(t, entities.VoteLike, c.OwnVote)

	c = NormalizeComment(RawComment{ID: "c2", MyVote: strPtr("meh")})
	assert.Empty(t, c.Content)
	assert.Equal(t, entities.UnknownUser, c.Author)
	assert.Equal(t, entities.VoteNone, c.OwnVote)
}

func TestNormalizeTopic(t *testing.T) {
	assert.Equal(t, entities.Topic{ID: "t1", Name: "Science Fiction", Slug: "science-fiction"},
		NormalizeTopic(RawTopic{ID: "t1", Name: "Science Fiction"}))
	assert.Equal(t, entities.UnknownTopic, NormalizeTopic(RawTopic{Name: "x"}))

	topics := NormalizeTopics([]RawTopic{{ID: "1", Slug: "a"}, {ID: "2", Slug: "b"}})
	require.Len(t, topics, 2)
	assert.Equal(t, "a", topics[0].Slug)
	assert.Equal(t, "b", topics[1].Slug)
}

func TestNormalizeVoteResult(t *testing.T) {
	assert.Equal(t, entities.VoteResult{Likes: 4, OwnVote: entities.VoteLike},
		NormalizeVoteResult(RawVoteResult{Likes: 4, MyVote: strPtr("like")}))
	assert.Equal(t, entities.VoteResult{Dislikes: 1, OwnVote: entities.VoteNone},
		NormalizeVoteResult(RawVoteResult{Dislikes: 1}))
}

func TestNormalizePosts_PreservesOrderAndCardinality(t *testing.T) {
	raws := []RawPost{{ID: "3"}, {ID: "1"}, {ID: "2"}, {ID: "1"}}

	out := NormalizePosts(raws)

	require.Len(t, out, len(raws))
	for i := range raws {
		require.Equal(t, raws[i].ID, out[i].ID)
	}

	require.Empty(t, NormalizePosts(nil))
	require.Empty(t, NormalizeComments(nil))
}

func TestDecodePosts(t *testing.T) {
	var elems []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"p1","title":"first","author":{"id":"u1","username":"bob"}},
		"garbage",
		{"ID":"p3","Likes":"many","Dislikes":2},
		{"ID":"p4","Author":[1,2]},
		42,
		{"Title":5,"ID":"p6","Content":"text"}
	]`), &elems))

	posts := DecodePosts(elems)

	require.Len(t, posts, 6)
	assert.Equal(t, "p1", posts[0].ID)
	assert.Equal(t, "bob", posts[0].Author.Username)
	assert.Equal(t, PlaceholderID(1), posts[1].ID)

	assert.Equal(t, "p3", posts[2].ID)
	assert.EqualValues(t, 0, posts[2].Likes)
	assert.EqualValues(t, 2, posts[2].Dislikes)

	assert.Equal(t, "p4", posts[3].ID)
	assert.Equal(t, entities.UnknownUser, posts[3].Author)

	assert.Equal(t, PlaceholderID(4), posts[4].ID)
	assert.NotEqual(t, posts[1].ID, posts[4].ID)

	assert.Equal(t, "p6", posts[5].ID)
	assert.Empty(t, posts[5].Title)
	assert.Equal(t, "text", posts[5].Content)
}

func TestDecodeComments(t *testing.T) {
	var elems []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`[
		{"ID":"c1","Content":7,"Likes":1},
		null,
		{"ID":"c3","PostID":["p1"]},
		[]
	]`), &elems))

	comments := DecodeComments(elems)

	require.Len(t, comments, 4)
	assert.Equal(t, "c1", comments[0].ID)
	assert.Empty(t, comments[0].Content)
	assert.EqualValues(t, 1, comments[0].Likes)
	assert.Equal(t, PlaceholderID(1), comments[1].ID)
	assert.Equal(t, "c3", comments[2].ID)
	assert.Empty(t, comments[2].PostID)
	assert.Equal(t, PlaceholderID(3), comments[3].ID)
}

func TestNormalizeProfile(t *testing.T) {
	var raw RawProfile
	require.NoError(t, json.Unmarshal([]byte(`{
		"id":"u1","username":"bob","avatarUrl":"a.png",
		"posts":[{"id":"p1"}],
		"comments":[{"id":"c1","content":"hi"},{"id":"c2"}]
	}`), &raw))

	p := NormalizeProfile(raw)

	assert.Equal(t, entities.User{ID: "u1", Username: "bob", AvatarURL: "a.png"}, p.User)
	require.Len(t, p.Posts, 1)
	require.Len(t, p.Comments, 2)
	assert.Equal(t, "hi", p.Comments[0].Content)
}
