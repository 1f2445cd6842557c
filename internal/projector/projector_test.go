package projector

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Decentr-net/agora/internal/entities"
	"github.com/Decentr-net/agora/internal/store"
)

func ids[T interface{ Key() string }](items []T) []string {
	out := make([]string, len(items))
	for i, v := range items {
		out[i] = v.Key()
	}

	return out
}

func comment(id, content string, pinned bool, created int64, likes, dislikes uint32) entities.Comment {
	return entities.Comment{
		ID:        id,
		Content:   content,
		Author:    entities.User{ID: "u", Username: "author-" + id},
		IsPinned:  pinned,
		CreatedAt: time.Unix(created, 0),
		Likes:     likes,
		Dislikes:  dislikes,
	}
}

func TestParseSortKey(t *testing.T) {
	for _, v := range []string{"recent", "oldest", "likes", "dislikes", "LIKES"} {
		_, err := ParseSortKey(v)
		require.NoError(t, err, v)
	}

	k, err := ParseSortKey("")
	require.NoError(t, err)
	require.Equal(t, SortRecent, k)

	_, err = ParseSortKey("random")
	require.True(t, errors.Is(err, ErrInvalidSortKey))
}

func TestProject_Sort(t *testing.T) {
	items := []entities.Comment{
		comment("a", "", false, 1, 5, 0),
		comment("b", "", true, 2, 1, 7),
		comment("c", "", false, 3, 9, 2),
		comment("d", "", true, 4, 3, 1),
		comment("e", "", false, 5, 0, 4),
	}

	tt := []struct {
		key SortKey
		out []string
	}{
		{key: SortRecent, out: []string{"d", "b", "e", "c", "a"}},
		{key: SortOldest, out: []string{"b", "d", "a", "c", "e"}},
		{key: SortLikes, out: []string{"d", "b", "c", "a", "e"}},
		{key: SortDislikes, out: []string{"b", "d", "e", "c", "a"}},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(string(tc.key), func(t *testing.T) {
			require.Equal(t, tc.out, ids(Project(items, "", tc.key)))
		})
	}
}

func TestProject_PinnedAlwaysFirst(t *testing.T) {
	var items []entities.Post
	for i := 0; i < 20; i++ {
		items = append(items, entities.Post{
			ID:        string(rune('a' + i)),
			IsPinned:  i%3 == 0,
			CreatedAt: time.Unix(int64((i*7)%11), 0),
			Likes:     uint32((i * 5) % 13),
			Dislikes:  uint32((i * 3) % 7),
		})
	}

	for _, key := range []SortKey{SortRecent, SortOldest, SortLikes, SortDislikes} {
		out := Project(items, "", key)
		require.Len(t, out, len(items))

		seenUnpinned := false
		for _, v := range out {
			if !v.IsPinned {
				seenUnpinned = true
				continue
			}
			require.False(t, seenUnpinned, "pinned item %s after unpinned with key %s", v.ID, key)
		}
	}
}

func TestProject_StableTies(t *testing.T) {
	items := []entities.Comment{
		comment("1", "", false, 1, 2, 0),
		comment("2", "", false, 1, 2, 0),
		comment("3", "", false, 1, 2, 0),
	}

	for _, key := range []SortKey{SortRecent, SortOldest, SortLikes, SortDislikes} {
		require.Equal(t, []string{"1", "2", "3"}, ids(Project(items, "", key)))
	}
}

func TestProject_Filter(t *testing.T) {
	items := []entities.Comment{
		comment("cats", "cats are great", false, 1, 0, 0),
		comment("dogs", "dogs", true, 2, 0, 0),
	}

	require.Equal(t, []string{"cats"}, ids(Project(items, "cat", SortRecent)))
	require.Equal(t, []string{"cats"}, ids(Project(items, "CATS ARE", SortRecent)))
	require.Equal(t, []string{"dogs"}, ids(Project(items, "author-dogs", SortRecent)), "author name matches")
	require.Equal(t, []string{"dogs", "cats"}, ids(Project(items, "", SortRecent)))
	require.Empty(t, Project(items, "birds", SortRecent))

	posts := []entities.Post{{ID: "p", Title: "Weekly Digest"}}
	require.Len(t, Project(posts, "digest", SortRecent), 1, "post title matches")
}

func TestProject_DoesNotModifyInput(t *testing.T) {
	items := []entities.Comment{
		comment("a", "", false, 1, 0, 0),
		comment("b", "", true, 2, 0, 0),
	}

	Project(items, "", SortRecent)

	require.Equal(t, []string{"a", "b"}, ids(items))
}

type countingSource struct {
	*store.Store[entities.Post]
	snapshots int
}

func (s *countingSource) Snapshot() ([]entities.Post, uint64) {
	s.snapshots++
	return s.Store.Snapshot()
}

func TestProjector_Memoizes(t *testing.T) {
	s := store.New[entities.Post]("topic:all")
	s.Replace([]entities.Post{
		{ID: "1", CreatedAt: time.Unix(1, 0), Content: "cat"},
		{ID: "2", CreatedAt: time.Unix(2, 0), Content: "dog"},
	})
	src := &countingSource{Store: s}

	p := New[entities.Post](src)

	assert.Equal(t, []string{"2", "1"}, ids(p.Project("", SortRecent)))
	assert.Equal(t, []string{"2", "1"}, ids(p.Project("", SortRecent)))
	assert.Equal(t, 1, src.snapshots)

	assert.Equal(t, []string{"1"}, ids(p.Project("cat", SortRecent)))
	assert.Equal(t, []string{"1", "2"}, ids(p.Project("", SortOldest)))
	assert.Equal(t, 3, src.snapshots)

	s.Patch("1", entities.PinPatch(true))
	assert.Equal(t, []string{"1", "2"}, ids(p.Project("", SortRecent)))
	assert.Equal(t, 4, src.snapshots)

	p.Purge()
	p.Project("", SortRecent)
	assert.Equal(t, 5, src.snapshots)
}
