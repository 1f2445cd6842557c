// Package entities contains canonical entities of the forum client.
package entities

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// VoteState is the caller's own vote on a post or a comment.
type VoteState string

const (
	// VoteNone ...
	VoteNone VoteState = "none"
	// VoteLike ...
	VoteLike VoteState = "like"
	// VoteDislike ...
	VoteDislike VoteState = "dislike"
)

// Direction is a direction of a vote request.
type Direction string

const (
	// Like ...
	Like Direction = "like"
	// Dislike ...
	Dislike Direction = "dislike"
)

// Valid ...
func (d Direction) Valid() bool {
	return d == Like || d == Dislike
}

// Kind is a kind of votable and pinnable subject.
type Kind string

const (
	// PostKind ...
	PostKind Kind = "post"
	// CommentKind ...
	CommentKind Kind = "comment"
)

// Valid ...
func (k Kind) Valid() bool {
	return k == PostKind || k == CommentKind
}

// Subject identifies a post or a comment.
type Subject struct {
	Kind Kind
	ID   string
}

// String ...
func (s Subject) String() string {
	return string(s.Kind) + "/" + s.ID
}

// AllTopics is the pseudo topic slug of the feed across all topics.
const AllTopics = "all"

// TopicScope returns scope of a topic posts feed.
func TopicScope(slug string) string {
	return "topic:" + slug
}

// PostScope returns scope of a single post and its comments.
func PostScope(id string) string {
	return "post:" + id
}

// UserScope returns scope of a user profile feed.
func UserScope(username string) string {
	return "user:" + username
}

// User ...
type User struct {
	ID        string
	Username  string
	AvatarURL string // empty means no avatar
	IsAdmin   bool
}

// UnknownUser substitutes a missing or malformed author.
var UnknownUser = User{ // nolint:gochecknoglobals
	ID:       "unknown",
	Username: "Unknown",
}

// Topic ...
type Topic struct {
	ID   string
	Name string
	Slug string
}

// UnknownTopic substitutes a missing or malformed topic.
var UnknownTopic = Topic{ // nolint:gochecknoglobals
	ID:   "unknown",
	Name: "Unknown",
	Slug: "unknown",
}

// DisplayName returns topic name with the first letter capitalized and the rest lower-cased.
func (t Topic) DisplayName() string {
	name := strings.ToLower(strings.TrimSpace(t.Name))
	if name == "" {
		return ""
	}

	r, size := utf8.DecodeRuneInString(name)

	return string(unicode.ToUpper(r)) + name[size:]
}

var (
	nonSlugChars = regexp.MustCompile(`[^\w\s-]`)
	dashes       = regexp.MustCompile(`-+`)
)

// Slugify converts topic name to an url-safe slug.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = nonSlugChars.ReplaceAllString(slug, "")
	slug = strings.Join(strings.Fields(slug), "-")
	slug = dashes.ReplaceAllString(slug, "-")

	return strings.Trim(slug, "-")
}

// Post ...
type Post struct {
	ID        string
	Title     string
	Content   string // formatted text, rendered verbatim
	Topic     Topic
	Author    User
	CreatedAt time.Time
	UpdatedAt time.Time
	ImageURL  string
	IsPinned  bool
	Likes     uint32
	Dislikes  uint32
	OwnVote   VoteState
}

// Key ...
func (p Post) Key() string { return p.ID }

// Pinned ...
func (p Post) Pinned() bool { return p.IsPinned }

// Created ...
func (p Post) Created() time.Time { return p.CreatedAt }

// Counts returns likes and dislikes.
func (p Post) Counts() (uint32, uint32) { return p.Likes, p.Dislikes }

// SearchFields returns fields matched by free-text queries.
func (p Post) SearchFields() []string {
	return []string{p.Title, p.Content, p.Author.Username}
}

// WithPatch returns a copy of the post with the patch applied.
func (p Post) WithPatch(patch Patch) Post {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.ImageURL != nil {
		p.ImageURL = *patch.ImageURL
	}
	if patch.UpdatedAt != nil {
		p.UpdatedAt = *patch.UpdatedAt
	}
	patch.applyFlags(&p.IsPinned, &p.Likes, &p.Dislikes, &p.OwnVote)

	return p
}

// Comment ...
type Comment struct {
	ID        string
	PostID    string
	Content   string
	Author    User
	CreatedAt time.Time
	UpdatedAt time.Time
	IsPinned  bool
	Likes     uint32
	Dislikes  uint32
	OwnVote   VoteState
}

// Key ...
func (c Comment) Key() string { return c.ID }

// Pinned ...
func (c Comment) Pinned() bool { return c.IsPinned }

// Created ...
func (c Comment) Created() time.Time { return c.CreatedAt }

// Counts returns likes and dislikes.
func (c Comment) Counts() (uint32, uint32) { return c.Likes, c.Dislikes }

// SearchFields returns fields matched by free-text queries.
func (c Comment) SearchFields() []string {
	return []string{c.Content, c.Author.Username}
}

// WithPatch returns a copy of the comment with the patch applied. Title and ImageURL are ignored.
func (c Comment) WithPatch(patch Patch) Comment {
	if patch.Content != nil {
		c.Content = *patch.Content
	}
	if patch.UpdatedAt != nil {
		c.UpdatedAt = *patch.UpdatedAt
	}
	patch.applyFlags(&c.IsPinned, &c.Likes, &c.Dislikes, &c.OwnVote)

	return c
}

// VoteResult is a server-confirmed outcome of a vote.
type VoteResult struct {
	Likes    uint32
	Dislikes uint32
	OwnVote  VoteState
}

// Patch returns a patch which applies the vote result.
func (r VoteResult) Patch() Patch {
	likes, dislikes, vote := r.Likes, r.Dislikes, r.OwnVote

	return Patch{
		Likes:    &likes,
		Dislikes: &dislikes,
		OwnVote:  &vote,
	}
}

// Profile is a user with its posts and comments.
type Profile struct {
	User     User
	Posts    []Post
	Comments []Comment
}

// Patch is a partial update of a post or a comment. Nil fields are left untouched.
type Patch struct {
	Title     *string
	Content   *string
	ImageURL  *string
	UpdatedAt *time.Time
	IsPinned  *bool
	Likes     *uint32
	Dislikes  *uint32
	OwnVote   *VoteState
}

// PinPatch returns a patch which sets pin flag.
func PinPatch(pinned bool) Patch {
	return Patch{IsPinned: &pinned}
}

func (patch Patch) applyFlags(pinned *bool, likes, dislikes *uint32, vote *VoteState) {
	if patch.IsPinned != nil {
		*pinned = *patch.IsPinned
	}
	if patch.Likes != nil {
		*likes = *patch.Likes
	}
	if patch.Dislikes != nil {
		*dislikes = *patch.Dislikes
	}
	if patch.OwnVote != nil {
		*vote = *patch.OwnVote
	}
}
