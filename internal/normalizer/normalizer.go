// Package normalizer converts raw server records into canonical entities.
// It is the only place aware of the server's field naming; every function here is total and pure.
package normalizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Decentr-net/agora/internal/entities"
)

// UnknownID is a prefix of an id of a record which could not be decoded at all.
const UnknownID = "unknown"

// PlaceholderID returns an id of an undecodable element at index i of a list.
// Ids are distinct within a list, so placeholders don't collapse in a store.
func PlaceholderID(i int) string {
	return UnknownID + "-" + strconv.Itoa(i)
}

// NormalizeUser ...
func NormalizeUser(raw RawUser) entities.User {
	if raw.ID == "" {
		return entities.UnknownUser
	}

	return entities.User{
		ID:        raw.ID,
		Username:  raw.Username,
		AvatarURL: raw.AvatarURL,
		IsAdmin:   raw.IsAdmin,
	}
}

// NormalizeTopic ...
func NormalizeTopic(raw RawTopic) entities.Topic {
	if raw.ID == "" {
		return entities.UnknownTopic
	}

	slug := raw.Slug
	if slug == "" {
		slug = entities.Slugify(raw.Name)
	}

	return entities.Topic{
		ID:   raw.ID,
		Name: raw.Name,
		Slug: slug,
	}
}

// NormalizeTopics ...
func NormalizeTopics(raw []RawTopic) []entities.Topic {
	out := make([]entities.Topic, len(raw))
	for i := range raw {
		out[i] = NormalizeTopic(raw[i])
	}

	return out
}

// NormalizePost ...
func NormalizePost(raw RawPost) entities.Post {
	p := entities.Post{
		ID:        raw.ID,
		Title:     raw.Title,
		Content:   raw.Content,
		Topic:     nestedTopic(raw.Topic),
		Author:    nestedUser(raw.Author),
		CreatedAt: parseTime(raw.CreatedAt),
		UpdatedAt: parseTime(raw.UpdatedAt),
		IsPinned:  raw.IsPinned,
		Likes:     count(raw.Likes),
		Dislikes:  count(raw.Dislikes),
		OwnVote:   voteState(raw.MyVote),
	}

	if raw.ImageURL != nil {
		p.ImageURL = *raw.ImageURL
	}

	return p
}

// NormalizePosts ...
func NormalizePosts(raw []RawPost) []entities.Post {
	out := make([]entities.Post, len(raw))
	for i := range raw {
		out[i] = NormalizePost(raw[i])
	}

	return out
}

// NormalizeComment ...
func NormalizeComment(raw RawComment) entities.Comment {
	c := entities.Comment{
		ID:        raw.ID,
		PostID:    raw.PostID,
		Author:    nestedUser(raw.Author),
		CreatedAt: parseTime(raw.CreatedAt),
		UpdatedAt: parseTime(raw.UpdatedAt),
		IsPinned:  raw.IsPinned,
		Likes:     count(raw.Likes),
		Dislikes:  count(raw.Dislikes),
		OwnVote:   voteState(raw.MyVote),
	}

	if raw.Content != nil {
		c.Content = *raw.Content
	}

	return c
}

// NormalizeComments ...
func NormalizeComments(raw []RawComment) []entities.Comment {
	out := make([]entities.Comment, len(raw))
	for i := range raw {
		out[i] = NormalizeComment(raw[i])
	}

	return out
}

// NormalizeVoteResult ...
func NormalizeVoteResult(raw RawVoteResult) entities.VoteResult {
	return entities.VoteResult{
		Likes:    count(raw.Likes),
		Dislikes: count(raw.Dislikes),
		OwnVote:  voteState(raw.MyVote),
	}
}

// NormalizeProfile ...
func NormalizeProfile(raw RawProfile) entities.Profile {
	return entities.Profile{
		User:     NormalizeUser(raw.RawUser),
		Posts:    DecodePosts(raw.Posts),
		Comments: DecodeComments(raw.Comments),
	}
}

// DecodePosts decodes and normalizes posts one by one.
// A field of a wrong type falls back to its default; the rest of the element is kept.
// An element which is not a post object at all becomes a placeholder post, so cardinality is kept.
func DecodePosts(elems []json.RawMessage) []entities.Post {
	out := make([]entities.Post, len(elems))
	for i, v := range elems {
		var raw RawPost
		if err := decodeElem(v, &raw); err != nil {
			raw = RawPost{ID: PlaceholderID(i)}
		}
		out[i] = NormalizePost(raw)
	}

	return out
}

// DecodeComments decodes and normalizes comments one by one.
func DecodeComments(elems []json.RawMessage) []entities.Comment {
	out := make([]entities.Comment, len(elems))
	for i, v := range elems {
		var raw RawComment
		if err := decodeElem(v, &raw); err != nil {
			raw = RawComment{ID: PlaceholderID(i)}
		}
		out[i] = NormalizeComment(raw)
	}

	return out
}

func nestedUser(b json.RawMessage) entities.User {
	var raw RawUser
	if err := decode(b, &raw); err != nil {
		return entities.UnknownUser
	}

	return NormalizeUser(raw)
}

func nestedTopic(b json.RawMessage) entities.Topic {
	var raw RawTopic
	if err := decode(b, &raw); err != nil {
		return entities.UnknownTopic
	}

	return NormalizeTopic(raw)
}

var null = []byte("null") // nolint:gochecknoglobals

var errNotObject = errors.New("not an object")

// decodeElem decodes a list element leniently: only an element which isn't an object fails.
func decodeElem(b json.RawMessage, v interface{}) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return errNotObject
	}

	err := json.Unmarshal(b, v)

	// fields of a wrong type are skipped, the others are filled anyway
	var typeErr *json.UnmarshalTypeError
	if err != nil && !errors.As(err, &typeErr) {
		return err
	}

	return nil
}

func decode(b json.RawMessage, v interface{}) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, null) {
		return fmt.Errorf("empty object")
	}

	return json.Unmarshal(b, v)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}

	return t
}

func count(v int64) uint32 {
	switch {
	case v < 0:
		return 0
	case v > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(v)
	}
}

func voteState(s *string) entities.VoteState {
	if s == nil {
		return entities.VoteNone
	}

	switch entities.VoteState(*s) {
	case entities.VoteLike:
		return entities.VoteLike
	case entities.VoteDislike:
		return entities.VoteDislike
	default:
		return entities.VoteNone
	}
}
