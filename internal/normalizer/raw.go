package normalizer

import (
	"encoding/json"
)

// RawUser is a user as the forum server sends it.
type RawUser struct {
	ID        string `json:"ID"`
	Username  string `json:"Username"`
	AvatarURL string `json:"AvatarURL"`
	IsAdmin   bool   `json:"IsAdmin"`
}

// RawTopic ...
type RawTopic struct {
	ID   string `json:"ID"`
	Name string `json:"Name"`
	Slug string `json:"Slug"`
}

// RawPost ...
// Author and Topic are kept undecoded so a corrupt nested object doesn't break the whole list.
type RawPost struct {
	ID        string          `json:"ID"`
	Title     string          `json:"Title"`
	Content   string          `json:"Content"`
	IsPinned  bool            `json:"IsPinned"`
	CreatedAt string          `json:"CreatedAt"`
	UpdatedAt string          `json:"UpdatedAt"`
	ImageURL  *string         `json:"ImageUrl"`
	Author    json.RawMessage `json:"Author"`
	Topic     json.RawMessage `json:"Topic"`
	Likes     int64           `json:"Likes"`
	Dislikes  int64           `json:"Dislikes"`
	MyVote    *string         `json:"MyVote"`
}

// RawComment ...
type RawComment struct {
	ID        string          `json:"ID"`
	PostID    string          `json:"PostID"`
	Content   *string         `json:"Content"`
	IsPinned  bool            `json:"IsPinned"`
	CreatedAt string          `json:"CreatedAt"`
	UpdatedAt string          `json:"UpdatedAt"`
	Author    json.RawMessage `json:"Author"`
	Likes     int64           `json:"Likes"`
	Dislikes  int64           `json:"Dislikes"`
	MyVote    *string         `json:"MyVote"`
}

// RawVoteResult is a server response on a vote request.
type RawVoteResult struct {
	Likes    int64   `json:"likes"`
	Dislikes int64   `json:"dislikes"`
	MyVote   *string `json:"myVote"`
}

// RawProfile is a user profile with optional posts and comments.
type RawProfile struct {
	RawUser
	Posts    []json.RawMessage `json:"Posts"`
	Comments []json.RawMessage `json:"Comments"`
}
