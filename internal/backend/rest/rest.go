// Package rest is an implementation of backend interface over the forum server HTTP API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/agora/internal/backend"
	"github.com/Decentr-net/agora/internal/entities"
	"github.com/Decentr-net/agora/internal/media"
	"github.com/Decentr-net/agora/internal/normalizer"
)

const (
	requestIDHeader = "X-Request-ID"

	maxBodySize = 8 << 20
)

var log = logrus.WithField("package", "rest")

var (
	_ backend.Backend = (*Client)(nil)
	_ media.Releaser  = (*Client)(nil)
)

// Client is a forum server client. Session cookies are kept between requests.
type Client struct {
	base    *url.URL
	c       *http.Client
	timeout time.Duration
}

// New creates new instance of client. Every request is limited by timeout if it's positive.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL) // nolint:goerr113
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		base:    u,
		c:       &http.Client{Jar: jar},
		timeout: timeout,
	}, nil
}

type postsResponse struct {
	Posts []json.RawMessage `json:"posts"`
}

type postResponse struct {
	Post *normalizer.RawPost `json:"post"`
}

type commentsResponse struct {
	Comments []json.RawMessage `json:"comments"`
}

type commentResponse struct {
	Comment *normalizer.RawComment `json:"comment"`
}

type topicsResponse struct {
	Topics []normalizer.RawTopic `json:"topics"`
}

type topicResponse struct {
	Topic *normalizer.RawTopic `json:"topic"`
}

type profileResponse struct {
	User *normalizer.RawProfile `json:"user"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type postRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type contentRequest struct {
	Content string `json:"content"`
}

type pinRequest struct {
	IsPinned bool `json:"isPinned"`
}

type topicRequest struct {
	Name string `json:"name"`
}

type voteRequest struct {
	VotableID   string `json:"votableId"`
	VotableType string `json:"votableType"`
	VoteType    string `json:"voteType"`
}

// ListTopics ...
func (c *Client) ListTopics(ctx context.Context) ([]entities.Topic, error) {
	var resp topicsResponse
	if err := c.do(ctx, http.MethodGet, "/topics/", nil, nil, &resp); err != nil {
		return nil, err
	}

	return normalizer.NormalizeTopics(resp.Topics), nil
}

// CreateTopic ...
func (c *Client) CreateTopic(ctx context.Context, name string) (entities.Topic, error) {
	var resp topicResponse
	if err := c.do(ctx, http.MethodPost, "/topics/create", nil, topicRequest{Name: name}, &resp); err != nil {
		return entities.Topic{}, err
	}
	if resp.Topic == nil {
		return entities.Topic{}, malformed("topic")
	}

	return normalizer.NormalizeTopic(*resp.Topic), nil
}

// ListPosts ...
func (c *Client) ListPosts(ctx context.Context, topicSlug string) ([]entities.Post, error) {
	path := "/posts/all"
	if topicSlug != entities.AllTopics {
		path = "/posts/topic/" + url.PathEscape(topicSlug)
	}

	var resp postsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}

	return normalizer.DecodePosts(resp.Posts), nil
}

// GetPost ...
func (c *Client) GetPost(ctx context.Context, id string) (entities.Post, error) {
	return c.post(ctx, http.MethodGet, "/posts/id/"+url.PathEscape(id), nil)
}

// CreatePost ...
func (c *Client) CreatePost(ctx context.Context, topicSlug string, p *backend.CreatePostParams) (entities.Post, error) {
	return c.post(ctx, http.MethodPost, "/posts/create/"+url.PathEscape(topicSlug), postRequest{
		Title:    p.Title,
		Content:  p.Content,
		ImageURL: p.ImageURL,
	})
}

// UpdatePost ...
func (c *Client) UpdatePost(ctx context.Context, id string, p *backend.UpdatePostParams) (entities.Post, error) {
	return c.post(ctx, http.MethodPut, "/posts/update/"+url.PathEscape(id), postRequest{
		Title:   p.Title,
		Content: p.Content,
	})
}

// DeletePost ...
func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/posts/delete/"+url.PathEscape(id), nil, nil, nil)
}

// SetPostPin ...
func (c *Client) SetPostPin(ctx context.Context, id string, pinned bool) error {
	return c.do(ctx, http.MethodPut, "/posts/pin/"+url.PathEscape(id), nil, pinRequest{IsPinned: pinned}, nil)
}

// ListComments ...
func (c *Client) ListComments(ctx context.Context, postID string) ([]entities.Comment, error) {
	var resp commentsResponse
	if err := c.do(ctx, http.MethodGet, "/comments/post/"+url.PathEscape(postID), nil, nil, &resp); err != nil {
		return nil, err
	}

	return normalizer.DecodeComments(resp.Comments), nil
}

// CreateComment ...
func (c *Client) CreateComment(ctx context.Context, postID, content string) (entities.Comment, error) {
	return c.comment(ctx, http.MethodPost, "/comments/create/"+url.PathEscape(postID), contentRequest{Content: content})
}

// UpdateComment ...
func (c *Client) UpdateComment(ctx context.Context, id, content string) (entities.Comment, error) {
	return c.comment(ctx, http.MethodPut, "/comments/update/"+url.PathEscape(id), contentRequest{Content: content})
}

// DeleteComment ...
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/comments/delete/"+url.PathEscape(id), nil, nil, nil)
}

// SetCommentPin ...
func (c *Client) SetCommentPin(ctx context.Context, id string, pinned bool) error {
	return c.do(ctx, http.MethodPut, "/comments/pin/"+url.PathEscape(id), nil, pinRequest{IsPinned: pinned}, nil)
}

// Vote ...
func (c *Client) Vote(ctx context.Context, subject entities.Subject, direction entities.Direction) (entities.VoteResult, error) {
	var resp normalizer.RawVoteResult
	if err := c.do(ctx, http.MethodPost, "/vote/", nil, voteRequest{
		VotableID:   subject.ID,
		VotableType: string(subject.Kind),
		VoteType:    string(direction),
	}, &resp); err != nil {
		return entities.VoteResult{}, err
	}

	return normalizer.NormalizeVoteResult(resp), nil
}

// GetProfile returns user with their posts and comments.
func (c *Client) GetProfile(ctx context.Context, username string) (entities.Profile, error) {
	q := url.Values{}
	q.Set("posts", "true")
	q.Set("comments", "true")

	var resp profileResponse
	if err := c.do(ctx, http.MethodGet, "/user/profile/"+url.PathEscape(username), q, nil, &resp); err != nil {
		return entities.Profile{}, err
	}
	if resp.User == nil {
		return entities.Profile{}, malformed("user")
	}

	return normalizer.NormalizeProfile(*resp.User), nil
}

// Release removes an uploaded image through the server.
func (c *Client) Release(ctx context.Context, imageURL string) error {
	name, err := media.ObjectName(imageURL)
	if err != nil {
		return err
	}

	return c.do(ctx, http.MethodDelete, "/images/delete/"+url.PathEscape(name), nil, nil, nil)
}

func (c *Client) post(ctx context.Context, method, path string, body interface{}) (entities.Post, error) {
	var resp postResponse
	if err := c.do(ctx, method, path, nil, body, &resp); err != nil {
		return entities.Post{}, err
	}
	if resp.Post == nil || resp.Post.ID == "" {
		return entities.Post{}, malformed("post")
	}

	return normalizer.NormalizePost(*resp.Post), nil
}

func (c *Client) comment(ctx context.Context, method, path string, body interface{}) (entities.Comment, error) {
	var resp commentResponse
	if err := c.do(ctx, method, path, nil, body, &resp); err != nil {
		return entities.Comment{}, err
	}
	if resp.Comment == nil || resp.Comment.ID == "" {
		return entities.Comment{}, malformed("comment")
	}

	return normalizer.NormalizeComment(*resp.Comment), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	id := uuid.New().String()
	req.Header.Set(requestIDHeader, id)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	l := log.WithFields(logrus.Fields{
		"request_id": id,
		"method":     method,
		"path":       path,
	})
	l.Debug("send request")

	resp, err := c.c.Do(req)
	if err != nil {
		l.WithError(err).Warn("request failed")
		return fmt.Errorf("%w: %w", backend.ErrTransport, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		l.WithError(err).Warn("failed to read response")
		return fmt.Errorf("%w: failed to read response: %w", backend.ErrTransport, err)
	}

	l = l.WithField("status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(b)
		l.WithField("message", msg).Info("request rejected")

		return &backend.StatusError{Code: resp.StatusCode, Message: msg}
	}

	l.Debug("request done")

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %s", backend.ErrTransport, err)
	}

	return nil
}

func errorMessage(b []byte) string {
	var e errorResponse
	if err := json.Unmarshal(b, &e); err == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}

	return strings.TrimSpace(string(b))
}

func malformed(field string) error {
	return fmt.Errorf("%w: %q is missing in response", backend.ErrTransport, field)
}
