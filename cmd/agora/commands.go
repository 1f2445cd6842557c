package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/Decentr-net/agora/internal/entities"
	"github.com/Decentr-net/agora/internal/projector"
	"github.com/Decentr-net/agora/internal/service"
	"github.com/Decentr-net/agora/internal/view"
)

var errConfirmationRequired = errors.New("deletion must be confirmed with --yes")

type command struct {
	name, short, long string
	data              interface{}
}

func commands() []command {
	return []command{
		{"topics", "List topics", "List all topics", &topicsCommand{}},
		{"create-topic", "Create a topic", "Create a topic, admin only", &createTopicCommand{}},
		{"feed", "Show posts", "Show posts of a topic or of all topics", &feedCommand{}},
		{"post", "Show a post", "Show a post with its comments", &postCommand{}},
		{"profile", "Show a profile", "Show a user with their posts and comments", &profileCommand{}},
		{"vote", "Vote on a post or a comment", "Like or dislike a post or a comment", &voteCommand{}},
		{"pin", "Pin a post or a comment", "Pin or unpin a post or a comment", &pinCommand{}},
		{"edit", "Edit a post or a comment", "Replace title and content of a post or content of a comment", &editCommand{}},
		{"delete", "Delete a post or a comment", "Delete a post or a comment; an image of a post is removed too", &deleteCommand{}},
		{"create-post", "Create a post", "Create a post in a topic", &createPostCommand{}},
		{"comment", "Comment a post", "Create a comment under a post", &commentCommand{}},
	}
}

type listOptions struct {
	Query string `long:"query" short:"q" description:"show only items containing the text"`
	Sort  string `long:"sort" short:"s" default:"recent" description:"sort order" choice:"recent" choice:"oldest" choice:"likes" choice:"dislikes"`
}

func (o listOptions) apply(l interface {
	SetQuery(string)
	SetSort(projector.SortKey)
}) error {
	k, err := projector.ParseSortKey(o.Sort)
	if err != nil {
		return err
	}

	l.SetQuery(o.Query)
	l.SetSort(k)

	return nil
}

type subjectArgs struct {
	Kind string `positional-arg-name:"kind" description:"post or comment"`
	ID   string `positional-arg-name:"id"`
}

func (a subjectArgs) subject() (entities.Subject, error) {
	s := entities.Subject{Kind: entities.Kind(a.Kind), ID: a.ID}
	if !s.Kind.Valid() {
		return s, fmt.Errorf("%w: kind must be post or comment", service.ErrInvalidRequest)
	}

	return s, nil
}

type topicsCommand struct{}

func (c *topicsCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		topics, err := a.b.ListTopics(ctx)
		if err != nil {
			return fmt.Errorf("failed to list topics: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, v := range topics {
			fmt.Fprintf(w, "%s\t%s\n", v.Slug, v.DisplayName()) // nolint:errcheck
		}
		dump(topics)

		return w.Flush()
	})
}

type createTopicCommand struct {
	Args struct {
		Name string `positional-arg-name:"name"`
	} `positional-args:"yes" required:"yes"`
}

func (c *createTopicCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		t, err := a.s.CreateTopic(ctx, c.Args.Name)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "%s\t%s\n", t.Slug, t.DisplayName()) // nolint:errcheck

		return nil
	})
}

type feedCommand struct {
	listOptions

	Topic string `long:"topic" short:"t" default:"all" description:"topic slug"`
}

func (c *feedCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		f := view.NewTopicFeed(a.b, a.posts)
		defer f.Close()

		if err := c.apply(f); err != nil {
			return err
		}

		if err := f.Open(ctx, c.Topic); err != nil {
			return err
		}

		printPosts(os.Stdout, f.Items())

		return nil
	})
}

type postCommand struct {
	listOptions

	Args struct {
		ID string `positional-arg-name:"id"`
	} `positional-args:"yes" required:"yes"`
}

func (c *postCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		d := view.NewPostDetail(a.b, a.posts, a.comments)
		defer d.Close()

		if err := c.apply(d.Comments()); err != nil {
			return err
		}

		if err := d.Load(ctx, c.Args.ID); err != nil {
			return err
		}

		p, _ := d.Post()
		printPost(os.Stdout, p)
		fmt.Fprintln(os.Stdout) // nolint:errcheck
		printComments(os.Stdout, d.Comments().Items())

		return nil
	})
}

type profileCommand struct {
	listOptions

	Args struct {
		Username string `positional-arg-name:"username"`
	} `positional-args:"yes" required:"yes"`
}

func (c *profileCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		f := view.NewProfileFeed(a.b, a.posts, a.comments)
		defer f.Close()

		if err := c.apply(f.Posts()); err != nil {
			return err
		}
		if err := c.apply(f.Comments()); err != nil {
			return err
		}

		if err := f.Load(ctx, c.Args.Username); err != nil {
			return err
		}

		u := f.User()
		role := "user"
		if u.IsAdmin {
			role = "admin"
		}
		fmt.Fprintf(os.Stdout, "%s (%s)\n\nPosts:\n", u.Username, role) // nolint:errcheck
		printPosts(os.Stdout, f.Posts().Items())
		fmt.Fprintln(os.Stdout, "\nComments:") // nolint:errcheck
		printComments(os.Stdout, f.Comments().Items())

		return nil
	})
}

type voteCommand struct {
	Args struct {
		Kind      string `positional-arg-name:"kind" description:"post or comment"`
		ID        string `positional-arg-name:"id"`
		Direction string `positional-arg-name:"direction" description:"like or dislike"`
	} `positional-args:"yes" required:"yes"`
}

func (c *voteCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		s, err := subjectArgs{Kind: c.Args.Kind, ID: c.Args.ID}.subject()
		if err != nil {
			return err
		}

		res, err := a.s.Vote(ctx, s, entities.Direction(c.Args.Direction))
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "likes=%d dislikes=%d vote=%s\n", res.Likes, res.Dislikes, res.OwnVote) // nolint:errcheck

		return nil
	})
}

type pinCommand struct {
	Unpin bool `long:"unpin" description:"unpin instead of pin"`

	Args subjectArgs `positional-args:"yes" required:"yes"`
}

func (c *pinCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		s, err := c.Args.subject()
		if err != nil {
			return err
		}

		return a.s.SetPin(ctx, s, !c.Unpin)
	})
}

type editCommand struct {
	Title   string `long:"title" description:"new title of a post"`
	Content string `long:"content" required:"yes" description:"new content"`

	Args subjectArgs `positional-args:"yes" required:"yes"`
}

func (c *editCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		s, err := c.Args.subject()
		if err != nil {
			return err
		}

		return a.s.Edit(ctx, s, service.EditParams{Title: c.Title, Content: c.Content})
	})
}

type deleteCommand struct {
	Yes bool `long:"yes" short:"y" description:"confirm deletion"`

	Args subjectArgs `positional-args:"yes" required:"yes"`
}

func (c *deleteCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		s, err := c.Args.subject()
		if err != nil {
			return err
		}

		if !c.Yes {
			return errConfirmationRequired
		}

		if s.Kind == entities.PostKind {
			// the post is loaded to find out its image
			d := view.NewPostDetail(a.b, a.posts, a.comments)
			defer d.Close()

			if err := d.Load(ctx, s.ID); err != nil {
				return err
			}
		}

		return a.s.Delete(ctx, s)
	})
}

type createPostCommand struct {
	Topic    string `long:"topic" short:"t" required:"yes" description:"topic slug"`
	Title    string `long:"title" required:"yes" description:"post title"`
	Content  string `long:"content" required:"yes" description:"post content"`
	ImageURL string `long:"image" description:"url of an uploaded image"`
}

func (c *createPostCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		p, err := a.s.CreatePost(ctx, c.Topic, service.CreatePostParams{
			Title:    c.Title,
			Content:  c.Content,
			ImageURL: c.ImageURL,
		})
		if err != nil {
			return err
		}

		printPost(os.Stdout, p)

		return nil
	})
}

type commentCommand struct {
	Args struct {
		PostID  string `positional-arg-name:"post-id"`
		Content string `positional-arg-name:"content"`
	} `positional-args:"yes" required:"yes"`
}

func (c *commentCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		comment, err := a.s.CreateComment(ctx, c.Args.PostID, c.Args.Content)
		if err != nil {
			return err
		}

		printComments(os.Stdout, []entities.Comment{comment})

		return nil
	})
}

func printPosts(out io.Writer, posts []entities.Post) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, p := range posts {
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t+%d/-%d\t%s\n", // nolint:errcheck
			pinMark(p.IsPinned), p.ID, p.Topic.DisplayName(), p.Author.Username,
			formatTime(p.CreatedAt), p.Likes, p.Dislikes, p.Title)
	}
	_ = w.Flush() // nolint:errcheck

	dump(posts)
}

func printPost(out io.Writer, p entities.Post) {
	fmt.Fprintf(out, "%s%s\n%s by %s, %s, +%d/-%d, your vote: %s\n", // nolint:errcheck
		pinMark(p.IsPinned), p.Title, p.Topic.DisplayName(), p.Author.Username, formatTime(p.CreatedAt),
		p.Likes, p.Dislikes, p.OwnVote)
	if p.ImageURL != "" {
		fmt.Fprintf(out, "image: %s\n", p.ImageURL) // nolint:errcheck
	}
	fmt.Fprintf(out, "\n%s\n", p.Content) // nolint:errcheck

	dump(p)
}

func printComments(out io.Writer, comments []entities.Comment) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, c := range comments {
		fmt.Fprintf(w, "%s%s\t%s\t%s\t+%d/-%d\t%s\n", // nolint:errcheck
			pinMark(c.IsPinned), c.ID, c.Author.Username, formatTime(c.CreatedAt),
			c.Likes, c.Dislikes, strings.ReplaceAll(c.Content, "\n", " "))
	}
	_ = w.Flush() // nolint:errcheck

	dump(comments)
}

func pinMark(pinned bool) string {
	if pinned {
		return "* "
	}

	return ""
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Local().Format("2006-01-02 15:04")
}

func dump(v interface{}) {
	if opts.Debug {
		spew.Fdump(os.Stderr, v)
	}
}
