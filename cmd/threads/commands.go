package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"threads/client"
	"threads/feed"
	"threads/logger"
	"threads/models"

	"github.com/urfave/cli/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var loginCmd = &cli.Command{
	Name:      "login",
	Usage:     "Log in and print the session token",
	ArgsUsage: "<username> <password>",
	Action: func(ctx context.Context, c *cli.Command) error {
		api, err := newClient(c)
		if err != nil {
			return err
		}
		defer api.Close()

		form := feed.NewLoginForm(formDeps(api, c.Root().Writer))
		form.Username, form.Password = c.Args().Get(0), c.Args().Get(1)
		res, err := form.Submit(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Root().Writer, "logged in as @%s\nexport THREADS_TOKEN=%s THREADS_USER=%s\n", res.Username, res.Token, res.Username)
		return nil
	},
}

var signupCmd = &cli.Command{
	Name:      "signup",
	Usage:     "Create an account and print the session token",
	ArgsUsage: "<name> <username> <email> <password>",
	Action: func(ctx context.Context, c *cli.Command) error {
		api, err := newClient(c)
		if err != nil {
			return err
		}
		defer api.Close()

		form := feed.NewSignupForm(formDeps(api, c.Root().Writer))
		args := c.Args()
		form.Name, form.Username, form.Email, form.Password = args.Get(0), args.Get(1), args.Get(2), args.Get(3)
		res, err := form.Submit(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Root().Writer, "welcome @%s\nexport THREADS_TOKEN=%s THREADS_USER=%s\n", res.Username, res.Token, res.Username)
		return nil
	},
}

var feedCmd = &cli.Command{
	Name:  "feed",
	Usage: "Show posts from followed users and posts you were tagged in",
	Action: func(ctx context.Context, c *cli.Command) error {
		return showPosts(ctx, c, func(api *client.Client) feed.PostSource { return api })
	},
}

var taggedCmd = &cli.Command{
	Name:  "tagged",
	Usage: "Show posts you were tagged in",
	Action: func(ctx context.Context, c *cli.Command) error {
		return showPosts(ctx, c, func(api *client.Client) feed.PostSource { return taggedSource{api} })
	},
}

var postCmd = &cli.Command{
	Name:      "post",
	Usage:     "Publish a post",
	ArgsUsage: "<text>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "img", Usage: "Image URL or data URI"},
		&cli.StringSliceFlag{Name: "tag", Usage: "Username to tag, may be repeated"},
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		api, err := newClient(c)
		if err != nil {
			return err
		}
		defer api.Close()

		p, err := api.CreatePost(ctx, models.CreatePostRequest{
			Text:        strings.Join(c.Args().Slice(), " "),
			Img:         c.String("img"),
			TaggedUsers: c.StringSlice("tag"),
		})
		if err != nil {
			return fmt.Errorf("create post: %s", client.Message(err))
		}
		fmt.Fprintln(c.Root().Writer, p.ID.Hex())
		return nil
	},
}

var deleteCmd = &cli.Command{
	Name:      "delete",
	Usage:     "Delete one of your posts",
	ArgsUsage: "<post id>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		id, err := primitive.ObjectIDFromHex(c.Args().First())
		if err != nil {
			return fmt.Errorf("invalid post id %q", c.Args().First())
		}
		api, err := newClient(c)
		if err != nil {
			return err
		}
		defer api.Close()

		p, err := api.GetPost(ctx, id.Hex())
		if err != nil {
			return fmt.Errorf("load post: %s", client.Message(err))
		}

		out := c.Root().Writer
		confirm := promptConfirm(c.Root().Reader, out)
		if c.Bool("yes") {
			confirm = func(string) bool { return true }
		}
		deps := cardDeps(api, c, feed.NewStore(*p))
		deps.Confirm = feed.ConfirmFunc(confirm)
		err = feed.NewCard(*p, deps).Delete(ctx)
		if errors.Is(err, feed.ErrCancelled) {
			fmt.Fprintln(out, "cancelled")
			return nil
		}
		return err
	},
}

type taggedSource struct {
	api *client.Client
}

func (t taggedSource) Feed(ctx context.Context) ([]models.PostResponse, error) {
	return t.api.Tagged(ctx)
}

func showPosts(ctx context.Context, c *cli.Command, source func(*client.Client) feed.PostSource) error {
	api, err := newClient(c)
	if err != nil {
		return err
	}
	defer api.Close()

	store := feed.NewStore()
	if err := store.Refresh(ctx, source(api)); err != nil {
		return fmt.Errorf("load feed: %s", client.Message(err))
	}
	deps := cardDeps(api, c, store)
	if err := signIn(ctx, api, deps.Session, c.String(userFlag.Name)); err != nil {
		return err
	}

	out := c.Root().Writer
	now := time.Now()
	shown := 0
	for _, p := range store.Posts() {
		card := feed.NewCard(p, deps)
		if err := card.Load(ctx); err != nil {
			continue
		}
		if v, ok := card.View(now); ok {
			render(out, v)
			shown++
		}
	}
	if shown == 0 {
		fmt.Fprintln(out, "No posts yet.")
	}
	return nil
}

// signIn fills the session from a username so cards can mark own and tagged posts.
func signIn(ctx context.Context, api *client.Client, session *feed.Session, username string) error {
	if username == "" {
		return nil
	}
	u, err := api.GetProfile(ctx, username)
	if err != nil {
		return fmt.Errorf("load profile %s: %s", username, client.Message(err))
	}
	session.Set(u.Summary())
	return nil
}

func cardDeps(api *client.Client, c *cli.Command, store *feed.Store) feed.CardDeps {
	lvl, _ := logger.ParseLevel(c.String(logLevelFlag.Name))
	return feed.CardDeps{
		Session:  &feed.Session{},
		Resolver: feed.NewAuthorResolver(api),
		Store:    store,
		Deleter:  api,
		Notify:   printToast(c.Root().ErrWriter),
		Log:      logger.New(os.Stderr, lvl, false),
	}
}

func formDeps(api *client.Client, w io.Writer) feed.FormDeps {
	return feed.FormDeps{
		Auth:    api,
		Session: &feed.Session{},
		Screen:  feed.NewAuthState(),
		Notify:  printToast(w),
	}
}

func printToast(w io.Writer) feed.NotifyFunc {
	if w == nil {
		w = os.Stderr
	}
	return func(t feed.Toast) {
		fmt.Fprintf(w, "[%s] %s: %s\n", t.Status, t.Title, t.Description)
	}
}

func promptConfirm(r io.Reader, w io.Writer) func(string) bool {
	if r == nil {
		r = os.Stdin
	}
	return func(prompt string) bool {
		fmt.Fprintf(w, "%s [y/N] ", prompt)
		line, _ := bufio.NewReader(r).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}

func render(w io.Writer, v feed.View) {
	fmt.Fprintf(w, "%s (@%s) · %s\n", v.AuthorName, v.AuthorUsername, v.Created)
	if v.Tagged {
		fmt.Fprintf(w, "  %s", v.TaggedNotice)
		if v.TaggedBy != "" {
			fmt.Fprintf(w, " · %s", v.TaggedBy)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "  %s\n", v.Text)
	if v.Image != "" {
		fmt.Fprintf(w, "  [image] %s\n", v.Image)
	}
	replies := v.Placeholder
	if replies == "" {
		replies = fmt.Sprintf("%d replies", v.Replies)
	}
	fmt.Fprintf(w, "  %d likes · %s · %s", v.Likes, replies, v.PostLink)
	if v.ShowDelete {
		fmt.Fprintf(w, " · delete: threads delete %s", v.PostID)
	}
	fmt.Fprint(w, "\n\n")
}
