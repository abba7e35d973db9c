package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"threads/client"
	"threads/models"

	"github.com/samber/lo"
)

var ErrCancelled = errors.New("cancelled")

const (
	deletePrompt       = "Are you sure you want to delete this post?"
	NoRepliesGlyph     = "🗨️"
	TaggedNotice       = "You were tagged in this post"
	maxReplyAvatars    = 3
	replyAvatarPadding = "2px"
)

type State int

const (
	StateLoading State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "loading"
	}
}

// AvatarPosition is an absolute offset inside the reply avatar box. Empty sides are unset.
type AvatarPosition struct {
	Top, Bottom, Left, Right string
}

var replyAvatarPositions = [maxReplyAvatars]AvatarPosition{
	{Top: "0px", Left: "15px"},
	{Bottom: "0px", Right: "-5px"},
	{Bottom: "0px", Left: "4px"},
}

type ReplyAvatar struct {
	Src      string
	Position AvatarPosition
	Padding  string
}

type View struct {
	PostID     string
	PostLink   string
	AuthorLink string

	AuthorName     string
	AuthorUsername string
	AuthorAvatar   string

	Text    string
	Image   string
	Created string

	ShowDelete bool

	Tagged       bool
	TaggedNotice string
	TaggedBy     string

	// Placeholder is set when there are no replies; ReplyAvatars is empty then.
	Placeholder  string
	ReplyAvatars []ReplyAvatar

	Likes   int
	Replies int
}

type Deleter interface {
	DeletePost(ctx context.Context, id string) error
}

type Confirmer interface {
	Confirm(prompt string) bool
}

type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

type CardDeps struct {
	Session  *Session
	Resolver *AuthorResolver
	Store    *Store
	Deleter  Deleter
	Confirm  Confirmer
	Notify   Notifier
	Log      *slog.Logger
}

// Card is one post in a feed together with its resolved author.
type Card struct {
	deps CardDeps

	mu       sync.Mutex
	post     models.PostResponse
	state    State
	author   models.UserSummary
	err      error
	resolved models.AuthorRef
}

func NewCard(post models.PostResponse, deps CardDeps) *Card {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Notify == nil {
		deps.Notify = NotifyFunc(func(Toast) {})
	}
	return &Card{deps: deps, post: post}
}

// sameRef reports whether two references resolve to the same author data.
// Embedded authors compare by value, so a renamed author counts as a change.
func sameRef(a, b models.AuthorRef) bool {
	if a.ID != b.ID || a.Embedded() != b.Embedded() {
		return false
	}
	return !a.Embedded() || *a.User == *b.User
}

// SetPost swaps the post. A different author reference sends the card back to loading.
func (c *Card) SetPost(post models.PostResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !sameRef(c.post.PostedBy, post.PostedBy) {
		c.state = StateLoading
		c.err = nil
	}
	c.post = post
}

// Load resolves the author unless it is already resolved for the current reference.
func (c *Card) Load(ctx context.Context) error {
	c.mu.Lock()
	ref := c.post.PostedBy
	if c.state == StateReady && sameRef(c.resolved, ref) {
		c.mu.Unlock()
		return nil
	}
	c.state = StateLoading
	c.mu.Unlock()

	author, err := c.deps.Resolver.Resolve(ctx, ref)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !sameRef(c.post.PostedBy, ref) {
		// the post changed while resolving
		return nil
	}
	if err != nil {
		c.state = StateFailed
		c.err = err
		c.deps.Log.Warn("author lookup failed", "post", c.post.ID.Hex(), "error", err)
		return err
	}
	c.state = StateReady
	c.author = author
	c.resolved = ref
	c.err = nil
	return nil
}

func (c *Card) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Card) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// View returns false while loading or after a failed lookup; nothing is rendered then.
func (c *Card) View(now time.Time) (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady || c.post.ID.IsZero() {
		return View{}, false
	}

	p, author := c.post, c.author
	postID := p.ID.Hex()
	v := View{
		PostID:         postID,
		PostLink:       "/" + author.Username + "/post/" + postID,
		AuthorLink:     "/" + author.Username,
		AuthorName:     author.Name,
		AuthorUsername: author.Username,
		AuthorAvatar:   author.ProfilePic,
		Text:           p.Text,
		Image:          p.Img,
		Created:        TimeAgo(p.CreatedAt, now),
		Likes:          len(p.Likes),
		Replies:        len(p.Replies),
	}

	viewer, signedIn := c.deps.Session.User()
	v.ShowDelete = signedIn && viewer.ID == author.ID

	if signedIn && lo.ContainsBy(p.TaggedUsers, func(u models.UserSummary) bool { return u.ID == viewer.ID }) {
		v.Tagged = true
		v.TaggedNotice = TaggedNotice
		if author.ID != viewer.ID {
			v.TaggedBy = "Tagged by @" + author.Username
		}
	}

	if len(p.Replies) == 0 {
		v.Placeholder = NoRepliesGlyph
	}
	for i, r := range lo.Slice(p.Replies, 0, maxReplyAvatars) {
		v.ReplyAvatars = append(v.ReplyAvatars, ReplyAvatar{
			Src:      r.UserProfilePic,
			Position: replyAvatarPositions[i],
			Padding:  replyAvatarPadding,
		})
	}
	return v, true
}

// Delete asks for confirmation, deletes the post on the server and then drops
// it from the store. A declined prompt returns ErrCancelled without a request.
func (c *Card) Delete(ctx context.Context) error {
	c.mu.Lock()
	id := c.post.ID
	c.mu.Unlock()

	if !c.deps.Confirm.Confirm(deletePrompt) {
		return ErrCancelled
	}

	if err := c.deps.Deleter.DeletePost(ctx, id.Hex()); err != nil {
		c.deps.Log.Warn("delete post failed", "post", id.Hex(), "error", err)
		c.deps.Notify.Notify(errorToast(client.Message(err)))
		return err
	}

	c.deps.Notify.Notify(Toast{Title: "Success", Description: "Post deleted", Status: StatusSuccess})
	c.deps.Store.Remove(id)
	return nil
}
