package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"threads/client"
	"threads/logger"
	"threads/models"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeProfiles struct {
	mu    sync.Mutex
	calls []string
	users map[string]*models.User
	err   error
}

func (f *fakeProfiles) GetProfile(_ context.Context, query string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, query)
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[query]
	if !ok {
		return nil, &client.APIError{Status: 404, Message: "User not found"}
	}
	return u, nil
}

type fakeDeleter struct {
	calls []string
	err   error
}

func (f *fakeDeleter) DeletePost(_ context.Context, id string) error {
	f.calls = append(f.calls, id)
	return f.err
}

type toasts []Toast

func (t *toasts) Notify(toast Toast) { *t = append(*t, toast) }

func user(username string) models.UserSummary {
	return models.UserSummary{ID: primitive.NewObjectID(), Username: username, Name: username, ProfilePic: "https://img/" + username}
}

func post(author models.UserSummary, embedded bool) models.PostResponse {
	ref := models.AuthorRef{ID: author.ID}
	if embedded {
		a := author
		ref.User = &a
	}
	return models.PostResponse{
		ID:        primitive.NewObjectID(),
		PostedBy:  ref,
		Text:      "hello",
		CreatedAt: time.Now().Add(-3 * time.Hour),
	}
}

type harness struct {
	profiles *fakeProfiles
	deleter  *fakeDeleter
	toasts   *toasts
	session  *Session
	store    *Store
	confirm  bool
}

func newHarness() *harness {
	return &harness{
		profiles: &fakeProfiles{users: map[string]*models.User{}},
		deleter:  &fakeDeleter{},
		toasts:   &toasts{},
		session:  &Session{},
		store:    NewStore(),
		confirm:  true,
	}
}

func (h *harness) card(p models.PostResponse) *Card {
	return NewCard(p, CardDeps{
		Session:  h.session,
		Resolver: NewAuthorResolver(h.profiles),
		Store:    h.store,
		Deleter:  h.deleter,
		Confirm:  ConfirmFunc(func(string) bool { return h.confirm }),
		Notify:   h.toasts,
		Log:      logger.Discard(),
	})
}

func (h *harness) register(u models.UserSummary) {
	h.profiles.users[u.ID.Hex()] = &models.User{ID: u.ID, Username: u.Username, Name: u.Name, ProfilePic: u.ProfilePic}
}

func ids(posts []models.PostResponse) []primitive.ObjectID {
	return lo.Map(posts, func(p models.PostResponse, _ int) primitive.ObjectID { return p.ID })
}

func loadedView(t *testing.T, c *Card) View {
	t.Helper()
	require.NoError(t, c.Load(context.Background()))
	v, ok := c.View(time.Now())
	require.True(t, ok, "card not rendered")
	return v
}

func TestEmbeddedAuthorSkipsLookup(t *testing.T) {
	t.Parallel()
	h := newHarness()
	loadedView(t, h.card(post(user("ada"), true)))
	require.Empty(t, h.profiles.calls)
}

func TestBareAuthorLooksUpOnce(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ada := user("ada")
	h.register(ada)
	c := h.card(post(ada, false))

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Load(context.Background()))
	}
	require.Equal(t, []string{ada.ID.Hex()}, h.profiles.calls)

	v, ok := c.View(time.Now())
	require.True(t, ok)
	require.Equal(t, "ada", v.AuthorUsername)
}

func TestAuthorChangeTriggersNewLookup(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ada, bob := user("ada"), user("bob")
	h.register(ada)
	h.register(bob)
	p := post(ada, false)
	c := h.card(p)
	require.NoError(t, c.Load(context.Background()))

	p.PostedBy = models.AuthorRef{ID: bob.ID}
	c.SetPost(p)
	require.Equal(t, StateLoading, c.State())

	require.NoError(t, c.Load(context.Background()))
	require.Equal(t, []string{ada.ID.Hex(), bob.ID.Hex()}, h.profiles.calls)
}

func TestEmbeddedAuthorUpdateRefreshesView(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ada := user("ada")
	p := post(ada, true)
	c := h.card(p)
	require.Equal(t, "ada", loadedView(t, c).AuthorUsername)

	renamed := ada
	renamed.Username = "ada_new"
	renamed.ProfilePic = "https://img/ada_new"
	p.PostedBy = models.AuthorRef{ID: ada.ID, User: &renamed}
	c.SetPost(p)
	require.Equal(t, StateLoading, c.State())

	v := loadedView(t, c)
	require.Equal(t, "ada_new", v.AuthorUsername)
	require.Equal(t, "https://img/ada_new", v.AuthorAvatar)
	require.Equal(t, "/ada_new", v.AuthorLink)
	require.Equal(t, "/ada_new/post/"+p.ID.Hex(), v.PostLink)
	require.Empty(t, h.profiles.calls)
}

func TestSameEmbeddedAuthorKeepsCard(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ada := user("ada")
	p := post(ada, true)
	c := h.card(p)
	loadedView(t, c)

	copied := ada
	p.PostedBy = models.AuthorRef{ID: ada.ID, User: &copied}
	p.Text = "edited"
	c.SetPost(p)
	require.Equal(t, StateReady, c.State())
}

func TestFailedLookupRendersNothing(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
	}{
		{"transport", errors.New("connection refused")},
		{"error field", &client.APIError{Status: 200, Message: "User not found"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness()
			h.profiles.err = tt.err
			c := h.card(post(user("ada"), false))

			require.ErrorIs(t, c.Load(context.Background()), tt.err)
			require.Equal(t, StateFailed, c.State())
			require.Error(t, c.Err())
			_, ok := c.View(time.Now())
			require.False(t, ok)
		})
	}
}

func TestLoadingCardRendersNothing(t *testing.T) {
	t.Parallel()
	h := newHarness()
	_, ok := h.card(post(user("ada"), true)).View(time.Now())
	require.False(t, ok)
}

func TestDeleteControlOnlyForAuthor(t *testing.T) {
	t.Parallel()
	ada, bob := user("ada"), user("bob")
	tests := []struct {
		name    string
		viewer  *models.UserSummary
		visible bool
	}{
		{"author", &ada, true},
		{"someone else", &bob, false},
		{"signed out", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness()
			if tt.viewer != nil {
				h.session.Set(*tt.viewer)
			}
			v := loadedView(t, h.card(post(ada, true)))
			require.Equal(t, tt.visible, v.ShowDelete)
		})
	}
}

func TestDeleteRemovesOnlyThatPost(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ada := user("ada")
	h.session.Set(ada)
	a, b, c := post(ada, true), post(ada, true), post(ada, true)
	h.store.Set([]models.PostResponse{a, b, c})

	card := h.card(b)
	require.NoError(t, card.Load(context.Background()))
	require.NoError(t, card.Delete(context.Background()))

	require.Equal(t, []primitive.ObjectID{a.ID, c.ID}, ids(h.store.Posts()))
	require.Equal(t, []string{b.ID.Hex()}, h.deleter.calls)
	require.Equal(t, toasts{{Title: "Success", Description: "Post deleted", Status: StatusSuccess}}, *h.toasts)
}

func TestDeclinedDeleteSendsNothing(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.confirm = false
	p := post(user("ada"), true)
	h.store.Set([]models.PostResponse{p})

	require.ErrorIs(t, h.card(p).Delete(context.Background()), ErrCancelled)
	require.Empty(t, h.deleter.calls)
	require.Equal(t, 1, h.store.Len())
	require.Empty(t, *h.toasts)
}

func TestFailedDeleteKeepsStore(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.deleter.err = &client.APIError{Status: 403, Message: "Unauthorized to delete post"}
	p := post(user("ada"), true)
	h.store.Set([]models.PostResponse{p})

	require.Error(t, h.card(p).Delete(context.Background()))
	require.Equal(t, 1, h.store.Len())
	require.Equal(t, toasts{{Title: "Error", Description: "Unauthorized to delete post", Status: StatusError}}, *h.toasts)
}

func TestReplyAvatars(t *testing.T) {
	t.Parallel()
	require.Equal(t, [maxReplyAvatars]AvatarPosition{
		{Top: "0px", Left: "15px"},
		{Bottom: "0px", Right: "-5px"},
		{Bottom: "0px", Left: "4px"},
	}, replyAvatarPositions)

	for n := 0; n <= 4; n++ {
		h := newHarness()
		p := post(user("ada"), true)
		for i := 0; i < n; i++ {
			p.Replies = append(p.Replies, models.Reply{UserProfilePic: "pic" + string(rune('a'+i))})
		}
		v := loadedView(t, h.card(p))

		require.Len(t, v.ReplyAvatars, min(n, 3), "%d replies", n)
		require.Equal(t, n == 0, v.Placeholder == NoRepliesGlyph, "%d replies", n)
		for i, a := range v.ReplyAvatars {
			require.Equal(t, ReplyAvatar{Src: p.Replies[i].UserProfilePic, Position: replyAvatarPositions[i], Padding: "2px"}, a)
		}
	}
}

func TestTagIndicator(t *testing.T) {
	t.Parallel()
	ada, bob := user("ada"), user("bob")

	h := newHarness()
	h.session.Set(bob)
	p := post(ada, true)
	p.TaggedUsers = []models.UserSummary{bob}
	c := h.card(p)
	v := loadedView(t, c)
	require.True(t, v.Tagged)
	require.Equal(t, TaggedNotice, v.TaggedNotice)
	require.Equal(t, "Tagged by @ada", v.TaggedBy)

	h.session.Set(ada)
	p.TaggedUsers = []models.UserSummary{ada}
	c.SetPost(p)
	v, _ = c.View(time.Now())
	require.True(t, v.Tagged)
	require.Empty(t, v.TaggedBy)
}

func TestViewLinks(t *testing.T) {
	t.Parallel()
	h := newHarness()
	p := post(user("ada"), true)
	v := loadedView(t, h.card(p))

	require.Equal(t, "/ada/post/"+p.ID.Hex(), v.PostLink)
	require.Equal(t, "/ada", v.AuthorLink)
	require.Equal(t, "about 3 hours ago", v.Created)
}
