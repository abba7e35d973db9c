package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"threads/client"
	"threads/models"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTimeAgo(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		then time.Time
		want string
	}{
		{now.Add(-10 * time.Second), "less than a minute ago"},
		{now.Add(-time.Minute), "1 minute ago"},
		{now.Add(-5 * time.Minute), "5 minutes ago"},
		{now.Add(-50 * time.Minute), "about 1 hour ago"},
		{now.Add(-5 * time.Hour), "about 5 hours ago"},
		{now.Add(-30 * time.Hour), "1 day ago"},
		{now.AddDate(0, 0, -4), "4 days ago"},
		{now.AddDate(0, 0, -40), "about 1 month ago"},
		{now.AddDate(0, 0, -50), "about 2 months ago"},
		{now.AddDate(0, 0, -150), "5 months ago"},
		{now.AddDate(-1, -1, 0), "about 1 year ago"},
		{now.AddDate(-1, -6, 0), "over 1 year ago"},
		{now.AddDate(-2, -10, 0), "almost 3 years ago"},
		{now.AddDate(-3, 0, 0), "about 3 years ago"},
		{now.Add(5 * time.Minute), "5 minutes ago"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, TimeAgo(tt.then, now), "then=%s", tt.then)
	}
}

func TestStore(t *testing.T) {
	t.Parallel()
	a := models.PostResponse{ID: primitive.NewObjectID()}
	b := models.PostResponse{ID: primitive.NewObjectID()}
	s := NewStore(a)

	s.Prepend(b)
	require.Equal(t, []primitive.ObjectID{b.ID, a.ID}, ids(s.Posts()))
	_, ok := s.Get(a.ID)
	require.True(t, ok)
	require.False(t, s.Remove(primitive.NewObjectID()))
	require.True(t, s.Remove(b.ID))
	require.Equal(t, 1, s.Len())

	posts := s.Posts()
	posts[0].Text = "mutated"
	got, _ := s.Get(a.ID)
	require.NotEqual(t, "mutated", got.Text, "Posts must return a copy")
}

type stubSource struct {
	posts []models.PostResponse
	err   error
}

func (s stubSource) Feed(context.Context) ([]models.PostResponse, error) { return s.posts, s.err }

func TestStoreRefresh(t *testing.T) {
	t.Parallel()
	s := NewStore(models.PostResponse{ID: primitive.NewObjectID()})

	require.Error(t, s.Refresh(context.Background(), stubSource{err: errors.New("offline")}))
	require.Equal(t, 1, s.Len(), "failed refresh must keep the list")

	fresh := []models.PostResponse{{ID: primitive.NewObjectID()}, {ID: primitive.NewObjectID()}}
	require.NoError(t, s.Refresh(context.Background(), stubSource{posts: fresh}))
	require.Equal(t, 2, s.Len())
}

func TestResolveWithoutAuthor(t *testing.T) {
	t.Parallel()
	_, err := NewAuthorResolver(&fakeProfiles{}).Resolve(context.Background(), models.AuthorRef{})
	require.ErrorIs(t, err, ErrNoAuthor)
}

type fakeAuth struct {
	calls  int
	signup models.SignupRequest
	err    error
}

func (f *fakeAuth) response(username string) *models.AuthResponse {
	return &models.AuthResponse{ID: primitive.NewObjectID(), Username: username, Name: "Ada"}
}

func (f *fakeAuth) Login(_ context.Context, username, _ string) (*models.AuthResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response(username), nil
}

func (f *fakeAuth) Signup(_ context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	f.calls++
	f.signup = req
	if f.err != nil {
		return nil, f.err
	}
	return f.response(req.Username), nil
}

func TestLoginForm(t *testing.T) {
	t.Parallel()
	auth := &fakeAuth{}
	session := &Session{}
	screen := NewAuthState()
	var got toasts
	form := NewLoginForm(FormDeps{Auth: auth, Session: session, Screen: screen, Notify: &got})

	require.Equal(t, "password", form.PasswordInputType())
	form.TogglePassword()
	require.Equal(t, "text", form.PasswordInputType())
	form.TogglePassword()
	require.Equal(t, "password", form.PasswordInputType())

	form.Username = "ada"
	_, err := form.Submit(context.Background())
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "password", fe.Field)
	require.Zero(t, auth.calls, "invalid form reached the server")

	form.Password = "secret"
	_, err = form.Submit(context.Background())
	require.NoError(t, err)
	u, ok := session.User()
	require.True(t, ok)
	require.Equal(t, "ada", u.Username)

	form.SwitchToSignup()
	require.Equal(t, ScreenSignup, screen.Screen())
}

func TestLoginFormServerError(t *testing.T) {
	t.Parallel()
	auth := &fakeAuth{err: &client.APIError{Status: 401, Message: "Invalid username or password"}}
	session := &Session{}
	var got toasts
	form := NewLoginForm(FormDeps{Auth: auth, Session: session, Screen: NewAuthState(), Notify: &got})
	form.Username, form.Password = "ada", "wrong"

	_, err := form.Submit(context.Background())
	require.Error(t, err)
	_, ok := session.User()
	require.False(t, ok)
	require.Equal(t, toasts{{Title: "Error", Description: "Invalid username or password", Status: StatusError}}, got)
}

func TestSignupForm(t *testing.T) {
	t.Parallel()
	auth := &fakeAuth{}
	session := &Session{}
	screen := NewAuthState()
	screen.Set(ScreenSignup)
	form := NewSignupForm(FormDeps{Auth: auth, Session: session, Screen: screen})

	form.Name, form.Username, form.Password = " Ada ", " ada ", "secret"
	var fe *FieldError
	require.ErrorAs(t, form.Validate(), &fe)
	require.Equal(t, "email", fe.Field)

	form.Email = "ada@example.com"
	_, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Ada", auth.signup.Name)
	require.Equal(t, "ada", auth.signup.Username)
	_, ok := session.User()
	require.True(t, ok)

	form.SwitchToLogin()
	require.Equal(t, ScreenLogin, screen.Screen())
}
