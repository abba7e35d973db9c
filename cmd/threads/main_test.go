package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"threads/client"
	"threads/feed"
	"threads/handlers"
	"threads/logger"
	"threads/middleware"
	"threads/models"
	"threads/routes"
	"threads/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens := middleware.NewTokens("test-secret", time.Hour)
	h := handlers.New(handlers.Deps{
		Store:      store.NewMemory(),
		Tokens:     tokens,
		BcryptCost: bcrypt.MinCost,
		Log:        logger.Discard(),
	})
	srv := httptest.NewServer(routes.SetupRouter(routes.Options{Handler: h, Tokens: tokens, Log: logger.Discard()}))
	t.Cleanup(srv.Close)
	return srv
}

func account(t *testing.T, url, username string) (*client.Client, *models.AuthResponse) {
	t.Helper()
	api := client.New(client.Config{BaseURL: url, Log: logger.Discard()})
	t.Cleanup(func() { api.Close() })
	res, err := api.Signup(context.Background(), models.SignupRequest{
		Name: strings.ToUpper(username[:1]) + username[1:], Username: username,
		Email: username + "@example.com", Password: "secret1",
	})
	require.NoError(t, err, "signup %s", username)
	return api, res
}

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	cmd.ErrWriter = &errOut
	cmd.Reader = strings.NewReader(stdin)
	err := cmd.Run(context.Background(), append([]string{"threads"}, args...))
	return out.String(), errOut.String(), err
}

func TestFeedCommand(t *testing.T) {
	srv := newAPI(t)
	ada, adaAuth := account(t, srv.URL, "ada")
	bob, _ := account(t, srv.URL, "bob")
	ctx := context.Background()

	_, err := bob.CreatePost(ctx, models.CreatePostRequest{Text: "hi @ada", TaggedUsers: []string{"ada"}})
	require.NoError(t, err)
	own, err := ada.CreatePost(ctx, models.CreatePostRequest{Text: "note to self", TaggedUsers: []string{"ada"}})
	require.NoError(t, err)

	out, _, err := runCLI(t, "", "--server", srv.URL, "--token", adaAuth.Token, "--user", "ada", "feed")
	require.NoError(t, err)
	for _, want := range []string{
		"Bob (@bob)",
		"Tagged by @bob",
		"hi @ada",
		"note to self",
		"delete: threads delete " + own.ID.Hex(),
	} {
		require.Contains(t, out, want)
	}
	require.Equal(t, 1, strings.Count(out, "delete: threads delete"), "delete offered for someone else's post:\n%s", out)
}

func TestFeedCommandEmpty(t *testing.T) {
	srv := newAPI(t)
	_, auth := account(t, srv.URL, "ada")

	out, _, err := runCLI(t, "", "--server", srv.URL, "--token", auth.Token, "feed")
	require.NoError(t, err)
	require.Contains(t, out, "No posts yet.")
}

func TestDeleteCommand(t *testing.T) {
	srv := newAPI(t)
	ada, auth := account(t, srv.URL, "ada")
	ctx := context.Background()
	p, err := ada.CreatePost(ctx, models.CreatePostRequest{Text: "short lived"})
	require.NoError(t, err)
	base := []string{"--server", srv.URL, "--token", auth.Token, "delete", p.ID.Hex()}

	out, _, err := runCLI(t, "n\n", base...)
	require.NoError(t, err)
	require.Contains(t, out, "cancelled")
	_, err = ada.GetPost(ctx, p.ID.Hex())
	require.NoError(t, err, "post gone after declined delete")

	_, errOut, err := runCLI(t, "y\n", base...)
	require.NoError(t, err)
	require.Contains(t, errOut, "Post deleted")
	_, err = ada.GetPost(ctx, p.ID.Hex())
	require.ErrorIs(t, err, client.ErrNotFound)
}

func TestDeleteCommandForeignPost(t *testing.T) {
	srv := newAPI(t)
	ada, _ := account(t, srv.URL, "ada")
	_, bobAuth := account(t, srv.URL, "bob")
	p, err := ada.CreatePost(context.Background(), models.CreatePostRequest{Text: "mine"})
	require.NoError(t, err)

	_, errOut, err := runCLI(t, "", "--server", srv.URL, "--token", bobAuth.Token, "delete", "--yes", p.ID.Hex())
	require.Error(t, err, "deleting another user's post succeeded")
	require.Contains(t, errOut, "Unauthorized to delete post")
}

func TestLoginCommand(t *testing.T) {
	srv := newAPI(t)
	account(t, srv.URL, "ada")

	out, _, err := runCLI(t, "", "--server", srv.URL, "login", "ada", "secret1")
	require.NoError(t, err)
	require.Contains(t, out, "logged in as @ada")
	require.Contains(t, out, "THREADS_TOKEN=")

	out, _, err = runCLI(t, "", "--server", srv.URL, "login", "ada", "wrong")
	require.Error(t, err, "bad password accepted: %q", out)
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	render(&buf, feed.View{
		AuthorName:     "Ada",
		AuthorUsername: "ada",
		Text:           "hello",
		Placeholder:    feed.NoRepliesGlyph,
		PostLink:       "/ada/post/1",
	})
	require.Contains(t, buf.String(), "🗨️")
	require.NotContains(t, buf.String(), "delete:")
}
