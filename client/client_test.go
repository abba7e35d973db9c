package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"threads/logger"
	"threads/models"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Config{BaseURL: srv.URL, Log: logger.Discard()})
	t.Cleanup(func() { c.Close() })
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestLoginStoresToken(t *testing.T) {
	id := primitive.NewObjectID()
	var gotAuth atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users/login":
			var req models.LoginRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Username != "ada" || req.Password != "pw" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
				return
			}
			writeJSON(w, http.StatusOK, models.AuthResponse{ID: id, Username: "ada", Token: "tok"})
		case "/api/posts/feed":
			gotAuth.Store(r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, []models.PostResponse{})
		}
	})

	_, err := c.Login(context.Background(), "ada", "nope")
	require.Error(t, err)
	require.Equal(t, "Invalid username or password", Message(err))

	res, err := c.Login(context.Background(), "ada", "pw")
	require.NoError(t, err)
	require.Equal(t, id, res.ID)
	require.Equal(t, "tok", c.Token())

	_, err = c.Feed(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer tok", gotAuth.Load())
}

func TestErrorFieldInSuccessBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"error": "User not found"})
	})

	_, err := c.GetProfile(context.Background(), "ghost")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "User not found", apiErr.Message)
}

func TestNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Post not found"})
	})

	require.ErrorIs(t, c.DeletePost(context.Background(), "abc"), ErrNotFound)
}

func TestClientErrorsDoNotOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Unauthorized to delete post"})
	})

	for i := 0; i < 10; i++ {
		err := c.DeletePost(context.Background(), "abc")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr, "call %d", i)
		require.Equal(t, http.StatusForbidden, apiErr.Status)
	}
	require.EqualValues(t, 10, calls.Load())
}

func TestServerErrorsOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	})

	for i := 0; i < 8; i++ {
		c.LikePost(context.Background(), "abc")
	}
	require.EqualValues(t, 5, calls.Load(), "breaker should open after 5 failures")
}
