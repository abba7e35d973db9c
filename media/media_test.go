package media

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublicID(t *testing.T) {
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://res.cloudinary.com/demo/image/upload/v1712345678/threads/posts/abc123.jpg", "threads/posts/abc123", true},
		{"https://res.cloudinary.com/demo/image/upload/c_limit,w_1080/v17/threads/posts/abc.png", "threads/posts/abc", true},
		{"https://res.cloudinary.com/demo/image/upload/sample.jpg", "sample", true},
		{"https://example.com/picture.png", "", false},
		{"::not a url", "", false},
	}
	for _, tt := range tests {
		got, ok := PublicID(tt.url)
		require.Equal(t, tt.want, got, tt.url)
		require.Equal(t, tt.ok, ok, tt.url)
	}
}

func TestPassthrough(t *testing.T) {
	var u Uploader = Passthrough{}
	got, err := u.Upload(context.Background(), "https://example.com/a.png", PostsFolder)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/a.png", got)
	require.NoError(t, u.Delete(context.Background(), got))
}
