package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"threads/logger"
	"threads/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestFail(t *testing.T) {
	h := New(Deps{Store: store.NewMemory(), Log: logger.Discard()})
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound, "Post not found"},
		{"duplicate", fmt.Errorf("insert: %w", store.ErrDuplicate), http.StatusConflict, "Already exists"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.fail(c, tt.err, "Post not found")

			require.Equal(t, tt.status, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, tt.message, body["error"])
		})
	}
}

func TestNormalizeUsernames(t *testing.T) {
	got := normalizeUsernames([]string{" @Ada ", "ada", "", "@", "bob", "BOB"})
	require.Equal(t, []string{"Ada", "bob"}, got)
}
