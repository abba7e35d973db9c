// Package feed holds the client-side feed logic: the post list, author
// resolution, the post card and the login and signup forms.
package feed

import (
	"context"
	"sync"

	"threads/models"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the shared list of posts shown in a feed.
type Store struct {
	mu    sync.RWMutex
	posts []models.PostResponse
}

func NewStore(posts ...models.PostResponse) *Store {
	s := &Store{}
	s.Set(posts)
	return s
}

func (s *Store) Set(posts []models.PostResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append([]models.PostResponse(nil), posts...)
}

// Posts returns a copy in display order.
func (s *Store) Posts() []models.PostResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.PostResponse(nil), s.posts...)
}

func (s *Store) Prepend(p models.PostResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append([]models.PostResponse{p}, s.posts...)
}

// Remove drops the post with id and keeps the rest in order.
func (s *Store) Remove(id primitive.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := lo.Reject(s.posts, func(p models.PostResponse, _ int) bool { return p.ID == id })
	removed := len(kept) != len(s.posts)
	s.posts = kept
	return removed
}

func (s *Store) Get(id primitive.ObjectID) (models.PostResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Find(s.posts, func(p models.PostResponse) bool { return p.ID == id })
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}

type PostSource interface {
	Feed(ctx context.Context) ([]models.PostResponse, error)
}

// Refresh replaces the list with the source's feed. On error the list is kept.
func (s *Store) Refresh(ctx context.Context, src PostSource) error {
	posts, err := src.Feed(ctx)
	if err != nil {
		return err
	}
	s.Set(posts)
	return nil
}
