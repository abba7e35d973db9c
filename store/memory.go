package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"threads/models"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewMemory returns a Store kept in process memory.
func NewMemory() *Store {
	m := &memory{
		users: map[primitive.ObjectID]*models.User{},
		posts: map[primitive.ObjectID]*models.Post{},
		subs:  map[primitive.ObjectID]models.PushSubscription{},
	}
	return &Store{
		Users:         (*memoryUsers)(m),
		Posts:         (*memoryPosts)(m),
		Subscriptions: (*memorySubscriptions)(m),
	}
}

type memory struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]*models.User
	posts map[primitive.ObjectID]*models.Post
	subs  map[primitive.ObjectID]models.PushSubscription
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Followers = slices.Clone(u.Followers)
	c.Following = slices.Clone(u.Following)
	return &c
}

func clonePost(p *models.Post) *models.Post {
	c := *p
	c.Likes = slices.Clone(p.Likes)
	c.Replies = slices.Clone(p.Replies)
	c.TaggedUsers = slices.Clone(p.TaggedUsers)
	return &c
}

type memoryUsers memory

func (s *memoryUsers) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Followers == nil {
		u.Followers = []primitive.ObjectID{}
	}
	if u.Following == nil {
		u.Following = []primitive.ObjectID{}
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *memoryUsers) ByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *memoryUsers) ByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryUsers) ByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.User{}
	for _, id := range lo.Uniq(ids) {
		if u, ok := s.users[id]; ok {
			out = append(out, *cloneUser(u))
		}
	}
	return out, nil
}

func (s *memoryUsers) ByUsernames(_ context.Context, usernames []string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.User{}
	for _, u := range s.users {
		if lo.ContainsBy(usernames, func(name string) bool { return strings.EqualFold(name, u.Username) }) {
			out = append(out, *cloneUser(u))
		}
	}
	return out, nil
}

func (s *memoryUsers) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range s.users {
		if id != u.ID && (strings.EqualFold(other.Username, u.Username) || strings.EqualFold(other.Email, u.Email)) {
			return ErrDuplicate
		}
	}
	u.UpdatedAt = time.Now().UTC()
	updated := cloneUser(u)
	updated.Followers = existing.Followers
	updated.Following = existing.Following
	updated.CreatedAt = existing.CreatedAt
	s.users[u.ID] = updated
	return nil
}

func (s *memoryUsers) Follow(_ context.Context, follower, target primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.users[target]
	if !ok {
		return ErrNotFound
	}
	if !lo.Contains(t.Followers, follower) {
		t.Followers = append(t.Followers, follower)
	}
	if f, ok := s.users[follower]; ok && !lo.Contains(f.Following, target) {
		f.Following = append(f.Following, target)
	}
	return nil
}

func (s *memoryUsers) Unfollow(_ context.Context, follower, target primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.users[target]
	if !ok {
		return ErrNotFound
	}
	t.Followers = lo.Without(t.Followers, follower)
	if f, ok := s.users[follower]; ok {
		f.Following = lo.Without(f.Following, target)
	}
	return nil
}

func (s *memoryUsers) Suggested(_ context.Context, exclude []primitive.ObjectID, limit int) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.User{}
	for _, u := range s.users {
		if len(out) == limit {
			break
		}
		if u.IsFrozen || lo.Contains(exclude, u.ID) {
			continue
		}
		out = append(out, *cloneUser(u))
	}
	return out, nil
}

type memoryPosts memory

func (s *memoryPosts) Create(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, ok := s.posts[p.ID]; ok {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Likes == nil {
		p.Likes = []primitive.ObjectID{}
	}
	if p.Replies == nil {
		p.Replies = []models.Reply{}
	}
	if p.TaggedUsers == nil {
		p.TaggedUsers = []primitive.ObjectID{}
	}
	s.posts[p.ID] = clonePost(p)
	return nil
}

func (s *memoryPosts) ByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePost(p), nil
}

func (s *memoryPosts) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *memoryPosts) filter(keep func(p *models.Post) bool) []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Post{}
	for _, p := range s.posts {
		if keep(p) {
			out = append(out, *clonePost(p))
		}
	}
	slices.SortFunc(out, func(a, b models.Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.Hex(), a.ID.Hex())
	})
	return out
}

func (s *memoryPosts) ByAuthor(_ context.Context, author primitive.ObjectID) ([]models.Post, error) {
	return s.filter(func(p *models.Post) bool { return p.PostedBy == author }), nil
}

func (s *memoryPosts) Feed(_ context.Context, authors []primitive.ObjectID, viewer primitive.ObjectID) ([]models.Post, error) {
	return s.filter(func(p *models.Post) bool {
		return lo.Contains(authors, p.PostedBy) || lo.Contains(p.TaggedUsers, viewer)
	}), nil
}

func (s *memoryPosts) Tagged(_ context.Context, user primitive.ObjectID) ([]models.Post, error) {
	return s.filter(func(p *models.Post) bool { return lo.Contains(p.TaggedUsers, user) }), nil
}

func (s *memoryPosts) mutate(id primitive.ObjectID, fn func(p *models.Post)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return ErrNotFound
	}
	fn(p)
	return nil
}

func (s *memoryPosts) Like(_ context.Context, post, user primitive.ObjectID) error {
	return s.mutate(post, func(p *models.Post) {
		if !lo.Contains(p.Likes, user) {
			p.Likes = append(p.Likes, user)
		}
	})
}

func (s *memoryPosts) Unlike(_ context.Context, post, user primitive.ObjectID) error {
	return s.mutate(post, func(p *models.Post) {
		p.Likes = lo.Without(p.Likes, user)
	})
}

func (s *memoryPosts) AddReply(_ context.Context, post primitive.ObjectID, reply models.Reply) error {
	return s.mutate(post, func(p *models.Post) {
		p.Replies = append(p.Replies, reply)
		p.UpdatedAt = time.Now().UTC()
	})
}

func (s *memoryPosts) UpdateReplyAuthor(_ context.Context, user primitive.ObjectID, username, profilePic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.posts {
		for i := range p.Replies {
			if p.Replies[i].UserID == user {
				p.Replies[i].Username = username
				p.Replies[i].UserProfilePic = profilePic
			}
		}
	}
	return nil
}

type memorySubscriptions memory

func (s *memorySubscriptions) Save(_ context.Context, sub models.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	s.subs[sub.UserID] = sub
	return nil
}

func (s *memorySubscriptions) ByUsers(_ context.Context, users []primitive.ObjectID) ([]models.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.PushSubscription{}
	for _, id := range lo.Uniq(users) {
		if sub, ok := s.subs[id]; ok {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *memorySubscriptions) Delete(_ context.Context, user primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subs, user)
	return nil
}
