// Package store holds the repositories behind the API. Mongo is the production
// backend; the in-memory backend serves tests and STORE_DRIVER=memory.
package store

import (
	"context"
	"errors"

	"threads/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

type Users interface {
	Create(ctx context.Context, u *models.User) error
	ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ByUsername(ctx context.Context, username string) (*models.User, error)
	// ByIDs and ByUsernames skip unknown entries.
	ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	ByUsernames(ctx context.Context, usernames []string) ([]models.User, error)
	Update(ctx context.Context, u *models.User) error
	Follow(ctx context.Context, follower, target primitive.ObjectID) error
	Unfollow(ctx context.Context, follower, target primitive.ObjectID) error
	// Suggested returns up to limit active users whose ids are not in exclude.
	Suggested(ctx context.Context, exclude []primitive.ObjectID, limit int) ([]models.User, error)
}

// Posts list methods return newest first.
type Posts interface {
	Create(ctx context.Context, p *models.Post) error
	ByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	ByAuthor(ctx context.Context, author primitive.ObjectID) ([]models.Post, error)
	// Feed returns posts by any of authors plus posts tagging viewer.
	Feed(ctx context.Context, authors []primitive.ObjectID, viewer primitive.ObjectID) ([]models.Post, error)
	Tagged(ctx context.Context, user primitive.ObjectID) ([]models.Post, error)
	Like(ctx context.Context, post, user primitive.ObjectID) error
	Unlike(ctx context.Context, post, user primitive.ObjectID) error
	AddReply(ctx context.Context, post primitive.ObjectID, reply models.Reply) error
	// UpdateReplyAuthor rewrites the denormalised author fields on every reply by user.
	UpdateReplyAuthor(ctx context.Context, user primitive.ObjectID, username, profilePic string) error
}

type Subscriptions interface {
	Save(ctx context.Context, sub models.PushSubscription) error
	ByUsers(ctx context.Context, users []primitive.ObjectID) ([]models.PushSubscription, error)
	Delete(ctx context.Context, user primitive.ObjectID) error
}

type Store struct {
	Users         Users
	Posts         Posts
	Subscriptions Subscriptions
}
