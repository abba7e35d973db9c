package feed

import (
	"context"
	"errors"
	"fmt"

	"threads/models"
)

var ErrNoAuthor = errors.New("post has no author")

type ProfileFetcher interface {
	GetProfile(ctx context.Context, query string) (*models.User, error)
}

// AuthorResolver turns a postedBy reference into a user. Embedded authors are
// used as they are; bare ids cost one profile request.
type AuthorResolver struct {
	profiles ProfileFetcher
}

func NewAuthorResolver(profiles ProfileFetcher) *AuthorResolver {
	return &AuthorResolver{profiles: profiles}
}

func (r *AuthorResolver) Resolve(ctx context.Context, ref models.AuthorRef) (models.UserSummary, error) {
	if ref.Embedded() {
		return *ref.User, nil
	}
	if ref.ID.IsZero() {
		return models.UserSummary{}, ErrNoAuthor
	}
	u, err := r.profiles.GetProfile(ctx, ref.ID.Hex())
	if err != nil {
		return models.UserSummary{}, fmt.Errorf("resolve author %s: %w", ref.ID.Hex(), err)
	}
	return u.Summary(), nil
}
