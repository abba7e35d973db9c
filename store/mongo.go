package store

import (
	"context"
	"errors"
	"time"

	"threads/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection         = "users"
	PostsCollection         = "posts"
	SubscriptionsCollection = "push_subscriptions"
)

// UsernameCollation matches usernames case-insensitively. The unique username
// index is built with the same collation so lookups can use it.
var UsernameCollation = &options.Collation{Locale: "en", Strength: 2}

func NewMongo(db *mongo.Database) *Store {
	return &Store{
		Users:         &mongoUsers{coll: db.Collection(UsersCollection)},
		Posts:         &mongoPosts{coll: db.Collection(PostsCollection)},
		Subscriptions: &mongoSubscriptions{coll: db.Collection(SubscriptionsCollection)},
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}

type mongoUsers struct {
	coll *mongo.Collection
}

func (s *mongoUsers) Create(ctx context.Context, u *models.User) error {
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
	_, err := s.coll.InsertOne(ctx, u)
	return translate(err)
}

func (s *mongoUsers) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.User, error) {
	var u models.User
	if err := s.coll.FindOne(ctx, filter, opts...).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *mongoUsers) ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *mongoUsers) ByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username": username}, options.FindOne().SetCollation(UsernameCollation))
}

func (s *mongoUsers) findMany(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.User, error) {
	cursor, err := s.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *mongoUsers) ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return s.findMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *mongoUsers) ByUsernames(ctx context.Context, usernames []string) ([]models.User, error) {
	if len(usernames) == 0 {
		return []models.User{}, nil
	}
	return s.findMany(ctx, bson.M{"username": bson.M{"$in": usernames}}, options.Find().SetCollation(UsernameCollation))
}

func (s *mongoUsers) Update(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{
		"name":       u.Name,
		"username":   u.Username,
		"email":      u.Email,
		"password":   u.PasswordHash,
		"profilePic": u.ProfilePic,
		"bio":        u.Bio,
		"isFrozen":   u.IsFrozen,
		"updatedAt":  u.UpdatedAt,
	}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoUsers) Follow(ctx context.Context, follower, target primitive.ObjectID) error {
	return s.setFollow(ctx, "$addToSet", follower, target)
}

func (s *mongoUsers) Unfollow(ctx context.Context, follower, target primitive.ObjectID) error {
	return s.setFollow(ctx, "$pull", follower, target)
}

func (s *mongoUsers) setFollow(ctx context.Context, op string, follower, target primitive.ObjectID) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": target}, bson.M{op: bson.M{"followers": follower}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": follower}, bson.M{op: bson.M{"following": target}})
	return err
}

func (s *mongoUsers) Suggested(ctx context.Context, exclude []primitive.ObjectID, limit int) ([]models.User, error) {
	if exclude == nil {
		exclude = []primitive.ObjectID{}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"_id":      bson.M{"$nin": exclude},
			"isFrozen": bson.M{"$ne": true},
		}}},
		{{Key: "$sample", Value: bson.M{"size": limit}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

type mongoPosts struct {
	coll *mongo.Collection
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

func (s *mongoPosts) Create(ctx context.Context, p *models.Post) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Likes == nil {
		p.Likes = []primitive.ObjectID{}
	}
	if p.Replies == nil {
		p.Replies = []models.Reply{}
	}
	if p.TaggedUsers == nil {
		p.TaggedUsers = []primitive.ObjectID{}
	}
	_, err := s.coll.InsertOne(ctx, p)
	return translate(err)
}

func (s *mongoPosts) ByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *mongoPosts) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoPosts) find(ctx context.Context, filter bson.M) ([]models.Post, error) {
	cursor, err := s.coll.Find(ctx, filter, newestFirst)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *mongoPosts) ByAuthor(ctx context.Context, author primitive.ObjectID) ([]models.Post, error) {
	return s.find(ctx, bson.M{"postedBy": author})
}

func (s *mongoPosts) Feed(ctx context.Context, authors []primitive.ObjectID, viewer primitive.ObjectID) ([]models.Post, error) {
	if authors == nil {
		authors = []primitive.ObjectID{}
	}
	return s.find(ctx, bson.M{"$or": bson.A{
		bson.M{"postedBy": bson.M{"$in": authors}},
		bson.M{"taggedUsers": viewer},
	}})
}

func (s *mongoPosts) Tagged(ctx context.Context, user primitive.ObjectID) ([]models.Post, error) {
	return s.find(ctx, bson.M{"taggedUsers": user})
}

func (s *mongoPosts) update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoPosts) Like(ctx context.Context, post, user primitive.ObjectID) error {
	return s.update(ctx, post, bson.M{"$addToSet": bson.M{"likes": user}})
}

func (s *mongoPosts) Unlike(ctx context.Context, post, user primitive.ObjectID) error {
	return s.update(ctx, post, bson.M{"$pull": bson.M{"likes": user}})
}

func (s *mongoPosts) AddReply(ctx context.Context, post primitive.ObjectID, reply models.Reply) error {
	return s.update(ctx, post, bson.M{
		"$push": bson.M{"replies": reply},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (s *mongoPosts) UpdateReplyAuthor(ctx context.Context, user primitive.ObjectID, username, profilePic string) error {
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"reply.userId": user}},
	})
	_, err := s.coll.UpdateMany(ctx,
		bson.M{"replies.userId": user},
		bson.M{"$set": bson.M{
			"replies.$[reply].username":       username,
			"replies.$[reply].userProfilePic": profilePic,
		}},
		opts,
	)
	return err
}

type mongoSubscriptions struct {
	coll *mongo.Collection
}

func (s *mongoSubscriptions) Save(ctx context.Context, sub models.PushSubscription) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"userId": sub.UserID},
		bson.M{"$set": bson.M{"userId": sub.UserID, "sub": sub.Sub}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *mongoSubscriptions) ByUsers(ctx context.Context, users []primitive.ObjectID) ([]models.PushSubscription, error) {
	if len(users) == 0 {
		return []models.PushSubscription{}, nil
	}
	cursor, err := s.coll.Find(ctx, bson.M{"userId": bson.M{"$in": users}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	subs := []models.PushSubscription{}
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *mongoSubscriptions) Delete(ctx context.Context, user primitive.ObjectID) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"userId": user})
	return err
}
