package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MaxPostLength = 500

type Reply struct {
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	Text           string             `bson:"text" json:"text"`
	UserProfilePic string             `bson:"userProfilePic,omitempty" json:"userProfilePic,omitempty"`
	Username       string             `bson:"username,omitempty" json:"username,omitempty"`
}

// Post is the stored document. Authors and tagged users are references.
type Post struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	PostedBy    primitive.ObjectID   `bson:"postedBy" json:"postedBy"`
	Text        string               `bson:"text" json:"text"`
	Img         string               `bson:"img,omitempty" json:"img,omitempty"`
	Likes       []primitive.ObjectID `bson:"likes" json:"likes"`
	Replies     []Reply              `bson:"replies" json:"replies"`
	TaggedUsers []primitive.ObjectID `bson:"taggedUsers" json:"taggedUsers"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (p *Post) IsLikedBy(id primitive.ObjectID) bool {
	for _, l := range p.Likes {
		if l == id {
			return true
		}
	}
	return false
}

// PostResponse is the wire shape. PostedBy is either a bare id or an embedded
// author depending on the endpoint.
type PostResponse struct {
	ID          primitive.ObjectID   `json:"_id"`
	PostedBy    AuthorRef            `json:"postedBy"`
	Text        string               `json:"text"`
	Img         string               `json:"img,omitempty"`
	Likes       []primitive.ObjectID `json:"likes"`
	Replies     []Reply              `json:"replies"`
	TaggedUsers []UserSummary        `json:"taggedUsers"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// NewPostResponse builds the wire shape. A nil author leaves postedBy as a bare id.
func NewPostResponse(p *Post, author *UserSummary, tagged []UserSummary) PostResponse {
	ref := AuthorRef{ID: p.PostedBy}
	if author != nil {
		a := *author
		ref.User = &a
	}
	if tagged == nil {
		tagged = []UserSummary{}
	}
	likes := p.Likes
	if likes == nil {
		likes = []primitive.ObjectID{}
	}
	replies := p.Replies
	if replies == nil {
		replies = []Reply{}
	}
	return PostResponse{
		ID:          p.ID,
		PostedBy:    ref,
		Text:        p.Text,
		Img:         p.Img,
		Likes:       likes,
		Replies:     replies,
		TaggedUsers: tagged,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type CreatePostRequest struct {
	Text        string   `json:"text" form:"text" binding:"required"`
	Img         string   `json:"img,omitempty" form:"img"`
	TaggedUsers []string `json:"taggedUsers,omitempty" form:"taggedUsers"`
}

type ReplyRequest struct {
	Text string `json:"text" form:"text" binding:"required,max=500"`
}
