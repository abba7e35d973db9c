package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name         string               `bson:"name" json:"name"`
	Username     string               `bson:"username" json:"username"`
	Email        string               `bson:"email" json:"email"`
	PasswordHash string               `bson:"password" json:"-"`
	ProfilePic   string               `bson:"profilePic" json:"profilePic"`
	Bio          string               `bson:"bio" json:"bio"`
	Followers    []primitive.ObjectID `bson:"followers" json:"followers"`
	Following    []primitive.ObjectID `bson:"following" json:"following"`
	IsFrozen     bool                 `bson:"isFrozen" json:"isFrozen"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// UserSummary is the public shape embedded in posts (authors, tagged users).
type UserSummary struct {
	ID         primitive.ObjectID `bson:"_id" json:"_id"`
	Username   string             `bson:"username" json:"username"`
	Name       string             `bson:"name" json:"name"`
	ProfilePic string             `bson:"profilePic" json:"profilePic"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.Name,
		ProfilePic: u.ProfilePic,
	}
}

func (u *User) IsFollowing(id primitive.ObjectID) bool {
	for _, f := range u.Following {
		if f == id {
			return true
		}
	}
	return false
}

// Request bodies bind from JSON or from url-encoded forms.
type SignupRequest struct {
	Name     string `json:"name" form:"name" binding:"required,min=1,max=100"`
	Username string `json:"username" form:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=6,max=128"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type UpdateUserRequest struct {
	Name       *string `json:"name,omitempty" form:"name"`
	Username   *string `json:"username,omitempty" form:"username"`
	Email      *string `json:"email,omitempty" form:"email" binding:"omitempty,email"`
	Bio        *string `json:"bio,omitempty" form:"bio" binding:"omitempty,max=300"`
	Password   *string `json:"password,omitempty" form:"password" binding:"omitempty,min=6,max=128"`
	ProfilePic *string `json:"profilePic,omitempty" form:"profilePic"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	ID         primitive.ObjectID `json:"_id"`
	Name       string             `json:"name"`
	Username   string             `json:"username"`
	Email      string             `json:"email"`
	Bio        string             `json:"bio"`
	ProfilePic string             `json:"profilePic"`
	Token      string             `json:"token,omitempty"`
}

func NewAuthResponse(u *User, token string) AuthResponse {
	return AuthResponse{
		ID:         u.ID,
		Name:       u.Name,
		Username:   u.Username,
		Email:      u.Email,
		Bio:        u.Bio,
		ProfilePic: u.ProfilePic,
		Token:      token,
	}
}
