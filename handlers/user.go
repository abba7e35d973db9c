package handlers

import (
	"errors"
	"net/http"
	"strings"

	"threads/media"
	"threads/metrics"
	"threads/models"
	"threads/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const suggestedLimit = 4

// GetProfile resolves :query as a user id first, then as a username.
func (h *Handler) GetProfile(c *gin.Context) {
	query := c.Param("query")

	ctx, cancel := requestContext(c)
	defer cancel()

	if u, ok := h.profiles.Get(ctx, query); ok {
		metrics.ProfileCacheHit()
		c.JSON(http.StatusOK, u)
		return
	}
	metrics.ProfileCacheMiss()

	var (
		user *models.User
		err  error
	)
	if id, idErr := primitive.ObjectIDFromHex(query); idErr == nil {
		user, err = h.users.ByID(ctx, id)
	} else {
		user, err = h.users.ByUsername(ctx, query)
	}
	if err != nil {
		h.fail(c, err, "User not found")
		return
	}

	h.profiles.Set(ctx, user)
	c.JSON(http.StatusOK, user)
}

func (h *Handler) GetSuggestedUsers(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	viewer, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}

	exclude := append([]primitive.ObjectID{viewer.ID}, viewer.Following...)
	users, err := h.users.Suggested(ctx, exclude, suggestedLimit)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, users)
}

// FollowUnfollow toggles the follow edge between the caller and :id.
func (h *Handler) FollowUnfollow(c *gin.Context) {
	targetID, ok := paramID(c, "id", "user")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	viewer, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}
	if viewer.ID == targetID {
		respondError(c, http.StatusBadRequest, "You cannot follow/unfollow yourself")
		return
	}

	target, err := h.users.ByID(ctx, targetID)
	if err != nil {
		h.fail(c, err, "User not found")
		return
	}

	following := viewer.IsFollowing(targetID)
	if following {
		err = h.users.Unfollow(ctx, viewer.ID, targetID)
	} else {
		err = h.users.Follow(ctx, viewer.ID, targetID)
	}
	if err != nil {
		h.fail(c, err, "User not found")
		return
	}
	h.profiles.Invalidate(ctx, viewer)
	h.profiles.Invalidate(ctx, target)

	if following {
		c.JSON(http.StatusOK, gin.H{"message": "User unfollowed successfully"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User followed successfully"})
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := paramID(c, "id", "user")
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}
	if user.ID != id {
		respondError(c, http.StatusForbidden, "You cannot update other user's profile")
		return
	}

	before := *user
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			respondError(c, http.StatusBadRequest, "Username cannot be empty")
			return
		}
		user.Username = username
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), h.bcryptCost)
		if err != nil {
			h.fail(c, err, "")
			return
		}
		user.PasswordHash = string(hashed)
	}
	if req.ProfilePic != nil && *req.ProfilePic != user.ProfilePic {
		url, err := h.media.Upload(ctx, *req.ProfilePic, media.ProfilesFolder)
		if err != nil {
			h.log.Warn("profile picture upload failed", "user", user.ID.Hex(), "error", err)
			respondError(c, http.StatusBadRequest, "Failed to upload profile picture")
			return
		}
		user.ProfilePic = url
	}

	if err := h.users.Update(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			respondError(c, http.StatusConflict, "Username or email already taken")
			return
		}
		h.fail(c, err, "User not found")
		return
	}

	if before.ProfilePic != "" && before.ProfilePic != user.ProfilePic {
		if err := h.media.Delete(ctx, before.ProfilePic); err != nil {
			h.log.Warn("old profile picture not deleted", "user", user.ID.Hex(), "error", err)
		}
	}
	if before.Username != user.Username || before.ProfilePic != user.ProfilePic {
		if err := h.posts.UpdateReplyAuthor(ctx, user.ID, user.Username, user.ProfilePic); err != nil {
			h.log.Warn("reply authors not updated", "user", user.ID.Hex(), "error", err)
		}
	}
	h.profiles.Invalidate(ctx, &before)
	h.profiles.Invalidate(ctx, user)

	c.JSON(http.StatusOK, user)
}

func (h *Handler) FreezeAccount(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}
	user.IsFrozen = true
	if err := h.users.Update(ctx, user); err != nil {
		h.fail(c, err, "User not found")
		return
	}
	h.profiles.Invalidate(ctx, user)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
