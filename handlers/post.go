package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"threads/media"
	"threads/metrics"
	"threads/models"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// summaries loads the users behind ids keyed by id. Unknown ids are absent.
func (h *Handler) summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	users, err := h.users.ByIDs(ctx, lo.Uniq(ids))
	if err != nil {
		return nil, err
	}
	return lo.Associate(users, func(u models.User) (primitive.ObjectID, models.UserSummary) {
		return u.ID, u.Summary()
	}), nil
}

func taggedSummaries(p *models.Post, known map[primitive.ObjectID]models.UserSummary) []models.UserSummary {
	return lo.FilterMap(p.TaggedUsers, func(id primitive.ObjectID, _ int) (models.UserSummary, bool) {
		s, ok := known[id]
		return s, ok
	})
}

// respondPosts writes posts with embedded authors and tagged users.
func (h *Handler) respondPosts(ctx context.Context, c *gin.Context, posts []models.Post) {
	ids := make([]primitive.ObjectID, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.PostedBy)
		ids = append(ids, p.TaggedUsers...)
	}
	known, err := h.summaries(ctx, ids)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	out := make([]models.PostResponse, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		var author *models.UserSummary
		if s, ok := known[p.PostedBy]; ok {
			author = &s
		}
		out = append(out, models.NewPostResponse(p, author, taggedSummaries(p, known)))
	}
	c.JSON(http.StatusOK, out)
}

func normalizeUsernames(raw []string) []string {
	names := lo.FilterMap(raw, func(s string, _ int) (string, bool) {
		s = strings.TrimPrefix(strings.TrimSpace(s), "@")
		return s, s != ""
	})
	return lo.UniqBy(names, strings.ToLower)
}

func (h *Handler) CreatePost(c *gin.Context) {
	var req models.CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Text field is required")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondError(c, http.StatusBadRequest, "Text field is required")
		return
	}
	if utf8.RuneCountInString(text) > models.MaxPostLength {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("Text must be less than %d characters", models.MaxPostLength))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	author, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}

	usernames := normalizeUsernames(req.TaggedUsers)
	tagged, err := h.users.ByUsernames(ctx, usernames)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	if len(tagged) != len(usernames) {
		found := lo.Map(tagged, func(u models.User, _ int) string { return strings.ToLower(u.Username) })
		missing := lo.Reject(usernames, func(name string, _ int) bool { return lo.Contains(found, strings.ToLower(name)) })
		respondError(c, http.StatusBadRequest, "Tagged users not found: "+strings.Join(missing, ", "))
		return
	}

	img := ""
	if req.Img != "" {
		img, err = h.media.Upload(ctx, req.Img, media.PostsFolder)
		if err != nil {
			h.log.Warn("post image upload failed", "user", author.ID.Hex(), "error", err)
			respondError(c, http.StatusBadRequest, "Failed to upload image")
			return
		}
	}

	post := &models.Post{
		PostedBy:    author.ID,
		Text:        text,
		Img:         img,
		TaggedUsers: lo.Map(tagged, func(u models.User, _ int) primitive.ObjectID { return u.ID }),
	}
	if err := h.posts.Create(ctx, post); err != nil {
		h.fail(c, err, "")
		return
	}

	summary := author.Summary()
	res := models.NewPostResponse(post, &summary, lo.Map(tagged, func(u models.User, _ int) models.UserSummary { return u.Summary() }))

	metrics.PostCreated()
	h.push.NotifyTagged(author, post)
	h.events.BroadcastPostCreated(res)
	h.log.Info("post created", "post", post.ID.Hex(), "user", author.ID.Hex(), "tagged", len(tagged))

	c.JSON(http.StatusCreated, res)
}

// GetPost returns postedBy as a bare id; clients resolve the author themselves.
func (h *Handler) GetPost(c *gin.Context) {
	id, ok := paramID(c, "id", "post")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.posts.ByID(ctx, id)
	if err != nil {
		h.fail(c, err, "Post not found")
		return
	}
	known, err := h.summaries(ctx, post.TaggedUsers)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, models.NewPostResponse(post, nil, taggedSummaries(post, known)))
}

func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := paramID(c, "id", "post")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}
	post, err := h.posts.ByID(ctx, id)
	if err != nil {
		h.fail(c, err, "Post not found")
		return
	}
	if post.PostedBy != user.ID {
		respondError(c, http.StatusForbidden, "Unauthorized to delete post")
		return
	}

	if err := h.posts.Delete(ctx, id); err != nil {
		h.fail(c, err, "Post not found")
		return
	}
	if post.Img != "" {
		if err := h.media.Delete(ctx, post.Img); err != nil {
			h.log.Warn("post image not deleted", "post", id.Hex(), "error", err)
		}
	}

	metrics.PostDeleted()
	h.events.BroadcastPostDeleted(id.Hex(), user.ID.Hex())
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

func (h *Handler) LikeUnlikePost(c *gin.Context) {
	id, ok := paramID(c, "id", "post")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}
	post, err := h.posts.ByID(ctx, id)
	if err != nil {
		h.fail(c, err, "Post not found")
		return
	}

	liked := post.IsLikedBy(user.ID)
	likes := len(post.Likes)
	if liked {
		err = h.posts.Unlike(ctx, id, user.ID)
		likes--
	} else {
		err = h.posts.Like(ctx, id, user.ID)
		likes++
	}
	if err != nil {
		h.fail(c, err, "Post not found")
		return
	}

	h.events.BroadcastPostLiked(id.Hex(), user.ID.Hex(), !liked, likes)
	if liked {
		c.JSON(http.StatusOK, gin.H{"message": "Post unliked successfully"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post liked successfully"})
}

func (h *Handler) ReplyToPost(c *gin.Context) {
	id, ok := paramID(c, "id", "post")
	if !ok {
		return
	}

	var req models.ReplyRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Text field is required")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondError(c, http.StatusBadRequest, "Text field is required")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}

	reply := models.Reply{
		UserID:         user.ID,
		Text:           text,
		UserProfilePic: user.ProfilePic,
		Username:       user.Username,
	}
	if err := h.posts.AddReply(ctx, id, reply); err != nil {
		h.fail(c, err, "Post not found")
		return
	}
	c.JSON(http.StatusOK, reply)
}

// GetFeed returns posts by followed users and posts tagging the viewer.
func (h *Handler) GetFeed(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	viewer, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}
	posts, err := h.posts.Feed(ctx, viewer.Following, viewer.ID)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	h.respondPosts(ctx, c, posts)
}

func (h *Handler) GetTaggedPosts(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	viewer, ok := h.currentUser(ctx, c)
	if !ok {
		return
	}
	posts, err := h.posts.Tagged(ctx, viewer.ID)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	h.respondPosts(ctx, c, posts)
}

func (h *Handler) GetUserPosts(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.ByUsername(ctx, c.Param("username"))
	if err != nil {
		h.fail(c, err, "User not found")
		return
	}
	posts, err := h.posts.ByAuthor(ctx, user.ID)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	h.respondPosts(ctx, c, posts)
}
