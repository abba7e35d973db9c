package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"threads/cache"
	"threads/media"
	"threads/middleware"
	"threads/models"
	"threads/push"
	"threads/store"
	"threads/websocket"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 10 * time.Second

type Deps struct {
	Store          *store.Store
	Tokens         *middleware.Tokens
	Profiles       cache.Profiles
	Media          media.Uploader
	Push           push.Notifier
	Events         websocket.Broadcaster
	BcryptCost     int
	VAPIDPublicKey string
	SecureCookies  bool
	Log            *slog.Logger
}

type Handler struct {
	users    store.Users
	posts    store.Posts
	subs     store.Subscriptions
	tokens   *middleware.Tokens
	profiles cache.Profiles
	media    media.Uploader
	push     push.Notifier
	events   websocket.Broadcaster

	bcryptCost     int
	vapidPublicKey string
	secureCookies  bool
	log            *slog.Logger
}

// New fills optional collaborators with no-op implementations.
func New(d Deps) *Handler {
	h := &Handler{
		users:          d.Store.Users,
		posts:          d.Store.Posts,
		subs:           d.Store.Subscriptions,
		tokens:         d.Tokens,
		profiles:       d.Profiles,
		media:          d.Media,
		push:           d.Push,
		events:         d.Events,
		bcryptCost:     d.BcryptCost,
		vapidPublicKey: d.VAPIDPublicKey,
		secureCookies:  d.SecureCookies,
		log:            d.Log,
	}
	if h.profiles == nil {
		h.profiles = cache.Nop{}
	}
	if h.media == nil {
		h.media = media.Passthrough{}
	}
	if h.push == nil {
		h.push = push.Nop{}
	}
	if h.events == nil {
		h.events = nopEvents{}
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	return h
}

type nopEvents struct{}

func (nopEvents) BroadcastPostCreated(any)                     {}
func (nopEvents) BroadcastPostDeleted(string, string)          {}
func (nopEvents) BroadcastPostLiked(string, string, bool, int) {}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// fail maps store errors onto responses. Unknown errors are logged and hidden.
func (h *Handler) fail(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(c, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrDuplicate):
		respondError(c, http.StatusConflict, "Already exists")
	case errors.Is(err, context.DeadlineExceeded):
		h.log.Error("request timed out", "path", c.FullPath(), "request_id", middleware.GetRequestID(c))
		respondError(c, http.StatusGatewayTimeout, "Request timed out")
	default:
		_ = c.Error(err)
		h.log.Error("request failed", "path", c.FullPath(), "request_id", middleware.GetRequestID(c), "error", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// currentUser is only valid behind JWTAuthMiddleware.
func (h *Handler) currentUser(ctx context.Context, c *gin.Context) (*models.User, bool) {
	id, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	u, err := h.users.ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	if err != nil {
		h.fail(c, err, "User not found")
		return nil, false
	}
	return u, true
}

func paramID(c *gin.Context, name, what string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid "+what+" id")
		return primitive.NilObjectID, false
	}
	return id, true
}
