package routes

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"threads/handlers"
	"threads/metrics"
	"threads/middleware"
	"threads/telemetry"
	"threads/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Options struct {
	Handler     *handlers.Handler
	Tokens      *middleware.Tokens
	CORSOrigins []string
	// RateLimit is applied to /api. Nil disables rate limiting.
	RateLimit gin.HandlerFunc
	Hub       *websocket.Manager
	// Health reports backing store reachability for /health.
	Health  func(ctx context.Context) error
	Tracing bool
	Log     *slog.Logger
}

func SetupRouter(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(opts.Log))
	if opts.Tracing {
		router.Use(middleware.TracingMiddleware(telemetry.ServiceName))
		router.Use(middleware.EnrichTrace())
	}
	router.Use(middleware.MetricsMiddleware())

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		if opts.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := opts.Health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	if opts.Hub != nil {
		router.GET("/ws", gin.WrapF(websocket.Handler(opts.Hub, opts.Tokens.Parse)))
	}

	h := opts.Handler
	auth := middleware.JWTAuthMiddleware(opts.Tokens)

	api := router.Group("/api")
	if opts.RateLimit != nil {
		api.Use(opts.RateLimit)
	}

	users := api.Group("/users")
	users.POST("/signup", h.Signup)
	users.POST("/login", h.Login)
	users.POST("/logout", h.Logout)
	users.GET("/profile/:query", h.GetProfile)
	users.GET("/push/key", h.GetVapidPublicKey)
	users.GET("/suggested", auth, h.GetSuggestedUsers)
	users.POST("/follow/:id", auth, h.FollowUnfollow)
	users.PUT("/update/:id", auth, h.UpdateUser)
	users.PUT("/freeze", auth, h.FreezeAccount)
	users.POST("/push/subscribe", auth, h.SubscribePush)

	posts := api.Group("/posts")
	posts.GET("/feed", auth, h.GetFeed)
	posts.GET("/tagged", auth, h.GetTaggedPosts)
	posts.GET("/user/:username", h.GetUserPosts)
	posts.GET("/:id", h.GetPost)
	posts.POST("/create", auth, h.CreatePost)
	posts.DELETE("/:id", auth, h.DeletePost)
	posts.PUT("/like/:id", auth, h.LikeUnlikePost)
	posts.PUT("/reply/:id", auth, h.ReplyToPost)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return router
}
