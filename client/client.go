// Package client is a typed client for the threads REST API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"threads/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
	"resty.dev/v3"
)

var apiLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "threads_client_request_latency",
		Help:    "Histogram of threads API request latency in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	},
	[]string{"method", "path", "status_code"},
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	Log     *slog.Logger
}

type Client struct {
	http *resty.Client
	cb   *gobreaker.CircuitBreaker
	log  *slog.Logger

	mu    sync.RWMutex
	token string
}

func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	httpClient.AddResponseMiddleware(metricMiddleware)

	c := &Client{http: httpClient, log: cfg.Log}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "threads-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx answers mean the server is healthy.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			return err == nil || (errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

func metricMiddleware(_ *resty.Client, response *resty.Response) error {
	reqURL, err := url.Parse(response.Request.URL)
	if err != nil {
		return err
	}
	apiLatency.WithLabelValues(
		response.Request.Method,
		reqURL.Path,
		fmt.Sprintf("%d", response.StatusCode()),
	).Observe(response.Duration().Seconds())
	return nil
}

func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) r(ctx context.Context) *resty.Request {
	req := c.http.R().WithContext(ctx)
	if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}
	return req
}

type errorBody struct {
	Error string `json:"error"`
}

// do sends one request. A body carrying an error field is a failure even on 2xx.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		req := c.r(ctx)
		if body != nil {
			req.SetBody(body)
		}
		res, err := req.Execute(method, path)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}

		raw := []byte(res.String())
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		if res.IsError() || eb.Error != "" {
			return nil, &APIError{Status: res.StatusCode(), Message: eb.Error}
		}
		if result != nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, result); err != nil {
				return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
			}
		}
		return nil, nil
	})
	return err
}

func (c *Client) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	var res models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/users/signup", req, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*models.AuthResponse, error) {
	var res models.AuthResponse
	req := models.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/users/login", req, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/users/logout", nil, nil)
	c.SetToken("")
	return err
}

// GetProfile looks a user up by id or username.
func (c *Client) GetProfile(ctx context.Context, query string) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/users/profile/"+url.PathEscape(query), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Suggested(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "/api/users/suggested", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) Follow(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/api/users/follow/"+url.PathEscape(userID), nil, nil)
}

func (c *Client) Feed(ctx context.Context) ([]models.PostResponse, error) {
	return c.posts(ctx, "/api/posts/feed")
}

func (c *Client) Tagged(ctx context.Context) ([]models.PostResponse, error) {
	return c.posts(ctx, "/api/posts/tagged")
}

func (c *Client) UserPosts(ctx context.Context, username string) ([]models.PostResponse, error) {
	return c.posts(ctx, "/api/posts/user/"+url.PathEscape(username))
}

func (c *Client) posts(ctx context.Context, path string) ([]models.PostResponse, error) {
	posts := []models.PostResponse{}
	if err := c.do(ctx, http.MethodGet, path, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) GetPost(ctx context.Context, id string) (*models.PostResponse, error) {
	var p models.PostResponse
	if err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreatePost(ctx context.Context, req models.CreatePostRequest) (*models.PostResponse, error) {
	var p models.PostResponse
	if err := c.do(ctx, http.MethodPost, "/api/posts/create", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/posts/"+url.PathEscape(id), nil, nil)
}

func (c *Client) LikePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/api/posts/like/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Reply(ctx context.Context, id, text string) (*models.Reply, error) {
	var r models.Reply
	if err := c.do(ctx, http.MethodPut, "/api/posts/reply/"+url.PathEscape(id), models.ReplyRequest{Text: text}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
