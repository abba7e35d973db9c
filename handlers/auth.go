package handlers

import (
	"errors"
	"net/http"
	"strings"

	"threads/middleware"
	"threads/models"
	"threads/store"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.CookieName, token, maxAge, "/", "", h.secureCookies, true)
}

func (h *Handler) issueSession(c *gin.Context, u *models.User, status int) {
	token, err := h.tokens.Sign(u.ID)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	h.setSessionCookie(c, token, int(h.tokens.TTL().Seconds()))
	c.JSON(status, models.NewAuthResponse(u, token))
}

func (h *Handler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hashed),
	}
	if err := h.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			respondError(c, http.StatusConflict, "User already exists")
			return
		}
		h.fail(c, err, "")
		return
	}

	h.log.Info("user signed up", "user", user.ID.Hex(), "username", user.Username)
	h.issueSession(c, user, http.StatusCreated)
}

// Login also unfreezes a frozen account.
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.ByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		h.fail(c, err, "")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	if user.IsFrozen {
		user.IsFrozen = false
		if err := h.users.Update(ctx, user); err != nil {
			h.fail(c, err, "")
			return
		}
		h.profiles.Invalidate(ctx, user)
	}

	h.issueSession(c, user, http.StatusOK)
}

func (h *Handler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "User logged out successfully"})
}
