package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tradedesk/internal/session"
)

type AuthHandler struct {
	Sessions *session.Manager
}

func (h *AuthHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/auth")
	g.POST("/login", h.login)
	g.POST("/logout", h.logout)
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) login(c *gin.Context) {
	if h.Sessions == nil {
		Error(c, http.StatusInternalServerError, "sessions unavailable", nil)
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	token, err := h.Sessions.Login(req.Password)
	if err != nil {
		Error(c, http.StatusUnauthorized, "wrong password", nil)
		return
	}
	Ok(c, gin.H{"token": token}, nil)
}

func (h *AuthHandler) logout(c *gin.Context) {
	if h.Sessions != nil {
		h.Sessions.Logout(bearerToken(c))
	}
	Ok(c, nil, nil)
}

// Middleware gates a route group behind a live session token.
func (h *AuthHandler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Sessions == nil {
			Error(c, http.StatusInternalServerError, "sessions unavailable", nil)
			c.Abort()
			return
		}
		if err := h.Sessions.Validate(bearerToken(c)); err != nil {
			Error(c, http.StatusUnauthorized, "session missing or expired", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[len("bearer "):])
	}
	return strings.TrimSpace(c.GetHeader("X-Session-Token"))
}
