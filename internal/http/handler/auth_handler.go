package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/microbes-potential/conatoc-net/internal/config"
	"github.com/microbes-potential/conatoc-net/internal/domain"
	"github.com/microbes-potential/conatoc-net/internal/http/middleware"
	"github.com/microbes-potential/conatoc-net/internal/service"
)

// AuthHandler exposes login, logout, registration, and the current
// session over HTTP.
type AuthHandler struct {
	Auth         *service.AuthService
	Registration *service.RegistrationService

	// secureCookies marks session cookies Secure outside development,
	// so browsers refuse to send them over plain HTTP.
	secureCookies bool
}

// NewAuthHandler wires dependencies.
func NewAuthHandler(auth *service.AuthService, registration *service.RegistrationService, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		Auth:          auth,
		Registration:  registration,
		secureCookies: cfg.Environment != "development",
	}
}

type sessionResponse struct {
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
	ExpiresIn int    `json:"expires_in"`
}

// Login authenticates and sets the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Email and password are required."})
		return
	}

	result, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, result)
	c.JSON(http.StatusOK, sessionResponse{
		UserID:    result.Session.UserID,
		Role:      string(result.Session.Role),
		ExpiresIn: result.ExpiresIn,
	})
}

// Logout invalidates the current session and clears the cookie. It is
// idempotent; logging out twice is fine.
func (h *AuthHandler) Logout(c *gin.Context) {
	raw, _ := c.Cookie(middleware.SessionCookie)
	if err := h.Auth.Logout(c.Request.Context(), raw); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookies, true)
	c.Status(http.StatusNoContent)
}

// Register creates a member account through the invite gate and logs
// the new member in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		InviteCode  string `json:"invite_code"`
		Name        string `json:"name"`
		Affiliation string `json:"affiliation"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Email and password are required."})
		return
	}

	user, err := h.Registration.Register(c.Request.Context(), service.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		InviteCode:  req.InviteCode,
		Name:        req.Name,
		Affiliation: req.Affiliation,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.Auth.Login(c.Request.Context(), user.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, result)
	c.JSON(http.StatusCreated, sessionResponse{
		UserID:    result.Session.UserID,
		Role:      string(result.Session.Role),
		ExpiresIn: result.ExpiresIn,
	})
}

// Me reports the current session; guests get the anonymous view.
func (h *AuthHandler) Me(c *gin.Context) {
	sess := middleware.GetSession(c)
	if !sess.Authenticated() {
		c.JSON(http.StatusOK, gin.H{"role": string(domain.RoleGuest)})
		return
	}

	user, err := h.Auth.GetUser(c.Request.Context(), sess.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":     user.ID,
		"email":       user.Email,
		"name":        user.Name,
		"affiliation": user.Affiliation,
		"role":        string(sess.Role),
	})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, result *service.LoginResult) {
	c.SetCookie(middleware.SessionCookie, result.Token, result.ExpiresIn, "/", "", h.secureCookies, true)
}
