package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/microbes-potential/conatoc-net/internal/domain"
	"github.com/microbes-potential/conatoc-net/internal/service"
)

// SessionCookie is where the signed session token travels. A Bearer
// Authorization header is accepted as an alternative for API clients.
const SessionCookie = "conatoc_session"

const ginSessionKey = "session"

// Session resolves the request's session and enforces role gates.
type Session struct {
	Auth *service.AuthService
}

// Resolve attaches the current session to the gin context, falling
// back to the anonymous guest session. It never aborts: gating happens
// in RequireRole.
func (m *Session) Resolve(c *gin.Context) {
	raw := tokenFromRequest(c)
	sess, err := m.Auth.CurrentSession(c.Request.Context(), raw)
	if err != nil {
		// Store outage: treat as anonymous rather than failing every
		// public page.
		sess = domain.AnonymousSession()
	}
	c.Set(ginSessionKey, sess)
	c.Next()
}

// RequireRole aborts requests whose session does not satisfy the
// required role: 401 for anonymous callers, 403 for authenticated
// callers with an insufficient role.
func (m *Session) RequireRole(required domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetSession(c)
		if err := m.Auth.Authorize(sess, required); err != nil {
			if !sess.Authenticated() {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":             "login_required",
					"error_description": "Please log in to access this section.",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":             "forbidden",
				"error_description": "You don't have permission to view this section.",
			})
			return
		}
		c.Next()
	}
}

// GetSession returns the session resolved for this request. Requests
// that skipped Resolve get the anonymous session.
func GetSession(c *gin.Context) domain.Session {
	value, ok := c.Get(ginSessionKey)
	if !ok {
		return domain.AnonymousSession()
	}
	sess, ok := value.(domain.Session)
	if !ok {
		return domain.AnonymousSession()
	}
	return sess
}

func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
