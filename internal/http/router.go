package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/microbes-potential/conatoc-net/internal/config"
	"github.com/microbes-potential/conatoc-net/internal/domain"
	"github.com/microbes-potential/conatoc-net/internal/http/handler"
	httpmiddleware "github.com/microbes-potential/conatoc-net/internal/http/middleware"
	"github.com/microbes-potential/conatoc-net/internal/middleware"
)

// NewRouter wires the gin routes and middleware. Guests can reach the
// health check, login, and registration; everything under /community,
// /library, and /members requires a member session, and /admin
// requires admin.
func NewRouter(cfg config.Config, authHandler *handler.AuthHandler, communityHandler *handler.CommunityHandler, libraryHandler *handler.LibraryHandler, adminHandler *handler.AdminHandler, sessionMiddleware *httpmiddleware.Session, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(sessionMiddleware.Resolve)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/register", authHandler.Register)
		auth.GET("/me", authHandler.Me)
	}

	community := r.Group("/community", sessionMiddleware.RequireRole(domain.RoleMember))
	{
		community.GET("/news", communityHandler.ListNews)
		community.POST("/news", communityHandler.PublishNews)
		community.GET("/chat/:channel", communityHandler.ListMessages)
		community.POST("/chat/:channel", communityHandler.SendMessage)
	}

	library := r.Group("/library", sessionMiddleware.RequireRole(domain.RoleMember))
	{
		library.GET("/papers", libraryHandler.ListPapers)
		library.POST("/papers", libraryHandler.SharePaper)
		library.GET("/papers/:id/download", libraryHandler.DownloadPaper)
		library.GET("/datasets", libraryHandler.ListDatasets)
		library.POST("/datasets", libraryHandler.ShareDataset)
		library.GET("/datasets/:id/download", libraryHandler.DownloadDataset)
	}

	r.GET("/members", sessionMiddleware.RequireRole(domain.RoleMember), communityHandler.ListMembers)

	admin := r.Group("/admin", sessionMiddleware.RequireRole(domain.RoleAdmin))
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.POST("/users/:id/deactivate", adminHandler.DeactivateUser)
	}

	// The UI is served as static files only; all access control lives on
	// the API routes above.
	attachUIRoutes(r, cfg.UIDir)

	return r
}

func attachUIRoutes(r *gin.Engine, distDir string) {
	indexPath := filepath.Join(distDir, "index.html")

	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if isAPIPath(path) {
			c.Status(http.StatusNotFound)
			return
		}

		if filePath, ok := safeJoin(distDir, path); ok {
			if info, err := os.Stat(filePath); err == nil && !info.IsDir() {
				c.File(filePath)
				return
			}
		}

		c.File(indexPath)
	})
}

// apiPrefixes are route roots never served by the UI fallback.
var apiPrefixes = []string{"/auth", "/community", "/library", "/members", "/admin", "/healthz"}

// isAPIPath matches API prefixes on path segment boundaries, so UI
// paths like /membership still fall through to index.html.
func isAPIPath(path string) bool {
	for _, prefix := range apiPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func safeJoin(baseDir, requestPath string) (string, bool) {
	trimmed := strings.TrimPrefix(requestPath, "/")
	cleaned := filepath.Clean(trimmed)
	if cleaned == "." {
		return filepath.Join(baseDir, cleaned), true
	}
	if strings.HasPrefix(cleaned, "..") {
		return "", false
	}
	return filepath.Join(baseDir, cleaned), true
}
