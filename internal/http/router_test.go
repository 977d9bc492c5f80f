package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/microbes-potential/conatoc-net/internal/bootstrap"
	"github.com/microbes-potential/conatoc-net/internal/config"
	httptransport "github.com/microbes-potential/conatoc-net/internal/http"
	"github.com/microbes-potential/conatoc-net/internal/http/handler"
	httpmiddleware "github.com/microbes-potential/conatoc-net/internal/http/middleware"
	"github.com/microbes-potential/conatoc-net/internal/repository/repotest"
	"github.com/microbes-potential/conatoc-net/internal/service"
	"github.com/microbes-potential/conatoc-net/internal/session"
	"github.com/microbes-potential/conatoc-net/internal/token"
)

// newTestRouter stands up the full HTTP stack on in-memory storage and
// seeds it through the regular bootstrap path.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return newTestRouterEnv(t, "test")
}

func newTestRouterEnv(t *testing.T, environment string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	uiDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(uiDir, "index.html"), []byte("<!doctype html><title>conatoc</title>"), 0o644))

	cfg := config.Config{
		Environment:          environment,
		SecretKey:            "test-secret",
		AdminEmail:           "admin@conatoc.net",
		AdminPassword:        "StrongAdminPass",
		SharedMemberEmail:    "shared@conatoc.net",
		SharedMemberPassword: "SharedSecret",
		InviteCode:           "welcome",
		InviteMaxUses:        2,
		SessionTTL:           time.Hour,
		ServiceName:          "conatoc-net-test",
		UIDir:                uiDir,
	}

	users := repotest.NewUserRepo()
	invites := repotest.NewInviteRepo()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	require.NoError(t, bootstrap.Run(context.Background(), cfg, users, invites, node, zap.NewNop()))

	codec, err := token.NewCodec(cfg.SecretKey)
	require.NoError(t, err)
	logger := zap.NewNop()

	auth := service.NewAuthService(users, session.NewMemoryStore(), codec, cfg, logger)
	registration := service.NewRegistrationService(users, invites, node, cfg, logger)
	community := service.NewCommunityService(&repotest.NewsRepo{}, &repotest.ChatRepo{}, users, node, logger)
	library := service.NewLibraryService(&repotest.PaperRepo{}, &repotest.DatasetRepo{}, users, node, logger)
	directory := service.NewDirectoryService(users, logger)

	return httptransport.NewRouter(
		cfg,
		handler.NewAuthHandler(auth, registration, cfg),
		handler.NewCommunityHandler(community, directory),
		handler.NewLibraryHandler(library),
		handler.NewAdminHandler(directory),
		&httpmiddleware.Session{Auth: auth},
		nil,
	)
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, cookie string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: httpmiddleware.SessionCookie, Value: cookie})
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, router *gin.Engine, email, pass string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/auth/login", gin.H{"email": email, "password": pass}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == httpmiddleware.SessionCookie {
			return c.Value
		}
	}
	t.Fatal("no session cookie issued")
	return ""
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginFlow(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/login", gin.H{"email": "admin@conatoc.net", "password": "wrong"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie := login(t, router, "admin@conatoc.net", "StrongAdminPass")

	rec = doJSON(t, router, http.MethodGet, "/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	require.Equal(t, "admin", me["role"])
	require.Equal(t, "admin@conatoc.net", me["email"])
}

func TestGuestGating(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/auth/me", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"role":"guest"`)

	for _, path := range []string{"/community/news", "/library/papers", "/library/datasets", "/members", "/admin/users"} {
		rec := doJSON(t, router, http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestMemberCannotReachAdmin(t *testing.T) {
	router := newTestRouter(t)
	cookie := login(t, router, "shared@conatoc.net", "SharedSecret")

	rec := doJSON(t, router, http.MethodGet, "/admin/users", nil, cookie)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/community/chat/admin", nil, cookie)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/community/chat/general", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/community/chat/nope", nil, cookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterAndParticipate(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", gin.H{
		"email":       "newbie@conatoc.net",
		"password":    "longenough",
		"invite_code": "welcome",
		"name":        "New Member",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var cookie string
	for _, c := range rec.Result().Cookies() {
		if c.Name == httpmiddleware.SessionCookie {
			cookie = c.Value
		}
	}
	require.NotEmpty(t, cookie)

	rec = doJSON(t, router, http.MethodPost, "/community/news", gin.H{"title": "Hello", "body": "First post."}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/community/news", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "New Member")

	// Same email again fails and the bad invite code is rejected.
	rec = doJSON(t, router, http.MethodPost, "/auth/register", gin.H{
		"email": "newbie@conatoc.net", "password": "longenough", "invite_code": "welcome",
	}, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/register", gin.H{
		"email": "other@conatoc.net", "password": "longenough", "invite_code": "bogus",
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout(t *testing.T) {
	router := newTestRouter(t)
	cookie := login(t, router, "admin@conatoc.net", "StrongAdminPass")

	rec := doJSON(t, router, http.MethodPost, "/auth/logout", nil, cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The revoked cookie now resolves to a guest.
	rec = doJSON(t, router, http.MethodGet, "/members", nil, cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/logout", nil, cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAdminDeactivate(t *testing.T) {
	router := newTestRouter(t)
	adminCookie := login(t, router, "admin@conatoc.net", "StrongAdminPass")

	rec := doJSON(t, router, http.MethodGet, "/admin/users", nil, adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Users []struct {
			ID     int64  `json:"id"`
			Email  string `json:"email"`
			Active bool   `json:"active"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Users, 2)

	var adminID, sharedID int64
	for _, u := range listing.Users {
		switch u.Email {
		case "admin@conatoc.net":
			adminID = u.ID
		case "shared@conatoc.net":
			sharedID = u.ID
		}
	}
	require.NotZero(t, adminID)
	require.NotZero(t, sharedID)

	// Self-deactivation is refused.
	rec = doJSON(t, router, http.MethodPost, "/admin/users/"+formatID(adminID)+"/deactivate", nil, adminCookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/admin/users/"+formatID(sharedID)+"/deactivate", nil, adminCookie)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The deactivated account can no longer log in.
	rec = doJSON(t, router, http.MethodPost, "/auth/login", gin.H{"email": "shared@conatoc.net", "password": "SharedSecret"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerTokenAccepted(t *testing.T) {
	router := newTestRouter(t)
	tokenValue := login(t, router, "admin@conatoc.net", "StrongAdminPass")

	req := httptest.NewRequest(http.MethodGet, "/members", nil)
	req.Header.Set("Authorization", "Bearer "+tokenValue)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func doMultipart(t *testing.T, router *gin.Engine, path string, fields map[string]string, fileName string, fileBytes []byte, cookie string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(fileBytes)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: httpmiddleware.SessionCookie, Value: cookie})
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLibraryPapers(t *testing.T) {
	router := newTestRouter(t)
	cookie := login(t, router, "shared@conatoc.net", "SharedSecret")

	rec := doMultipart(t, router, "/library/papers", map[string]string{
		"title":   "Calibration procedure",
		"summary": "Dish pointing calibration.",
		"tags":    "calibration",
	}, "calibration.pdf", []byte("pdf-bytes"), cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodGet, "/library/papers", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Calibration procedure")
	// Listings carry the file name, never its contents.
	require.NotContains(t, rec.Body.String(), "pdf-bytes")

	rec = doJSON(t, router, http.MethodGet, "/library/papers/"+formatID(created.ID)+"/download", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "pdf-bytes", rec.Body.String())
	require.Contains(t, rec.Header().Get("Content-Disposition"), "calibration.pdf")
}

func TestLibraryDatasetVisibility(t *testing.T) {
	router := newTestRouter(t)
	adminCookie := login(t, router, "admin@conatoc.net", "StrongAdminPass")
	memberCookie := login(t, router, "shared@conatoc.net", "SharedSecret")

	rec := doMultipart(t, router, "/library/datasets", map[string]string{
		"title":      "Raw observation dumps",
		"visibility": "admins",
	}, "dumps.tar", []byte("tar-bytes"), adminCookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Members see the restricted row in the listing.
	rec = doJSON(t, router, http.MethodGet, "/library/datasets", nil, memberCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Raw observation dumps")

	// Download is gated by the record's visibility.
	downloadPath := "/library/datasets/" + formatID(created.ID) + "/download"
	rec = doJSON(t, router, http.MethodGet, downloadPath, nil, memberCookie)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodGet, downloadPath, nil, adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "tar-bytes", rec.Body.String())

	// Unknown visibility values are rejected outright.
	rec = doMultipart(t, router, "/library/datasets", map[string]string{
		"title": "Other", "visibility": "everyone",
	}, "", nil, adminCookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUIFallbackForNonAPIPaths(t *testing.T) {
	router := newTestRouter(t)

	// /membership is a UI path even though it shares a prefix with the
	// /members API route.
	rec := doJSON(t, router, http.MethodGet, "/membership", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "conatoc")

	rec = doJSON(t, router, http.MethodGet, "/members", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unknown API paths stay 404 instead of serving the UI.
	rec = doJSON(t, router, http.MethodGet, "/auth/nope", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionCookieSecureFlag(t *testing.T) {
	sessionCookie := func(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
		t.Helper()
		for _, c := range rec.Result().Cookies() {
			if c.Name == httpmiddleware.SessionCookie {
				return c
			}
		}
		t.Fatal("no session cookie issued")
		return nil
	}

	creds := gin.H{"email": "admin@conatoc.net", "password": "StrongAdminPass"}

	prod := newTestRouterEnv(t, "production")
	rec := doJSON(t, prod, http.MethodPost, "/auth/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, sessionCookie(t, rec).Secure)

	dev := newTestRouterEnv(t, "development")
	rec = doJSON(t, dev, http.MethodPost, "/auth/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, sessionCookie(t, rec).Secure)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
