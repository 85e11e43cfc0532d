package testutil

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/api"
	"github.com/mysite19/mysite/internal/app"
	iauth "github.com/mysite19/mysite/internal/auth"
	"github.com/mysite19/mysite/internal/cache"
	sharedtestutil "github.com/mysite19/mysite/internal/database/testutil"
	"github.com/mysite19/mysite/internal/models"
	"github.com/mysite19/mysite/internal/storage"
	"github.com/mysite19/mysite/pkg/crypto"
	"github.com/mysite19/mysite/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService
	Clock  *Clock
	Cache  *cache.MemoryStore
	Media  *storage.LocalStorage
}

// Clock is a manually advanced time source shared by the cache of an Env.
type Clock struct {
	now time.Time
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time { return c.now }

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	jwtSecret := "test-suite-super-secret-key-32-bytes!!"
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         jwtSecret,
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	cfg := &app.Config{
		Server: app.ServerConfig{
			RateLimit: app.RateLimit{Requests: 10000, Window: time.Minute},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: jwtSecret,
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
			Session: app.SessionSettings{
				RefreshTTL:    24 * time.Hour,
				RefreshLength: 48,
			},
		},
		Shop: app.ShopConfig{
			ExportTTL:      300 * time.Second,
			CookiePageTTL:  20 * time.Second,
			ProductPageTTL: 30 * time.Second,
			MaxUploadBytes: 1 << 20,
		},
	}

	clock := &Clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := cache.NewMemoryStore(cache.WithClock(clock.Now))

	media, err := storage.NewLocalStorage(t.TempDir(), "/media")
	require.NoError(t, err)

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, cfg.Auth.SessionServiceConfig())
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		DB:       db,
		JWT:      jwtSvc,
		Sessions: sessionSvc,
		Config:   cfg,
		Cache:    store,
		Media:    media,
	})
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
		Clock:  clock,
		Cache:  store,
		Media:  media,
	}
}

// CreateUser inserts an active user that belongs to the named seeded groups.
func (e *Env) CreateUser(username, password string, groups ...string) *models.User {
	e.T.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		IsActive: true,
	}
	require.NoError(e.T, e.DB.Create(user).Error)

	if len(groups) > 0 {
		var found []models.Group
		require.NoError(e.T, e.DB.Where("name IN ?", groups).Find(&found).Error)
		require.Len(e.T, found, len(groups))
		require.NoError(e.T, e.DB.Model(user).Association("Groups").Append(found))
	}
	return user
}

// CreateRootUser inserts an active superuser.
func (e *Env) CreateRootUser(username, password string) *models.User {
	e.T.Helper()

	user := e.CreateUser(username, password)
	require.NoError(e.T, e.DB.Model(user).Updates(map[string]any{"is_root": true, "is_staff": true}).Error)
	user.IsRoot = true
	user.IsStaff = true
	return user
}

// TokenPair mirrors the issued token payload.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// UserPayload captures the subset of user fields returned from auth endpoints.
type UserPayload struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	IsRoot      bool     `json:"is_root"`
	IsStaff     bool     `json:"is_staff"`
	IsActive    bool     `json:"is_active"`
	Permissions []string `json:"permissions"`
}

// LoginResult bundles the JSON response from POST /api/auth/login.
type LoginResult struct {
	Tokens TokenPair   `json:"tokens"`
	User   UserPayload `json:"user"`
}

// Login authenticates using the local provider and returns the issued token pair.
func (e *Env) Login(username, password string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"identifier": username,
		"password":   password,
	}

	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Tokens.AccessToken)
	require.NotEmpty(e.T, result.Tokens.RefreshToken)
	require.Equal(e.T, username, result.User.Username)

	return result
}

// Token creates a user in groups and returns an access token for it.
func (e *Env) Token(username string, groups ...string) (*models.User, string) {
	e.T.Helper()

	user := e.CreateUser(username, "password123", groups...)
	return user, e.Login(username, "password123").Tokens.AccessToken
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(req, token)
}

// File is one file part of a multipart upload.
type File struct {
	Field   string
	Name    string
	Content []byte
}

// Upload sends a multipart/form-data request with the given form fields and files.
func (e *Env) Upload(method, path string, fields map[string]string, files []File, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(e.T, writer.WriteField(name, value))
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f.Field, f.Name)
		require.NoError(e.T, err)
		_, err = part.Write(f.Content)
		require.NoError(e.T, err)
	}
	require.NoError(e.T, writer.Close())

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.serve(req, token)
}

func (e *Env) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
