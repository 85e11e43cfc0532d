package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/mysite19/mysite/internal/auth"
	"github.com/mysite19/mysite/internal/auth/providers"
	"github.com/mysite19/mysite/internal/middleware"
	"github.com/mysite19/mysite/internal/models"
	"github.com/mysite19/mysite/internal/permissions"
	"github.com/mysite19/mysite/internal/services"
	"github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/metrics"
	"github.com/mysite19/mysite/pkg/response"
)

// AuthHandler manages registration and authentication flows (register/login/refresh/logout/me).
type AuthHandler struct {
	db       *gorm.DB
	accounts *services.AccountService
	sessions *iauth.SessionService
	checker  *permissions.Checker
	local    providers.LocalConfig
}

// NewAuthHandler constructs an AuthHandler. local tunes the password lockout.
func NewAuthHandler(db *gorm.DB, accounts *services.AccountService, sessions *iauth.SessionService, checker *permissions.Checker, local providers.LocalConfig) *AuthHandler {
	return &AuthHandler{db: db, accounts: accounts, sessions: sessions, checker: checker, local: local}
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.accounts.Register(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	pair, _, err := h.sessions.CreateSession(requestContext(c), user, h.metadata(c))
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"tokens": pair,
		"user":   userPayload(user, nil),
	})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" {
		response.Error(c, errors.NewBadRequest("identifier is required"))
		return
	}

	lp, err := providers.NewLocalProvider(h.db, h.local)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInternalServer)
		return
	}

	user, err := lp.Authenticate(requestContext(c), providers.AuthenticateInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		// Normalise auth errors to 401
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	pair, _, err := h.sessions.CreateSession(requestContext(c), user, h.metadata(c))
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInternalServer)
		return
	}
	metrics.AuthAttempts.WithLabelValues("success").Inc()

	perms, _ := h.checker.GetUserPermissions(requestContext(c), user.ID)
	response.Success(c, http.StatusOK, gin.H{
		"tokens": pair,
		"user":   userPayload(user, perms),
	})
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, _, err := h.sessions.RefreshSession(requestContext(c), req.RefreshToken)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	response.Success(c, http.StatusOK, pair)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sid := c.GetString(middleware.CtxSessionIDKey)
	if sid == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	if err := h.sessions.RevokeSession(requestContext(c), sid); err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.accounts.Me(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	perms, _ := h.checker.GetUserPermissions(requestContext(c), user.ID)
	response.Success(c, http.StatusOK, userPayload(user, perms))
}

// PUT /api/auth/me/avatar
func (h *AuthHandler) UpdateAvatar(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	header, err := c.FormFile("avatar")
	if err != nil {
		response.Error(c, errors.NewBadRequest("avatar file is required"))
		return
	}
	upload, file, err := openUpload(header)
	if err != nil {
		response.Error(c, errors.NewBadRequest("avatar file could not be read"))
		return
	}
	defer file.Close()

	profile, err := h.accounts.UpdateAvatar(requestContext(c), userID, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

func (h *AuthHandler) metadata(c *gin.Context) iauth.SessionMetadata {
	return iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func userPayload(user *models.User, perms []string) gin.H {
	if perms == nil {
		perms = []string{}
	}
	payload := gin.H{
		"id":          user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"first_name":  user.FirstName,
		"last_name":   user.LastName,
		"is_root":     user.IsRoot,
		"is_staff":    user.IsStaff,
		"is_active":   user.IsActive,
		"permissions": perms,
	}
	if user.Profile != nil {
		payload["profile"] = user.Profile
	}
	return payload
}
