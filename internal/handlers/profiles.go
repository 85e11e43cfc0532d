package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/internal/services"
	"github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/response"
)

// ProfileHandler lets administrators manage user profiles.
type ProfileHandler struct {
	profiles *services.ProfileService
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GET /api/profiles
func (h *ProfileHandler) List(c *gin.Context) {
	filter := services.ProfileFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		UserID:   strings.TrimSpace(c.Query("user")),
		Position: c.Query("position"),
	}
	page := pageQuery(c)
	profiles, total, err := h.profiles.List(requestContext(c), filter, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, profiles, pageMeta(page, total))
}

// GET /api/profiles/:id
func (h *ProfileHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	profile, err := h.profiles.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// POST /api/profiles
func (h *ProfileHandler) Create(c *gin.Context) {
	var req services.ProfileInput
	if !bindAndValidate(c, &req) {
		return
	}
	profile, err := h.profiles.Create(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, profile)
}

// PUT /api/profiles/:id
func (h *ProfileHandler) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req services.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.NewBadRequest("invalid JSON payload"))
		return
	}
	profile, err := h.profiles.Update(requestContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// DELETE /api/profiles/:id
func (h *ProfileHandler) Delete(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.profiles.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// PUT /api/profiles/:id/avatar
func (h *ProfileHandler) SetAvatar(c *gin.Context) {
	id, ok := uintParam(c, "id")
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

	profile, err := h.profiles.SetAvatar(requestContext(c), id, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}
