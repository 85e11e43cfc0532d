package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/internal/services"
	"github.com/mysite19/mysite/pkg/response"
)

// GroupHandler manages permission groups.
type GroupHandler struct {
	groups *services.GroupService
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groups *services.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

type addMemberRequest struct {
	UserID string `json:"user" validate:"required"`
}

// GET /api/groups
func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.groups.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, groups)
}

// POST /api/groups
func (h *GroupHandler) Create(c *gin.Context) {
	var req services.GroupInput
	if !bindAndValidate(c, &req) {
		return
	}
	group, err := h.groups.Create(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, group)
}

// POST /api/groups/:id/members
func (h *GroupHandler) AddMember(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req addMemberRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.groups.AddMember(requestContext(c), id, req.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"added": true})
}
