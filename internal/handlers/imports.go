package handlers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/internal/middleware"
	"github.com/mysite19/mysite/internal/services"
	"github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/response"
)

// ImportHandler lists the caller's CSV import history.
type ImportHandler struct {
	imports *services.ImportService
}

// NewImportHandler constructs an ImportHandler.
func NewImportHandler(imports *services.ImportService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// GET /api/shop/imports
func (h *ImportHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page := pageQuery(c)
	jobs, total, err := h.imports.ListJobs(requestContext(c), userID, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, jobs, pageMeta(page, total))
}

// importRequest reads the multipart "file" field and the optional "encoding" field.
// The caller closes the returned file.
func importRequest(c *gin.Context, checker middleware.Checker) (services.ImportRequest, multipart.File, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errors.NewBadRequest("file is required"))
		return services.ImportRequest{}, nil, false
	}
	actor, ok := currentActor(c, checker)
	if !ok {
		return services.ImportRequest{}, nil, false
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, errors.ErrImportInvalidFile.WithInternal(err))
		return services.ImportRequest{}, nil, false
	}
	return services.ImportRequest{
		Body:     file,
		FileName: header.Filename,
		Encoding: strings.TrimSpace(c.PostForm("encoding")),
		Actor:    actor,
	}, file, true
}
