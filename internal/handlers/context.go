package handlers

import (
	"context"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/internal/middleware"
	"github.com/mysite19/mysite/internal/services"
	"github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/response"
)

const (
	defaultPerPage = 20
	maxPerPage     = 200
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID returns the authenticated user id, writing a 401 when there is none.
func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}

// currentActor resolves the authenticated user's flags for ownership checks.
func currentActor(c *gin.Context, checker middleware.Checker) (services.Actor, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return services.Actor{}, false
	}
	principal, err := checker.Principal(requestContext(c), userID)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return services.Actor{}, false
	}
	return services.Actor{
		UserID:   principal.UserID,
		Username: principal.Username,
		IsRoot:   principal.IsRoot,
		IsStaff:  principal.IsStaff,
	}, true
}

// uintParam parses a numeric path parameter, writing a 400 when it is not a positive integer.
func uintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || value == 0 {
		response.Error(c, errors.NewBadRequest("invalid "+name))
		return 0, false
	}
	return uint(value), true
}

// pageQuery reads page and per_page, clamping per_page to the listing maximum.
func pageQuery(c *gin.Context) services.Page {
	page := parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := parseIntQuery(c, "per_page", defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return services.Page{Number: page, Size: perPage}
}

func pageMeta(page services.Page, total int64) *response.Meta {
	return response.NewMeta(page.Number, page.Size, total)
}

// optionalBoolQuery parses true/false style query values; anything else means "not set".
func optionalBoolQuery(c *gin.Context, key string) *bool {
	value, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return nil
	}
	return &value
}

func optionalIntQuery(c *gin.Context, key string) *int {
	value, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return nil
	}
	return &value
}

// openUpload opens a multipart file as a service upload. The caller closes the returned file.
func openUpload(header *multipart.FileHeader) (services.Upload, multipart.File, error) {
	file, err := header.Open()
	if err != nil {
		return services.Upload{}, nil, err
	}
	return services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, file, nil
}
