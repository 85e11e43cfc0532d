package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/internal/services"
	"github.com/mysite19/mysite/pkg/response"
)

// BlogHandler serves articles and authors.
type BlogHandler struct {
	blog *services.BlogService
}

// NewBlogHandler constructs a BlogHandler.
func NewBlogHandler(blog *services.BlogService) *BlogHandler {
	return &BlogHandler{blog: blog}
}

// GET /api/blog/articles
func (h *BlogHandler) ListArticles(c *gin.Context) {
	page := pageQuery(c)
	articles, total, err := h.blog.ListArticles(requestContext(c), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, articles, pageMeta(page, total))
}

// GET /api/blog/articles/:id
func (h *BlogHandler) GetArticle(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	article, err := h.blog.GetArticle(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, article)
}

// POST /api/blog/articles
func (h *BlogHandler) CreateArticle(c *gin.Context) {
	var req services.ArticleInput
	if !bindAndValidate(c, &req) {
		return
	}
	article, err := h.blog.CreateArticle(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, article)
}

// POST /api/blog/authors
func (h *BlogHandler) CreateAuthor(c *gin.Context) {
	var req services.AuthorInput
	if !bindAndValidate(c, &req) {
		return
	}
	author, err := h.blog.CreateAuthor(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, author)
}

// GET /api/blog/authors/:id
func (h *BlogHandler) GetAuthor(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	author, err := h.blog.GetAuthor(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, author)
}
