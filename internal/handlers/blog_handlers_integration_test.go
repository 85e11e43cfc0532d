package handlers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mysite19/mysite/internal/handlers/testutil"
	"github.com/mysite19/mysite/internal/models"
)

func createAuthor(t *testing.T, env *testutil.Env, token, name string) models.Author {
	t.Helper()
	w := env.Request(http.MethodPost, "/api/blog/authors", map[string]any{"name": name, "bio": "writes"}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var author models.Author
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &author)
	return author
}

func TestCreateArticleWithNewCategoryAndTags(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.Token("editor", "editors")
	author := createAuthor(t, env, token, "Grace")

	w := env.Request(http.MethodPost, "/api/blog/articles", map[string]any{
		"title":        "Hello",
		"content":      "First post body",
		"author":       author.ID,
		"new_category": "News",
		"new_tags":     "go, Go , web,",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var article models.Article
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &article)
	require.Equal(t, "Hello", article.Title)
	require.NotNil(t, article.Category)
	require.Equal(t, "News", article.Category.Name)
	require.Len(t, article.Tags, 2)

	conflict := env.Request(http.MethodPost, "/api/blog/articles", map[string]any{
		"title":        "Again",
		"author":       author.ID,
		"new_category": "news",
	}, token)
	require.Equal(t, http.StatusBadRequest, conflict.Code, conflict.Body.String())
	require.Equal(t, "CATEGORY_EXISTS", testutil.DecodeResponse(t, conflict).Error.Code)

	unknownAuthor := env.Request(http.MethodPost, "/api/blog/articles", map[string]any{
		"title":        "Orphan",
		"author":       author.ID + 100,
		"new_category": "Elsewhere",
	}, token)
	require.Equal(t, http.StatusNotFound, unknownAuthor.Code)

	got := env.Request(http.MethodGet, fmt.Sprintf("/api/blog/articles/%d", article.ID), nil, token)
	require.Equal(t, http.StatusOK, got.Code, got.Body.String())
	require.Contains(t, got.Body.String(), "First post body")

	list := env.Request(http.MethodGet, "/api/blog/articles", nil, token)
	require.Equal(t, http.StatusOK, list.Code, list.Body.String())
	resp := testutil.DecodeResponse(t, list)
	require.Equal(t, 1, resp.Meta.Total)
	require.NotContains(t, string(resp.Data), "First post body")
}

func TestBlogRequiresAuthAndPermissions(t *testing.T) {
	env := testutil.NewEnv(t)
	_, customerToken := env.Token("customer", "customers")

	w := env.Request(http.MethodGet, "/api/blog/articles", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.Request(http.MethodPost, "/api/blog/authors", map[string]any{"name": "Nope"}, customerToken)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.Request(http.MethodGet, "/api/blog/authors/999", nil, customerToken)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestArticlesFeed(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.Token("editor", "editors")
	author := createAuthor(t, env, token, "Grace")

	for i := 0; i < 6; i++ {
		w := env.Request(http.MethodPost, "/api/blog/articles", map[string]any{
			"title":        fmt.Sprintf("Post %d", i),
			"content":      "A rather long article body",
			"author":       author.ID,
			"new_category": fmt.Sprintf("cat-%d", i),
		}, token)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := env.Request(http.MethodGet, "/blog/articles/latest/feed", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	require.Contains(t, body, "<title>Blog articles (latest)</title>")
	require.Equal(t, 5, strings.Count(body, "<item>"))
	require.Contains(t, body, "<description>A rather long a</description>")
	require.NotContains(t, body, "<title>Post 0</title>")
}

func TestSitemapListsArticlesAndActiveProducts(t *testing.T) {
	env := testutil.NewEnv(t)
	editor, token := env.Token("editor", "editors")
	author := createAuthor(t, env, token, "Grace")
	w := env.Request(http.MethodPost, "/api/blog/articles", map[string]any{
		"title":        "Mapped",
		"author":       author.ID,
		"new_category": "Maps",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var article models.Article
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &article)

	active := &models.Product{Name: "Desk", Price: decimal.RequireFromString("1"), CreatedByID: &editor.ID}
	archived := &models.Product{Name: "Old", Price: decimal.RequireFromString("1"), Archived: true, CreatedByID: &editor.ID}
	require.NoError(t, env.DB.Create(active).Error)
	require.NoError(t, env.DB.Create(archived).Error)

	w = env.Request(http.MethodGet, "/sitemap.xml", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	require.Contains(t, body, "<urlset")
	require.Contains(t, body, fmt.Sprintf("/api/blog/articles/%d</loc>", article.ID))
	require.Contains(t, body, fmt.Sprintf("/api/shop/products/%d</loc>", active.ID))
	require.NotContains(t, body, fmt.Sprintf("/api/shop/products/%d</loc>", archived.ID))
	require.Contains(t, body, "<changefreq>daily</changefreq>")
	require.Contains(t, body, "<changefreq>never</changefreq>")
}

func TestHealth(t *testing.T) {
	env := testutil.NewEnv(t)

	for _, path := range []string{"/health", "/api/health"} {
		w := env.Request(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusOK, w.Code, path)
		require.Contains(t, w.Body.String(), `"status":"up"`)
	}
}
