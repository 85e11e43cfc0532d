package handlers

import (
	"encoding/xml"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/internal/services"
	"github.com/mysite19/mysite/pkg/response"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// SitemapHandler lists the newest articles and every product on sale.
type SitemapHandler struct {
	products *services.ProductService
	blog     *services.BlogService
}

// NewSitemapHandler constructs a SitemapHandler.
func NewSitemapHandler(products *services.ProductService, blog *services.BlogService) *SitemapHandler {
	return &SitemapHandler{products: products, blog: blog}
}

// GET /sitemap.xml
func (h *SitemapHandler) Get(c *gin.Context) {
	ctx := requestContext(c)
	articles, err := h.blog.LatestArticles(ctx, feedSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	products, err := h.products.Active(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}

	base := absoluteBase(c)
	set := urlSet{XMLNS: sitemapNamespace}
	for _, article := range articles {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        fmt.Sprintf("%s/api/blog/articles/%d", base, article.ID),
			LastMod:    article.PubDate.UTC().Format("2006-01-02"),
			ChangeFreq: "never",
			Priority:   "0.5",
		})
	}
	for _, product := range products {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        fmt.Sprintf("%s/api/shop/products/%d", base, product.ID),
			LastMod:    product.CreatedAt.UTC().Format("2006-01-02"),
			ChangeFreq: "daily",
			Priority:   "0.8",
		})
	}
	writeXML(c, "application/xml; charset=utf-8", set)
}
