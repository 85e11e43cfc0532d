package handlers

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/internal/services"
	"github.com/mysite19/mysite/pkg/response"
)

const (
	feedSize                  = 5
	productDescriptionPreview = 100
	articleDescriptionPreview = 15
)

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate,omitempty"`
}

// FeedHandler renders RSS 2.0 feeds of the newest products and articles.
type FeedHandler struct {
	products *services.ProductService
	blog     *services.BlogService
}

// NewFeedHandler constructs a FeedHandler.
func NewFeedHandler(products *services.ProductService, blog *services.BlogService) *FeedHandler {
	return &FeedHandler{products: products, blog: blog}
}

// GET /shop/products/latest/feed
func (h *FeedHandler) Products(c *gin.Context) {
	products, err := h.products.Latest(requestContext(c), feedSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	base := absoluteBase(c)
	channel := rssChannel{
		Title:       "The latest receipts of goods",
		Link:        base + "/api/shop/products",
		Description: "The latest and most delicious products",
	}
	for _, product := range products {
		link := fmt.Sprintf("%s/api/shop/products/%d", base, product.ID)
		channel.Items = append(channel.Items, rssItem{
			Title:       product.Name,
			Link:        link,
			Description: truncateRunes(product.Description, productDescriptionPreview),
			GUID:        link,
			PubDate:     product.CreatedAt.UTC().Format(time.RFC1123Z),
		})
	}
	if len(products) > 0 {
		channel.LastBuildDate = products[0].CreatedAt.UTC().Format(time.RFC1123Z)
	}
	writeXML(c, "application/rss+xml; charset=utf-8", rssDocument{Version: "2.0", Channel: channel})
}

// GET /blog/articles/latest/feed
func (h *FeedHandler) Articles(c *gin.Context) {
	articles, err := h.blog.LatestArticles(requestContext(c), feedSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	base := absoluteBase(c)
	channel := rssChannel{
		Title:       "Blog articles (latest)",
		Link:        base + "/api/blog/articles",
		Description: "Updates on changes and addition blog articles",
	}
	for _, article := range articles {
		link := fmt.Sprintf("%s/api/blog/articles/%d", base, article.ID)
		channel.Items = append(channel.Items, rssItem{
			Title:       article.Title,
			Link:        link,
			Description: truncateRunes(article.Content, articleDescriptionPreview),
			GUID:        link,
			PubDate:     article.PubDate.UTC().Format(time.RFC1123Z),
		})
	}
	if len(articles) > 0 {
		channel.LastBuildDate = articles[0].PubDate.UTC().Format(time.RFC1123Z)
	}
	writeXML(c, "application/rss+xml; charset=utf-8", rssDocument{Version: "2.0", Channel: channel})
}

func writeXML(c *gin.Context, contentType string, doc any) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, append([]byte(xml.Header), body...))
}

// absoluteBase returns scheme://host of the current request.
func absoluteBase(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
