package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/models"
	apperrors "github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/validator"
)

// ArticleInput creates an article together with its category and tags.
type ArticleInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Content     string `json:"content"`
	AuthorID    uint   `json:"author" validate:"required"`
	NewCategory string `json:"new_category" validate:"required,max=40"`
	// NewTags is a comma separated list; existing tags are matched case-insensitively.
	NewTags string `json:"new_tags"`
}

// AuthorInput carries the writable author fields.
type AuthorInput struct {
	Name string `json:"name" validate:"required,max=100"`
	Bio  string `json:"bio"`
}

// BlogService manages articles and authors.
type BlogService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBlogService constructs a BlogService.
func NewBlogService(db *gorm.DB) (*BlogService, error) {
	if db == nil {
		return nil, errors.New("blog service: db is required")
	}
	return &BlogService{db: db, now: time.Now}, nil
}

// ListArticles returns one page of articles, newest first, without their content.
func (s *BlogService) ListArticles(ctx context.Context, page Page) ([]models.Article, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Article{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("blog service: count articles: %w", err)
	}

	var articles []models.Article
	err := page.apply(query).
		Omit("content").
		Preload("Author").
		Preload("Category").
		Preload("Tags").
		Order("pub_date DESC, id DESC").
		Find(&articles).Error
	if err != nil {
		return nil, 0, fmt.Errorf("blog service: list articles: %w", err)
	}
	return articles, total, nil
}

// GetArticle returns one article with all relations.
func (s *BlogService) GetArticle(ctx context.Context, id uint) (*models.Article, error) {
	ctx = ensureContext(ctx)

	var article models.Article
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Category").
		Preload("Tags").
		First(&article, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, fmt.Errorf("blog service: get article: %w", err)
	}
	return &article, nil
}

// CreateArticle stores an article under a brand new category. A category whose name
// already exists (ignoring case) is rejected.
func (s *BlogService) CreateArticle(ctx context.Context, input ArticleInput) (*models.Article, error) {
	ctx = ensureContext(ctx)

	input.NewCategory = strings.TrimSpace(input.NewCategory)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.ErrValidation.WithDetails(err)
	}
	tagNames, err := splitTags(input.NewTags)
	if err != nil {
		return nil, err
	}

	var articleID uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var authors int64
		if err := tx.Model(&models.Author{}).Where("id = ?", input.AuthorID).Count(&authors).Error; err != nil {
			return fmt.Errorf("blog service: lookup author: %w", err)
		}
		if authors == 0 {
			return ErrAuthorNotFound
		}

		var existing int64
		if err := tx.Model(&models.Category{}).Where("LOWER(name) = ?", strings.ToLower(input.NewCategory)).Count(&existing).Error; err != nil {
			return fmt.Errorf("blog service: lookup category: %w", err)
		}
		if existing > 0 {
			return ErrCategoryExists
		}
		category := models.Category{Name: input.NewCategory}
		if err := tx.Create(&category).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrCategoryExists
			}
			return fmt.Errorf("blog service: create category: %w", err)
		}

		tags, err := findOrCreateTags(tx, tagNames)
		if err != nil {
			return err
		}

		article := models.Article{
			Title:      strings.TrimSpace(input.Title),
			Content:    input.Content,
			PubDate:    s.now().UTC(),
			AuthorID:   input.AuthorID,
			CategoryID: category.ID,
		}
		if err := tx.Omit("Tags").Create(&article).Error; err != nil {
			return fmt.Errorf("blog service: create article: %w", err)
		}
		if len(tags) > 0 {
			if err := tx.Model(&article).Association("Tags").Append(tags); err != nil {
				return fmt.Errorf("blog service: attach tags: %w", err)
			}
		}
		articleID = article.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetArticle(ctx, articleID)
}

// LatestArticles returns the n most recently published articles.
func (s *BlogService) LatestArticles(ctx context.Context, n int) ([]models.Article, error) {
	ctx = ensureContext(ctx)

	var articles []models.Article
	if err := s.db.WithContext(ctx).Order("pub_date DESC, id DESC").Limit(n).Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("blog service: latest articles: %w", err)
	}
	return articles, nil
}

// CreateAuthor stores a new author.
func (s *BlogService) CreateAuthor(ctx context.Context, input AuthorInput) (*models.Author, error) {
	ctx = ensureContext(ctx)

	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.ErrValidation.WithDetails(err)
	}
	author := models.Author{Name: strings.TrimSpace(input.Name), Bio: input.Bio}
	if err := s.db.WithContext(ctx).Create(&author).Error; err != nil {
		return nil, fmt.Errorf("blog service: create author: %w", err)
	}
	return &author, nil
}

// GetAuthor returns one author.
func (s *BlogService) GetAuthor(ctx context.Context, id uint) (*models.Author, error) {
	ctx = ensureContext(ctx)

	var author models.Author
	if err := s.db.WithContext(ctx).First(&author, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuthorNotFound
		}
		return nil, fmt.Errorf("blog service: get author: %w", err)
	}
	return &author, nil
}

func splitTags(raw string) ([]string, error) {
	var names []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if len(name) > 20 {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("tag %q is longer than 20 characters", name))
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

func findOrCreateTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		var tag models.Tag
		err := tx.Where("LOWER(name) = ?", strings.ToLower(name)).First(&tag).Error
		switch {
		case err == nil:
		case errors.Is(err, gorm.ErrRecordNotFound):
			tag = models.Tag{Name: name}
			if err := tx.Create(&tag).Error; err != nil {
				return nil, fmt.Errorf("blog service: create tag: %w", err)
			}
		default:
			return nil, fmt.Errorf("blog service: lookup tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
