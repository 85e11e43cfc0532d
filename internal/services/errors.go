package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/mysite19/mysite/pkg/errors"
)

var (
	ErrProductNotFound  = apperrors.New("PRODUCT_NOT_FOUND", "Product not found", http.StatusNotFound)
	ErrOrderNotFound    = apperrors.New("ORDER_NOT_FOUND", "Order not found", http.StatusNotFound)
	ErrUserNotFound     = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	ErrProfileNotFound  = apperrors.New("PROFILE_NOT_FOUND", "Profile not found", http.StatusNotFound)
	ErrArticleNotFound  = apperrors.New("ARTICLE_NOT_FOUND", "Article not found", http.StatusNotFound)
	ErrAuthorNotFound   = apperrors.New("AUTHOR_NOT_FOUND", "Author not found", http.StatusNotFound)
	ErrGroupNotFound    = apperrors.New("GROUP_NOT_FOUND", "Group not found", http.StatusNotFound)
	ErrCategoryExists   = apperrors.New("CATEGORY_EXISTS", "Category already exists", http.StatusBadRequest)
	ErrNotProductOwner  = apperrors.New("NOT_PRODUCT_OWNER", "Only the product's creator may change it", http.StatusForbidden)
	ErrUsernameTaken    = apperrors.New("USERNAME_TAKEN", "A user with that username already exists", http.StatusBadRequest)
	ErrGroupNameTaken   = apperrors.New("GROUP_EXISTS", "A group with that name already exists", http.StatusBadRequest)
	ErrAgreementMissing = apperrors.New("AGREEMENT_REQUIRED", "The user agreement must be accepted", http.StatusBadRequest)
)

// isUniqueConstraintError detects uniqueness violations across the supported databases.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") || strings.Contains(lower, "duplicate")
}
