package services

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// Actor is the authenticated user on whose behalf a service call runs.
type Actor struct {
	UserID   string
	Username string
	IsRoot   bool
	IsStaff  bool
}

// Page selects one page of a listing. Zero values mean page 1 with the default size.
type Page struct {
	Number int
	Size   int
}

func (p Page) normalise() Page {
	if p.Number <= 0 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

func (p Page) apply(query *gorm.DB) *gorm.DB {
	p = p.normalise()
	return query.Offset((p.Number - 1) * p.Size).Limit(p.Size)
}

// orderClause turns "-price" style ordering into SQL, accepting only allowed fields.
func orderClause(ordering string, allowed map[string]string, fallback string) string {
	var parts []string
	for _, field := range strings.Split(ordering, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		column, ok := allowed[strings.TrimPrefix(field, "-")]
		if !ok {
			continue
		}
		if desc {
			column += " DESC"
		}
		parts = append(parts, column)
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, ", ")
}

func likePattern(term string) string {
	return "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func dedupeUint(values []uint) []uint {
	seen := make(map[uint]struct{}, len(values))
	out := make([]uint, 0, len(values))
	for _, v := range values {
		if v == 0 {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
