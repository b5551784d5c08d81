// Package option provides composable gorm query options shared by
// repositories.
package option

import (
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(stmt *gorm.DB) *gorm.DB
}

type queryOptionFunc func(stmt *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(stmt *gorm.DB) *gorm.DB { return f(stmt) }

// WithLimit caps the number of returned rows.
func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return stmt
		}
		return stmt.Limit(limit)
	})
}

// WithOffset skips the first rows of the result set.
func WithOffset(offset int) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		if offset <= 0 {
			return stmt
		}
		return stmt.Offset(offset)
	})
}

// WithSortBy applies a pre-validated ORDER BY expression.
func WithSortBy(expr string) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		if strings.TrimSpace(expr) == "" {
			return stmt
		}
		return stmt.Order(expr)
	})
}

// WithQuerySortBy builds an ORDER BY expression from user-supplied sort and
// order values, restricted to the allowed column set. Unknown columns fall
// through to the empty expression so callers keep their default ordering.
func WithQuerySortBy(sortBy, orderBy string, allowed map[string]bool) string {
	column := strings.TrimSpace(strings.ToLower(sortBy))
	if column == "" || !allowed[column] {
		return ""
	}
	direction := "ASC"
	if strings.EqualFold(strings.TrimSpace(orderBy), "desc") {
		direction = "DESC"
	}
	return column + " " + direction
}
