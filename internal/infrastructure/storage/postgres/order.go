package postgres

import (
	"strings"

	"flowdesk/internal/core/apperror"
)

// ParseOrderBy converts "name" / "-created_at" into an ORDER BY clause using
// a whitelist of field -> column mappings.
func ParseOrderBy(orderBy string, allowed map[string]string, fallback string) (string, error) {
	if orderBy == "" {
		return fallback, nil
	}
	dir := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		dir = "DESC"
		field = orderBy[1:]
	}
	col, ok := allowed[field]
	if !ok {
		return "", apperror.NewValidation("invalid sort field").WithDetail("field", field)
	}
	return col + " " + dir, nil
}
