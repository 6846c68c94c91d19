package memory

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
)

// containsFold reports whether any of fields contains search, ignoring case.
func containsFold(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

// sortKeys maps an order-by column to a comparable extractor.
type sortKeys[T any] map[string]func(T) string

// sortItems orders items by filter.OrderBy ("name", "-created_at").
// Unknown columns fall back to newest first.
func sortItems[T any](items []T, orderBy string, keys sortKeys[T], created func(T) time.Time) {
	desc := strings.HasPrefix(orderBy, "-")
	key, ok := keys[strings.TrimPrefix(orderBy, "-")]
	if !ok {
		slices.SortStableFunc(items, func(a, b T) int {
			return created(b).Compare(created(a))
		})
		return
	}
	slices.SortStableFunc(items, func(a, b T) int {
		c := cmp.Compare(key(a), key(b))
		if desc {
			return -c
		}
		return c
	})
}

func page[T any](items []T, f domain.ListFilter) domain.ListResult[T] {
	f.Normalize()
	return domain.Paginate(items, f)
}

func matchID(want *id.ID, got *id.ID) bool {
	if want == nil {
		return true
	}
	return got != nil && *got == *want
}
