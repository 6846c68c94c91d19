package dto

import (
	"time"

	"flowdesk/internal/domain/reports"
)

// SalesAnalyticsRequest holds the query of GET /sales/analytics.
type SalesAnalyticsRequest struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
	Top  int        `form:"top" binding:"omitempty,min=1,max=50"`
}

// ToFilter converts the query. A date-only To includes that whole day.
func (r SalesAnalyticsRequest) ToFilter() reports.SalesFilter {
	var f reports.SalesFilter
	if r.From != nil {
		f.From = r.From.UTC()
	}
	if r.To != nil {
		f.To = r.To.UTC().AddDate(0, 0, 1)
	}
	f.TopN = r.Top
	return f
}
