// Package reports provides sales analytics over committed sales.
package reports

import (
	"time"

	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
)

// SalesFilter selects the sales of one owner sold in [From, To).
type SalesFilter struct {
	OwnerID id.ID
	From    time.Time
	To      time.Time

	// TopN limits TopProducts.
	TopN int
}

// Breakdown is a count and total grouped by a key.
type Breakdown struct {
	Key   string      `db:"key" json:"key"`
	Count int64       `db:"count" json:"count"`
	Total types.Money `db:"total" json:"total"`
}

// DailyTotal aggregates sales of one calendar day (UTC).
type DailyTotal struct {
	Date  string      `db:"day" json:"date"`
	Count int64       `db:"count" json:"count"`
	Total types.Money `db:"total" json:"total"`
}

// ProductSales aggregates sold lines of one product.
type ProductSales struct {
	ProductID id.ID       `db:"product_id" json:"productId"`
	Name      string      `db:"name" json:"name"`
	Quantity  int64       `db:"quantity" json:"quantity"`
	Revenue   types.Money `db:"revenue" json:"revenue"`
}

// SalesTotals are the raw sums over the filtered sales.
type SalesTotals struct {
	Count    int64       `db:"count"`
	Revenue  types.Money `db:"revenue"`
	Refunded types.Money `db:"refunded"`
}

// SalesSummary is the analytics report.
type SalesSummary struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	SalesCount  int64       `json:"salesCount"`
	Revenue     types.Money `json:"revenue"`
	Refunded    types.Money `json:"refunded"`
	NetRevenue  types.Money `json:"netRevenue"`
	AverageSale types.Money `json:"averageSale"`

	ByPaymentMethod []Breakdown    `json:"byPaymentMethod"`
	ByChannel       []Breakdown    `json:"byChannel"`
	Daily           []DailyTotal   `json:"daily"`
	TopProducts     []ProductSales `json:"topProducts"`
}
