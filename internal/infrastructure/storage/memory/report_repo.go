package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"

	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain/billing"
	"flowdesk/internal/domain/documents/sale"
	"flowdesk/internal/domain/reports"
)

var _ reports.Repository = (*ReportRepo)(nil)

// ReportRepo implements reports.Repository by scanning sales.
type ReportRepo struct {
	store *Store
}

// inRange returns the filtered sales with their lines.
func (r *ReportRepo) inRange(ctx context.Context, f reports.SalesFilter) []saleWithLines {
	var out []saleWithLines
	_ = r.store.do(ctx, func(st *state) error {
		for docID, doc := range st.sales {
			if doc.OwnerID != f.OwnerID || doc.SoldAt.Before(f.From) || !doc.SoldAt.Before(f.To) {
				continue
			}
			out = append(out, saleWithLines{sale: doc, lines: st.saleLines[docID]})
		}
		return nil
	})
	return out
}

type saleWithLines struct {
	sale  sale.Sale
	lines []billing.LineItem
}

func (r *ReportRepo) SalesTotals(ctx context.Context, f reports.SalesFilter) (reports.SalesTotals, error) {
	totals := reports.SalesTotals{Revenue: types.Zero(), Refunded: types.Zero()}
	for _, s := range r.inRange(ctx, f) {
		totals.Count++
		totals.Revenue = totals.Revenue.Add(s.sale.Total)
		totals.Refunded = totals.Refunded.Add(s.sale.RefundAmount)
	}
	return totals, nil
}

func (r *ReportRepo) SalesByPaymentMethod(ctx context.Context, f reports.SalesFilter) ([]reports.Breakdown, error) {
	return groupSales(r.inRange(ctx, f), func(s sale.Sale) string { return string(s.PaymentMethod) }), nil
}

func (r *ReportRepo) SalesByChannel(ctx context.Context, f reports.SalesFilter) ([]reports.Breakdown, error) {
	return groupSales(r.inRange(ctx, f), func(s sale.Sale) string { return string(s.Channel) }), nil
}

func (r *ReportRepo) DailySales(ctx context.Context, f reports.SalesFilter) ([]reports.DailyTotal, error) {
	groups := groupSales(r.inRange(ctx, f), func(s sale.Sale) string {
		return s.SoldAt.UTC().Format("2006-01-02")
	})
	out := make([]reports.DailyTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, reports.DailyTotal{Date: g.Key, Count: g.Count, Total: g.Total})
	}
	return out, nil
}

func (r *ReportRepo) TopProducts(ctx context.Context, f reports.SalesFilter) ([]reports.ProductSales, error) {
	byProduct := make(map[id.ID]*reports.ProductSales)
	for _, s := range r.inRange(ctx, f) {
		for _, l := range s.lines {
			ps, ok := byProduct[l.ProductID]
			if !ok {
				ps = &reports.ProductSales{ProductID: l.ProductID, Name: l.Name, Revenue: types.Zero()}
				byProduct[l.ProductID] = ps
			}
			ps.Quantity += l.Quantity
			ps.Revenue = ps.Revenue.Add(l.Total)
		}
	}

	out := make([]reports.ProductSales, 0, len(byProduct))
	for _, ps := range byProduct {
		out = append(out, *ps)
	}
	slices.SortFunc(out, func(a, b reports.ProductSales) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if f.TopN > 0 && len(out) > f.TopN {
		out = out[:f.TopN]
	}
	return out, nil
}

func groupSales(items []saleWithLines, key func(sale.Sale) string) []reports.Breakdown {
	groups := make(map[string]*reports.Breakdown)
	for _, s := range items {
		k := key(s.sale)
		g, ok := groups[k]
		if !ok {
			g = &reports.Breakdown{Key: k, Total: types.Zero()}
			groups[k] = g
		}
		g.Count++
		g.Total = g.Total.Add(s.sale.Total)
	}

	out := make([]reports.Breakdown, 0, len(groups))
	for _, k := range slices.Sorted(maps.Keys(groups)) {
		out = append(out, *groups[k])
	}
	return out
}
