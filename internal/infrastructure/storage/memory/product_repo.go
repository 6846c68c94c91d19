package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/catalogs/product"
)

var _ product.Repository = (*ProductRepo)(nil)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	store *Store
}

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	return r.store.do(ctx, func(st *state) error {
		if _, ok := st.products[p.ID]; ok {
			return apperror.NewDuplicate("product", "id", p.ID.String())
		}
		for _, other := range st.products {
			if other.OwnerID == p.OwnerID && other.SKU == p.SKU {
				return apperror.NewDuplicate("product", "sku", p.SKU)
			}
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r *ProductRepo) GetByID(ctx context.Context, ownerID, productID id.ID) (*product.Product, error) {
	var out *product.Product
	err := r.store.do(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok || p.OwnerID != ownerID {
			return apperror.NewNotFound("product", productID)
		}
		out = &p
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID: inside a transaction the store lock is the row lock.
func (r *ProductRepo) GetForUpdate(ctx context.Context, ownerID, productID id.ID) (*product.Product, error) {
	return r.GetByID(ctx, ownerID, productID)
}

func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	return r.store.do(ctx, func(st *state) error {
		stored, ok := st.products[p.ID]
		if !ok || stored.OwnerID != p.OwnerID {
			return apperror.NewNotFound("product", p.ID)
		}
		if stored.Version != p.Version {
			return apperror.NewConcurrentModification("product", p.ID)
		}
		for _, other := range st.products {
			if other.ID != p.ID && other.OwnerID == p.OwnerID && other.SKU == p.SKU {
				return apperror.NewDuplicate("product", "sku", p.SKU)
			}
		}
		p.Version++
		p.CreatedAt = stored.CreatedAt
		st.products[p.ID] = *p
		return nil
	})
}

func (r *ProductRepo) Delete(ctx context.Context, ownerID, productID id.ID) error {
	return r.store.do(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok || p.OwnerID != ownerID {
			return apperror.NewNotFound("product", productID)
		}
		delete(st.products, productID)
		return nil
	})
}

func (r *ProductRepo) List(ctx context.Context, ownerID id.ID, filter product.ListFilter) (domain.ListResult[*product.Product], error) {
	var items []*product.Product
	_ = r.store.do(ctx, func(st *state) error {
		for _, p := range st.products {
			if p.OwnerID != ownerID {
				continue
			}
			if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
				continue
			}
			if filter.Status != "" && p.Status != filter.Status {
				continue
			}
			if filter.LowStock && !p.IsLowStock {
				continue
			}
			if !containsFold(filter.Search, p.Name, p.SKU, p.Barcode, p.Brand, p.Description) {
				continue
			}
			items = append(items, &p)
		}
		return nil
	})

	sortItems(items, filter.OrderBy, sortKeys[*product.Product]{
		"name":     func(p *product.Product) string { return p.Name },
		"sku":      func(p *product.Product) string { return p.SKU },
		"category": func(p *product.Product) string { return p.Category },
	}, func(p *product.Product) time.Time { return p.CreatedAt })

	return page(items, filter.ListFilter), nil
}

func (r *ProductRepo) ExistsBySKU(ctx context.Context, ownerID id.ID, sku string, excludeID id.ID) (bool, error) {
	var exists bool
	_ = r.store.do(ctx, func(st *state) error {
		for _, p := range st.products {
			if p.OwnerID == ownerID && p.SKU == sku && p.ID != excludeID {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, nil
}

func (r *ProductRepo) Categories(ctx context.Context, ownerID id.ID) ([]string, error) {
	seen := make(map[string]struct{})
	_ = r.store.do(ctx, func(st *state) error {
		for _, p := range st.products {
			if p.OwnerID == ownerID && p.Category != "" {
				seen[p.Category] = struct{}{}
			}
		}
		return nil
	})
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (r *ProductRepo) FindLowStock(ctx context.Context, ownerID id.ID) ([]*product.Product, error) {
	var out []*product.Product
	_ = r.store.do(ctx, func(st *state) error {
		for _, p := range st.products {
			if p.OwnerID == ownerID && p.Status == product.StatusActive && p.IsLowStock {
				out = append(out, &p)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *product.Product) int {
		if a.Stock != b.Stock {
			if a.Stock < b.Stock {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}
