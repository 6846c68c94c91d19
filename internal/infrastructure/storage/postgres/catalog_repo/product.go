package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/catalogs/product"
	"flowdesk/internal/infrastructure/storage/postgres"
)

const (
	productTable         = "cat_products"
	productSKUConstraint = "uq_cat_products_owner_sku"
)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			productTable,
			"product",
			postgres.ExtractDBColumns[product.Product](),
			[]string{"name", "sku", "barcode", "brand"},
			func() *product.Product { return &product.Product{} },
		),
	}
}

var _ product.Repository = (*ProductRepo)(nil)

func (r *ProductRepo) skuConflict(p *product.Product) func(string) error {
	return func(constraint string) error {
		if constraint == productSKUConstraint {
			return apperror.NewDuplicate("product", "sku", p.SKU)
		}
		return apperror.NewConflict("product violates unique constraint " + constraint)
	}
}

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	return r.Insert(ctx, p, r.skuConflict(p))
}

func (r *ProductRepo) GetByID(ctx context.Context, ownerID, productID id.ID) (*product.Product, error) {
	return r.Get(ctx, ownerID, productID, false)
}

func (r *ProductRepo) GetForUpdate(ctx context.Context, ownerID, productID id.ID) (*product.Product, error) {
	return r.Get(ctx, ownerID, productID, true)
}

func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	next, err := r.UpdateVersioned(ctx, p, r.skuConflict(p))
	if err != nil {
		return err
	}
	p.Version = next
	return nil
}

func (r *ProductRepo) List(ctx context.Context, ownerID id.ID, filter product.ListFilter) (domain.ListResult[*product.Product], error) {
	return r.BaseCatalogRepo.List(ctx, ownerID, filter.ListFilter, func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.Category != "" {
			q = q.Where(squirrel.Eq{"category": filter.Category})
		}
		if filter.Status != "" {
			q = q.Where(squirrel.Eq{"status": filter.Status})
		}
		if filter.LowStock {
			q = q.Where(squirrel.Eq{"is_low_stock": true})
		}
		return q
	})
}

func (r *ProductRepo) ExistsBySKU(ctx context.Context, ownerID id.ID, sku string, excludeID id.ID) (bool, error) {
	q := r.Builder().
		Select("1").
		From(productTable).
		Where(squirrel.Eq{"owner_id": ownerID, "sku": sku})
	if !id.IsNil(excludeID) {
		q = q.Where(squirrel.NotEq{"id": excludeID})
	}

	sql, args, err := q.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var exists bool
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check sku: %w", err)
	}
	return exists, nil
}

func (r *ProductRepo) Categories(ctx context.Context, ownerID id.ID) ([]string, error) {
	sql, args, err := r.Builder().
		Select("DISTINCT category").
		From(productTable).
		Where(squirrel.Eq{"owner_id": ownerID}).
		Where(squirrel.NotEq{"category": ""}).
		OrderBy("category").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build categories query: %w", err)
	}

	var categories []string
	if err := pgxscan.Select(ctx, r.querier(ctx), &categories, sql, args...); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *ProductRepo) FindLowStock(ctx context.Context, ownerID id.ID) ([]*product.Product, error) {
	sql, args, err := r.baseSelect(ownerID).
		Where(squirrel.Eq{"is_low_stock": true, "status": product.StatusActive}).
		OrderBy("stock", "name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build low stock query: %w", err)
	}

	var items []*product.Product
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("find low stock: %w", err)
	}
	return items, nil
}
