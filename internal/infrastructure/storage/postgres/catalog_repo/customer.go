package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/catalogs/customer"
	"flowdesk/internal/infrastructure/storage/postgres"
)

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	*BaseCatalogRepo[*customer.Customer]
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txm *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			"cat_customers",
			"customer",
			postgres.ExtractDBColumns[customer.Customer](),
			[]string{"name", "email", "phone", "company_name"},
			func() *customer.Customer { return &customer.Customer{} },
		),
	}
}

var _ customer.Repository = (*CustomerRepo)(nil)

func (r *CustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	return r.Insert(ctx, c, nil)
}

func (r *CustomerRepo) GetByID(ctx context.Context, ownerID, customerID id.ID) (*customer.Customer, error) {
	return r.Get(ctx, ownerID, customerID, false)
}

func (r *CustomerRepo) GetForUpdate(ctx context.Context, ownerID, customerID id.ID) (*customer.Customer, error) {
	return r.Get(ctx, ownerID, customerID, true)
}

func (r *CustomerRepo) Update(ctx context.Context, c *customer.Customer) error {
	next, err := r.UpdateVersioned(ctx, c, nil)
	if err != nil {
		return err
	}
	c.Version = next
	return nil
}

func (r *CustomerRepo) List(ctx context.Context, ownerID id.ID, filter customer.ListFilter) (domain.ListResult[*customer.Customer], error) {
	return r.BaseCatalogRepo.List(ctx, ownerID, filter.ListFilter, func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.Status != "" {
			q = q.Where(squirrel.Eq{"status": filter.Status})
		}
		if filter.Loyalty != "" {
			q = q.Where(squirrel.Eq{"loyalty_status": filter.Loyalty})
		}
		return q
	})
}
