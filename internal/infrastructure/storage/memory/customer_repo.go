package memory

import (
	"context"
	"time"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/catalogs/customer"
)

var _ customer.Repository = (*CustomerRepo)(nil)

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	store *Store
}

func (r *CustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	return r.store.do(ctx, func(st *state) error {
		if _, ok := st.customers[c.ID]; ok {
			return apperror.NewDuplicate("customer", "id", c.ID.String())
		}
		st.customers[c.ID] = *c
		return nil
	})
}

func (r *CustomerRepo) GetByID(ctx context.Context, ownerID, customerID id.ID) (*customer.Customer, error) {
	var out *customer.Customer
	err := r.store.do(ctx, func(st *state) error {
		c, ok := st.customers[customerID]
		if !ok || c.OwnerID != ownerID {
			return apperror.NewNotFound("customer", customerID)
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *CustomerRepo) GetForUpdate(ctx context.Context, ownerID, customerID id.ID) (*customer.Customer, error) {
	return r.GetByID(ctx, ownerID, customerID)
}

func (r *CustomerRepo) Update(ctx context.Context, c *customer.Customer) error {
	return r.store.do(ctx, func(st *state) error {
		stored, ok := st.customers[c.ID]
		if !ok || stored.OwnerID != c.OwnerID {
			return apperror.NewNotFound("customer", c.ID)
		}
		if stored.Version != c.Version {
			return apperror.NewConcurrentModification("customer", c.ID)
		}
		c.Version++
		st.customers[c.ID] = *c
		return nil
	})
}

func (r *CustomerRepo) Delete(ctx context.Context, ownerID, customerID id.ID) error {
	return r.store.do(ctx, func(st *state) error {
		c, ok := st.customers[customerID]
		if !ok || c.OwnerID != ownerID {
			return apperror.NewNotFound("customer", customerID)
		}
		delete(st.customers, customerID)
		return nil
	})
}

func (r *CustomerRepo) List(ctx context.Context, ownerID id.ID, filter customer.ListFilter) (domain.ListResult[*customer.Customer], error) {
	var items []*customer.Customer
	_ = r.store.do(ctx, func(st *state) error {
		for _, c := range st.customers {
			if c.OwnerID != ownerID {
				continue
			}
			if filter.Status != "" && c.Status != filter.Status {
				continue
			}
			if filter.Loyalty != "" && c.LoyaltyStatus != filter.Loyalty {
				continue
			}
			if !containsFold(filter.Search, c.Name, c.Email, c.Phone, c.CompanyName) {
				continue
			}
			items = append(items, &c)
		}
		return nil
	})

	sortItems(items, filter.OrderBy, sortKeys[*customer.Customer]{
		"name":  func(c *customer.Customer) string { return c.Name },
		"email": func(c *customer.Customer) string { return c.Email },
	}, func(c *customer.Customer) time.Time { return c.CreatedAt })

	return page(items, filter.ListFilter), nil
}
