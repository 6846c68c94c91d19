package customer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowdesk/internal/core/apperror"
	appctx "flowdesk/internal/core/context"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain/catalogs/customer"
	"flowdesk/internal/infrastructure/storage/memory"
)

func setup(t *testing.T) (context.Context, id.ID, *customer.Service) {
	t.Helper()
	repos := memory.NewRepositories(memory.New())
	ownerID := id.New()
	ctx := appctx.WithOwner(context.Background(), &appctx.OwnerContext{OwnerID: ownerID})
	return ctx, ownerID, customer.NewService(repos.Customers, repos.TxManager, repos.Outbox)
}

func TestCreate_IgnoresClientAggregates(t *testing.T) {
	ctx, _, svc := setup(t)

	c := &customer.Customer{
		Name:           "Ngozi",
		Phone:          "+2348030000000",
		Email:          "Ngozi@Example.com",
		TotalPurchases: 99,
		TotalSpent:     types.MustMoney("2000000"),
	}
	require.NoError(t, svc.Create(ctx, c))

	assert.Equal(t, "ngozi@example.com", c.Email)
	assert.Zero(t, c.TotalPurchases)
	assert.True(t, c.TotalSpent.IsZero())
	assert.Equal(t, customer.LoyaltyBronze, c.LoyaltyStatus)
}

func TestCreate_Validation(t *testing.T) {
	ctx, _, svc := setup(t)
	err := svc.Create(ctx, &customer.Customer{Name: "No Phone"})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestUpdate_KeepsStoredAggregates(t *testing.T) {
	ctx, ownerID, svc := setup(t)
	c := customer.NewCustomer(ownerID, "Kofi", "+233200000000")
	require.NoError(t, svc.Create(ctx, c))

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.RecordPurchase(ctx, ownerID, c.ID, types.MustMoney("150000"), at)
	require.NoError(t, err)

	stale := *c
	edit, err := svc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	edit.Name = "Kofi Mensah"
	edit.TotalSpent = types.Zero()
	edit.TotalPurchases = 0
	require.NoError(t, svc.Update(ctx, edit))

	stale.Name = "Stale"
	err = svc.Update(ctx, &stale)
	assert.True(t, apperror.HasCode(err, apperror.CodeConcurrentModification))

	got, err := svc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kofi Mensah", got.Name)
	assert.Equal(t, int64(1), got.TotalPurchases)
	assert.True(t, types.MustMoney("150000").Equal(got.TotalSpent))
	assert.Equal(t, customer.LoyaltySilver, got.LoyaltyStatus)
}

func TestRecordPurchase_UnknownCustomer(t *testing.T) {
	ctx, ownerID, svc := setup(t)
	_, err := svc.RecordPurchase(ctx, ownerID, id.New(), types.MustMoney("1"), time.Now())
	assert.True(t, apperror.IsNotFound(err))
}

func TestList_FiltersByLoyalty(t *testing.T) {
	ctx, ownerID, svc := setup(t)
	bronze := customer.NewCustomer(ownerID, "Bronze", "+254711111111")
	gold := customer.NewCustomer(ownerID, "Gold", "+254722222222")
	require.NoError(t, svc.Create(ctx, bronze))
	require.NoError(t, svc.Create(ctx, gold))
	_, err := svc.RecordPurchase(ctx, ownerID, gold.ID, types.MustMoney("600000"), time.Now())
	require.NoError(t, err)

	res, err := svc.List(ctx, customer.ListFilter{Loyalty: customer.LoyaltyGold})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, gold.ID, res.Items[0].ID)
}
