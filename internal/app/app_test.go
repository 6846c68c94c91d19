package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "flowdesk/internal/core/context"
	"flowdesk/internal/core/id"
	"flowdesk/internal/domain/catalogs/product"
	"flowdesk/internal/infrastructure/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Name: "flowdesk", Env: "test", Storage: config.StorageMemory},
		HTTP: config.HTTPConfig{IdempotencyTTL: time.Hour},
		Auth: config.AuthConfig{JWTSecret: "app-test-secret", Issuer: "flowdesk", TokenTTL: time.Hour},
	}
}

func TestNew_Memory(t *testing.T) {
	a, err := New(context.Background(), memoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NotNil(t, a.Memory)
	assert.Nil(t, a.Pool)
	assert.NotNil(t, a.Idempotency)

	ownerID := id.New()
	token, _, err := a.JWT.GenerateToken(ownerID, "ops")
	require.NoError(t, err)
	owner, err := a.JWT.ValidateToken(token)
	require.NoError(t, err)

	ctx := appctx.WithOwner(context.Background(), owner)
	p := product.NewProduct(ownerID, "Rice 5kg", "rice-5", "Food")
	require.NoError(t, a.Services.Products.Create(ctx, p))

	got, err := a.Services.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "RICE-5", got.SKU)

	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}

func TestNew_UnknownStorage(t *testing.T) {
	cfg := memoryConfig()
	cfg.App.Storage = "sqlite"

	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown storage mode")
}
