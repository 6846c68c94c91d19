package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowdesk/internal/infrastructure/config"
	"flowdesk/pkg/logger"
)

func TestRun_RequiresPostgres(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Storage: config.StorageMemory}}

	err := run(context.Background(), cfg, logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires postgres")
}
