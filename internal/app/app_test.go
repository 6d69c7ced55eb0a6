package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBootstrapLoadsDefaults(t *testing.T) {
	cfg, log, err := Bootstrap("")
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.Equal(t, "kafka", cfg.Publisher.Type)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg, _, err := Bootstrap("")
	require.NoError(t, err)
	cfg.Database.Driver = "sqlite"

	a, err := New(context.Background(), cfg, zap.NewNop(), WithRelay())
	require.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "sqlite connect")
}
