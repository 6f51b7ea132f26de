package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3010, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Database.MaxConnections)
	assert.Equal(t, 5, cfg.Database.MinConnections)
	assert.Equal(t, 3, cfg.Sync.MaxRetries)
}

func TestValidateRejectsPoolInversion(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Database.MinConnections = cfg.Database.MaxConnections + 1
	err = validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_connections")
}
