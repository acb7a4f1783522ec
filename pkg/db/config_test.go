package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.DSN = "postgres://localhost/policies"
		return cfg
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.DSN = ""
	assert.ErrorIs(t, cfg.Validate(), ErrDSNRequired)

	cfg = valid()
	cfg.Type = "oracle"
	assert.ErrorIs(t, cfg.Validate(), ErrUnsupportedType)

	cfg = valid()
	cfg.MaxIdleConns = -1
	assert.Error(t, cfg.Validate())
}

func TestDefaultConfigHasNoDSN(t *testing.T) {
	assert.Empty(t, DefaultConfig().DSN)
	assert.Equal(t, TypePostgres, DefaultConfig().Type)
}
