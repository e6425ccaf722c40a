package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("tabula", nil)
	require.NoError(t, err)
	assert.Equal(t, def(), cfg)
}

func TestLoadLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port":"9000","dslDir":"from-json","driver":"postgres","dsn":"postgres://json"}`), 0o644))

	t.Setenv("TABULA_DSL_DIR", "from-env")
	t.Setenv("TABULA_RECREATE", "true")

	cfg, err := Load("tabula", []string{"-config", path, "-dsn", "postgres://flag", "-allow-recreate=true"})
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "from-env", cfg.DSLDir)
	assert.Equal(t, "reference/enums", cfg.EnumsDir)
	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, "postgres://flag", cfg.DSN)
	assert.True(t, cfg.Recreate)
	assert.True(t, cfg.AllowRecreate)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("tabula", []string{"-config", filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorContains(t, err, "load config")

	_, err = Load("tabula", []string{"-driver", "oracle"})
	assert.ErrorContains(t, err, `unknown driver "oracle"`)

	_, err = Load("tabula", []string{"-recreate", "maybe"})
	assert.ErrorContains(t, err, "flag -recreate")

	_, err = Load("tabula", []string{"-unknown"})
	assert.Error(t, err)

	t.Setenv("TABULA_RECREATE", "maybe")
	_, err = Load("tabula", nil)
	assert.ErrorContains(t, err, "parse env")
}
