package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vellumjs/vellum/internal/errcode"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vellum.config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigSingleInput(t *testing.T) {
	path := writeConfig(t, `
input: src/main.js
output:
  format: es
  dir: dist
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)

	opts, err := cfg.toInputOptions()
	require.NoError(t, err)
	assert.Equal(t, "src/main.js", opts.Input.Single)
	assert.Equal(t, "es", opts.Output.Format)
	assert.Equal(t, "dist", opts.Output.Dir)
	assert.Empty(t, opts.DeprecatedPairsUsed)
}

func TestLoadConfigListInput(t *testing.T) {
	path := writeConfig(t, `
input:
  - src/a.js
  - src/b.js
output:
  format: cjs
  dir: dist
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	opts, err := cfg.toInputOptions()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.js", "src/b.js"}, opts.Input.List)
}

func TestLoadConfigNamedInput(t *testing.T) {
	path := writeConfig(t, `
input:
  main: src/main.js
  worker: src/worker.js
output:
  format: es
  dir: dist
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	opts, err := cfg.toInputOptions()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"main": "src/main.js", "worker": "src/worker.js"}, opts.Input.Named)
}

func TestLoadConfigDeprecatedEntryAlias(t *testing.T) {
	path := writeConfig(t, `
entry: src/legacy.js
output:
  format: es
  dest: legacy-bundle.js
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	opts, err := cfg.toInputOptions()
	require.NoError(t, err)
	assert.Equal(t, "src/legacy.js", opts.Input.Single)
	assert.Equal(t, "legacy-bundle.js", opts.Output.File)
	assert.Len(t, opts.DeprecatedPairsUsed, 2)
}

func TestLoadConfigExternalIDs(t *testing.T) {
	path := writeConfig(t, `
input: src/main.js
external:
  - react
  - react-dom
output:
  format: es
  dir: dist
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	opts, err := cfg.toInputOptions()
	require.NoError(t, err)
	assert.True(t, opts.External.IsExternal("react", "", false))
	assert.False(t, opts.External.IsExternal("lodash", "", false))
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
input: src/main.js
treeshake: true
output:
  format: es
  dir: dist
`)
	_, err := loadConfig(path)
	require.Error(t, err)
	var codeErr *errcode.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, errcode.UnknownOption, codeErr.Code)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
