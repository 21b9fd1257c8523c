package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
globalOptions:
  logLevel: debug
  logPretty: false
generate:
  projectDir: ./demo
  modelPackages: [./model/...]
  schemaRootPath: data/schemas
  apiItemConfigPath: api.yml
  clean: true
serve:
  host: 0.0.0.0
  port: "9090"
  prefixUrl: /mock
  optionalsProbability: 0.5
  useDataFileFirst: true
api:
  user:
    url: /api/user
`

func TestParseFullConfig(t *testing.T) {
	f, err := Parse([]byte(fullConfig))
	require.NoError(t, err)

	require.NotNil(t, f.GlobalOptions.LogLevel)
	assert.Equal(t, "debug", *f.GlobalOptions.LogLevel)
	require.NotNil(t, f.GlobalOptions.LogPretty)
	assert.False(t, *f.GlobalOptions.LogPretty)

	require.NotNil(t, f.Generate.ProjectDir)
	assert.Equal(t, "./demo", *f.Generate.ProjectDir)
	assert.Equal(t, []string{"./model/..."}, f.Generate.ModelPackages)
	require.NotNil(t, f.Generate.Clean)
	assert.True(t, *f.Generate.Clean)
	assert.Nil(t, f.Generate.IgnoreMissingModels, "unset keys stay nil")

	require.NotNil(t, f.Serve.Port)
	assert.Equal(t, 9090, *f.Serve.Port)
	require.NotNil(t, f.Serve.OptionalsProbability)
	assert.InDelta(t, 0.5, *f.Serve.OptionalsProbability, 1e-9)
	require.NotNil(t, f.Serve.UseDataFileFirst)
	assert.True(t, *f.Serve.UseDataFileFirst)
	assert.Nil(t, f.Serve.RequiredOnly)

	assert.True(t, f.HasAPI)
	assert.Empty(t, f.Path)
}

func TestParseEmptyConfig(t *testing.T) {
	f, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Nil(t, f.GlobalOptions.LogLevel)
	assert.Nil(t, f.Serve.Port)
	assert.False(t, f.HasAPI)
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown_top_level", content: "servee: {}", want: "servee"},
		{name: "unknown_section_field", content: "serve:\n  prot: 8080\n", want: "prot"},
		{name: "bad_log_level", content: "globalOptions: {logLevel: loud}", want: "oneof"},
		{name: "port_out_of_range", content: "serve: {port: 70000}", want: "max"},
		{name: "section_not_mapping", content: "generate: [a]", want: "generate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "apitool.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"serve": {"port": 3000, "requiredOnly": true}}`), 0o644))
	f, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, jsonPath, f.Path)
	require.NotNil(t, f.Serve.Port)
	assert.Equal(t, 3000, *f.Serve.Port)
	require.NotNil(t, f.Serve.RequiredOnly)
	assert.True(t, *f.Serve.RequiredOnly)

	escaped := filepath.Join(dir, "escaped.json")
	require.NoError(t, os.WriteFile(escaped, []byte(`{"serve": {"prefixUrl": "\/mock\/v1", "port": 1, "port": 2}}`), 0o644))
	f, err = Load(escaped)
	require.NoError(t, err)
	require.NotNil(t, f.Serve.PrefixUrl)
	assert.Equal(t, "/mock/v1", *f.Serve.PrefixUrl)
	require.NotNil(t, f.Serve.Port)
	assert.Equal(t, 2, *f.Serve.Port, "the last duplicate key wins")

	_, err = Load(filepath.Join(dir, "apitool.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".json/.yml/.yaml")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}
