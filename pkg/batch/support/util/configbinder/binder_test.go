package configbinder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/configbinder"
)

type sampleConfig struct {
	Column    string   `mapstructure:"column"`
	FirstYear int      `mapstructure:"firstYear"`
	Enabled   bool     `mapstructure:"enabled"`
	IDColumns []string `mapstructure:"idColumns"`
}

func TestBindProperties(t *testing.T) {
	cfg := sampleConfig{Column: "default"}
	err := configbinder.BindProperties(map[string]string{
		"firstYear": "1961",
		"enabled":   "true",
		"idColumns": "ObjectId,Country,ISO3",
	}, &cfg)
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Column)
	assert.Equal(t, 1961, cfg.FirstYear)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"ObjectId", "Country", "ISO3"}, cfg.IDColumns)
}

func TestBindProperties_Errors(t *testing.T) {
	var cfg sampleConfig
	err := configbinder.BindProperties(map[string]string{"firstYear": "nineteen"}, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sampleConfig")

	err = configbinder.BindProperties(map[string]string{"colum": "typo"}, &cfg)
	assert.Error(t, err, "unknown keys are rejected")
}

func TestDecodeSettings(t *testing.T) {
	var out struct {
		Type    string `yaml:"type"`
		BaseDir string `yaml:"base_dir"`
		Port    int    `yaml:"port"`
	}
	err := configbinder.DecodeSettings(map[string]interface{}{"type": "local", "base_dir": "/tmp", "port": "5432"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "local", out.Type)
	assert.Equal(t, "/tmp", out.BaseDir)
	assert.Equal(t, 5432, out.Port)
}
