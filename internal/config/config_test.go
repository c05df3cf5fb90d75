// Copyright 2018 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var variables = []string{
	"PORT", "HOST", "DB_URL", "DATA_DIR", "BLOCK_SIZE", "BGZF", "TENANT_PREFIX",
	"TENANT_MAP", "CORS_ORIGINS", "LOG_LEVEL", "LOG_FORMAT", "TRACK_USAGE",
	"HTTPS_CERT", "HTTPS_KEY", "PROFILE", "MAX_BLOCKS", "CONTEXT_PATH",
}

// clearEnv unsets every configuration variable, with and without the prefix,
// for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range variables {
		for _, key := range []string{name, Prefix + "_" + name} {
			if value, ok := os.LookupEnv(key); ok {
				require.NoError(t, os.Unsetenv(key))
				t.Cleanup(func() { os.Setenv(key, value) })
			}
		}
	}
}

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, uint64(DefaultBlockSize), cfg.BlockSize)
	assert.Equal(t, uint64(DefaultMaxBlocks), cfg.MaxBlocks)
	assert.Empty(t, cfg.ContextPath)
	assert.Equal(t, DefaultTenantPrefix, cfg.TenantPrefix)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.BGZF)
	assert.False(t, cfg.TrackUsage)
	assert.False(t, cfg.TLS())
	assert.Equal(t, ":8080", cfg.Address())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTSGET_PORT", "9000")
	t.Setenv("HTSGET_BLOCK_SIZE", "500")
	t.Setenv("HTSGET_BGZF", "true")
	t.Setenv("HTSGET_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("HTSGET_DB_URL", "postgres://localhost/{tenant}")
	t.Setenv("HTSGET_CONTEXT_PATH", "/eva")
	t.Setenv("HTSGET_MAX_BLOCKS", "250")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, uint64(500), cfg.BlockSize)
	assert.True(t, cfg.BGZF)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "postgres://localhost/{tenant}", cfg.DatabaseURL())
	assert.Equal(t, "/eva", cfg.ContextPath)
	assert.Equal(t, uint64(250), cfg.MaxBlocks)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "htsget.env")
	require.NoError(t, os.WriteFile(path, []byte("HTSGET_PORT=7000\nHTSGET_TENANT_PREFIX=test_\n"), 0o644))
	t.Setenv("HTSGET_TENANT_PREFIX", "env_")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "env_", cfg.TenantPrefix, "environment should take precedence over the file")

	// godotenv.Load sets variables in the process environment.
	t.Cleanup(func() { os.Unsetenv("HTSGET_PORT") })
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTSGET_BLOCK_SIZE", "many")

	_, err := Load(missingFile(t))
	assert.Error(t, err)
}

func TestDatabaseURL(t *testing.T) {
	cfg := Config{DataDir: "/var/lib/htsget"}
	assert.Equal(t, "sqlite:///var/lib/htsget/{tenant}.db", cfg.DatabaseURL())
}

func TestValidate(t *testing.T) {
	valid := Config{Port: 8080, BlockSize: 10, LogFormat: "json", DataDir: "data"}
	require.NoError(t, valid.Validate())

	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative port", func(c *Config) { c.Port = -1 }},
		{"zero block size", func(c *Config) { c.BlockSize = 0 }},
		{"certificate without key", func(c *Config) { c.HTTPSCert = "cert.pem" }},
		{"key without certificate", func(c *Config) { c.HTTPSKey = "key.pem" }},
		{"database without placeholder", func(c *Config) { c.DBURL = "sqlite:///tmp/eva.db" }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
		{"relative context path", func(c *Config) { c.ContextPath = "eva" }},
		{"too many blocks", func(c *Config) { c.MaxBlocks = 1 << 30 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
