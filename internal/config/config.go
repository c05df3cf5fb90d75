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

// Package config loads the server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/googlegenomics/vcf-htsget/internal/genomics"
	"github.com/googlegenomics/vcf-htsget/internal/store"
)

// Prefix is prepended to every environment variable name.
const Prefix = "HTSGET"

// Default configuration values.
const (
	DefaultPort         = 8080
	DefaultDataDir      = ".htsget"
	DefaultBlockSize    = 1000000
	DefaultMaxBlocks    = 100000
	DefaultTenantPrefix = "eva_"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "pretty"
)

// Config holds the server configuration.
type Config struct {
	Port int    `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST"`

	// DBURL is a database URL template; {tenant} is replaced with the
	// tenant database name.  Defaults to a SQLite file per tenant in DataDir.
	DBURL   string `envconfig:"DB_URL"`
	DataDir string `envconfig:"DATA_DIR" default:".htsget"`

	// BlockSize is the number of bases covered by each block of a ticket.
	BlockSize uint64 `envconfig:"BLOCK_SIZE" default:"1000000"`
	// MaxBlocks is the largest number of blocks in a ticket.
	MaxBlocks uint64 `envconfig:"MAX_BLOCKS" default:"100000"`
	BGZF      bool   `envconfig:"BGZF" default:"false"`

	// ContextPath is the path prefix the API is served under, e.g. "/eva".
	ContextPath string `envconfig:"CONTEXT_PATH"`

	TenantPrefix string `envconfig:"TENANT_PREFIX" default:"eva_"`
	TenantMap    string `envconfig:"TENANT_MAP"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	TrackUsage bool   `envconfig:"TRACK_USAGE" default:"false"`
	HTTPSCert  string `envconfig:"HTTPS_CERT"`
	HTTPSKey   string `envconfig:"HTTPS_KEY"`
	Profile    string `envconfig:"PROFILE"`
}

// Load reads the configuration from the environment, after loading envPath
// (or ".env" when empty) if it exists.  Variables already set in the
// environment take precedence over the file.
func Load(envPath string) (Config, error) {
	if envPath == "" {
		envPath = ".env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return Config{}, fmt.Errorf("loading %s: %v", envPath, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DatabaseURL returns the database URL template, defaulting to one SQLite
// file per tenant under the data directory.
func (c Config) DatabaseURL() string {
	if c.DBURL != "" {
		return c.DBURL
	}
	dir, err := filepath.Abs(c.DataDir)
	if err != nil {
		dir = c.DataDir
	}
	return "sqlite://" + filepath.ToSlash(filepath.Join(dir, store.TenantPlaceholder+".db"))
}

// Address returns the address the server listens on.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TLS reports whether the server should serve HTTPS.
func (c Config) TLS() bool {
	return c.HTTPSCert != "" || c.HTTPSKey != ""
}

// Validate checks the configuration for inconsistent values.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.BlockSize == 0 {
		return fmt.Errorf("block size must be positive")
	}
	if c.MaxBlocks > genomics.MaxBlocks {
		return fmt.Errorf("max blocks must not exceed %d", genomics.MaxBlocks)
	}
	if c.ContextPath != "" && !strings.HasPrefix(c.ContextPath, "/") {
		return fmt.Errorf("context path %q must start with /", c.ContextPath)
	}
	if (c.HTTPSCert == "") != (c.HTTPSKey == "") {
		return fmt.Errorf("both the HTTPS certificate and key must be specified")
	}
	if !strings.Contains(c.DatabaseURL(), store.TenantPlaceholder) {
		return fmt.Errorf("database URL must contain %s", store.TenantPlaceholder)
	}
	switch strings.ToLower(c.LogFormat) {
	case "pretty", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
