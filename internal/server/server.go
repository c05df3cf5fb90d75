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

// Package server assembles the htsget HTTP handler from a configuration.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/googlegenomics/vcf-htsget/api"
	"github.com/googlegenomics/vcf-htsget/internal/analytics"
	"github.com/googlegenomics/vcf-htsget/internal/config"
	"github.com/googlegenomics/vcf-htsget/internal/log"
	"github.com/googlegenomics/vcf-htsget/internal/store"
	"github.com/googlegenomics/vcf-htsget/internal/tenant"
)

const analyticsTimeout = 10 * time.Second

// NewHandler returns the API handler for cfg.  The returned function closes
// the databases opened while serving.
func NewHandler(cfg config.Config, logger zerolog.Logger, extra ...gin.HandlerFunc) (http.Handler, func() error, error) {
	resolver, err := NewResolver(cfg)
	if err != nil {
		return nil, nil, err
	}
	registry, err := store.NewRegistry(cfg.DatabaseURL(), logger.With().Str("component", "store").Logger())
	if err != nil {
		return nil, nil, err
	}

	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware := []gin.HandlerFunc{log.Middleware(logger)}
	if cfg.TrackUsage {
		logger.Info().Msg("enabling anonymous usage tracking")
		middleware = append(middleware, analytics.Middleware(usageTracker(logger)))
	}
	middleware = append(middleware, extra...)

	server := api.NewServer(store.NewDatabase(registry), resolver, cfg.BlockSize,
		api.WithBGZF(cfg.BGZF),
		api.WithMaxBlocks(cfg.MaxBlocks),
		api.WithContextPath(cfg.ContextPath),
		api.WithLogger(logger))
	return server.Handler(cfg.CORSOrigins, middleware...), registry.Close, nil
}

// NewResolver returns the tenant resolver for cfg.
func NewResolver(cfg config.Config) (*tenant.Resolver, error) {
	resolver := &tenant.Resolver{Prefix: cfg.TenantPrefix}
	if cfg.TenantMap != "" {
		overrides, err := tenant.LoadMapping(cfg.TenantMap)
		if err != nil {
			return nil, fmt.Errorf("loading tenant map: %w", err)
		}
		resolver.Overrides = overrides
	}
	return resolver, nil
}

func usageTracker(logger zerolog.Logger) func([]analytics.Hit) {
	client := analytics.NewClient(analytics.PropertyID, uuid.NewString())
	return func(hits []analytics.Hit) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), analyticsTimeout)
			defer cancel()
			if err := client.Send(ctx, hits); err != nil {
				logger.Warn().Err(err).Int("hits", len(hits)).Msg("sending usage hits")
			}
		}()
	}
}
