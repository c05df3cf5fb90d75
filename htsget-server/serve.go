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

package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/googlegenomics/vcf-htsget/internal/config"
	"github.com/googlegenomics/vcf-htsget/internal/log"
	"github.com/googlegenomics/vcf-htsget/internal/server"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var (
		host        string
		port        int
		blockSize   uint64
		contextPath string
		compress    bool
		trackUsage  bool
		httpsCert   string
		httpsKey    string
		profiling   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the htsget server",
		Long: `Start the htsget server.

Configuration is read from the environment (optionally seeded from a .env
file); command line flags take precedence.

Environment variables:
  HTSGET_HOST           Host to bind to
  HTSGET_PORT           Port to listen on (default: 8080)
  HTSGET_DB_URL         Database URL template containing {tenant}
                        (default: sqlite:///{data_dir}/{tenant}.db)
  HTSGET_DATA_DIR       Directory of the default SQLite databases (default: .htsget)
  HTSGET_BLOCK_SIZE     Bases per ticket block (default: 1000000)
  HTSGET_MAX_BLOCKS     Most blocks in one ticket (default: 100000)
  HTSGET_CONTEXT_PATH   Path prefix of the API, e.g. /eva
  HTSGET_BGZF           Compress streams with BGZF (default: false)
  HTSGET_TENANT_PREFIX  Database name prefix for species (default: eva_)
  HTSGET_TENANT_MAP     YAML file mapping species to database names
  HTSGET_CORS_ORIGINS   Comma-separated allowed origins (default: *)
  HTSGET_LOG_LEVEL      debug, info, warn, error (default: info)
  HTSGET_LOG_FORMAT     pretty, json (default: pretty)
  HTSGET_TRACK_USAGE    Anonymous usage tracking (default: false)
  HTSGET_HTTPS_CERT     HTTPS certificate file
  HTSGET_HTTPS_KEY      HTTPS key file
  HTSGET_PROFILE        Write a cpu or mem profile to the data directory`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Host = host
			}
			if flags.Changed("port") {
				cfg.Port = port
			}
			if flags.Changed("block-size") {
				cfg.BlockSize = blockSize
			}
			if flags.Changed("context-path") {
				cfg.ContextPath = contextPath
			}
			if flags.Changed("bgzf") {
				cfg.BGZF = compress
			}
			if flags.Changed("track-usage") {
				cfg.TrackUsage = trackUsage
			}
			if flags.Changed("https-cert") {
				cfg.HTTPSCert = httpsCert
			}
			if flags.Changed("https-key") {
				cfg.HTTPSKey = httpsKey
			}
			if flags.Changed("profile") {
				cfg.Profile = profiling
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&host, "host", "", "host to bind to")
	flags.IntVar(&port, "port", config.DefaultPort, "HTTP service port")
	flags.Uint64Var(&blockSize, "block-size", config.DefaultBlockSize, "bases per ticket block")
	flags.StringVar(&contextPath, "context-path", "", "path prefix of the API, e.g. /eva")
	flags.BoolVar(&compress, "bgzf", false, "compress streams with BGZF")
	// If enabled, anonymous information about requests handled by the server
	// is logged to Google via Google Analytics.  No user identifying
	// information is ever sent.
	flags.BoolVar(&trackUsage, "track-usage", false, "anonymous usage tracking")
	flags.StringVar(&httpsCert, "https-cert", "", "HTTPS certificate file")
	flags.StringVar(&httpsKey, "https-key", "", "HTTPS key file")
	flags.StringVar(&profiling, "profile", "", "write a cpu or mem profile")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := log.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	if cfg.Profile != "" {
		stop, err := startProfile(cfg.Profile, filepath.Join(cfg.DataDir, "profile"))
		if err != nil {
			return err
		}
		defer stop()
	}

	handler, closeStore, err := server.NewHandler(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error().Err(err).Msg("closing databases")
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          stdlog.New(logger.With().Str("component", "http").Logger(), "", 0),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("address", srv.Addr).Bool("tls", cfg.TLS()).Msg("starting server")
		var err error
		if cfg.TLS() {
			err = srv.ListenAndServeTLS(cfg.HTTPSCert, cfg.HTTPSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func startProfile(mode, dir string) (func(), error) {
	var option func(*profile.Profile)
	switch mode {
	case "cpu":
		option = profile.CPUProfile
	case "mem":
		option = profile.MemProfile
	default:
		return nil, fmt.Errorf("unknown profile mode %q", mode)
	}
	p := profile.Start(option, profile.ProfilePath(dir), profile.NoShutdownHook, profile.Quiet)
	return p.Stop, nil
}
