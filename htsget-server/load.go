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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/brentp/xopen"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/googlegenomics/vcf-htsget/internal/config"
	"github.com/googlegenomics/vcf-htsget/internal/log"
	"github.com/googlegenomics/vcf-htsget/internal/server"
	"github.com/googlegenomics/vcf-htsget/internal/store"
	"github.com/googlegenomics/vcf-htsget/internal/tenant"
	"github.com/googlegenomics/vcf-htsget/internal/vcf"
)

func loadCmd() *cobra.Command {
	var (
		species string
		source  store.Source
	)

	cmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Load a VCF file into a species database",
		Long: `Load a VCF (or gzip/BGZF compressed VCF) file into the database of a
species, as one file of a study.  FILE may be "-" for standard input.  The
database is created if it does not exist.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := log.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
			if err != nil {
				return err
			}
			if source.FileID == "" {
				source.FileID = fileID(args[0])
			}
			n, err := loadFile(cmd.Context(), cfg, logger, species, source, args[0])
			if err != nil {
				return err
			}
			logger.Info().Str("species", species).Str("study", source.StudyID).Int("variants", n).Msg("loaded")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&species, "species", "", "species identifier, e.g. ecaballus_20")
	flags.StringVar(&source.StudyID, "study", "", "study identifier, e.g. PRJEB9799")
	flags.StringVar(&source.StudyName, "study-name", "", "study name")
	flags.StringVar(&source.FileID, "file-id", "", "file identifier (default: file name)")
	cmd.MarkFlagRequired("species")
	cmd.MarkFlagRequired("study")
	return cmd
}

// loadFile imports the VCF file at path into the database of species and
// returns the number of variants stored.
func loadFile(ctx context.Context, cfg config.Config, logger zerolog.Logger, species string, source store.Source, path string) (int, error) {
	r, err := xopen.Ropen(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer r.Close()

	reader, err := vcf.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	source.Meta = reader.Meta
	source.Samples = reader.Samples

	resolver, err := server.NewResolver(cfg)
	if err != nil {
		return 0, err
	}
	registry, err := store.NewRegistry(cfg.DatabaseURL(), logger)
	if err != nil {
		return 0, err
	}
	defer registry.Close()

	ctx = tenant.NewContext(ctx, resolver.Resolve(species))
	return store.NewDatabase(registry).Import(ctx, source, func() (*store.Variant, bool, error) {
		v, err := reader.Read()
		if err == io.EOF {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	})
}

func fileID(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".gz", ".bgz", ".vcf"} {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}
