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

// Package testdb provides per-test variant databases backed by SQLite files
// in a temporary directory.
package testdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/googlegenomics/vcf-htsget/internal/store"
	"github.com/googlegenomics/vcf-htsget/internal/tenant"
)

// New returns a registry whose tenant databases live in a fresh temporary
// directory.  The registry is closed when the test finishes.
func New(t *testing.T) *store.Registry {
	t.Helper()
	url := "sqlite://" + filepath.Join(t.TempDir(), store.TenantPlaceholder+".db")
	registry, err := store.NewRegistry(url, zerolog.Nop())
	if err != nil {
		t.Fatalf("testdb.New: %v", err)
	}
	t.Cleanup(func() { _ = registry.Close() })
	return registry
}

// Seed stores source and variants in the database named database.
func Seed(t *testing.T, db *store.Database, database string, source store.Source, variants ...store.Variant) {
	t.Helper()
	ctx := tenant.NewContext(context.Background(), tenant.Tenant{Database: database})
	i := 0
	next := func() (*store.Variant, bool, error) {
		if i == len(variants) {
			return nil, false, nil
		}
		i++
		return &variants[i-1], true, nil
	}
	if _, err := db.Import(ctx, source, next); err != nil {
		t.Fatalf("testdb.Seed(%s): %v", database, err)
	}
}

// Sites returns sites-only variants on reference at each of positions.
func Sites(reference string, positions ...uint64) []store.Variant {
	variants := make([]store.Variant, 0, len(positions))
	for _, position := range positions {
		variants = append(variants, store.Variant{
			Chromosome: reference,
			Position:   position,
			ID:         ".",
			Reference:  "A",
			Alternate:  "G",
			Quality:    ".",
			Filter:     "PASS",
			Info:       ".",
		})
	}
	return variants
}
