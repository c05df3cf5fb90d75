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

// Package store provides access to the per-species variant databases.
//
// Every operation takes the request context, which must carry the tenant
// selected for the request (see package tenant).  Databases are opened on
// first use and shared by all requests for the same tenant.
package store

import (
	"context"
	"errors"

	"github.com/googlegenomics/vcf-htsget/internal/genomics"
)

var (
	// ErrNoTenant is returned when an operation is invoked with a context
	// that has no tenant bound to it.
	ErrNoTenant = errors.New("no tenant bound to context")
	// ErrUnknownTenant is returned when the tenant's database does not
	// exist.
	ErrUnknownTenant = errors.New("unknown tenant")
)

// Source describes one submitted file of a study: the VCF meta lines it was
// submitted with and the samples its genotype columns belong to.
type Source struct {
	StudyID   string
	StudyName string
	FileID    string
	Meta      []string
	Samples   []string
}

// Variant is a single stored VCF record.  Samples holds the genotype columns
// of the record's source, in the order of that source's Samples.
type Variant struct {
	Chromosome string
	Position   uint64
	ID         string
	Reference  string
	Alternate  string
	Quality    string
	Filter     string
	Info       string
	Format     string
	StudyID    string
	FileID     string
	Samples    []string
}

// Gateway is the read interface to the variant store.
type Gateway interface {
	// FirstVariantCoordinate returns the smallest position of a variant on
	// reference that belongs to one of studies (any study if studies is
	// empty).  The boolean is false if there is no such variant.
	FirstVariantCoordinate(ctx context.Context, reference string, studies []string) (uint64, bool, error)
	// LastVariantCoordinate is like FirstVariantCoordinate but returns the
	// largest position.
	LastVariantCoordinate(ctx context.Context, reference string, studies []string) (uint64, bool, error)
	// SpeciesExists reports whether the tenant bound to ctx has a variant
	// database.
	SpeciesExists(ctx context.Context) (bool, error)
	// StudiesExist reports whether every one of studies has at least one
	// source in the database.
	StudiesExist(ctx context.Context, studies []string) (bool, error)
	// Sources returns the sources of studies, ordered by study (in the
	// order given) and then by file.
	Sources(ctx context.Context, studies []string) ([]Source, error)
	// Records calls fn for each variant of studies whose position lies in
	// region, in ascending position order.  Iteration stops at the first
	// error returned by fn or when ctx is cancelled.
	Records(ctx context.Context, region genomics.Region, studies []string, fn func(*Variant) error) error
}
