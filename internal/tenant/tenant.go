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

// Package tenant maps species identifiers onto the per-species databases that
// hold their variants, and carries the selected tenant through a request's
// context.
//
// The selected tenant is never stored in shared state: it is bound to the
// context.Context of the request being served and every store operation
// reads it from the context it is given.  Two requests can therefore never
// observe each other's tenant, whatever goroutines or connections serve them.
package tenant

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// DefaultPrefix is prepended to a species identifier to form its database
// name when no explicit mapping exists.
const DefaultPrefix = "eva_"

var validName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Tenant identifies the logical database selected for a request.
type Tenant struct {
	Database string
}

// Valid reports whether the database name is safe to use as a database or
// file name.  Tenants resolved from malformed species are not valid and are
// rejected by the store as unknown.
func (t Tenant) Valid() bool {
	return validName.MatchString(t.Database)
}

func (t Tenant) String() string {
	return t.Database
}

// Resolver derives tenants from species identifiers.  The zero value uses
// DefaultPrefix and no overrides.
type Resolver struct {
	// Prefix is prepended to the species identifier.  Empty means
	// DefaultPrefix.
	Prefix string
	// Overrides maps species identifiers to database names, bypassing the
	// prefix rule.
	Overrides map[string]string
}

// Resolve returns the tenant for species.  It never fails: a species that
// does not exist yields a tenant the store will not find.
func (r *Resolver) Resolve(species string) Tenant {
	if database, ok := r.Overrides[species]; ok {
		return Tenant{database}
	}
	prefix := r.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Tenant{prefix + species}
}

// LoadMapping reads a YAML document mapping species identifiers to database
// names, e.g.
//
//	hsapiens_grch38: eva_hsapiens_grch38_v2
//	ecaballus_20: horse
func LoadMapping(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tenant mapping: %w", err)
	}
	mapping := make(map[string]string)
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("parsing tenant mapping %s: %w", path, err)
	}
	for species, database := range mapping {
		if !(Tenant{database}).Valid() {
			return nil, fmt.Errorf("tenant mapping %s: invalid database name %q for species %q", path, database, species)
		}
	}
	return mapping, nil
}

type contextKey int

var tenantKey = contextKey(1)

// NewContext returns a copy of ctx bound to t.  Binding again in a derived
// context replaces the tenant for that context only.
func NewContext(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

// FromContext returns the tenant bound to ctx, if any.
func FromContext(ctx context.Context) (Tenant, bool) {
	t, ok := ctx.Value(tenantKey).(Tenant)
	return t, ok
}
