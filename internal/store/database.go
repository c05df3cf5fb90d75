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

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/googlegenomics/vcf-htsget/internal/genomics"
	"github.com/googlegenomics/vcf-htsget/internal/tenant"
)

// importBatchSize is the number of variants inserted per statement by Import.
const importBatchSize = 500

// Database implements Gateway over the databases of a Registry.
type Database struct {
	registry *Registry
}

var _ Gateway = (*Database)(nil)

// NewDatabase returns a Gateway reading from the databases of registry.
func NewDatabase(registry *Registry) *Database {
	return &Database{registry}
}

// session returns a session on the database of the tenant bound to ctx.
func (d *Database) session(ctx context.Context) (*gorm.DB, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, ErrNoTenant
	}
	db, err := d.registry.DB(ctx, t)
	if err != nil {
		return nil, err
	}
	return db.WithContext(ctx), nil
}

func (d *Database) variants(ctx context.Context, studies []string) (*gorm.DB, error) {
	db, err := d.session(ctx)
	if err != nil {
		return nil, err
	}
	db = db.Model(&VariantModel{})
	if len(studies) > 0 {
		db = db.Where("study_id IN ?", studies)
	}
	return db, nil
}

// FirstVariantCoordinate implements Gateway.
func (d *Database) FirstVariantCoordinate(ctx context.Context, reference string, studies []string) (uint64, bool, error) {
	return d.coordinate(ctx, reference, studies, "MIN(position)")
}

// LastVariantCoordinate implements Gateway.
func (d *Database) LastVariantCoordinate(ctx context.Context, reference string, studies []string) (uint64, bool, error) {
	return d.coordinate(ctx, reference, studies, "MAX(position)")
}

func (d *Database) coordinate(ctx context.Context, reference string, studies []string, aggregate string) (uint64, bool, error) {
	db, err := d.variants(ctx, studies)
	if err != nil {
		return 0, false, err
	}
	var position sql.NullInt64
	if err := db.Where("chromosome = ?", reference).Select(aggregate).Row().Scan(&position); err != nil {
		return 0, false, fmt.Errorf("resolving %s on %s: %w", aggregate, reference, err)
	}
	if !position.Valid {
		return 0, false, nil
	}
	return uint64(position.Int64), true, nil
}

// SpeciesExists implements Gateway.
func (d *Database) SpeciesExists(ctx context.Context) (bool, error) {
	db, err := d.session(ctx)
	if errors.Is(err, ErrUnknownTenant) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return db.Migrator().HasTable(&SourceModel{}), nil
}

// StudiesExist implements Gateway.
func (d *Database) StudiesExist(ctx context.Context, studies []string) (bool, error) {
	if len(studies) == 0 {
		return false, nil
	}
	db, err := d.session(ctx)
	if err != nil {
		return false, err
	}
	var found []string
	err = db.Model(&SourceModel{}).
		Where("study_id IN ?", studies).
		Distinct("study_id").
		Pluck("study_id", &found).Error
	if err != nil {
		return false, fmt.Errorf("looking up studies: %w", err)
	}

	present := make(map[string]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	for _, id := range studies {
		if !present[id] {
			return false, nil
		}
	}
	return true, nil
}

// Sources implements Gateway.
func (d *Database) Sources(ctx context.Context, studies []string) ([]Source, error) {
	db, err := d.session(ctx)
	if err != nil {
		return nil, err
	}
	var models []SourceModel
	err = db.Where("study_id IN ?", studies).Order("file_id, id").Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("looking up sources: %w", err)
	}

	rank := make(map[string]int, len(studies))
	for i, id := range studies {
		if _, ok := rank[id]; !ok {
			rank[id] = i
		}
	}
	sources := make([]Source, 0, len(models))
	for i := range models {
		sources = append(sources, models[i].toSource())
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return rank[sources[i].StudyID] < rank[sources[j].StudyID]
	})
	return sources, nil
}

// Records implements Gateway.
func (d *Database) Records(ctx context.Context, region genomics.Region, studies []string, fn func(*Variant) error) error {
	db, err := d.variants(ctx, studies)
	if err != nil {
		return err
	}
	rows, err := db.
		Where("chromosome = ? AND position BETWEEN ? AND ?", region.ReferenceName, region.Start, region.End).
		Order("position, id").
		Rows()
	if err != nil {
		return fmt.Errorf("querying %s: %w", region, err)
	}
	defer rows.Close()

	for rows.Next() {
		var model VariantModel
		if err := db.ScanRows(rows, &model); err != nil {
			return fmt.Errorf("reading variant: %w", err)
		}
		if err := fn(model.toVariant()); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating %s: %w", region, err)
	}
	return ctx.Err()
}

// Import stores source and the variants produced by next into the database
// of the tenant bound to ctx, creating the database if needed.  next reports
// false once exhausted.  Everything is written in one transaction.
func (d *Database) Import(ctx context.Context, source Source, next func() (*Variant, bool, error)) (int, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return 0, ErrNoTenant
	}
	db, err := d.registry.Create(ctx, t)
	if err != nil {
		return 0, err
	}

	var count int
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := sourceModel(source)
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("storing source: %w", err)
		}

		batch := make([]VariantModel, 0, importBatchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := tx.Create(&batch).Error; err != nil {
				return fmt.Errorf("storing variants: %w", err)
			}
			count += len(batch)
			batch = batch[:0]
			return nil
		}
		for {
			v, ok, err := next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			v.StudyID, v.FileID = source.StudyID, source.FileID
			batch = append(batch, variantModel(v))
			if len(batch) == importBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
