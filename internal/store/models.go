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

import "strings"

// SourceModel is the database representation of a Source.
type SourceModel struct {
	ID        uint   `gorm:"primaryKey"`
	StudyID   string `gorm:"index:idx_sources_study;not null"`
	StudyName string
	FileID    string `gorm:"not null"`
	Meta      string
	Samples   string
}

// TableName returns the table the sources are stored in.
func (SourceModel) TableName() string { return "variant_sources" }

// VariantModel is the database representation of a Variant.
type VariantModel struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	Chromosome string `gorm:"index:idx_variants_position,priority:1;not null"`
	Position   uint64 `gorm:"index:idx_variants_position,priority:2;not null"`
	RsID       string
	Reference  string
	Alternate  string
	Quality    string
	Filter     string
	Info       string
	Format     string
	StudyID    string `gorm:"index:idx_variants_study;not null"`
	FileID     string
	SampleData string
}

// TableName returns the table the variants are stored in.
func (VariantModel) TableName() string { return "variants" }

func (m *SourceModel) toSource() Source {
	return Source{
		StudyID:   m.StudyID,
		StudyName: m.StudyName,
		FileID:    m.FileID,
		Meta:      splitNonEmpty(m.Meta, "\n"),
		Samples:   splitNonEmpty(m.Samples, "\t"),
	}
}

func sourceModel(s Source) SourceModel {
	return SourceModel{
		StudyID:   s.StudyID,
		StudyName: s.StudyName,
		FileID:    s.FileID,
		Meta:      strings.Join(s.Meta, "\n"),
		Samples:   strings.Join(s.Samples, "\t"),
	}
}

func (m *VariantModel) toVariant() *Variant {
	return &Variant{
		Chromosome: m.Chromosome,
		Position:   m.Position,
		ID:         m.RsID,
		Reference:  m.Reference,
		Alternate:  m.Alternate,
		Quality:    m.Quality,
		Filter:     m.Filter,
		Info:       m.Info,
		Format:     m.Format,
		StudyID:    m.StudyID,
		FileID:     m.FileID,
		Samples:    splitNonEmpty(m.SampleData, "\t"),
	}
}

func variantModel(v *Variant) VariantModel {
	return VariantModel{
		Chromosome: v.Chromosome,
		Position:   v.Position,
		RsID:       v.ID,
		Reference:  v.Reference,
		Alternate:  v.Alternate,
		Quality:    v.Quality,
		Filter:     v.Filter,
		Info:       v.Info,
		Format:     v.Format,
		StudyID:    v.StudyID,
		FileID:     v.FileID,
		SampleData: strings.Join(v.Samples, "\t"),
	}
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}
