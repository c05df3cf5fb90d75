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

// Package vcf writes and reads Variant Call Format text.
package vcf

import (
	"io"
	"strings"

	"github.com/googlegenomics/vcf-htsget/internal/store"
)

// DefaultFileFormat is used when none of the merged sources declares a file
// format.
const DefaultFileFormat = "##fileformat=VCFv4.2"

const (
	fileFormatPrefix = "##fileformat="
	columnLine       = "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO"
	missing          = "."
)

type sourceKey struct {
	study, file string
}

// Header is the header shared by the records of several sources.  Its sample
// columns are the union of the sources' samples, in source order.
type Header struct {
	Meta    []string
	Samples []string

	columns map[sourceKey][]int
}

// NewHeader merges the headers of sources.  Meta lines are deduplicated,
// keeping the first occurrence; the first declared file format wins.
func NewHeader(sources []store.Source) *Header {
	h := &Header{columns: make(map[sourceKey][]int)}

	fileFormat := ""
	seen := make(map[string]bool)
	var meta []string
	for _, source := range sources {
		for _, line := range source.Meta {
			line = strings.TrimRight(line, "\r\n")
			switch {
			case strings.HasPrefix(line, fileFormatPrefix):
				if fileFormat == "" {
					fileFormat = line
				}
			case !strings.HasPrefix(line, "##"):
			case !seen[line]:
				seen[line] = true
				meta = append(meta, line)
			}
		}
	}
	if fileFormat == "" {
		fileFormat = DefaultFileFormat
	}
	h.Meta = append([]string{fileFormat}, meta...)

	index := make(map[string]int)
	for _, source := range sources {
		key := sourceKey{source.StudyID, source.FileID}
		columns := make([]int, 0, len(source.Samples))
		for _, sample := range source.Samples {
			i, ok := index[sample]
			if !ok {
				i = len(h.Samples)
				index[sample] = i
				h.Samples = append(h.Samples, sample)
			}
			columns = append(columns, i)
		}
		h.columns[key] = columns
	}
	return h
}

// WriteTo writes the meta lines and the column header line to w.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, line := range h.Meta {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(columnLine)
	if len(h.Samples) > 0 {
		b.WriteString("\tFORMAT")
		for _, sample := range h.Samples {
			b.WriteByte('\t')
			b.WriteString(sample)
		}
	}
	b.WriteByte('\n')
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// WriteRecord writes v to w as one data line laid out for h.
func (h *Header) WriteRecord(w io.Writer, v *store.Variant) error {
	_, err := io.WriteString(w, h.FormatRecord(v))
	return err
}

// FormatRecord returns v as one newline-terminated data line laid out for h.
func (h *Header) FormatRecord(v *store.Variant) string {
	var b strings.Builder
	b.WriteString(v.Chromosome)
	b.WriteByte('\t')
	b.WriteString(formatPosition(v.Position))
	for _, field := range []string{v.ID, v.Reference, v.Alternate, v.Quality, v.Filter, v.Info} {
		b.WriteByte('\t')
		b.WriteString(orMissing(field))
	}
	if len(h.Samples) > 0 {
		b.WriteByte('\t')
		b.WriteString(orMissing(v.Format))

		cells := make([]string, len(h.Samples))
		columns := h.columns[sourceKey{v.StudyID, v.FileID}]
		for i, value := range v.Samples {
			if i < len(columns) {
				cells[columns[i]] = value
			}
		}
		for _, cell := range cells {
			b.WriteByte('\t')
			b.WriteString(orMissing(cell))
		}
	}
	b.WriteByte('\n')
	return b.String()
}

func orMissing(field string) string {
	if field == "" {
		return missing
	}
	return field
}
