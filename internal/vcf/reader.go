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

package vcf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/googlegenomics/vcf-htsget/internal/store"
)

// maximumLineLength bounds the length of a single VCF line.
const maximumLineLength = 64 * 1024 * 1024

// Reader reads records from a VCF text stream.
type Reader struct {
	Meta    []string
	Samples []string

	scanner *bufio.Scanner
	line    int
}

// NewReader reads the header of the stream in r.
func NewReader(r io.Reader) (*Reader, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maximumLineLength)

	reader := &Reader{scanner: scanner}
	for scanner.Scan() {
		reader.line++
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "##"):
			reader.Meta = append(reader.Meta, line)
		case strings.HasPrefix(line, "#CHROM"):
			fields := strings.Split(line, "\t")
			if len(fields) < 8 {
				return nil, fmt.Errorf("line %d: column header has %d fields", reader.line, len(fields))
			}
			if len(fields) > 9 {
				reader.Samples = fields[9:]
			}
			return reader, nil
		default:
			return nil, fmt.Errorf("line %d: expected header line", reader.line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading header: %v", err)
	}
	return nil, errors.New("missing #CHROM header line")
}

// Read returns the next record, or io.EOF when the stream is exhausted.
func (r *Reader) Read() (*store.Variant, error) {
	for r.scanner.Scan() {
		r.line++
		line := r.scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 8 {
			return nil, fmt.Errorf("line %d: record has %d fields", r.line, len(fields))
		}
		position, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing position: %v", r.line, err)
		}
		v := &store.Variant{
			Chromosome: fields[0],
			Position:   position,
			ID:         fields[2],
			Reference:  fields[3],
			Alternate:  fields[4],
			Quality:    fields[5],
			Filter:     fields[6],
			Info:       fields[7],
		}
		if len(fields) > 8 {
			v.Format = fields[8]
			v.Samples = fields[9:]
		}
		return v, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %v", r.line+1, err)
	}
	return nil, io.EOF
}
