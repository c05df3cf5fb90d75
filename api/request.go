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

package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/googlegenomics/vcf-htsget/internal/genomics"
)

// exportRequest holds the parameters of one ticket request.
type exportRequest struct {
	id            string
	studies       []string
	species       string
	format        string
	referenceName string
	start, end    *uint64

	// malformed is set when start or end is not a coordinate.
	malformed error
}

func newExportRequest(c *gin.Context) *exportRequest {
	query := c.Request.URL.Query()
	req := &exportRequest{
		id:            c.Param("id"),
		studies:       parseStudies([]string{c.Param("id")}),
		species:       query.Get("species"),
		format:        query.Get("format"),
		referenceName: query.Get("referenceName"),
	}
	req.start, req.malformed = parseCoordinate(query, "start", req.malformed)
	req.end, req.malformed = parseCoordinate(query, "end", req.malformed)
	return req
}

// parseCoordinate parses the optional coordinate parameter key, keeping the
// first error seen.  Coordinates range from 1 to genomics.MaxCoordinate.
func parseCoordinate(query url.Values, key string, prev error) (*uint64, error) {
	value := query.Get(key)
	if value == "" {
		return nil, prev
	}
	n, err := strconv.ParseUint(value, 10, 63)
	if err == nil && n == 0 {
		err = strconv.ErrRange
	}
	if err != nil {
		if prev == nil {
			prev = &invalidParameterError{key, value, err}
		}
		return nil, prev
	}
	return &n, prev
}

type invalidParameterError struct {
	key, value string
	err        error
}

func (e *invalidParameterError) Error() string {
	return "Invalid value " + strconv.Quote(e.value) + " for '" + e.key + "': must be an integer from 1 to " + strconv.FormatUint(genomics.MaxCoordinate, 10)
}

func (e *invalidParameterError) Unwrap() error { return e.err }

// parseStudies flattens repeated and comma separated study identifiers,
// dropping empty and duplicate entries.
func parseStudies(values []string) []string {
	var studies []string
	seen := make(map[string]bool)
	for _, value := range values {
		for _, study := range strings.Split(value, ",") {
			study = strings.TrimSpace(study)
			if study != "" && !seen[study] {
				seen[study] = true
				studies = append(studies, study)
			}
		}
	}
	return studies
}
