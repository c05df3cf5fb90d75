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
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coordinate(n uint64) *uint64 { return &n }

func TestValidate(t *testing.T) {
	valid := func() *exportRequest {
		return &exportRequest{
			id:            "PRJEB1",
			studies:       []string{"PRJEB1"},
			species:       "ecaballus_20",
			format:        vcfFormat,
			referenceName: "1",
		}
	}
	testCases := []struct {
		name   string
		modify func(*exportRequest)
		want   string
	}{
		{"valid", func(*exportRequest) {}, ""},
		{"valid range", func(r *exportRequest) { r.start, r.end = coordinate(1), coordinate(2) }, ""},
		{"BCF without other parameters", func(r *exportRequest) { *r = exportRequest{format: "BCF"} }, "UnsupportedFormat"},
		{"missing format", func(r *exportRequest) { r.format = "" }, "UnsupportedFormat"},
		{"lowercase format", func(r *exportRequest) { r.format = "vcf" }, "UnsupportedFormat"},
		{"format before range", func(r *exportRequest) {
			r.format = "BAM"
			r.start, r.end = coordinate(3000000), coordinate(2000000)
		}, "UnsupportedFormat"},
		{"malformed start", func(r *exportRequest) { r.malformed = &invalidParameterError{"start", "x", nil} }, "InvalidInput"},
		{"end before start", func(r *exportRequest) { r.start, r.end = coordinate(3000000), coordinate(2000000) }, "InvalidRange"},
		{"end equals start", func(r *exportRequest) { r.start, r.end = coordinate(5), coordinate(5) }, "InvalidRange"},
		{"range before reference", func(r *exportRequest) {
			r.referenceName = ""
			r.start, r.end = coordinate(3000000), coordinate(2000000)
		}, "InvalidRange"},
		{"start without reference", func(r *exportRequest) {
			r.referenceName = ""
			r.start = coordinate(100)
		}, "InvalidInput"},
		{"no reference and no start", func(r *exportRequest) { r.referenceName = "" }, "Unsupported"},
		{"end without reference", func(r *exportRequest) {
			r.referenceName = ""
			r.end = coordinate(100)
		}, "Unsupported"},
		{"missing species", func(r *exportRequest) { r.species = "" }, "InvalidInput"},
		{"missing studies", func(r *exportRequest) { r.studies = nil }, "InvalidInput"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid()
			tc.modify(req)
			err := req.validate()
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.want, errorName(err))
		})
	}
}

func TestNewExportRequest(t *testing.T) {
	testCases := []struct {
		name      string
		url       string
		studies   []string
		start     *uint64
		end       *uint64
		malformed bool
	}{
		{"no range", "/PRJEB1?format=VCF", []string{"PRJEB1"}, nil, nil, false},
		{"range", "/PRJEB1?start=10&end=20", []string{"PRJEB1"}, coordinate(10), coordinate(20), false},
		{"study list", "/PRJEB1,PRJEB2,,PRJEB1", []string{"PRJEB1", "PRJEB2"}, nil, nil, false},
		{"zero start", "/PRJEB1?start=0", []string{"PRJEB1"}, nil, nil, true},
		{"negative end", "/PRJEB1?end=-5", []string{"PRJEB1"}, nil, nil, true},
		{"text start", "/PRJEB1?start=first&end=20", []string{"PRJEB1"}, nil, coordinate(20), true},
		{"largest end", "/PRJEB1?start=1&end=9223372036854775807", []string{"PRJEB1"}, coordinate(1), coordinate(9223372036854775807), false},
		{"end past signed range", "/PRJEB1?start=1&end=9223372036854775808", []string{"PRJEB1"}, coordinate(1), nil, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var req *exportRequest
			engine := gin.New()
			engine.GET("/:id", func(c *gin.Context) { req = newExportRequest(c) })
			engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", tc.url, nil))

			require.NotNil(t, req)
			assert.Equal(t, tc.studies, req.studies)
			assert.Equal(t, tc.start, req.start)
			assert.Equal(t, tc.end, req.end)
			assert.Equal(t, tc.malformed, req.malformed != nil)
		})
	}
}

func TestParseStudies(t *testing.T) {
	assert.Equal(t, []string{"PRJEB1", "PRJEB2", "PRJEB3"},
		parseStudies([]string{"PRJEB1, PRJEB2", "PRJEB3", "PRJEB1"}))
	assert.Empty(t, parseStudies([]string{"", ","}))
}
