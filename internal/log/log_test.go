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

package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("warn", "json", &buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("species", "ecaballus").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "ecaballus", entry["species"])
	assert.Equal(t, "shown", entry["message"])
}

func TestNewPretty(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("", "pretty", &buf)
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	logger.Info().Msg("started")
	assert.Contains(t, buf.String(), "started")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewErrors(t *testing.T) {
	_, err := New("loud", "json", &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New("info", "xml", &bytes.Buffer{})
	assert.Error(t, err)
}

func newEngine(buf *bytes.Buffer, handler gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(Middleware(zerolog.New(buf)))
	engine.GET("/", handler)
	return engine
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "line %q", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	engine := newEngine(&buf, func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("handling")
		c.String(http.StatusOK, "hello")
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	id := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, id)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "handling", entries[0]["message"])
	assert.Equal(t, id, entries[0]["request_id"])
	assert.Equal(t, "request", entries[1]["message"])
	assert.Equal(t, id, entries[1]["request_id"])
	assert.Equal(t, float64(http.StatusOK), entries[1]["status"])
	assert.Equal(t, float64(5), entries[1]["bytes"])
}

func TestMiddlewareKeepsRequestID(t *testing.T) {
	var buf bytes.Buffer
	engine := newEngine(&buf, func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

func TestMiddlewareRecovers(t *testing.T) {
	var buf bytes.Buffer
	engine := newEngine(&buf, func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0]["level"])
	assert.Equal(t, "boom", entries[0]["panic"])
}

func TestMiddlewareAbortsCommittedResponse(t *testing.T) {
	for name, handler := range map[string]gin.HandlerFunc{
		"abort": func(c *gin.Context) {
			c.String(http.StatusOK, "partial")
			panic(http.ErrAbortHandler)
		},
		"panic after write": func(c *gin.Context) {
			c.String(http.StatusOK, "partial")
			panic("boom")
		},
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			engine := newEngine(&buf, handler)
			assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
				engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
			})
		})
	}
}
