// Copyright 2017 Google Inc.
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

// Package api implements the htsget variant retrieval API.
//
// The protocol is modelled on htsget v1.0.0, defined at
// http://samtools.github.io/hts-specs/htsget.html, and serves VCF exported
// from per-species variant databases.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/googlegenomics/vcf-htsget/internal/genomics"
	"github.com/googlegenomics/vcf-htsget/internal/store"
	"github.com/googlegenomics/vcf-htsget/internal/tenant"
)

const (
	variantsPath = "/v1/variants"
	headersPath  = "/headers"
	blockPath    = "/block"
	healthPath   = "/healthz"

	vcfFormat = "VCF"
)

// Server provides an htsget protocol server.  Must be created with NewServer.
type Server struct {
	gateway     store.Gateway
	resolver    *tenant.Resolver
	blockSize   uint64
	maxBlocks   uint64
	compress    bool
	contextPath string
	logger      zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithBGZF makes the server compress header and block streams with BGZF.
func WithBGZF(enabled bool) Option {
	return func(s *Server) { s.compress = enabled }
}

// WithMaxBlocks limits the number of blocks in a ticket; larger ranges are
// rejected as InvalidRange.  Zero keeps the default, genomics.MaxBlocks,
// which is also the upper bound.
func WithMaxBlocks(n uint64) Option {
	return func(s *Server) {
		if n > 0 && n < genomics.MaxBlocks {
			s.maxBlocks = n
		}
	}
}

// WithContextPath mounts the API under path, e.g. "/eva".
func WithContextPath(path string) Option {
	return func(s *Server) { s.contextPath = strings.TrimSuffix(path, "/") }
}

// WithLogger sets the logger used for events not tied to a request.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer returns a new Server reading variants through gateway.  Species
// are mapped to databases by resolver and tickets divide ranges into blocks
// of blockSize bases.
func NewServer(gateway store.Gateway, resolver *tenant.Resolver, blockSize uint64, options ...Option) *Server {
	server := &Server{
		gateway:   gateway,
		resolver:  resolver,
		blockSize: blockSize,
		maxBlocks: genomics.MaxBlocks,
		logger:    zerolog.Nop(),
	}
	for _, option := range options {
		option(server)
	}
	return server
}

// Export registers the htsget API endpoints with router.
func (server *Server) Export(router gin.IRouter) {
	group := router.Group(server.contextPath + variantsPath)
	group.GET(headersPath, server.serveHeaders)
	group.GET(blockPath, server.serveBlock)
	group.GET("/:id", server.serveTicket)
}

// Handler returns an http.Handler serving the API and a health check.  The
// middleware runs before every request; responses carry CORS headers for
// origins ("*" allows any origin).
func (server *Server) Handler(origins []string, middleware ...gin.HandlerFunc) http.Handler {
	engine := gin.New()
	engine.Use(middleware...)
	engine.GET(healthPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	server.Export(engine)

	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: false,
	}).Handler(engine)
}

// Client-facing messages of the protocol errors.
var (
	errUnsupportedFormat   = errors.New("The requested file format is not supported by the server")
	errInvalidRange        = errors.New("The requested range cannot be satisfied")
	errTooManyBlocks       = errors.New("The requested range is too large")
	errStartWithoutName    = errors.New("Reference name is not specified when start is specified")
	errMissingName         = errors.New("'referenceName' is required")
	errMissingSpecies      = errors.New("'species' is required")
	errMissingStudies      = errors.New("'studies' is required")
	errMissingRegion       = errors.New("'region' is required")
	errNotFound            = errors.New("The resource requested was not found")
	errSpeciesNotAvailable = errors.New("The requested species is not available")
	errStudiesNotAvailable = errors.New("The requested study(ies) is not available")
)

// apiError is used to capture errors that have been defined in the API.
type apiError struct {
	name  string
	code  int
	cause error
}

func (err *apiError) Error() string {
	return fmt.Sprintf("%s (%d): %v", err.name, err.code, err.cause)
}

func (err *apiError) Unwrap() error {
	return err.cause
}

func newInvalidInputError(err error) error {
	return &apiError{"InvalidInput", http.StatusBadRequest, err}
}

func newInvalidRangeError(err error) error {
	return &apiError{"InvalidRange", http.StatusBadRequest, err}
}

func newUnsupportedFormatError(err error) error {
	return &apiError{"UnsupportedFormat", http.StatusBadRequest, err}
}

func newUnsupportedError(err error) error {
	return &apiError{"Unsupported", http.StatusBadRequest, err}
}

func newNotFoundError(err error) error {
	return &apiError{"NotFound", http.StatusNotFound, err}
}

// storeError converts errors from the variant store into protocol errors
// where the protocol defines one.
func storeError(context string, err error) error {
	if errors.Is(err, store.ErrUnknownTenant) {
		return newInvalidInputError(errSpeciesNotAvailable)
	}
	return fmt.Errorf("%s: %w", context, err)
}

// writeError writes either a JSON object or bare HTTP error describing err to
// w.  A JSON object is written only when the error has a name and code defined
// by the htsget specification.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.code, map[string]interface{}{
			"htsget": map[string]interface{}{
				"error":   apiErr.name,
				"message": apiErr.cause.Error(),
			},
		})
		return
	}

	writeHTTPError(w, http.StatusInternalServerError, err)
}

func writeHTTPError(w http.ResponseWriter, code int, err error) {
	http.Error(w, fmt.Sprintf("%s: %v", http.StatusText(code), err), code)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
