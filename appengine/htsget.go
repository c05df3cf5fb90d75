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

// This binary serves the htsget API on App Engine.  It is configured through
// the same HTSGET_* environment variables as htsget-server; App Engine
// supplies PORT.
package main

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"google.golang.org/appengine"

	"github.com/googlegenomics/vcf-htsget/internal/config"
	"github.com/googlegenomics/vcf-htsget/internal/log"
	"github.com/googlegenomics/vcf-htsget/internal/server"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("loading configuration")
	}
	format := cfg.LogFormat
	if appengine.IsAppEngine() {
		format = "json"
	}
	logger, err := log.New(cfg.LogLevel, format, os.Stderr)
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("creating logger")
	}

	handler, _, err := server.NewHandler(cfg, logger, traceRequests)
	if err != nil {
		logger.Fatal().Err(err).Msg("creating handler")
	}
	http.Handle("/", handler)
	appengine.Main()
}

// traceRequests adds the App Engine request id to the request logger.
func traceRequests(c *gin.Context) {
	if !appengine.IsAppEngine() {
		return
	}
	ctx := appengine.NewContext(c.Request)
	logger := zerolog.Ctx(c.Request.Context()).With().Str("appengine_request", appengine.RequestID(ctx)).Logger()
	c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
}
