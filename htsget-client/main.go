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

// This binary provides an htsget client that downloads a VCF dataset,
// optionally authenticating with Google credentials.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/googlegenomics/vcf-htsget/internal/log"
)

const (
	scope = "https://www.googleapis.com/auth/userinfo.email"
)

var (
	reference  = flag.String("r", "", "reference name")
	species    = flag.String("species", "", "species, e.g. ecaballus_20")
	start      = flag.Uint64("start", 0, "first base to fetch (default: first variant)")
	end        = flag.Uint64("end", 0, "last base to fetch (default: last variant)")
	outputName = flag.String("o", "-", "output file name, gs://bucket/object or - for stdout")
	auth       = flag.Bool("auth", false, "authenticate requests with Google application default credentials")
	verbose    = flag.Bool("v", false, "log debug messages")
)

func main() {
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logger, err := log.New(level, "pretty", os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(context.Background(), logger); err != nil {
		logger.Fatal().Err(err).Msg("htsget-client failed")
	}
}

func run(ctx context.Context, logger zerolog.Logger) error {
	if flag.NArg() == 0 {
		return fmt.Errorf("usage: %s [flags] URL...", os.Args[0])
	}

	// For compatibility with other tools, read the standard cURL certificate
	// authority override from the environment.
	if bundle := os.Getenv("CURL_CA_BUNDLE"); bundle != "" {
		client, err := clientWithBundle(bundle)
		if err != nil {
			return err
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
		logger.Info().Str("bundle", bundle).Msg("using CA override bundle")
	}

	client := http.DefaultClient
	if c, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok {
		client = c
	}
	if *auth {
		c, err := google.DefaultClient(ctx, scope)
		if err != nil {
			return fmt.Errorf("creating client: %v", err)
		}
		client = c
	}

	out, err := newOutput(ctx, *outputName)
	if err != nil {
		return err
	}

	f := &fetcher{client: client, logger: logger}
	for _, target := range flag.Args() {
		target = withParameters(target, map[string]string{
			"format":        "VCF",
			"referenceName": *reference,
			"species":       *species,
			"start":         optional(*start),
			"end":           optional(*end),
		})
		if err := f.download(ctx, target, out); err != nil {
			out.Abort()
			return err
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing output: %v", err)
	}
	return nil
}

func clientWithBundle(bundle string) (*http.Client, error) {
	pem, err := os.ReadFile(bundle)
	if err != nil {
		return nil, fmt.Errorf("reading CA override file %q: %v", bundle, err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		return nil, fmt.Errorf("initializing system certificate pool: %v", err)
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("adding certificates from bundle %q", bundle)
	}
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs: pool,
			}},
	}, nil
}

func optional(n uint64) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprint(n)
}
