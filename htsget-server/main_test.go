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

package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/googlegenomics/vcf-htsget/internal/bgzf"
	"github.com/googlegenomics/vcf-htsget/internal/config"
	"github.com/googlegenomics/vcf-htsget/internal/server"
	"github.com/googlegenomics/vcf-htsget/internal/store"
)

const testVCF = "##fileformat=VCFv4.2\n" +
	"##contig=<ID=20>\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tNA00001\tNA00002\n" +
	"20\t14370\trs6054257\tG\tA\t29\tPASS\tDP=14\tGT\t0|0\t1|0\n" +
	"20\t17330\t.\tT\tA\t3\tq10\tDP=11\tGT\t0|0\t0|1\n" +
	"20\t1110696\trs6040355\tA\tG,T\t67\tPASS\tDP=10\tGT\t1|2\t2|1\n"

func testConfig(t *testing.T) config.Config {
	return config.Config{
		DataDir:      t.TempDir(),
		BlockSize:    1000000,
		TenantPrefix: "eva_",
		CORSOrigins:  []string{"*"},
		LogLevel:     "info",
		LogFormat:    "json",
	}
}

// writeFile writes testVCF to name, compressed with "gzip", "bgzf" or not at
// all.
func writeFile(t *testing.T, name, compression string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	var w io.WriteCloser
	switch compression {
	case "gzip":
		w = gzip.NewWriter(f)
	case "bgzf":
		w = bgzf.NewWriter(f)
	}
	if w == nil {
		_, err = io.WriteString(f, testVCF)
		require.NoError(t, err)
		return path
	}
	_, err = io.WriteString(w, testVCF)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	if compression == "bgzf" {
		_, err = f.Write(bgzf.EOFMarker())
		require.NoError(t, err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	for _, compression := range []string{"plain", "gzip", "bgzf"} {
		t.Run(compression, func(t *testing.T) {
			cfg := testConfig(t)
			path := writeFile(t, "sample.vcf.gz", compression)

			source := store.Source{StudyID: "PRJEB1", FileID: fileID(path)}
			n, err := loadFile(context.Background(), cfg, zerolog.Nop(), "hsapiens_grch37", source, path)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
			assert.FileExists(t, filepath.Join(cfg.DataDir, "eva_hsapiens_grch37.db"))
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	cfg := testConfig(t)
	source := store.Source{StudyID: "PRJEB1", FileID: "f"}

	_, err := loadFile(context.Background(), cfg, zerolog.Nop(), "hsapiens", source, filepath.Join(t.TempDir(), "missing.vcf"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.vcf")
	require.NoError(t, os.WriteFile(path, []byte("20\t1\t.\tA\tG\t.\t.\t.\n"), 0o644))
	_, err = loadFile(context.Background(), cfg, zerolog.Nop(), "hsapiens", source, path)
	assert.Error(t, err)
}

func TestServeLoadedFile(t *testing.T) {
	cfg := testConfig(t)
	path := writeFile(t, "sample.vcf", "plain")
	_, err := loadFile(context.Background(), cfg, zerolog.Nop(), "hsapiens_grch37",
		store.Source{StudyID: "PRJEB1", FileID: "sample"}, path)
	require.NoError(t, err)

	handler, closeStore, err := server.NewHandler(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer closeStore()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/v1/variants/PRJEB1?format=VCF&referenceName=20&species=hsapiens_grch37", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var ticket struct {
		Htsget struct {
			Blocks []struct {
				Start uint64 `json:"start"`
				End   uint64 `json:"end"`
			} `json:"blocks"`
			URLs []struct {
				URL string `json:"url"`
			} `json:"urls"`
		} `json:"htsget"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ticket))
	require.Len(t, ticket.Htsget.Blocks, 2)
	assert.Equal(t, uint64(14370), ticket.Htsget.Blocks[0].Start)
	assert.Equal(t, uint64(1110696), ticket.Htsget.Blocks[1].End)

	var assembled string
	for _, url := range ticket.Htsget.URLs {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url.URL, nil))
		require.Equal(t, http.StatusOK, w.Code, url.URL)
		assembled += w.Body.String()
	}
	assert.Equal(t, testVCF, assembled)
}

func TestFileID(t *testing.T) {
	assert.Equal(t, "ERZ123", fileID("/data/ERZ123.vcf.gz"))
	assert.Equal(t, "calls", fileID("calls.vcf"))
}

func TestStartProfile_UnknownMode(t *testing.T) {
	_, err := startProfile("block", t.TempDir())
	assert.Error(t, err)
}
