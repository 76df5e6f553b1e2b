package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAsset = "mermaid-ascii_Linux_x86_64.tar.gz"

func tarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o755,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func digest(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func releaseServer(t *testing.T, archive []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+mermaidASCIIVersion+"/"+testAsset {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(archive)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestInstaller(t *testing.T, srv *httptest.Server, sums map[string]string) *toolInstaller {
	t.Helper()
	return &toolInstaller{
		binDir:    filepath.Join(t.TempDir(), "bin"),
		baseURL:   srv.URL,
		client:    srv.Client(),
		checksums: sums,
		out:       io.Discard,
	}
}

func TestToolInstaller_Install(t *testing.T) {
	archive := tarGz(t, map[string]string{"dist/mermaid-ascii": "#!/bin/sh\necho hi\n", "README.md": "docs"})
	srv := releaseServer(t, archive)
	inst := newTestInstaller(t, srv, map[string]string{testAsset: digest(archive)})

	path, err := inst.install(testAsset, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(inst.binDir, mermaidASCIIBinary), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho hi\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o100, "binary must be executable")

	entries, err := os.ReadDir(inst.binDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp download is removed")
}

func TestToolInstaller_AlreadyInstalled(t *testing.T) {
	srv := releaseServer(t, nil)
	inst := newTestInstaller(t, srv, nil)
	require.NoError(t, os.MkdirAll(inst.binDir, 0o755))
	existing := filepath.Join(inst.binDir, mermaidASCIIBinary)
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0o755))

	path, err := inst.install(testAsset, false)
	require.NoError(t, err)
	assert.Equal(t, existing, path)

	_, err = inst.install(testAsset, true)
	require.Error(t, err, "force skips the shortcut and needs a checksum")
}

func TestToolInstaller_Failures(t *testing.T) {
	archive := tarGz(t, map[string]string{"mermaid-ascii": "bin"})
	noBinary := tarGz(t, map[string]string{"other": "x"})

	tests := []struct {
		name    string
		archive []byte
		sums    map[string]string
		wantErr string
	}{
		{"unknown checksum", archive, map[string]string{}, "no known checksum"},
		{"checksum mismatch", archive, map[string]string{testAsset: strings.Repeat("0", 64)}, "checksum mismatch"},
		{"binary missing from archive", noBinary, map[string]string{testAsset: digest(noBinary)}, "not found in archive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := newTestInstaller(t, releaseServer(t, tt.archive), tt.sums)
			_, err := inst.install(testAsset, false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.NoFileExists(t, filepath.Join(inst.binDir, mermaidASCIIBinary))
		})
	}
}

func TestToolInstaller_HTTPError(t *testing.T) {
	srv := releaseServer(t, nil)
	inst := newTestInstaller(t, srv, map[string]string{"mermaid-ascii_Darwin_arm64.tar.gz": strings.Repeat("a", 64)})
	_, err := inst.install("mermaid-ascii_Darwin_arm64.tar.gz", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download returned 404")
}

func TestMermaidASCIIAssetName(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         string
		wantErr      bool
	}{
		{"linux", "amd64", "mermaid-ascii_Linux_x86_64.tar.gz", false},
		{"linux", "arm64", "mermaid-ascii_Linux_arm64.tar.gz", false},
		{"darwin", "arm64", "mermaid-ascii_Darwin_arm64.tar.gz", false},
		{"windows", "amd64", "", true},
		{"linux", "riscv64", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := mermaidASCIIAssetName(tt.goos, tt.goarch)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			_, known := mermaidASCIIChecksums[got]
			assert.True(t, known)
		})
	}
}
