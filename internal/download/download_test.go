package download

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestManager(t *testing.T) (*Manager, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.pkg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, "payload for %s", r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	m := New(t.TempDir(), time.Second, 5*time.Second, 2)
	return m, srv
}

func TestDownloadFetchesAndCaches(t *testing.T) {
	m, srv := newTestManager(t)

	path, err := m.Download(context.Background(), srv.URL+"/foo-1.0.0.pkg", "foo-1.0.0.pkg")
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload for /foo-1.0.0.pkg" {
		t.Fatalf("unexpected payload: %s", data)
	}

	// second call should hit the cache without re-fetching; shut down the
	// server to prove it.
	srv.Close()
	path2, err := m.Download(context.Background(), srv.URL+"/foo-1.0.0.pkg", "foo-1.0.0.pkg")
	if err != nil {
		t.Fatalf("expected cache hit without network, got %v", err)
	}
	if path2 != path {
		t.Fatalf("expected same cached path, got %s vs %s", path2, path)
	}
}

func TestDownloadMissingReturnsNotFound(t *testing.T) {
	m, srv := newTestManager(t)
	_, err := m.Download(context.Background(), srv.URL+"/missing.pkg", "missing.pkg")
	if err == nil {
		t.Fatal("expected error for missing package")
	}
}

func TestDownloadSignatureAppendsSuffix(t *testing.T) {
	m, srv := newTestManager(t)
	path, err := m.DownloadSignature(context.Background(), srv.URL+"/foo-1.0.0.pkg.sig", "foo-1.0.0.pkg")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "foo-1.0.0.pkg.sig" {
		t.Fatalf("expected .sig suffix, got %s", path)
	}
}

func TestFetchAllRunsConcurrentlyAndReportsPerResult(t *testing.T) {
	m, srv := newTestManager(t)
	fetches := []Fetch{
		{URL: srv.URL + "/a-1.0.0.pkg", DestName: "a-1.0.0.pkg"},
		{URL: srv.URL + "/b-1.0.0.pkg", DestName: "b-1.0.0.pkg"},
		{URL: srv.URL + "/missing.pkg", DestName: "missing.pkg"},
	}
	results := m.FetchAll(context.Background(), fetches)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	okCount := 0
	errCount := 0
	for _, r := range results {
		if r.Err == nil {
			okCount++
		} else {
			errCount++
		}
	}
	if okCount != 2 || errCount != 1 {
		t.Fatalf("expected 2 ok, 1 error, got ok=%d err=%d", okCount, errCount)
	}
}

func TestCacheSizeAndClearCache(t *testing.T) {
	m, srv := newTestManager(t)
	if _, err := m.Download(context.Background(), srv.URL+"/foo-1.0.0.pkg", "foo-1.0.0.pkg"); err != nil {
		t.Fatal(err)
	}
	size, err := m.CacheSize()
	if err != nil {
		t.Fatal(err)
	}
	if size == 0 {
		t.Fatal("expected non-zero cache size after download")
	}
	if err := m.ClearCache(); err != nil {
		t.Fatal(err)
	}
	size, err = m.CacheSize()
	if err != nil {
		t.Fatal(err)
	}
	if size != 0 {
		t.Fatalf("expected empty cache after ClearCache, got %d bytes", size)
	}
}

func TestTrimKeepsOnlyLatestPerPackage(t *testing.T) {
	m, _ := newTestManager(t)
	dir := m.cacheDir

	write := func(name string, age time.Duration) {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		modTime := time.Now().Add(-age)
		if err := os.Chtimes(p, modTime, modTime); err != nil {
			t.Fatal(err)
		}
	}

	write("curl-7.60.0.pkg", 3*time.Hour)
	write("curl-7.68.0.pkg", 2*time.Hour)
	write("curl-7.70.0.pkg", time.Hour)
	write("wget-1.20.0.pkg", time.Hour)

	if err := m.Trim(1); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	remaining := map[string]bool{}
	for _, e := range entries {
		remaining[e.Name()] = true
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 files to remain, got %v", remaining)
	}
	if !remaining["curl-7.70.0.pkg"] {
		t.Error("expected newest curl package to remain")
	}
	if !remaining["wget-1.20.0.pkg"] {
		t.Error("expected sole wget package to remain")
	}
}
