// Package download implements fetching package archives and detached
// signatures into an on-disk cache, with parallel fan-out across multiple
// URLs and LRU-by-package trimming. Grounded on original_source/src/download
// (download_package's cache-check-then-rename pattern, clean_old_cache's
// prefix grouping) and on dep's source_manager.go/sm_cache.go shape for a
// network-backed resource with an on-disk cache layered in front of it;
// parallel fetches use golang.org/x/sync/errgroup the way the wider
// example corpus fans out blob fetches.
package download

import (
 "context"
 "io"
 "net"
 "net/http"
 "os"
 "path/filepath"
 "sort"
 "time"

 "golang.org/x/sync/errgroup"

 "pax/internal/pkgerrors"
)

// Manager fetches package archives and signatures into cacheDir, honoring a
// connect timeout and a total-request timeout on every network operation.
type Manager struct {
 cacheDir string
 client *http.Client
 limit int
}

// New builds a Manager rooted at cacheDir. connectTimeout bounds dial+TLS
// handshake; totalTimeout bounds the entire request including body
// transfer. concurrencyLimit bounds parallel fan-out in FetchAll; <= 0
// falls back to 4, keeping fan-out bounded rather than left unbounded.
func New(cacheDir string, connectTimeout, totalTimeout time.Duration, concurrencyLimit int) *Manager {
 if concurrencyLimit <= 0 {
 concurrencyLimit = 4
 }
 transport := &http.Transport{
 DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
 }
 return &Manager{
 cacheDir: cacheDir,
 client: &http.Client{Timeout: totalTimeout, Transport: transport},
 limit: concurrencyLimit,
 }
}

// CachePath returns where destName would live in the cache, regardless of
// whether it has been downloaded yet.
func (m *Manager) CachePath(destName string) string {
 return filepath.Join(m.cacheDir, destName)
}

// Download returns the cached path for destName if already present,
// otherwise fetches url to a temporary sibling file and renames it into
// place on success.
func (m *Manager) Download(ctx context.Context, url, destName string) (string, error) {
 final := m.CachePath(destName)
 if _, err := os.Stat(final); err == nil {
 return final, nil
 }

 if err := os.MkdirAll(m.cacheDir, 0o755); err != nil {
 return "", pkgerrors.Wrap(pkgerrors.IO, err, "create cache directory")
 }

 tmp := final + ".tmp"
 if err := m.fetchToFile(ctx, url, tmp); err != nil {
 os.Remove(tmp)
 return "", err
 }
 if err := os.Rename(tmp, final); err != nil {
 os.Remove(tmp)
 return "", pkgerrors.Wrap(pkgerrors.IO, err, "finalize download of "+destName)
 }
 return final, nil
}

// DownloadSignature mirrors Download for a package's detached signature
// file.
func (m *Manager) DownloadSignature(ctx context.Context, url, destName string) (string, error) {
 return m.Download(ctx, url, destName+".sig")
}

func (m *Manager) fetchToFile(ctx context.Context, url, dest string) error {
 req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
 if err != nil {
 return pkgerrors.Wrap(pkgerrors.Input, err, "build download request for "+url)
 }
 resp, err := m.client.Do(req)
 if err != nil {
 return pkgerrors.Wrap(pkgerrors.Network, err, "download "+url)
 }
 defer resp.Body.Close()
 if resp.StatusCode == http.StatusNotFound {
 return pkgerrors.New(pkgerrors.NotFound, "%s: %s", url, http.StatusText(resp.StatusCode))
 }
 if resp.StatusCode != http.StatusOK {
 return pkgerrors.New(pkgerrors.Network, "%s: %s", url, http.StatusText(resp.StatusCode))
 }

 f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
 if err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "create temporary download file")
 }
 defer f.Close()

 if _, err := io.Copy(f, resp.Body); err != nil {
 return pkgerrors.Wrap(pkgerrors.Network, err, "write download body for "+url)
 }
 return nil
}

// Fetch is one requested download in a FetchAll batch.
type Fetch struct {
 URL string
 DestName string
}

// Result pairs a Fetch with its outcome.
type Result struct {
 Fetch Fetch
 Path string
 Err error
}

// FetchAll downloads every fetch concurrently, bounded by the Manager's
// configured concurrency limit. A single fetch's failure does not cancel
// the others; every Result is returned.
func (m *Manager) FetchAll(ctx context.Context, fetches []Fetch) []Result {
 results := make([]Result, len(fetches))
 g, ctx := errgroup.WithContext(ctx)
 g.SetLimit(m.limit)

 for i, f := range fetches {
 i, f := i, f
 g.Go(func() error {
 path, err := m.Download(ctx, f.URL, f.DestName)
 results[i] = Result{Fetch: f, Path: path, Err: err}
 return nil // individual errors are reported per-result, not propagated
 })
 }
 _ = g.Wait()
 return results
}

// CacheSize returns the total size in bytes of every regular file directly
// under the cache directory.
func (m *Manager) CacheSize() (int64, error) {
 entries, err := os.ReadDir(m.cacheDir)
 if err != nil {
 if os.IsNotExist(err) {
 return 0, nil
 }
 return 0, pkgerrors.Wrap(pkgerrors.IO, err, "read cache directory")
 }
 var total int64
 for _, e := range entries {
 if e.IsDir() {
 continue
 }
 info, err := e.Info()
 if err != nil {
 continue
 }
 total += info.Size()
 }
 return total, nil
}

// ClearCache deletes every cached download.
func (m *Manager) ClearCache() error {
 entries, err := os.ReadDir(m.cacheDir)
 if err != nil {
 if os.IsNotExist(err) {
 return nil
 }
 return pkgerrors.Wrap(pkgerrors.IO, err, "read cache directory")
 }
 for _, e := range entries {
 if err := os.RemoveAll(filepath.Join(m.cacheDir, e.Name())); err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "remove cache entry "+e.Name())
 }
 }
 return nil
}

// Trim groups cache filenames by their package-name prefix (the portion
// before the first digit, matching the `<pkg>-<version>.pkg` naming
// convention) and deletes all but the keepLatestPerPackage most recently
// modified files in each group, per original_source/src/download's
// clean_old_cache.
func (m *Manager) Trim(keepLatestPerPackage int) error {
 entries, err := os.ReadDir(m.cacheDir)
 if err != nil {
 if os.IsNotExist(err) {
 return nil
 }
 return pkgerrors.Wrap(pkgerrors.IO, err, "read cache directory")
 }

 type fileInfo struct {
 name string
 modTime time.Time
 }
 groups := map[string][]fileInfo{}
 for _, e := range entries {
 if e.IsDir() {
 continue
 }
 info, err := e.Info()
 if err != nil {
 continue
 }
 prefix := packagePrefix(e.Name())
 groups[prefix] = append(groups[prefix], fileInfo{name: e.Name(), modTime: info.ModTime()})
 }

 for _, files := range groups {
 sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })
 if len(files) <= keepLatestPerPackage {
 continue
 }
 for _, f := range files[keepLatestPerPackage:] {
 if err := os.Remove(filepath.Join(m.cacheDir, f.name)); err != nil && !os.IsNotExist(err) {
 return pkgerrors.Wrap(pkgerrors.IO, err, "trim cache entry "+f.name)
 }
 }
 }
 return nil
}

// packagePrefix returns the portion of a cache filename before its first
// ASCII digit, the package-name grouping key for the
// `<pkg>-<version>.pkg` convention (e.g. "curl-7.68.0.pkg" -> "curl-").
func packagePrefix(name string) string {
 for i, r := range name {
 if r >= '0' && r <= '9' {
 return name[:i]
 }
 }
 return name
}
