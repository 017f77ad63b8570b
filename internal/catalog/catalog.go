// Package catalog implements fetching version lists and descriptor blobs
// from configured origins, and picking the best version satisfying a
// constraint across a priority-ordered list of origins. Grounded on dep's
// SourceManager (source_manager.go) — a small interface fronting a
// network-backed resource, with the manager fanning out across several
// named sources and aggregating their answers.
package catalog

import (
 "context"
 "fmt"
 "sort"
 "strings"
 "sync"
 "time"

 "pax/internal/metadata"
 "pax/internal/pkgerrors"
 "pax/internal/version"
)

// Origin is one configured source of packages: a fetchable, listable
// catalog backend. The implementations live in http.go: NativeOrigin,
// GithubOrigin, AptOrigin, RPMOrigin (serving both rpm and yum) and
// ObjectStoreOrigin; no Origin serves the deb kind.
type Origin interface {
 // Name identifies this origin for priority ordering and error messages.
 Name() string
 // ListVersions returns the versions name advertises at this origin. An
 // empty, error-free result means the origin has no such package.
 ListVersions(ctx context.Context, name string) ([]version.Version, error)
 // FetchDescriptor retrieves and parses the descriptor for name at the
 // given version.
 FetchDescriptor(ctx context.Context, name string, v version.Version) (metadata.PackageRecord, error)
 // Search returns brief (name, description) hits for pattern. Origins
 // that cannot search return (nil, nil).
 Search(ctx context.Context, pattern string) ([]Brief, error)
 // PayloadURL returns where the installable archive for name at v can be
 // fetched, its own "GET <origin>/packages/<name>/<version>.<ext>"
 // contract (or the format-specific equivalent, e.g. a GitHub release
 // asset or an RPM's own URL).
 PayloadURL(name string, v version.Version) (string, error)
}

// Brief is one search hit.
type Brief struct {
 Name string
 Description string
}

// searchCacheTTL bounds how long a search result is reused before the next
// Update call invalidates it, keeping repeated search invocations from
// re-hitting slow origins.
const searchCacheTTL = 5 * time.Minute

type searchCacheEntry struct {
 at time.Time
 results map[string][]Brief
}

// Client fronts a priority-ordered list of origins.
type Client struct {
 origins []Origin

 mu sync.Mutex
 cache map[string]searchCacheEntry
}

// New builds a Client over origins, in declared priority order (earlier
// origins are preferred by resolve_best).
func New(origins ...Origin) *Client {
 return &Client{origins: origins, cache: map[string]searchCacheEntry{}}
}

// ListVersions returns the versions name advertises at origin.
func (c *Client) ListVersions(ctx context.Context, name string, origin Origin) ([]version.Version, error) {
 return origin.ListVersions(ctx, name)
}

// FetchDescriptor fetches and parses a single record from origin.
func (c *Client) FetchDescriptor(ctx context.Context, name string, v version.Version, origin Origin) (metadata.PackageRecord, error) {
 return origin.FetchDescriptor(ctx, name, v)
}

// ResolveBest iterates origins in declared priority, asking each for
// versions, filters by r, and selects the highest satisfying version.
// Failure of an individual origin is not fatal: errors are accumulated and
// reported only if every origin fails or none has a match.
func (c *Client) ResolveBest(ctx context.Context, name string, r version.Range) (version.Version, Origin, error) {
 var errs []string
 for _, o := range c.origins {
 vs, err := o.ListVersions(ctx, name)
 if err != nil {
 errs = append(errs, fmt.Sprintf("%s: %v", o.Name(), err))
 continue
 }
 if best, ok := version.Highest(vs, r); ok {
 return best, o, nil
 }
 }
 if len(errs) > 0 {
 return version.Version{}, nil, pkgerrors.New(pkgerrors.NotFound,
 "no origin satisfies %s%s: %s", name, r.String(), strings.Join(errs, "; "))
 }
 return version.Version{}, nil, pkgerrors.New(pkgerrors.NotFound, "no origin has a version of %s satisfying %s", name, r.String())
}

// Search runs pattern across every configured origin, aggregating hits by
// origin name. Results are cached for searchCacheTTL; Update invalidates
// the cache.
func (c *Client) Search(ctx context.Context, pattern string) (map[string][]Brief, error) {
 c.mu.Lock()
 if entry, ok := c.cache[pattern]; ok && time.Since(entry.at) < searchCacheTTL {
 c.mu.Unlock()
 return entry.results, nil
 }
 c.mu.Unlock()

 results := map[string][]Brief{}
 var errs []string
 for _, o := range c.origins {
 hits, err := o.Search(ctx, pattern)
 if err != nil {
 errs = append(errs, fmt.Sprintf("%s: %v", o.Name(), err))
 continue
 }
 if len(hits) > 0 {
 results[o.Name()] = hits
 }
 }
 if len(results) == 0 && len(errs) > 0 {
 return nil, pkgerrors.New(pkgerrors.Network, "search %q failed on every origin: %s", pattern, strings.Join(errs, "; "))
 }

 c.mu.Lock()
 c.cache[pattern] = searchCacheEntry{at: time.Now(), results: results}
 c.mu.Unlock()
 return results, nil
}

// Update invalidates the search cache, forcing the next Search to hit every
// origin again.
func (c *Client) Update() {
 c.mu.Lock()
 defer c.mu.Unlock()
 c.cache = map[string]searchCacheEntry{}
}

// Origins returns the configured origins in priority order, for callers
// that need to enumerate them directly (e.g. the resolver's candidate map
// population).
func (c *Client) Origins() []Origin {
 out := make([]Origin, len(c.origins))
 copy(out, c.origins)
 return out
}

// SortBriefsByName orders search hits deterministically for display.
func SortBriefsByName(briefs []Brief) {
 sort.Slice(briefs, func(i, j int) bool { return briefs[i].Name < briefs[j].Name })
}
