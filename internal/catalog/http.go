package catalog

import (
 "context"
 "encoding/json"
 "fmt"
 "io"
 "net/http"
 "net/url"
 "path"
 "strings"
 "time"

 "pax/internal/metadata"
 "pax/internal/metadata/formats"
 "pax/internal/pkgerrors"
 "pax/internal/version"
)

// httpClient wraps http.Client with a single total-timeout budget per
// request (http.Client.Timeout); it sets no separate connect timeout.
// Grounded on dep's registry.go use of http.DefaultClient.Do plus an
// explicit context per request.
type httpClient struct {
 client *http.Client
}

func newHTTPClient(totalTimeout time.Duration) *httpClient {
 return &httpClient{client: &http.Client{Timeout: totalTimeout}}
}

func (h *httpClient) get(ctx context.Context, rawURL string) ([]byte, error) {
 req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
 if err != nil {
 return nil, pkgerrors.Wrap(pkgerrors.Input, err, "build request for "+rawURL)
 }
 resp, err := h.client.Do(req)
 if err != nil {
 return nil, pkgerrors.Wrap(pkgerrors.Network, err, "fetch "+rawURL)
 }
 defer resp.Body.Close()
 if resp.StatusCode == http.StatusNotFound {
 return nil, pkgerrors.New(pkgerrors.NotFound, "%s: %s", rawURL, http.StatusText(resp.StatusCode))
 }
 if resp.StatusCode != http.StatusOK {
 return nil, pkgerrors.New(pkgerrors.Network, "%s: %s", rawURL, http.StatusText(resp.StatusCode))
 }
 body, err := io.ReadAll(resp.Body)
 if err != nil {
 return nil, pkgerrors.Wrap(pkgerrors.Network, err, "read response from "+rawURL)
 }
 return body, nil
}

func joinURL(base, elem string) (string, error) {
 u, err := url.Parse(base)
 if err != nil {
 return "", pkgerrors.Wrap(pkgerrors.Input, err, "parse origin url "+base)
 }
 u.Path = path.Join(u.Path, elem)
 return u.String(), nil
}

// NativeOrigin serves the native format over plain HTTP: a catalog
// endpoint listing versions, and per-version metadata.json + payload
// files.
type NativeOrigin struct {
 name string
 baseURL string
 http *httpClient
}

func NewNativeOrigin(name, baseURL string, totalTimeout time.Duration) *NativeOrigin {
 return &NativeOrigin{name: name, baseURL: baseURL, http: newHTTPClient(totalTimeout)}
}

func (o *NativeOrigin) Name() string { return o.name }

func (o *NativeOrigin) ListVersions(ctx context.Context, name string) ([]version.Version, error) {
 u, err := joinURL(o.baseURL, path.Join(name, "versions"))
 if err != nil {
 return nil, err
 }
 body, err := o.http.get(ctx, u)
 if pkgerrors.Is(err, pkgerrors.NotFound) {
 return nil, nil
 }
 if err != nil {
 return nil, err
 }
 return metadata.ParseVersionList(body), nil
}

func (o *NativeOrigin) FetchDescriptor(ctx context.Context, name string, v version.Version) (metadata.PackageRecord, error) {
 u, err := joinURL(o.baseURL, path.Join(name, v.String(), "metadata.json"))
 if err != nil {
 return metadata.PackageRecord{}, err
 }
 body, err := o.http.get(ctx, u)
 if err != nil {
 return metadata.PackageRecord{}, err
 }
 return formats.ParseNativeMetadataJSON(body, metadata.Origin{Kind: metadata.OriginNative, URL: u})
}

// PayloadURL implements the GET <origin>/packages/<name>/<version>.<ext>
// contract for the native format.
func (o *NativeOrigin) PayloadURL(name string, v version.Version) (string, error) {
 return joinURL(o.baseURL, path.Join("packages", name, v.String()+".pkg"))
}

func (o *NativeOrigin) Search(ctx context.Context, pattern string) ([]Brief, error) {
 u, err := joinURL(o.baseURL, "search?q="+url.QueryEscape(pattern))
 if err != nil {
 return nil, err
 }
 body, err := o.http.get(ctx, u)
 if pkgerrors.Is(err, pkgerrors.NotFound) {
 return nil, nil
 }
 if err != nil {
 return nil, err
 }
 var hits []Brief
 if err := json.Unmarshal(body, &hits); err != nil {
 return nil, pkgerrors.Wrap(pkgerrors.Input, err, "parse search response from "+u)
 }
 return hits, nil
}

// GithubOrigin lists tags via the GitHub REST API and fetches a release's
// embedded metadata.json descriptor asset, a capability original_source
// left unimplemented.
type GithubOrigin struct {
 name, user, repo string
 apiBase string // override for tests; defaults to https://api.github.com
 http *httpClient
}

func NewGithubOrigin(name, user, repo string, totalTimeout time.Duration) *GithubOrigin {
 return &GithubOrigin{name: name, user: user, repo: repo, apiBase: "https://api.github.com", http: newHTTPClient(totalTimeout)}
}

func (o *GithubOrigin) Name() string { return o.name }

func (o *GithubOrigin) ListVersions(ctx context.Context, name string) ([]version.Version, error) {
 if !strings.EqualFold(name, o.repo) {
 return nil, nil
 }
 u := fmt.Sprintf("%s/repos/%s/%s/tags", o.apiBase, o.user, o.repo)
 body, err := o.http.get(ctx, u)
 if pkgerrors.Is(err, pkgerrors.NotFound) {
 return nil, nil
 }
 if err != nil {
 return nil, err
 }
 var tags []formats.GithubTag
 if err := json.Unmarshal(body, &tags); err != nil {
 return nil, pkgerrors.Wrap(pkgerrors.Input, err, "parse github tags from "+u)
 }
 return formats.ParseGithubTags(tags), nil
}

func (o *GithubOrigin) FetchDescriptor(ctx context.Context, name string, v version.Version) (metadata.PackageRecord, error) {
 assetURL := fmt.Sprintf("https://github.com/%s/%s/releases/download/v%s/metadata.json", o.user, o.repo, v.String())
 body, err := o.http.get(ctx, assetURL)
 if err != nil && !pkgerrors.Is(err, pkgerrors.NotFound) {
 return metadata.PackageRecord{}, err
 }
 return formats.ParseGithubDescriptor(o.user, o.repo, v, "", body, "")
}

// PayloadURL points at the release asset a `pax install` would download —
// a tarball named after the repo, attached to the version's tag release.
func (o *GithubOrigin) PayloadURL(name string, v version.Version) (string, error) {
 return fmt.Sprintf("https://github.com/%s/%s/releases/download/v%s/%s.tar.gz", o.user, o.repo, v.String(), o.repo), nil
}

func (o *GithubOrigin) Search(ctx context.Context, pattern string) ([]Brief, error) {
 if !strings.Contains(strings.ToLower(o.repo), strings.ToLower(pattern)) {
 return nil, nil
 }
 return []Brief{{Name: o.repo}}, nil
}

// AptOrigin serves a Debian-style Packages index over HTTP: one stanza per
// package/version apt grammar.
type AptOrigin struct {
 name, packagesURL string
 http *httpClient
}

func NewAptOrigin(name, packagesURL string, totalTimeout time.Duration) *AptOrigin {
 return &AptOrigin{name: name, packagesURL: packagesURL, http: newHTTPClient(totalTimeout)}
}

func (o *AptOrigin) Name() string { return o.name }

func (o *AptOrigin) stanzasFor(ctx context.Context, name string) ([]metadata.PackageRecord, error) {
 body, err := o.http.get(ctx, o.packagesURL)
 if err != nil {
 return nil, err
 }
 origin := metadata.Origin{Kind: metadata.OriginApt, URL: o.packagesURL}
 var records []metadata.PackageRecord
 for _, raw := range splitStanzaBlocks(body) {
 stanzas := formats.ParseControlStanzas(raw)
 if len(stanzas) == 0 {
 continue
 }
 rec, err := formats.ParseAptPackagesStanza(stanzas[0], origin)
 if err != nil {
 continue
 }
 if rec.Name == strings.ToLower(name) {
 records = append(records, rec)
 }
 }
 return records, nil
}

func (o *AptOrigin) ListVersions(ctx context.Context, name string) ([]version.Version, error) {
 recs, err := o.stanzasFor(ctx, name)
 if err != nil {
 return nil, err
 }
 out := make([]version.Version, 0, len(recs))
 for _, r := range recs {
 out = append(out, r.Version)
 }
 return out, nil
}

func (o *AptOrigin) FetchDescriptor(ctx context.Context, name string, v version.Version) (metadata.PackageRecord, error) {
 recs, err := o.stanzasFor(ctx, name)
 if err != nil {
 return metadata.PackageRecord{}, err
 }
 for _, r := range recs {
 if r.Version.Equal(v) {
 return r, nil
 }
 }
 return metadata.PackageRecord{}, pkgerrors.New(pkgerrors.NotFound, "%s %s not found at %s", name, v.String(), o.name)
}

// PayloadURL assumes the Debian pool convention of an archive living
// alongside the Packages index it was listed from.
func (o *AptOrigin) PayloadURL(name string, v version.Version) (string, error) {
 u, err := url.Parse(o.packagesURL)
 if err != nil {
 return "", pkgerrors.Wrap(pkgerrors.Input, err, "parse packages url")
 }
 u.Path = path.Join(path.Dir(u.Path), fmt.Sprintf("%s_%s.deb", name, v.String()))
 return u.String(), nil
}

func (o *AptOrigin) Search(ctx context.Context, pattern string) ([]Brief, error) {
 body, err := o.http.get(ctx, o.packagesURL)
 if err != nil {
 return nil, err
 }
 var hits []Brief
 origin := metadata.Origin{Kind: metadata.OriginApt, URL: o.packagesURL}
 for _, raw := range splitStanzaBlocks(body) {
 stanzas := formats.ParseControlStanzas(raw)
 if len(stanzas) == 0 {
 continue
 }
 rec, err := formats.ParseAptPackagesStanza(stanzas[0], origin)
 if err != nil {
 continue
 }
 if strings.Contains(rec.Name, strings.ToLower(pattern)) {
 hits = append(hits, Brief{Name: rec.Name, Description: rec.Description})
 }
 }
 return hits, nil
}

// splitStanzaBlocks re-splits a multi-stanza control file on blank lines so
// each block can be parsed (and recognized as absent/unparseable)
// independently, rather than letting one malformed stanza abort the rest.
func splitStanzaBlocks(body []byte) [][]byte {
 var out [][]byte
 for _, block := range strings.Split(string(body), "\n\n") {
 if strings.TrimSpace(block) == "" {
 continue
 }
 out = append(out, []byte(block))
 }
 return out
}

// RPMOrigin and YumOrigin fetch an individual.rpm file directly by
// predictable URL; the RPM format carries its own header, so there is no
// separate index document to parse the way apt has Packages.
type RPMOrigin struct {
 name, baseURL string
 kindYum bool
 http *httpClient
}

func NewRPMOrigin(name, baseURL string, totalTimeout time.Duration) *RPMOrigin {
 return &RPMOrigin{name: name, baseURL: baseURL, http: newHTTPClient(totalTimeout)}
}

func NewYumOrigin(name, baseURL string, totalTimeout time.Duration) *RPMOrigin {
 return &RPMOrigin{name: name, baseURL: baseURL, kindYum: true, http: newHTTPClient(totalTimeout)}
}

func (o *RPMOrigin) Name() string { return o.name }

func (o *RPMOrigin) ListVersions(ctx context.Context, name string) ([]version.Version, error) {
 u, err := joinURL(o.baseURL, path.Join(name, "versions"))
 if err != nil {
 return nil, err
 }
 body, err := o.http.get(ctx, u)
 if pkgerrors.Is(err, pkgerrors.NotFound) {
 return nil, nil
 }
 if err != nil {
 return nil, err
 }
 return metadata.ParseVersionList(body), nil
}

func (o *RPMOrigin) FetchDescriptor(ctx context.Context, name string, v version.Version) (metadata.PackageRecord, error) {
 u, err := joinURL(o.baseURL, fmt.Sprintf("%s-%s.rpm", name, v.String()))
 if err != nil {
 return metadata.PackageRecord{}, err
 }
 body, err := o.http.get(ctx, u)
 if err != nil {
 return metadata.PackageRecord{}, err
 }
 originKind := metadata.OriginRPM
 if o.kindYum {
 originKind = metadata.OriginYum
 }
 origin := metadata.Origin{Kind: originKind, URL: u}
 if o.kindYum {
 return formats.ParseYumDescriptor(body, origin, "")
 }
 return formats.ParseRPMDescriptor(body, origin, "")
}

func (o *RPMOrigin) Search(ctx context.Context, pattern string) ([]Brief, error) {
 return nil, nil
}

// PayloadURL is identical to the descriptor URL for RPM/yum: the header it
// reads to build a PackageRecord lives inside the very file being
// installed.
func (o *RPMOrigin) PayloadURL(name string, v version.Version) (string, error) {
 return joinURL(o.baseURL, fmt.Sprintf("%s-%s.rpm", name, v.String()))
}

// ObjectStoreOrigin lists versions via an S3-style bucket XML listing and
// fetches descriptors keyed by name/version/metadata.json.
type ObjectStoreOrigin struct {
 name, bucketURL, bucket, account, region string
 http *httpClient
}

func NewObjectStoreOrigin(name, bucketURL, bucket, account, region string, totalTimeout time.Duration) *ObjectStoreOrigin {
 return &ObjectStoreOrigin{name: name, bucketURL: bucketURL, bucket: bucket, account: account, region: region, http: newHTTPClient(totalTimeout)}
}

func (o *ObjectStoreOrigin) Name() string { return o.name }

func (o *ObjectStoreOrigin) ListVersions(ctx context.Context, name string) ([]version.Version, error) {
 u := o.bucketURL + "?prefix=" + url.QueryEscape(name+"/")
 body, err := o.http.get(ctx, u)
 if pkgerrors.Is(err, pkgerrors.NotFound) {
 return nil, nil
 }
 if err != nil {
 return nil, err
 }
 return metadata.ParseVersionList(body), nil
}

func (o *ObjectStoreOrigin) FetchDescriptor(ctx context.Context, name string, v version.Version) (metadata.PackageRecord, error) {
 key := formats.ObjectKey(name, v.String(), "metadata.json")
 u, err := joinURL(o.bucketURL, key)
 if err != nil {
 return metadata.PackageRecord{}, err
 }
 body, err := o.http.get(ctx, u)
 if err != nil {
 return metadata.PackageRecord{}, err
 }
 return formats.ParseObjectStoreDescriptor(body, o.bucket, o.account, o.region, "")
}

func (o *ObjectStoreOrigin) Search(ctx context.Context, pattern string) ([]Brief, error) {
 return nil, nil
}

// PayloadURL keys the archive object next to metadata.json under the same
// name/version prefix.
func (o *ObjectStoreOrigin) PayloadURL(name string, v version.Version) (string, error) {
 key := formats.ObjectKey(name, v.String(), "archive.pkg")
 return joinURL(o.bucketURL, key)
}
