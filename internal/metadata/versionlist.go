package metadata

import (
 "encoding/xml"
 "regexp"
 "strings"

 "pax/internal/version"
)

// ParseVersionList tries each candidate grammar in order (comma-separated,
// line-separated, directory-indexed, S3-style XML) and accepts the first
// that yields at least one version. An empty result from every grammar
// means "origin has no such package" — that is not itself an error.
func ParseVersionList(body []byte) []version.Version {
 grammars := []func([]byte) []version.Version{
 parseCommaSeparated,
 parseLineSeparated,
 parseDirectoryIndex,
 parseS3XML,
 }
 for _, g := range grammars {
 if vs := g(body); len(vs) > 0 {
 return vs
 }
 }
 return nil
}

func parseVersions(tokens []string) []version.Version {
 var out []version.Version
 for _, tok := range tokens {
 tok = strings.TrimSpace(tok)
 if tok == "" {
 continue
 }
 v, err := version.Parse(tok)
 if err != nil {
 continue
 }
 out = append(out, v)
 }
 return out
}

func parseCommaSeparated(body []byte) []version.Version {
 s := strings.TrimSpace(string(body))
 if !strings.Contains(s, ",") {
 return nil
 }
 return parseVersions(strings.Split(s, ","))
}

func parseLineSeparated(body []byte) []version.Version {
 s := strings.TrimSpace(string(body))
 return parseVersions(strings.Split(s, "\n"))
}

// directoryEntryRegex pulls version-shaped hrefs out of an autoindex-style
// HTML directory listing, e.g. `<a href="1.2.3/">1.2.3/</a>`.
var directoryEntryRegex = regexp.MustCompile(`href="([0-9][0-9A-Za-z.\-+]*)/?"`)

func parseDirectoryIndex(body []byte) []version.Version {
 matches := directoryEntryRegex.FindAllSubmatch(body, -1)
 if len(matches) == 0 {
 return nil
 }
 tokens := make([]string, 0, len(matches))
 for _, m := range matches {
 tokens = append(tokens, string(m[1]))
 }
 return parseVersions(tokens)
}

// s3ListResult models the subset of an S3 ListObjectsV2/bucket listing XML
// response needed to recover version-shaped object key prefixes, since
// object-store origins additionally accept S3-style XML listings.
type s3ListResult struct {
 XMLName xml.Name `xml:"ListBucketResult"`
 Contents []struct {
 Key string `xml:"Key"`
 } `xml:"Contents"`
}

func parseS3XML(body []byte) []version.Version {
 var res s3ListResult
 if err := xml.Unmarshal(body, &res); err != nil {
 return nil
 }
 if len(res.Contents) == 0 {
 return nil
 }
 tokens := make([]string, 0, len(res.Contents))
 for _, c := range res.Contents {
 // keys look like "<pkg>/<version>/..." or "<pkg>-<version>.pkg"
 key := c.Key
 key = strings.TrimSuffix(key, "/")
 if i := strings.LastIndex(key, "/"); i >= 0 {
 key = key[i+1:]
 }
 key = strings.TrimSuffix(key, ".pkg")
 if i := strings.LastIndex(key, "-"); i >= 0 {
 key = key[i+1:]
 }
 tokens = append(tokens, key)
 }
 return parseVersions(tokens)
}
