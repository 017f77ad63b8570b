package formats

import (
 "strings"

 "pax/internal/metadata"
 "pax/internal/pkgerrors"
 "pax/internal/version"
)

// GithubTag is one tag/release name returned by a catalog client's
// `GET /repos/<user>/<repo>/tags`-shaped request; only the Name is needed
// to recover a version.
type GithubTag struct {
 Name string
}

// ParseGithubTags turns a list of repository tags into the versions a
// github origin advertises, stripping an optional leading "v" before
// parsing (matching the convention nearly every tagged Go/Rust/C project
// in this corpus uses). Unparseable tags (release-candidate branch names,
// "latest", etc.) are skipped rather than failing the whole list, since
// they are not a dependency descriptor — this is catalog listing, not
// record parsing, and "fails the whole record" rule is
// scoped to parsing a single descriptor's dependency list.
func ParseGithubTags(tags []GithubTag) []version.Version {
 var out []version.Version
 for _, t := range tags {
 s := strings.TrimPrefix(strings.TrimSpace(t.Name), "v")
 v, err := version.Parse(s)
 if err != nil {
 continue
 }
 out = append(out, v)
 }
 return out
}

// ParseGithubDescriptor builds a PackageRecord for one tagged release:
// name/description from the repo, the hash the caller passes in, and
// dependency lists from an embedded metadata.json asset (the
// same wire shape as the native format, reused here since
// original_source/metadata/src/parsers/github was left as a stub —
// "Github is not implemented yet!" — and this module completes it by
// reusing the native grammar for the descriptor asset).
func ParseGithubDescriptor(user, repo string, tagVersion version.Version, commit string, metadataJSON []byte, hash string) (metadata.PackageRecord, error) {
 origin := metadata.Origin{
 Kind: metadata.OriginGithub,
 GithubUser: user,
 GithubRepo: repo,
 GithubCommit: commit,
 }

 if len(metadataJSON) == 0 {
 // No embedded descriptor: synthesize a minimal record from the repo
 // coordinates and tag alone.
 p := metadata.PackageRecord{
 Name: strings.ToLower(repo),
 Version: tagVersion,
 Kind: metadata.KindGithub,
 Origin: origin,
 Hash: strings.ToLower(hash),
 InstallKind: metadata.InstallKind{
 Tag: metadata.PreBuilt,
 },
 }
 if err := p.Validate(); err != nil {
 return metadata.PackageRecord{}, err
 }
 return p, nil
 }

 p, err := ParseNativeMetadataJSON(metadataJSON, origin)
 if err != nil {
 return metadata.PackageRecord{}, pkgerrors.Wrap(pkgerrors.Input, err, "parse github package descriptor")
 }
 p.Kind = metadata.KindGithub
 if p.Hash == "" {
 p.Hash = strings.ToLower(hash)
 }
 return p, nil
}
