// Package metadata implements normalizing raw descriptors from several
// source formats into one PackageRecord, and parsing dependency strings
// and catalog version listings. Grounded on dep's manifest.go/toml.go (one
// canonical in-memory shape fed by several wire formats) and on
// original_source/metadata/src/parsers/*.
package metadata

import (
 "strings"

 "pax/internal/pkgerrors"
 "pax/internal/version"
)

// Kind tags which source format a PackageRecord was parsed from.
type Kind string

const (
 KindNative Kind = "native"
 KindGithub Kind = "github"
 KindApt Kind = "apt"
 KindDeb Kind = "deb"
 KindRPM Kind = "rpm"
 KindYum Kind = "yum"
)

// OriginKind tags the addressing scheme of an Origin.
type OriginKind uint8

const (
 OriginNative OriginKind = iota
 OriginGithub
 OriginApt
 OriginDeb
 OriginRPM
 OriginYum
 OriginObjectStore
)

// Origin is a tagged union of the places a package can be fetched from.
// Only the fields relevant to Kind are meaningful.
type Origin struct {
 Kind OriginKind

 URL string // native, apt, deb, rpm, yum

 GithubUser string
 GithubRepo string
 GithubCommit string // optional

 Bucket string // object-store
 Account string
 Credentials string // optional
 Region string // optional
}

func (o Origin) String() string {
 switch o.Kind {
 case OriginGithub:
 if o.GithubCommit != "" {
 return "github:" + o.GithubUser + "/" + o.GithubRepo + "@" + o.GithubCommit
 }
 return "github:" + o.GithubUser + "/" + o.GithubRepo
 case OriginObjectStore:
 return "object-store:" + o.Bucket
 default:
 return o.URL
 }
}

// DependencyKind distinguishes the three shapes a DependencySpec can take.
type DependencyKind uint8

const (
 DepSpecific DependencyKind = iota // name + constraint
 DepLatest // bare name, any version
 DepVolatile // "!name": must be satisfied by the host
)

// DependencySpec is one parsed entry of a dependency list.
type DependencySpec struct {
 Kind DependencyKind
 Name string
 Constraint version.Range // meaningful only when Kind == DepSpecific
}

// ParseDependency parses one dependency-list string :
// "!name" -> volatile; "name<op><version>" -> specific; bare name ->
// latest. Operator tokens are those recognized by version.ParseConstraint.
func ParseDependency(s string) (DependencySpec, error) {
 s = strings.TrimSpace(s)
 if s == "" {
 return DependencySpec{}, pkgerrors.New(pkgerrors.Input, "empty dependency specifier")
 }

 if strings.HasPrefix(s, "!") {
 name := strings.TrimSpace(s[1:])
 if name == "" {
 return DependencySpec{}, pkgerrors.New(pkgerrors.Input, "volatile dependency has no name")
 }
 return DependencySpec{Kind: DepVolatile, Name: name}, nil
 }

 name, constraintStr, hasConstraint := splitNameConstraint(s)
 if !hasConstraint {
 return DependencySpec{Kind: DepLatest, Name: name}, nil
 }

 r, err := version.ParseConstraint(constraintStr)
 if err != nil {
 return DependencySpec{}, pkgerrors.Wrap(pkgerrors.Input, err, "parse dependency constraint for "+name)
 }
 return DependencySpec{Kind: DepSpecific, Name: name, Constraint: r}, nil
}

// splitNameConstraint finds the first constraint-operator token in s and
// splits the package name from the rest. Longest operators are checked
// first so ">>"/"<<" are not mistaken for ">"/"<".
var depOps = []string{">>", ">=", "==", "<=", "<<", ">", "=", "<", "~", "^"}

func splitNameConstraint(s string) (name, constraint string, ok bool) {
 idx := -1
 for _, op := range depOps {
 if i := strings.Index(s, op); i > 0 {
 if idx == -1 || i < idx {
 idx = i
 }
 }
 }
 if idx == -1 {
 return s, "", false
 }
 return strings.TrimSpace(s[:idx]), s[idx:], true
}

// InstallKindTag distinguishes the two shapes an installable package can
// take.
type InstallKindTag uint8

const (
	PreBuilt InstallKindTag = iota
	Compilable
)

// InstallKind is a tagged union: either a PreBuilt payload description or a
// Compilable set of build/install scripts.
type InstallKind struct {
 Tag InstallKindTag

 // PreBuilt
 CriticalPaths []string
 ConfigPaths []string

 // Compilable
 BuildScript string
 InstallScript string
 UninstallScript string
 PurgeScript string
}

// PackageRecord is the canonical internal descriptor every format parser
// produces.
type PackageRecord struct {
	Name string // lowercase, non-empty
	Version version.Version
	Kind Kind

 Description string
 Homepage string // supplemental field, see the package record
 Maintainer string // supplemental field, see the package record

 Origin Origin
 Hash string // payload digest, hex

 BuildDependencies []DependencySpec
 RuntimeDependencies []DependencySpec

 InstallKind InstallKind
}

// Validate checks the invariants required of a freshly parsed
// record: non-empty lowercase name, and (implicitly) that parsing of every
// dependency already succeeded, since ParseDependency is called eagerly by
// each format parser and a failure there aborts the whole record before a
// PackageRecord is ever constructed.
func (p PackageRecord) Validate() error {
 if p.Name == "" {
 return pkgerrors.New(pkgerrors.Input, "package record has empty name")
 }
 if p.Name != strings.ToLower(p.Name) {
 return pkgerrors.New(pkgerrors.Input, "package name %q must be lowercase", p.Name)
 }
 return nil
}

// ParseDependencyList parses every entry of raw, failing the whole list (no
// partial data enters the pipeline) if any entry is unparseable.
func ParseDependencyList(raw []string) ([]DependencySpec, error) {
 out := make([]DependencySpec, 0, len(raw))
 for _, s := range raw {
 d, err := ParseDependency(s)
 if err != nil {
 return nil, err
 }
 out = append(out, d)
 }
 return out, nil
}
