package formats

import (
 "bufio"
 "bytes"
 "strconv"
 "strings"

 "pax/internal/metadata"
 "pax/internal/pkgerrors"
 "pax/internal/version"
)

// controlStanza is one RFC2822-style paragraph as found in a Debian control
// file or Packages index: "Key: value" lines, with continuation lines
// indented by at least one space/tab folded onto the preceding key. Shape
// grounded on paultag-go-archive's Package/control.Paragraph (Package,
// Version, Depends, Provides, Installed-Size, Maintainer, Description,
// Homepage, Filename, SHA256 fields).
//
// This hand-rolled scanner is the justified standard-library exception
// recorded in DESIGN.md: the only third-party library for this exact
// grammar is a single-purpose parser (pault.ag/go/debian/control) whose
// entire value is the ~30-line folding algorithm implemented here, not a
// case where a library meaningfully absorbs domain complexity the way an
// HTTP client, database driver, or VCS client would.
type controlStanza map[string]string

func parseControlStanza(s *bufio.Scanner) (controlStanza, bool) {
 stanza := controlStanza{}
 lastKey := ""
 sawAny := false

 for s.Scan() {
 line := s.Text()
 if strings.TrimSpace(line) == "" {
 if sawAny {
 return stanza, true
 }
 continue
 }
 if (line[0] == ' ' || line[0] == '\t') && lastKey != "" {
 stanza[lastKey] += "\n" + strings.TrimSpace(line)
 continue
 }
 idx := strings.Index(line, ":")
 if idx < 0 {
 continue
 }
 key := strings.TrimSpace(line[:idx])
 val := strings.TrimSpace(line[idx+1:])
 stanza[key] = val
 lastKey = key
 sawAny = true
 }
 return stanza, sawAny
}

// ParseControlStanzas splits a Packages/control file into its stanzas.
func ParseControlStanzas(raw []byte) []controlStanza {
 scanner := bufio.NewScanner(bytes.NewReader(raw))
 scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
 var out []controlStanza
 for {
 stanza, ok := parseControlStanza(scanner)
 if !ok {
 break
 }
 out = append(out, stanza)
 }
 return out
}

// parseDebianDependsField splits a comma-separated Depends/Build-Depends
// field (alternatives joined by "|" are collapsed to their first choice,
// since DependencySpec has no alternation concept) into
// DependencySpec values.
func parseDebianDependsField(field string) ([]metadata.DependencySpec, error) {
 if strings.TrimSpace(field) == "" {
 return nil, nil
 }
 var specs []metadata.DependencySpec
 for _, item := range strings.Split(field, ",") {
 item = strings.TrimSpace(item)
 if item == "" {
 continue
 }
 // take the first alternative only
 if i := strings.Index(item, "|"); i >= 0 {
 item = strings.TrimSpace(item[:i])
 }
 name, constraint := splitDebianNameConstraint(item)
 if constraint == "" {
 specs = append(specs, metadata.DependencySpec{Kind: metadata.DepLatest, Name: name})
 continue
 }
 r, err := debianConstraintToRange(constraint)
 if err != nil {
 return nil, err
 }
 specs = append(specs, metadata.DependencySpec{Kind: metadata.DepSpecific, Name: name, Constraint: r})
 }
 return specs, nil
}

func splitDebianNameConstraint(item string) (name, constraint string) {
 idx := strings.Index(item, "(")
 if idx < 0 {
 return strings.TrimSpace(item), ""
 }
 name = strings.TrimSpace(item[:idx])
 end := strings.Index(item, ")")
 if end < 0 {
 return name, ""
 }
 return name, strings.TrimSpace(item[idx+1 : end])
}

// debianConstraintToRange converts a Debian-style "(>= 1.2.3)" constraint
// into a version.Range; Debian's ">>"/"<<" already match version.Range's
// own operator set directly.
func debianConstraintToRange(c string) (version.Range, error) {
 c = strings.Join(strings.Fields(c), "")
 return version.ParseConstraint(c)
}

// ParseAptPackagesStanza parses one Packages-file stanza into a
// PackageRecord for the apt origin kind.
func ParseAptPackagesStanza(st controlStanza, origin metadata.Origin) (metadata.PackageRecord, error) {
 name := strings.ToLower(strings.TrimSpace(st["Package"]))
 v, err := version.Parse(st["Version"])
 if err != nil {
 return metadata.PackageRecord{}, err
 }

 runtimeDeps, err := parseDebianDependsField(st["Depends"])
 if err != nil {
 return metadata.PackageRecord{}, err
 }
 buildDeps, err := parseDebianDependsField(st["Build-Depends"])
 if err != nil {
 return metadata.PackageRecord{}, err
 }

 p := metadata.PackageRecord{
 Name: name,
 Version: v,
 Kind: metadata.KindApt,
 Description: st["Description"],
 Homepage: st["Homepage"],
 Maintainer: st["Maintainer"],
 Origin: origin,
 Hash: strings.ToLower(st["SHA256"]),
 BuildDependencies: buildDeps,
 RuntimeDependencies: runtimeDeps,
 InstallKind: metadata.InstallKind{
 Tag: metadata.PreBuilt,
 },
 }
 if err := p.Validate(); err != nil {
 return metadata.PackageRecord{}, err
 }
 return p, nil
}

// ParseInstalledSizeKiB converts the Installed-Size field (KiB, per Debian
// policy) to bytes, used to populate InstalledRecord.Size when no more
// precise figure is available from extraction.
func ParseInstalledSizeKiB(s string) (int64, error) {
 if strings.TrimSpace(s) == "" {
 return 0, nil
 }
 kib, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
 if err != nil {
 return 0, pkgerrors.Wrap(pkgerrors.Input, err, "parse Installed-Size")
 }
 return kib * 1024, nil
}
