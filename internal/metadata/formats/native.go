// Package formats holds one parser per supported source format, each
// reading a format-specific raw shape and producing a metadata.PackageRecord.
// Grounded on dep's toml.go/manifest.go (one parser function per
// wire shape feeding a single canonical struct).
package formats

import (
 "archive/tar"
 "compress/gzip"
 "encoding/json"
 "io"
 "strings"

 "pax/internal/metadata"
 "pax/internal/pkgerrors"
 "pax/internal/version"
)

// nativeWire is the on-the-wire shape of metadata.json inside a native
// archive. Field names are snake_case on the wire; struct tags translate
// to the camelCase Go fields of PackageRecord.
type nativeWire struct {
 Name string `json:"name"`
 Version string `json:"version"`
 Description string `json:"description"`
 Homepage string `json:"homepage"`
 Maintainer string `json:"maintainer"`
 Hash string `json:"hash"`
 BuildDeps []string `json:"build_dependencies"`
 RuntimeDeps []string `json:"runtime_dependencies"`

 InstallKind string `json:"install_kind"` // "pre_built" | "compilable"
 CriticalPaths []string `json:"critical_paths"`
 ConfigPaths []string `json:"config_paths"`
 Build string `json:"build"`
 Install string `json:"install"`
 Uninstall string `json:"uninstall"`
 Purge string `json:"purge"`
}

// ParseNativeMetadataJSON parses the contents of metadata.json (already
// extracted from the archive's root) into a PackageRecord.
func ParseNativeMetadataJSON(raw []byte, origin metadata.Origin) (metadata.PackageRecord, error) {
 var w nativeWire
 if err := json.Unmarshal(raw, &w); err != nil {
 return metadata.PackageRecord{}, pkgerrors.Wrap(pkgerrors.Input, err, "parse metadata.json")
 }

 v, err := version.Parse(w.Version)
 if err != nil {
 return metadata.PackageRecord{}, err
 }

 buildDeps, err := metadata.ParseDependencyList(w.BuildDeps)
 if err != nil {
 return metadata.PackageRecord{}, err
 }
 runtimeDeps, err := metadata.ParseDependencyList(w.RuntimeDeps)
 if err != nil {
 return metadata.PackageRecord{}, err
 }

 ik, err := parseNativeInstallKind(w)
 if err != nil {
 return metadata.PackageRecord{}, err
 }

 p := metadata.PackageRecord{
 Name: strings.ToLower(strings.TrimSpace(w.Name)),
 Version: v,
 Kind: metadata.KindNative,
 Description: w.Description,
 Homepage: w.Homepage,
 Maintainer: w.Maintainer,
 Origin: origin,
 Hash: strings.ToLower(w.Hash),
 BuildDependencies: buildDeps,
 RuntimeDependencies: runtimeDeps,
 InstallKind: ik,
 }
 if err := p.Validate(); err != nil {
 return metadata.PackageRecord{}, err
 }
 return p, nil
}

func parseNativeInstallKind(w nativeWire) (metadata.InstallKind, error) {
 switch w.InstallKind {
 case "pre_built", "":
 return metadata.InstallKind{
 Tag: metadata.PreBuilt,
 CriticalPaths: w.CriticalPaths,
 ConfigPaths: w.ConfigPaths,
 }, nil
 case "compilable":
 return metadata.InstallKind{
 Tag: metadata.Compilable,
 BuildScript: w.Build,
 InstallScript: w.Install,
 UninstallScript: w.Uninstall,
 PurgeScript: w.Purge,
 }, nil
 default:
 return metadata.InstallKind{}, pkgerrors.New(pkgerrors.Input, "unknown install_kind %q", w.InstallKind)
 }
}

// ReadNativeArchive extracts metadata.json's raw bytes from a native
// archive's root, returning them alongside the remaining payload files
// (the archive's other tar entries, left unread for the caller to
// extract).
func ReadNativeArchive(r io.Reader) (metadataJSON []byte, payload *tar.Reader, err error) {
 gz, err := gzip.NewReader(r)
 if err != nil {
 return nil, nil, pkgerrors.Wrap(pkgerrors.Input, err, "open native archive")
 }
 tr := tar.NewReader(gz)
 for {
 hdr, err := tr.Next()
 if err == io.EOF {
 return nil, nil, pkgerrors.New(pkgerrors.Input, "native archive missing metadata.json at its root")
 }
 if err != nil {
 return nil, nil, pkgerrors.Wrap(pkgerrors.Input, err, "read native archive")
 }
 if strings.TrimPrefix(hdr.Name, "./") == "metadata.json" {
 buf, err := io.ReadAll(tr)
 if err != nil {
 return nil, nil, pkgerrors.Wrap(pkgerrors.Input, err, "read metadata.json")
 }
 return buf, tr, nil
 }
 }
}
