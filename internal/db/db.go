// Package db implements the durable record of installed packages, their
// files, dependencies, and provided capabilities, with referential
// integrity maintained across four conceptual tables. Grounded on dep's
// internal/gps/source_cache_bolt.go (one bolt.DB, helper methods wrapping
// db.Update/db.View, bucket-per-concern layout) adapted from a version
// cache to durable installed state, using go.etcd.io/bbolt (the maintained
// successor of dep's vendored github.com/boltdb/bolt) and encoding/gob for
// row encoding, matching dep's preference for binary Go-native encoding
// over JSON for internal stores.
package db

import (
 "bytes"
 "encoding/gob"
 "time"

 "go.etcd.io/bbolt"

 "pax/internal/metadata"
 "pax/internal/pkgerrors"
 "pax/internal/version"
)

var (
 bucketPackages = []byte("packages")
 bucketFiles = []byte("files")
 bucketDependencies = []byte("dependencies")
 bucketProvides = []byte("provides")
 bucketFilesByPath = []byte("files_by_path")
)

// DB wraps a single bbolt file holding every conceptual table.
type DB struct {
 bolt *bbolt.DB
}

// Open opens (creating if absent) the bbolt file at path and ensures every
// bucket exists.
func Open(path string) (*DB, error) {
 b, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
 if err != nil {
 return nil, pkgerrors.Wrap(pkgerrors.IO, err, "open database "+path)
 }
 err = b.Update(func(tx *bbolt.Tx) error {
 for _, name := range [][]byte{bucketPackages, bucketFiles, bucketDependencies, bucketProvides, bucketFilesByPath} {
 if _, err := tx.CreateBucketIfNotExists(name); err != nil {
 return err
 }
 }
 return nil
 })
 if err != nil {
 b.Close()
 return nil, pkgerrors.Wrap(pkgerrors.IO, err, "initialize database buckets")
 }
 return &DB{bolt: b}, nil
}

func (d *DB) Close() error {
 return d.bolt.Close()
}

// FileType tags a files row's kind: a regular file (copied onto disk) or a
// symlink managed by the activation layer.
type FileType uint8

const (
	FileRegular FileType = iota
	FileSymlink
)

// FileRow is one entry of the files table.
type FileRow struct {
 Path string
 Type FileType
}

// DependencyRow is one entry of the dependencies table. VersionConstraint
// is empty for a bare "latest" dependency (Kind DepLatest) and for
// volatile dependencies.
type DependencyRow struct {
 DependsOnName string
 Kind metadata.DependencyKind
 VersionConstraint string // serialized version.Range, nullable ("" = none)
}

// ProvidesRow is one entry of the provides table.
type ProvidesRow struct {
 ProvideName string
 ProvideVersion string // nullable
 ProvideType string
}

// InstalledRecord is the persisted form of a PackageRecord: the parsed
// descriptor plus the bookkeeping fields installation assigns it.
type InstalledRecord struct {
 metadata.PackageRecord
 Dependent bool
 InstalledBy string
 InstallDate time.Time
 Size int64
}

// packageRow is the gob wire shape for the packages bucket: PackageRecord
// carries an unexported *semver.Version inside version.Version, which gob
// cannot see, so every field is flattened to primitives here and
// reassembled by toInstalledRecord/fromInstalledRecord.
type packageRow struct {
 Name string
 Version string
 Kind string
 Description string
 Homepage string
 Maintainer string
 Hash string

 OriginKind uint8
 OriginURL string
 OriginGithubUser string
 OriginGithubRepo string
 OriginGithubCommit string
 OriginBucket string
 OriginAccount string
 OriginCredentials string
 OriginRegion string

 InstallKindTag uint8
 CriticalPaths []string
 ConfigPaths []string
 BuildScript string
 InstallScript string
 UninstallScript string
 PurgeScript string

 Dependent bool
 InstalledBy string
 InstallDate int64
 Size int64
}

func fromInstalledRecord(r InstalledRecord) packageRow {
 o := r.Origin
 ik := r.InstallKind
 return packageRow{
 Name: r.Name, Version: r.Version.String(), Kind: string(r.Kind),
 Description: r.Description, Homepage: r.Homepage, Maintainer: r.Maintainer, Hash: r.Hash,
 OriginKind: uint8(o.Kind), OriginURL: o.URL,
 OriginGithubUser: o.GithubUser, OriginGithubRepo: o.GithubRepo, OriginGithubCommit: o.GithubCommit,
 OriginBucket: o.Bucket, OriginAccount: o.Account, OriginCredentials: o.Credentials, OriginRegion: o.Region,
 InstallKindTag: uint8(ik.Tag), CriticalPaths: ik.CriticalPaths, ConfigPaths: ik.ConfigPaths,
 BuildScript: ik.BuildScript, InstallScript: ik.InstallScript, UninstallScript: ik.UninstallScript, PurgeScript: ik.PurgeScript,
 Dependent: r.Dependent, InstalledBy: r.InstalledBy, InstallDate: r.InstallDate.Unix(), Size: r.Size,
 }
}

func (p packageRow) toInstalledRecord() (InstalledRecord, error) {
 v, err := version.Parse(p.Version)
 if err != nil {
 return InstalledRecord{}, err
 }
 rec := metadata.PackageRecord{
 Name: p.Name, Version: v, Kind: metadata.Kind(p.Kind),
 Description: p.Description, Homepage: p.Homepage, Maintainer: p.Maintainer, Hash: p.Hash,
 Origin: metadata.Origin{
 Kind: metadata.OriginKind(p.OriginKind), URL: p.OriginURL,
 GithubUser: p.OriginGithubUser, GithubRepo: p.OriginGithubRepo, GithubCommit: p.OriginGithubCommit,
 Bucket: p.OriginBucket, Account: p.OriginAccount, Credentials: p.OriginCredentials, Region: p.OriginRegion,
 },
 InstallKind: metadata.InstallKind{
 Tag: metadata.InstallKindTag(p.InstallKindTag), CriticalPaths: p.CriticalPaths, ConfigPaths: p.ConfigPaths,
 BuildScript: p.BuildScript, InstallScript: p.InstallScript, UninstallScript: p.UninstallScript, PurgeScript: p.PurgeScript,
 },
 }
 return InstalledRecord{
 PackageRecord: rec,
 Dependent: p.Dependent, InstalledBy: p.InstalledBy,
 InstallDate: time.Unix(p.InstallDate, 0).UTC(), Size: p.Size,
 }, nil
}

func gobEncode(v interface{}) ([]byte, error) {
 var buf bytes.Buffer
 if err := gob.NewEncoder(&buf).Encode(v); err != nil {
 return nil, pkgerrors.Wrap(pkgerrors.IO, err, "encode row")
 }
 return buf.Bytes(), nil
}

func gobDecode(b []byte, v interface{}) error {
 if err := gob.NewDecoder(bytes.NewReader(b)).Decode(v); err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "decode row")
 }
 return nil
}

