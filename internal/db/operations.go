package db

import (
 "encoding/binary"

 "go.etcd.io/bbolt"

 "pax/internal/pkgerrors"
)

// InsertPackage inserts or overwrites the packages row for rec.Name.
func (d *DB) InsertPackage(rec InstalledRecord) error {
 row := fromInstalledRecord(rec)
 enc, err := gobEncode(row)
 if err != nil {
 return err
 }
 return d.bolt.Update(func(tx *bbolt.Tx) error {
 return tx.Bucket(bucketPackages).Put([]byte(rec.Name), enc)
 })
}

// RemovePackage deletes a package's row and every row in every other table
// that references it (files, dependencies, provides, files_by_path),
// its own "removing a package removes its rows in every table".
func (d *DB) RemovePackage(name string) error {
 return d.bolt.Update(func(tx *bbolt.Tx) error {
 if err := tx.Bucket(bucketPackages).Delete([]byte(name)); err != nil {
 return err
 }

 files := tx.Bucket(bucketFiles).Bucket([]byte(name))
 if files != nil {
 c := files.Cursor()
 pathIndex := tx.Bucket(bucketFilesByPath)
 for p, _ := c.First(); p != nil; p, _ = c.Next() {
 if err := pathIndex.Delete(p); err != nil {
 return err
 }
 }
 if err := tx.Bucket(bucketFiles).DeleteBucket([]byte(name)); err != nil {
 return err
 }
 }

 if tx.Bucket(bucketDependencies).Bucket([]byte(name)) != nil {
 if err := tx.Bucket(bucketDependencies).DeleteBucket([]byte(name)); err != nil {
 return err
 }
 }
 if tx.Bucket(bucketProvides).Bucket([]byte(name)) != nil {
 if err := tx.Bucket(bucketProvides).DeleteBucket([]byte(name)); err != nil {
 return err
 }
 }
 return nil
 })
}

// ListPackages returns every installed package, in no particular order.
func (d *DB) ListPackages() ([]InstalledRecord, error) {
 var out []InstalledRecord
 err := d.bolt.View(func(tx *bbolt.Tx) error {
 return tx.Bucket(bucketPackages).ForEach(func(_, v []byte) error {
 var row packageRow
 if err := gobDecode(v, &row); err != nil {
 return err
 }
 rec, err := row.toInstalledRecord()
 if err != nil {
 return err
 }
 out = append(out, rec)
 return nil
 })
 })
 return out, err
}

// IsInstalled reports whether name has a packages row.
func (d *DB) IsInstalled(name string) (bool, error) {
 found := false
 err := d.bolt.View(func(tx *bbolt.Tx) error {
 found = tx.Bucket(bucketPackages).Get([]byte(name)) != nil
 return nil
 })
 return found, err
}

// GetPackage returns name's packages row, if any.
func (d *DB) GetPackage(name string) (InstalledRecord, bool, error) {
 var rec InstalledRecord
 found := false
 err := d.bolt.View(func(tx *bbolt.Tx) error {
 v := tx.Bucket(bucketPackages).Get([]byte(name))
 if v == nil {
 return nil
 }
 var row packageRow
 if err := gobDecode(v, &row); err != nil {
 return err
 }
 r, err := row.toInstalledRecord()
 if err != nil {
 return err
 }
 rec, found = r, true
 return nil
 })
 return rec, found, err
}

// InsertFile adds a files row for pkgName, detecting path conflicts with a
// different owning package via the files_by_path index.
func (d *DB) InsertFile(pkgName string, row FileRow) error {
 enc, err := gobEncode(row)
 if err != nil {
 return err
 }
 return d.bolt.Update(func(tx *bbolt.Tx) error {
 pathIndex := tx.Bucket(bucketFilesByPath)
 if owner := pathIndex.Get([]byte(row.Path)); owner != nil && string(owner) != pkgName {
 return pkgerrors.New(pkgerrors.Conflict, "path %q already owned by package %q", row.Path, string(owner))
 }
 files, err := tx.Bucket(bucketFiles).CreateBucketIfNotExists([]byte(pkgName))
 if err != nil {
 return err
 }
 if err := files.Put([]byte(row.Path), enc); err != nil {
 return err
 }
 return pathIndex.Put([]byte(row.Path), []byte(pkgName))
 })
}

// GetFiles returns every files row owned by pkgName.
func (d *DB) GetFiles(pkgName string) ([]FileRow, error) {
 var out []FileRow
 err := d.bolt.View(func(tx *bbolt.Tx) error {
 files := tx.Bucket(bucketFiles).Bucket([]byte(pkgName))
 if files == nil {
 return nil
 }
 return files.ForEach(func(_, v []byte) error {
 var row FileRow
 if err := gobDecode(v, &row); err != nil {
 return err
 }
 out = append(out, row)
 return nil
 })
 })
 return out, err
}

// FindFileOwner returns the package that owns path, via the
// files_by_path index (O(1) rather than a scan of every package's files).
func (d *DB) FindFileOwner(path string) (string, bool, error) {
 var owner string
 found := false
 err := d.bolt.View(func(tx *bbolt.Tx) error {
 v := tx.Bucket(bucketFilesByPath).Get([]byte(path))
 if v != nil {
 owner, found = string(v), true
 }
 return nil
 })
 return owner, found, err
}

// InsertDependency adds a dependencies row for pkgName.
func (d *DB) InsertDependency(pkgName string, row DependencyRow) error {
 enc, err := gobEncode(row)
 if err != nil {
 return err
 }
 return d.bolt.Update(func(tx *bbolt.Tx) error {
 deps, err := tx.Bucket(bucketDependencies).CreateBucketIfNotExists([]byte(pkgName))
 if err != nil {
 return err
 }
 seq, err := deps.NextSequence()
 if err != nil {
 return err
 }
 return deps.Put(seqKey(seq), enc)
 })
}

// GetDependencies returns pkgName's direct dependency rows.
func (d *DB) GetDependencies(pkgName string) ([]DependencyRow, error) {
 var out []DependencyRow
 err := d.bolt.View(func(tx *bbolt.Tx) error {
 deps := tx.Bucket(bucketDependencies).Bucket([]byte(pkgName))
 if deps == nil {
 return nil
 }
 return deps.ForEach(func(_, v []byte) error {
 var row DependencyRow
 if err := gobDecode(v, &row); err != nil {
 return err
 }
 out = append(out, row)
 return nil
 })
 })
 return out, err
}

// GetReverseDependencies returns the names of every installed package
// whose dependencies list includes name (a join of dependencies on name,
// ).
func (d *DB) GetReverseDependencies(name string) ([]string, error) {
 var out []string
 err := d.bolt.View(func(tx *bbolt.Tx) error {
 top := tx.Bucket(bucketDependencies)
 c := top.Cursor()
 for k, v := c.First(); k != nil; k, v = c.Next() {
 if v != nil {
 continue // not a nested (per-package) bucket
 }
 deps := top.Bucket(k)
 pkgName := string(k)
 err := deps.ForEach(func(_, v []byte) error {
 var row DependencyRow
 if err := gobDecode(v, &row); err != nil {
 return err
 }
 if row.DependsOnName == name {
 out = append(out, pkgName)
 }
 return nil
 })
 if err != nil {
 return err
 }
 }
 return nil
 })
 return out, err
}

// InsertProvide adds a provides row for pkgName.
func (d *DB) InsertProvide(pkgName string, row ProvidesRow) error {
 enc, err := gobEncode(row)
 if err != nil {
 return err
 }
 return d.bolt.Update(func(tx *bbolt.Tx) error {
 provides, err := tx.Bucket(bucketProvides).CreateBucketIfNotExists([]byte(pkgName))
 if err != nil {
 return err
 }
 seq, err := provides.NextSequence()
 if err != nil {
 return err
 }
 return provides.Put(seqKey(seq), enc)
 })
}

// QueryProvides returns every provides row (across all packages) whose
// ProvideName matches name.
func (d *DB) QueryProvides(name string) ([]ProvidesRow, error) {
 var out []ProvidesRow
 err := d.bolt.View(func(tx *bbolt.Tx) error {
 top := tx.Bucket(bucketProvides)
 c := top.Cursor()
 for k, v := c.First(); k != nil; k, v = c.Next() {
 if v != nil {
 continue
 }
 provides := top.Bucket(k)
 err := provides.ForEach(func(_, v []byte) error {
 var row ProvidesRow
 if err := gobDecode(v, &row); err != nil {
 return err
 }
 if row.ProvideName == name {
 out = append(out, row)
 }
 return nil
 })
 if err != nil {
 return err
 }
 }
 return nil
 })
 return out, err
}

func seqKey(seq uint64) []byte {
 var k [8]byte
 binary.BigEndian.PutUint64(k[:], seq)
 return k[:]
}
