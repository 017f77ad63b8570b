package txn

import (
 "archive/tar"
 "bytes"
 "compress/gzip"
 "context"
 "crypto/sha256"
 "encoding/hex"
 "os"
 "path/filepath"
 "testing"

 "pax/internal/db"
 "pax/internal/metadata"
 "pax/internal/pkglog"
 "pax/internal/store"
 "pax/internal/version"
)

// tarGzFixture builds a minimal single-file gzipped tar payload (the native
// archive format) and returns its bytes alongside the sha256 hash the store
// expects as the content address.
func tarGzFixture(t *testing.T, name, body string) (data []byte, hash string) {
 t.Helper()
 var buf bytes.Buffer
 gz := gzip.NewWriter(&buf)
 tw := tar.NewWriter(gz)
 if err := tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(body)), Mode: 0o644}); err != nil {
 t.Fatal(err)
 }
 if _, err := tw.Write([]byte(body)); err != nil {
 t.Fatal(err)
 }
 if err := tw.Close(); err != nil {
 t.Fatal(err)
 }
 if err := gz.Close(); err != nil {
 t.Fatal(err)
 }
 sum := sha256.Sum256(buf.Bytes())
 return buf.Bytes(), hex.EncodeToString(sum[:])
}

func newTestDB(t *testing.T) *db.DB {
 t.Helper()
 path := filepath.Join(t.TempDir(), "state.db")
 d, err := db.Open(path)
 if err != nil {
 t.Fatalf("open db: %v", err)
 }
 t.Cleanup(func() { d.Close() })
 return d
}

func newTestStore(t *testing.T) *store.Store {
 t.Helper()
 return store.New(t.TempDir())
}

func TestCommitClearsJournal(t *testing.T) {
 journal := filepath.Join(t.TempDir(), "transactions.journal")
 tx := New(journal, pkglog.Default)

 if err := tx.RecordDBInsert("packages", "foo"); err != nil {
 t.Fatal(err)
 }
 if _, err := os.Stat(journal); err != nil {
 t.Fatalf("expected journal to exist after record: %v", err)
 }

 if err := tx.Commit(); err != nil {
 t.Fatal(err)
 }
 if _, err := os.Stat(journal); !os.IsNotExist(err) {
 t.Fatalf("expected journal removed after commit, err=%v", err)
 }
 if tx.Dropped() {
 t.Fatal("committed transaction should not report dropped")
 }
}

// TestRollbackTransitiveInstall mirrors scenario 2: app depends
// on lib; on a simulated post-install failure, rollback must remove both
// DB rows and both store entries, but the downloaded cache file (outside
// this package's remit, represented only as a journal op here) is left
// untouched.
func TestRollbackTransitiveInstall(t *testing.T) {
 d := newTestDB(t)
 s := newTestStore(t)
 cacheFile := filepath.Join(t.TempDir(), "lib-1.0.0.tar.gz")
 if err := os.WriteFile(cacheFile, []byte("payload"), 0o644); err != nil {
 t.Fatal(err)
 }

 libData, libHash := tarGzFixture(t, "lib.so", "lib payload")
 appData, appHash := tarGzFixture(t, "app.bin", "app payload")

 journal := filepath.Join(t.TempDir(), "transactions.journal")
 tx := New(journal, pkglog.Default)

 if err := d.InsertPackage(db.InstalledRecord{PackageRecord: metadata.PackageRecord{Name: "lib", Version: version.MustParse("1.0.0")}}); err != nil {
 t.Fatal(err)
 }
 if err := tx.RecordDBInsert("packages", "lib"); err != nil {
 t.Fatal(err)
 }
 if err := s.Add(context.Background(), bytes.NewReader(libData), libHash); err != nil {
 t.Fatalf("store add lib: %v", err)
 }
 if err := tx.RecordStoreAdd(libHash); err != nil {
 t.Fatal(err)
 }
 if err := tx.RecordDownload(cacheFile); err != nil {
 t.Fatal(err)
 }

 if err := d.InsertPackage(db.InstalledRecord{PackageRecord: metadata.PackageRecord{Name: "app", Version: version.MustParse("1.0.0")}}); err != nil {
 t.Fatal(err)
 }
 if err := tx.RecordDBInsert("packages", "app"); err != nil {
 t.Fatal(err)
 }
 if err := s.Add(context.Background(), bytes.NewReader(appData), appHash); err != nil {
 t.Fatalf("store add app: %v", err)
 }
 if err := tx.RecordStoreAdd(appHash); err != nil {
 t.Fatal(err)
 }

 // simulated post-install failure: roll back.
 if err := tx.Rollback(Rollback{DB: d, Store: s}); err != nil {
 t.Fatal(err)
 }

 if installed, _ := d.IsInstalled("lib"); installed {
 t.Error("expected lib DB row removed by rollback")
 }
 if installed, _ := d.IsInstalled("app"); installed {
 t.Error("expected app DB row removed by rollback")
 }
 if s.Contains(libHash) {
 t.Error("expected lib store entry removed by rollback")
 }
 if s.Contains(appHash) {
 t.Error("expected app store entry removed by rollback")
 }
 if _, err := os.Stat(cacheFile); err != nil {
 t.Errorf("expected cache file to remain after rollback, got %v", err)
 }
 if _, err := os.Stat(journal); !os.IsNotExist(err) {
 t.Errorf("expected journal cleared after rollback, err=%v", err)
 }
}

func TestRollbackIsIdempotent(t *testing.T) {
 d := newTestDB(t)
 journal := filepath.Join(t.TempDir(), "transactions.journal")
 tx := New(journal, pkglog.Default)
 if err := tx.RecordDBInsert("packages", "gone-already"); err != nil {
 t.Fatal(err)
 }

 if err := tx.Rollback(Rollback{DB: d}); err != nil {
 t.Fatal(err)
 }
 // second rollback call (e.g. a re-entrant failure path) must be a no-op.
 if err := tx.Rollback(Rollback{DB: d}); err != nil {
 t.Fatalf("second rollback should be a no-op, got %v", err)
 }
}

func TestLoadOrphanDetectsUncommittedJournal(t *testing.T) {
 journal := filepath.Join(t.TempDir(), "transactions.journal")

 if _, ok, err := LoadOrphan(journal, pkglog.Default); err != nil || ok {
 t.Fatalf("expected no orphan when journal absent, ok=%v err=%v", ok, err)
 }

 tx := New(journal, pkglog.Default)
 if err := tx.RecordDBInsert("packages", "half-installed"); err != nil {
 t.Fatal(err)
 }
 // tx is deliberately never committed or rolled back here, simulating a
 // crash.

 orphan, ok, err := LoadOrphan(journal, pkglog.Default)
 if err != nil {
 t.Fatal(err)
 }
 if !ok {
 t.Fatal("expected an orphan journal to be detected")
 }
 if len(orphan.ops) != 1 || orphan.ops[0].Key != "half-installed" {
 t.Fatalf("expected recovered op for half-installed, got %+v", orphan.ops)
 }

 d := newTestDB(t)
 if err := d.InsertPackage(db.InstalledRecord{PackageRecord: metadata.PackageRecord{Name: "half-installed", Version: version.MustParse("1.0.0")}}); err != nil {
 t.Fatal(err)
 }
 if err := orphan.Rollback(Rollback{DB: d}); err != nil {
 t.Fatal(err)
 }
 if installed, _ := d.IsInstalled("half-installed"); installed {
 t.Error("expected orphan rollback to remove the half-installed package")
 }
}

func TestWarnIfDroppedReportsUncommitted(t *testing.T) {
 journal := filepath.Join(t.TempDir(), "transactions.journal")
 tx := New(journal, pkglog.Default)
 if !tx.Dropped() {
 t.Fatal("a fresh transaction should report as dropped until committed or rolled back")
 }
 if err := tx.Commit(); err != nil {
 t.Fatal(err)
 }
 if tx.Dropped() {
 t.Fatal("a committed transaction should not report as dropped")
 }
}
