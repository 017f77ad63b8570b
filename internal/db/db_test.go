package db

import (
	"path/filepath"
	"testing"
	"time"

	"pax/internal/metadata"
	"pax/internal/pkgerrors"
	"pax/internal/version"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "installed.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func sampleRecord(name string) InstalledRecord {
	return InstalledRecord{
		PackageRecord: metadata.PackageRecord{
			Name:    name,
			Version: version.MustParse("1.0.0"),
			Kind:    metadata.KindNative,
		},
		InstalledBy: "user",
		InstallDate: time.Unix(1700000000, 0).UTC(),
		Size:        1024,
	}
}

func TestInsertAndGetPackage(t *testing.T) {
	d := openTestDB(t)
	if err := d.InsertPackage(sampleRecord("curl")); err != nil {
		t.Fatal(err)
	}
	rec, ok, err := d.GetPackage("curl")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected curl to be found")
	}
	if rec.Version.String() != "1.0.0" || rec.Size != 1024 {
		t.Fatalf("got %+v", rec)
	}
}

func TestIsInstalledAndListPackages(t *testing.T) {
	d := openTestDB(t)
	d.InsertPackage(sampleRecord("curl"))
	d.InsertPackage(sampleRecord("zlib"))

	if ok, _ := d.IsInstalled("curl"); !ok {
		t.Fatalf("expected curl installed")
	}
	if ok, _ := d.IsInstalled("nope"); ok {
		t.Fatalf("expected nope not installed")
	}
	list, err := d.ListPackages()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d packages, want 2", len(list))
	}
}

func TestInsertFileDetectsConflict(t *testing.T) {
	d := openTestDB(t)
	if err := d.InsertFile("curl", FileRow{Path: "/usr/bin/curl", Type: FileRegular}); err != nil {
		t.Fatal(err)
	}
	err := d.InsertFile("curl-fork", FileRow{Path: "/usr/bin/curl", Type: FileRegular})
	if pkgerrors.Of(err) != pkgerrors.Conflict {
		t.Fatalf("got %v, want ConflictError", err)
	}
	// Same owner re-inserting the same path is not a conflict.
	if err := d.InsertFile("curl", FileRow{Path: "/usr/bin/curl", Type: FileRegular}); err != nil {
		t.Fatalf("re-insert by same owner should succeed, got %v", err)
	}
}

func TestFindFileOwner(t *testing.T) {
	d := openTestDB(t)
	d.InsertFile("curl", FileRow{Path: "/usr/bin/curl", Type: FileRegular})
	owner, ok, err := d.FindFileOwner("/usr/bin/curl")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || owner != "curl" {
		t.Fatalf("got owner=%q ok=%v", owner, ok)
	}
	if _, ok, _ := d.FindFileOwner("/usr/bin/nope"); ok {
		t.Fatalf("expected no owner for unknown path")
	}
}

func TestDependenciesAndReverseDependencies(t *testing.T) {
	d := openTestDB(t)
	d.InsertPackage(sampleRecord("app"))
	d.InsertPackage(sampleRecord("libssl"))
	if err := d.InsertDependency("app", DependencyRow{DependsOnName: "libssl", Kind: metadata.DepSpecific, VersionConstraint: ">=1.0.0"}); err != nil {
		t.Fatal(err)
	}

	deps, err := d.GetDependencies("app")
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 1 || deps[0].DependsOnName != "libssl" {
		t.Fatalf("got %+v", deps)
	}

	rev, err := d.GetReverseDependencies("libssl")
	if err != nil {
		t.Fatal(err)
	}
	if len(rev) != 1 || rev[0] != "app" {
		t.Fatalf("got %+v", rev)
	}
}

func TestProvidesQuery(t *testing.T) {
	d := openTestDB(t)
	d.InsertPackage(sampleRecord("openssl"))
	if err := d.InsertProvide("openssl", ProvidesRow{ProvideName: "libssl.so.3", ProvideType: "library"}); err != nil {
		t.Fatal(err)
	}
	rows, err := d.QueryProvides("libssl.so.3")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ProvideType != "library" {
		t.Fatalf("got %+v", rows)
	}
}

func TestRemovePackageCascades(t *testing.T) {
	d := openTestDB(t)
	d.InsertPackage(sampleRecord("curl"))
	d.InsertFile("curl", FileRow{Path: "/usr/bin/curl", Type: FileRegular})
	d.InsertDependency("curl", DependencyRow{DependsOnName: "libssl"})
	d.InsertProvide("curl", ProvidesRow{ProvideName: "curl", ProvideType: "binary"})

	if err := d.RemovePackage("curl"); err != nil {
		t.Fatal(err)
	}

	if ok, _ := d.IsInstalled("curl"); ok {
		t.Fatalf("expected curl removed")
	}
	if files, _ := d.GetFiles("curl"); len(files) != 0 {
		t.Fatalf("expected no files left, got %v", files)
	}
	if _, ok, _ := d.FindFileOwner("/usr/bin/curl"); ok {
		t.Fatalf("expected files_by_path index entry removed")
	}
	if deps, _ := d.GetDependencies("curl"); len(deps) != 0 {
		t.Fatalf("expected no dependencies left, got %v", deps)
	}
	if provides, _ := d.QueryProvides("curl"); len(provides) != 0 {
		t.Fatalf("expected no provides left, got %v", provides)
	}
}
