package resolve

import (
	"testing"

	"pax/internal/db"
	"pax/internal/metadata"
	"pax/internal/version"
)

// fakeDB implements InstalledQuery over an in-memory map, so tests never
// stand up a real bbolt file.
type fakeDB struct {
	installed map[string]version.Version
	provides  map[string][]db.ProvidesRow
}

func newFakeDB() *fakeDB {
	return &fakeDB{installed: map[string]version.Version{}, provides: map[string][]db.ProvidesRow{}}
}

func (f *fakeDB) IsInstalled(name string) (bool, error) {
	_, ok := f.installed[name]
	return ok, nil
}

func (f *fakeDB) GetPackage(name string) (db.InstalledRecord, bool, error) {
	v, ok := f.installed[name]
	if !ok {
		return db.InstalledRecord{}, false, nil
	}
	return db.InstalledRecord{PackageRecord: metadata.PackageRecord{Name: name, Version: v}}, true, nil
}

func (f *fakeDB) GetReverseDependencies(name string) ([]string, error) {
	return nil, nil
}

func (f *fakeDB) QueryProvides(name string) ([]db.ProvidesRow, error) {
	return f.provides[name], nil
}

func rec(name, ver string, deps ...string) metadata.PackageRecord {
	depSpecs := make([]metadata.DependencySpec, 0, len(deps))
	for _, d := range deps {
		spec, err := metadata.ParseDependency(d)
		if err != nil {
			panic(err)
		}
		depSpecs = append(depSpecs, spec)
	}
	return metadata.PackageRecord{
		Name: name, Version: version.MustParse(ver), Kind: metadata.KindNative,
		RuntimeDependencies: depSpecs,
		InstallKind:         metadata.InstallKind{Tag: metadata.PreBuilt},
	}
}

func TestResolveFreshInstallOneLeaf(t *testing.T) {
	r := New(newFakeDB(), nil)
	r.AddCandidate(rec("foo", "1.0.0"))
	r.AddCandidate(rec("foo", "1.1.0"))

	plan, err := r.Resolve([]Request{{Name: "foo"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Version.String() != "1.1.0" {
		t.Fatalf("expected foo 1.1.0, got %+v", plan.Steps)
	}
}

func TestResolveTransitiveInstallOrder(t *testing.T) {
	r := New(newFakeDB(), nil)
	r.AddCandidate(rec("lib", "1.0.0"))
	r.AddCandidate(rec("app", "1.0.0", "lib>=1.0.0"))

	plan, err := r.Resolve([]Request{{Name: "app"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Steps) != 2 || plan.Steps[0].Name != "lib" || plan.Steps[1].Name != "app" {
		t.Fatalf("expected [lib app], got %+v", plan.Steps)
	}
}

func TestResolveCycleDetection(t *testing.T) {
	r := New(newFakeDB(), nil)
	r.AddCandidate(rec("a", "1.0.0", "b"))
	r.AddCandidate(rec("b", "1.0.0", "a"))

	_, err := r.Resolve([]Request{{Name: "a"}})
	if err == nil {
		t.Fatal("expected cycle error")
	}
}

func TestResolveConstraintIntersection(t *testing.T) {
	r := New(newFakeDB(), nil)
	r.AddCandidate(rec("x", "1.0.0", "z>=1.0,<2.0"))
	r.AddCandidate(rec("y", "1.0.0", "z>=1.5,<3.0"))
	r.AddCandidate(rec("z", "1.0.0"))
	r.AddCandidate(rec("z", "1.5.0"))
	r.AddCandidate(rec("z", "1.9.0"))
	r.AddCandidate(rec("z", "2.5.0"))

	plan, err := r.Resolve([]Request{{Name: "x"}, {Name: "y"}})
	if err != nil {
		t.Fatal(err)
	}
	var z *Step
	for i := range plan.Steps {
		if plan.Steps[i].Name == "z" {
			z = &plan.Steps[i]
		}
	}
	if z == nil {
		t.Fatal("z not in plan")
	}
	if z.Version.Less(version.MustParse("1.5.0")) || !z.Version.Less(version.MustParse("2.0.0")) {
		t.Fatalf("expected z in [1.5.0, 2.0.0), got %s", z.Version)
	}
}

func TestResolveAlreadyInstalledSkipsRecursion(t *testing.T) {
	fdb := newFakeDB()
	fdb.installed["lib"] = version.MustParse("1.0.0")
	r := New(fdb, nil)
	r.AddCandidate(rec("app", "1.0.0", "lib>=1.0.0"))

	plan, err := r.Resolve([]Request{{Name: "app"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Name != "app" {
		t.Fatalf("expected only app in plan, got %+v", plan.Steps)
	}
}

func TestResolveVolatileRequiresHost(t *testing.T) {
	r := New(newFakeDB(), func(name string) (bool, error) { return name == "libc", nil })
	r.AddCandidate(rec("app", "1.0.0", "!libc"))

	if _, err := r.Resolve([]Request{{Name: "app"}}); err != nil {
		t.Fatalf("expected host to satisfy volatile dep: %v", err)
	}

	r2 := New(newFakeDB(), func(string) (bool, error) { return false, nil })
	r2.AddCandidate(rec("app", "1.0.0", "!missinglib"))
	if _, err := r2.Resolve([]Request{{Name: "app"}}); err == nil {
		t.Fatal("expected unresolvable volatile dependency to fail")
	}
}

func TestResolveUnresolvable(t *testing.T) {
	r := New(newFakeDB(), nil)
	_, err := r.Resolve([]Request{{Name: "ghost"}})
	if err == nil {
		t.Fatal("expected unresolvable error")
	}
}

func TestCalculateRemovalImpact(t *testing.T) {
	fdb := newFakeDB()
	fdb.installed["lib"] = version.MustParse("1.0.0")
	fdb.installed["app"] = version.MustParse("1.0.0")
	// simulate reverse deps via a small stub wrapper
	rq := &reverseDepsStub{fakeDB: fdb, reverse: map[string][]string{"lib": {"app"}}}
	out, err := CalculateRemovalImpact(rq, "lib")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != "app" {
		t.Fatalf("expected [app], got %v", out)
	}
}

type reverseDepsStub struct {
	*fakeDB
	reverse map[string][]string
}

func (s *reverseDepsStub) GetReverseDependencies(name string) ([]string, error) {
	return s.reverse[name], nil
}
