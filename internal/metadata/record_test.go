package metadata

import "testing"

func TestParseDependencyVolatile(t *testing.T) {
	d, err := ParseDependency("!libc")
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != DepVolatile || d.Name != "libc" {
		t.Fatalf("got %+v", d)
	}
}

func TestParseDependencyLatest(t *testing.T) {
	d, err := ParseDependency("curl")
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != DepLatest || d.Name != "curl" {
		t.Fatalf("got %+v", d)
	}
}

func TestParseDependencySpecific(t *testing.T) {
	d, err := ParseDependency("openssl>=1.1.0")
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind != DepSpecific || d.Name != "openssl" {
		t.Fatalf("got %+v", d)
	}
}

func TestParseDependencyListFailsWhole(t *testing.T) {
	_, err := ParseDependencyList([]string{"curl", "openssl>=not-a-version"})
	if err == nil {
		t.Fatalf("expected the whole list to fail on one bad entry")
	}
}

func TestPackageRecordValidateLowercase(t *testing.T) {
	p := PackageRecord{Name: "Foo"}
	if err := p.Validate(); err == nil {
		t.Fatalf("expected uppercase name to fail validation")
	}
}
