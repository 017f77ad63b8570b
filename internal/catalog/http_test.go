package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pax/internal/version"
)

func TestNativeOriginListAndFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/curl/versions":
			w.Write([]byte("1.0.0,1.2.0,2.0.0"))
		case "/curl/1.2.0/metadata.json":
			w.Write([]byte(`{"name":"curl","version":"1.2.0"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	o := NewNativeOrigin("local", srv.URL, 5*time.Second)
	vs, err := o.ListVersions(context.Background(), "curl")
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 3 {
		t.Fatalf("got %d versions, want 3", len(vs))
	}

	rec, err := o.FetchDescriptor(context.Background(), "curl", version.MustParse("1.2.0"))
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "curl" {
		t.Fatalf("got name %q", rec.Name)
	}
}

func TestNativeOriginPayloadURL(t *testing.T) {
	o := NewNativeOrigin("local", "https://pkgs.example.com", 5*time.Second)
	u, err := o.PayloadURL("curl", version.MustParse("1.2.0"))
	if err != nil {
		t.Fatal(err)
	}
	if u != "https://pkgs.example.com/packages/curl/1.2.0.pkg" {
		t.Fatalf("got %q", u)
	}
}

func TestNativeOriginMissingPackageIsEmptyNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewNativeOrigin("local", srv.URL, 5*time.Second)
	vs, err := o.ListVersions(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if vs != nil {
		t.Fatalf("got %v, want nil", vs)
	}
}

func TestClientResolveBestAccumulatesErrorsAcrossOrigins(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/curl/versions" {
			w.Write([]byte("1.0.0,2.0.0"))
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer good.Close()

	c := New(NewNativeOrigin("bad", bad.URL, 5*time.Second), NewNativeOrigin("good", good.URL, 5*time.Second))
	rng := mustParseRange(t, ">=1.0.0")
	best, origin, err := c.ResolveBest(context.Background(), "curl", rng)
	if err != nil {
		t.Fatal(err)
	}
	if best.String() != "2.0.0" {
		t.Fatalf("got %q", best.String())
	}
	if origin.Name() != "good" {
		t.Fatalf("got origin %q", origin.Name())
	}
}

func TestClientResolveBestFailsWhenNoOriginMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(NewNativeOrigin("only", srv.URL, 5*time.Second))
	rng := mustParseRange(t, ">=1.0.0")
	if _, _, err := c.ResolveBest(context.Background(), "curl", rng); err == nil {
		t.Fatalf("expected failure when no origin has the package")
	}
}

func TestClientSearchIsCached(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`[{"Name":"curl","Description":"transfer tool"}]`))
	}))
	defer srv.Close()

	c := New(NewNativeOrigin("local", srv.URL, 5*time.Second))
	if _, err := c.Search(context.Background(), "curl"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Search(context.Background(), "curl"); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Fatalf("got %d origin hits, want 1 (second search should be cached)", hits)
	}

	c.Update()
	if _, err := c.Search(context.Background(), "curl"); err != nil {
		t.Fatal(err)
	}
	if hits != 2 {
		t.Fatalf("got %d origin hits after Update, want 2", hits)
	}
}

func mustParseRange(t *testing.T, s string) version.Range {
	t.Helper()
	r, err := version.ParseConstraint(s)
	if err != nil {
		t.Fatal(err)
	}
	return r
}
