package version

import "testing"

func TestParseRoundTrip(t *testing.T) {
	cases := []string{"1.0.0", "1.2.3", "2.0.0-rc.1", "0.1.0"}
	for _, c := range cases {
		v, err := Parse(c)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c, err)
		}
		if v.String() != c {
			t.Errorf("round trip: Parse(%q).String() = %q", c, v.String())
		}
	}
}

func TestCompareTotalOrder(t *testing.T) {
	a := MustParse("1.0.0")
	b := MustParse("1.1.0")
	if a.Compare(b) != -b.Compare(a) {
		t.Fatalf("compare not antisymmetric")
	}
	if a.Compare(a) != 0 {
		t.Fatalf("compare(a,a) != 0")
	}
	if !a.Less(b) || a.Greater(b) {
		t.Fatalf("expected 1.0.0 < 1.1.0")
	}
}

func TestPrereleaseLowerThanBase(t *testing.T) {
	pre := MustParse("1.0.0-rc.1")
	base := MustParse("1.0.0")
	if !pre.Less(base) {
		t.Fatalf("expected prerelease to compare lower than base version")
	}
}

func TestParseConstraintPrefixes(t *testing.T) {
	v := MustParse("1.5.0")
	cases := map[string]bool{
		">>1.0.0": true,
		">>2.0.0": false,
		">=1.5.0": true,
		">1.5.0":  false,
		"==1.5.0": true,
		"=1.5.0":  true,
		"<=1.5.0": true,
		"<<1.5.0": false,
		"<2.0.0":  true,
		"1.5.0":   true,
	}
	for constraint, want := range cases {
		r, err := ParseConstraint(constraint)
		if err != nil {
			t.Fatalf("ParseConstraint(%q): %v", constraint, err)
		}
		if got := Satisfies(v, r); got != want {
			t.Errorf("Satisfies(1.5.0, %q) = %v, want %v", constraint, got, want)
		}
	}
}

func TestEmptyConstraintIsAny(t *testing.T) {
	r, err := ParseConstraint("")
	if err != nil {
		t.Fatal(err)
	}
	if !r.IsAny() {
		t.Fatalf("expected empty constraint to be any")
	}
	if !Satisfies(MustParse("9.9.9"), r) {
		t.Fatalf("expected any range to satisfy everything")
	}
}

func TestTildeAndCaretNextMinor(t *testing.T) {
	for _, prefix := range []string{"~", "^"} {
		r, err := ParseConstraint(prefix + "1.4.2")
		if err != nil {
			t.Fatal(err)
		}
		if !Satisfies(MustParse("1.4.9"), r) {
			t.Errorf("%s1.4.2 should admit 1.4.9", prefix)
		}
		if Satisfies(MustParse("1.5.0"), r) {
			t.Errorf("%s1.4.2 should not admit 1.5.0", prefix)
		}
		if !Satisfies(MustParse("1.4.2"), r) {
			t.Errorf("%s1.4.2 should admit its own base version", prefix)
		}
	}
}

func TestDegenerateIntersectionIsError(t *testing.T) {
	// upper < lower once combined via Intersect
	a, _ := ParseConstraint(">=2.0.0")
	b, _ := ParseConstraint("<1.0.0")
	if _, err := Intersect(a, b); err == nil {
		t.Fatalf("expected empty intersection to error")
	}
}

func TestIntersectNarrows(t *testing.T) {
	x, err := ParseConstraint(">=1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	y, err := ParseConstraint("<2.0.0")
	if err != nil {
		t.Fatal(err)
	}
	xy, err := Intersect(x, y)
	if err != nil {
		t.Fatal(err)
	}
	z, _ := ParseConstraint(">=1.5.0")
	w, _ := ParseConstraint("<3.0.0")
	zw, err := Intersect(z, w)
	if err != nil {
		t.Fatal(err)
	}
	final, err := Intersect(xy, zw)
	if err != nil {
		t.Fatal(err)
	}
	if !Satisfies(MustParse("1.8.0"), final) {
		t.Errorf("expected 1.8.0 within [1.5.0,2.0.0)")
	}
	if Satisfies(MustParse("1.2.0"), final) {
		t.Errorf("expected 1.2.0 excluded from [1.5.0,2.0.0)")
	}
}
