// Package version implements a dotted numeric version with optional
// prerelease and build metadata, and a bounded range constraint grammar
// layered on top of github.com/Masterminds/semver's Version type (the same
// library dep vendors for its own semver-constrained dependency
// resolution).
package version

import (
 "fmt"
 "strconv"
 "strings"

 "github.com/Masterminds/semver"
 "pax/internal/pkgerrors"
)

// Version is an ordered (major, minor, patch, prerelease, build) tuple.
// Missing numeric components compare as zero; a prerelease makes a version
// compare lower than the same numeric tuple without one.
type Version struct {
 sv *semver.Version
}

// Parse parses a version string. Accepted shapes are those of
// github.com/Masterminds/semver: "1", "1.2", "1.2.3", "1.2.3-rc.1",
// "1.2.3+build5", with an optional leading "v". Anything else is an
// InputError.
func Parse(s string) (Version, error) {
 sv, err := semver.NewVersion(s)
 if err != nil {
 return Version{}, pkgerrors.Wrap(pkgerrors.Input, err, fmt.Sprintf("parse version %q", s))
 }
 return Version{sv: sv}, nil
}

// MustParse is Parse, panicking on error; used for compile-time constants
// in tests and default values.
func MustParse(s string) Version {
 v, err := Parse(s)
 if err != nil {
 panic(err)
 }
 return v
}

func (v Version) String() string {
 if v.sv == nil {
 return "0.0.0"
 }
 return v.sv.String()
}

func (v Version) Major() int64 { return v.sv.Major() }
func (v Version) Minor() int64 { return v.sv.Minor() }
func (v Version) Patch() int64 { return v.sv.Patch() }
func (v Version) Prerelease() string { return v.sv.Prerelease() }

// Compare returns -1, 0 or 1 as v is less than, equal to, or greater than
// other. It is a total order: Compare(a,b) == -Compare(b,a), and ties agree
// with equality.
func (v Version) Compare(other Version) int {
 if v.sv == nil && other.sv == nil {
 return 0
 }
 if v.sv == nil {
 return -1
 }
 if other.sv == nil {
 return 1
 }
 return v.sv.Compare(other.sv)
}

func (v Version) Less(other Version) bool { return v.Compare(other) < 0 }
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }
func (v Version) Greater(other Version) bool { return v.Compare(other) > 0 }

// NextMinor returns the version with patch and prerelease/build reset and
// minor incremented by one: 1.4.2 -> 1.5.0. Used by the "~"/"^" sugar,
// which both resolve to a "next minor" upper bound.
func (v Version) NextMinor() Version {
 nv, _ := semver.NewVersion(fmt.Sprintf("%d.%d.0", v.Major(), v.Minor()+1))
 return Version{sv: nv}
}

// Zero returns a zero-value Version usable as a sentinel for "no bound".
func Zero() Version {
 v, _ := Parse("0.0.0")
 return v
}

// Op is one of the constraint operators recognized by splitOp.
type Op uint8

const (
 OpNone Op = iota
 OpGt
 OpGe
 OpEq
 OpLe
 OpLt
)

// side pairs an operator with the version it bounds.
type side struct {
 op Op
 v Version
}

func (s side) satisfiedBy(v Version) bool {
 switch s.op {
 case OpNone:
 return true
 case OpGt:
 return v.Greater(s.v)
 case OpGe:
 return v.Greater(s.v) || v.Equal(s.v)
 case OpEq:
 return v.Equal(s.v)
 case OpLe:
 return v.Less(s.v) || v.Equal(s.v)
 case OpLt:
 return v.Less(s.v)
 }
 return false
}

// Range is a (lower, upper) bound pair. A version satisfies a Range when it
// satisfies both sides. The zero Range (both sides OpNone) is "any".
type Range struct {
 Lower side
 Upper side
 raw string
}

func (r Range) String() string { return r.raw }

// IsAny reports whether the range admits every version (an empty
// constraint string).
func (r Range) IsAny() bool { return r.Lower.op == OpNone && r.Upper.op == OpNone }

// Satisfies reports whether v falls within both bounds of r.
func Satisfies(v Version, r Range) bool {
 return r.Lower.satisfiedBy(v) && r.Upper.satisfiedBy(v)
}

// ParseConstraint parses one of the prefixed forms (>>, >=, >, ==, =, <=,
// <<, <, ~, ^) or a bare version (exact match), or the empty string ("any").
// Several forms joined by commas (">=1.0,<2.0") parse to the intersection
// of their ranges. Whitespace around the operator is tolerated. ~X.Y.Z and
// ^X.Y.Z both expand to [>=X.Y.Z, <X.(Y+1).0).
func ParseConstraint(s string) (Range, error) {
 raw := s
 s = strings.TrimSpace(s)
 if s == "" {
 return Range{raw: raw}, nil
 }

 if strings.Contains(s, ",") {
 var out Range
 for _, part := range strings.Split(s, ",") {
 pr, err := ParseConstraint(part)
 if err != nil {
 return Range{}, err
 }
 if out, err = Intersect(out, pr); err != nil {
 return Range{}, pkgerrors.Wrap(pkgerrors.Input, err, fmt.Sprintf("degenerate version range %q", raw))
 }
 }
 out.raw = raw
 return out, nil
 }

 if strings.HasPrefix(s, "~") || strings.HasPrefix(s, "^") {
 base := strings.TrimSpace(s[1:])
 v, err := Parse(base)
 if err != nil {
 return Range{}, err
 }
 lower := side{op: OpGe, v: v}
 upper := side{op: OpLt, v: v.NextMinor()}
 return Range{Lower: lower, Upper: upper, raw: raw}, nil
 }

 op, rest := splitOp(s)
 v, err := Parse(strings.TrimSpace(rest))
 if err != nil {
 return Range{}, err
 }

 var r Range
 r.raw = raw
 switch op {
 case OpGt, OpGe:
 r.Lower = side{op: op, v: v}
 case OpLe, OpLt:
 r.Upper = side{op: op, v: v}
 case OpEq, OpNone:
 r.Lower = side{op: OpGe, v: v}
 r.Upper = side{op: OpLe, v: v}
 }

 if degenerate(r) {
 return Range{}, pkgerrors.New(pkgerrors.Input, "degenerate version range %q: upper bound below lower bound", raw)
 }
 return r, nil
}

// degenerate reports whether the range's upper bound is strictly below its
// lower bound, which calls a parse error.
func degenerate(r Range) bool {
 if r.Lower.op == OpNone || r.Upper.op == OpNone {
 return false
 }
 return r.Upper.v.Less(r.Lower.v)
}

// splitOp peels a recognized operator prefix off s, longest first so ">>"
// is not mistaken for ">".
func splitOp(s string) (Op, string) {
 switch {
 case strings.HasPrefix(s, ">>"):
 return OpGt, s[2:]
 case strings.HasPrefix(s, ">="):
 return OpGe, s[2:]
 case strings.HasPrefix(s, ">"):
 return OpGt, s[1:]
 case strings.HasPrefix(s, "=="):
 return OpEq, s[2:]
 case strings.HasPrefix(s, "<="):
 return OpLe, s[2:]
 case strings.HasPrefix(s, "<<"):
 return OpLt, s[2:]
 case strings.HasPrefix(s, "<"):
 return OpLt, s[1:]
 case strings.HasPrefix(s, "="):
 return OpEq, s[1:]
 default:
 return OpNone, s
 }
}

// Intersect computes the range admitting versions that satisfy both a and
// b. An empty intersection (upper < lower after combining) is the
// ConflictError the resolver raises on sibling constraint conflicts.
func Intersect(a, b Range) (Range, error) {
 out := Range{raw: strings.TrimSpace(a.raw + "," + b.raw)}

 out.Lower = tighterLower(a.Lower, b.Lower)
 out.Upper = tighterUpper(a.Upper, b.Upper)

 if degenerate(out) {
 return Range{}, pkgerrors.New(pkgerrors.Conflict, "empty intersection of ranges %q and %q", a.raw, b.raw)
 }
 return out, nil
}

func tighterLower(a, b side) side {
 if a.op == OpNone {
 return b
 }
 if b.op == OpNone {
 return a
 }
 if a.v.Greater(b.v) {
 return a
 }
 if b.v.Greater(a.v) {
 return b
 }
 // equal version: exclusive (Gt) beats inclusive (Ge)
 if a.op == OpGt || b.op == OpGt {
 return side{op: OpGt, v: a.v}
 }
 return a
}

func tighterUpper(a, b side) side {
 if a.op == OpNone {
 return b
 }
 if b.op == OpNone {
 return a
 }
 if a.v.Less(b.v) {
 return a
 }
 if b.v.Less(a.v) {
 return b
 }
 if a.op == OpLt || b.op == OpLt {
 return side{op: OpLt, v: a.v}
 }
 return a
}

// Highest returns the greatest version in vs that satisfies r, and false if
// none does. Used by catalog.Client.ResolveBest.
func Highest(vs []Version, r Range) (Version, bool) {
 var best Version
 found := false
 for _, v := range vs {
 if !Satisfies(v, r) {
 continue
 }
 if !found || v.Greater(best) {
 best = v
 found = true
 }
 }
 return best, found
}

// ParseInt is a small helper for version numbers carried as separate
// integer fields (e.g. RPM epoch); no parser in this module calls it.
func ParseInt(s string) (int, error) {
 return strconv.Atoi(strings.TrimSpace(s))
}
