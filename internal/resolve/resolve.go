// Package resolve implements depth-first post-order dependency resolution
// over a candidate package map, producing a topological install order with
// cycle detection and host/provides-aware satisfaction. Grounded on dep's
// solver.go/selection.go shape (a stack-driven selection process walking
// candidate versions) but deliberately non-backtracking: the resolver
// fails fast on an empty constraint intersection rather than attempting
// dep's SAT-style backjumping. The underlying post-order DFS with a path
// stack for cycle detection otherwise mirrors original_source/src/resolver
// (resolve_recursive/detect_circular).
package resolve

import (
 "strings"

 "pax/internal/db"
 "pax/internal/metadata"
 "pax/internal/pkgerrors"
 "pax/internal/version"
)

// InstalledQuery answers the "already installed?" and "reverse
// dependencies" questions a resolver needs from the database (C7), kept as
// a narrow interface so tests can fake it without standing up a real
// *db.DB.
type InstalledQuery interface {
 IsInstalled(name string) (bool, error)
 GetPackage(name string) (db.InstalledRecord, bool, error)
 GetReverseDependencies(name string) ([]string, error)
 QueryProvides(name string) ([]db.ProvidesRow, error)
}

// HostProbe answers "does the host provide this capability" — a
// PATH-equivalent filesystem probe for a binary, or a library lookup.
// Returns false, nil when the host plainly lacks it.
type HostProbe func(name string) (bool, error)

// Request is one top-level package the caller wants installed, with an
// optional version constraint (the empty Range is "any").
type Request struct {
 Name string
 Constraint version.Range
}

// Plan is the resolver's output: a topologically ordered sequence of
// packages to install, each already pinned to a concrete candidate.
type Plan struct {
 Steps []Step
}

// Step is one planned installation, in the order it must happen.
type Step struct {
 Name string
 Version version.Version
 Record metadata.PackageRecord
}

// Resolver resolves a set of requests against a candidate map sourced from
// the catalog client (C5), consulting installed state and host capability
// probes along the way.
type Resolver struct {
 Candidates map[string][]metadata.PackageRecord // name -> every known version
 DB InstalledQuery
 Host HostProbe
}

// New builds a Resolver. host may be nil, meaning the host never
// satisfies a volatile/capability dependency (useful in tests).
func New(db InstalledQuery, host HostProbe) *Resolver {
 if host == nil {
 host = func(string) (bool, error) { return false, nil }
 }
 return &Resolver{Candidates: map[string][]metadata.PackageRecord{}, DB: db, Host: host}
}

// AddCandidate registers a known PackageRecord the resolver may draw on to
// satisfy a name or a provide.
func (r *Resolver) AddCandidate(rec metadata.PackageRecord) {
 r.Candidates[rec.Name] = append(r.Candidates[rec.Name], rec)
}

type resolveState struct {
 r *Resolver
 visited map[string]bool
 onPath map[string]bool
 path []string
 constraint map[string]version.Range // accumulated intersection per name
 steps []Step
 emitted map[string]bool
}

// Resolve runs the DFS over every requested package and returns a single
// Plan covering all of them, deduplicated and topologically ordered.
func (r *Resolver) Resolve(reqs []Request) (Plan, error) {
 st := &resolveState{
 r: r,
 visited: map[string]bool{},
 onPath: map[string]bool{},
 constraint: map[string]version.Range{},
 emitted: map[string]bool{},
 }
 for _, req := range reqs {
 if err := st.mergeConstraint(req.Name, req.Constraint); err != nil {
 return Plan{}, err
 }
 }
 for _, req := range reqs {
 if err := st.visit(req.Name); err != nil {
 return Plan{}, err
 }
 }
 return Plan{Steps: st.steps}, nil
}

// mergeConstraint intersects c into the running constraint for name,
// failing with ConflictError on an empty intersection.
func (st *resolveState) mergeConstraint(name string, c version.Range) error {
 existing, ok := st.constraint[name]
 if !ok {
 st.constraint[name] = c
 return nil
 }
 merged, err := version.Intersect(existing, c)
 if err != nil {
 return pkgerrors.Wrap(pkgerrors.Conflict, err, "conflicting version constraints on "+name)
 }
 st.constraint[name] = merged
 return nil
}

// visit resolves name and everything it transitively requires, appending
// to st.steps in post-order (dependencies before dependents).
func (st *resolveState) visit(name string) error {
 if st.onPath[name] {
 return pkgerrors.New(pkgerrors.Conflict, "dependency cycle: %s", strings.Join(append(st.path, name), " -> "))
 }
 if st.visited[name] {
 return nil
 }

 // 1. Already installed at an acceptable version?
 if st.r.DB != nil {
 if installed, err := st.r.DB.IsInstalled(name); err != nil {
 return err
 } else if installed {
 rec, _, err := st.r.DB.GetPackage(name)
 if err != nil {
 return err
 }
 c := st.constraint[name]
 if c.IsAny() || version.Satisfies(rec.Version, c) {
 st.visited[name] = true
 return nil
 }
 return pkgerrors.New(pkgerrors.Conflict, "installed %s %s does not satisfy %s", name, rec.Version, c.String())
 }
 }

 // 2. Satisfied by the host (a provided capability or a direct probe)?
 if st.r.DB != nil {
 if rows, err := st.r.DB.QueryProvides(name); err != nil {
 return err
 } else if len(rows) > 0 {
 st.visited[name] = true
 return nil
 }
 }
 if ok, err := st.r.Host(name); err != nil {
 return err
 } else if ok {
 st.visited[name] = true
 return nil
 }

 // 3 & 4. Resolve to a concrete candidate, directly by name or via a
 // provide.
 rec, resolvedName, err := st.findCandidate(name)
 if err != nil {
 return err
 }

 st.onPath[name] = true
 st.path = append(st.path, name)
 if resolvedName != name {
 st.onPath[resolvedName] = true
 st.path = append(st.path, resolvedName)
 }

 for _, dep := range append(append([]metadata.DependencySpec{}, rec.BuildDependencies...), rec.RuntimeDependencies...) {
 switch dep.Kind {
 case metadata.DepVolatile:
 ok, err := st.r.Host(dep.Name)
 if err != nil {
 return err
 }
 if !ok {
 return pkgerrors.New(pkgerrors.NotFound, "volatile dependency %q of %s not satisfied by host", dep.Name, resolvedName)
 }
 case metadata.DepSpecific:
 if err := st.mergeConstraint(dep.Name, dep.Constraint); err != nil {
 return err
 }
 if err := st.visit(dep.Name); err != nil {
 return err
 }
 case metadata.DepLatest:
 if err := st.visit(dep.Name); err != nil {
 return err
 }
 }
 }

 st.path = st.path[:len(st.path)-1]
 delete(st.onPath, resolvedName)
 if resolvedName != name {
 st.path = st.path[:len(st.path)-1]
 delete(st.onPath, name)
 }

 st.visited[name] = true
 st.visited[resolvedName] = true
 if !st.emitted[resolvedName] {
 st.steps = append(st.steps, Step{Name: resolvedName, Version: rec.Version, Record: rec})
 st.emitted[resolvedName] = true
 }
 return nil
}

// findCandidate implements steps 3 and 4: a direct hit in the
// candidate map, or a candidate that provides name.
func (st *resolveState) findCandidate(name string) (metadata.PackageRecord, string, error) {
 c := st.constraint[name]

 if versions, ok := st.r.Candidates[name]; ok {
 rec, ok := bestMatching(versions, c)
 if !ok {
 return metadata.PackageRecord{}, "", pkgerrors.New(pkgerrors.Conflict, "no candidate of %s satisfies %s", name, c.String())
 }
 return rec, name, nil
 }

 for candName, versions := range st.r.Candidates {
 for _, rec := range versions {
 if providesName(rec, name) {
 if best, ok := bestMatching(st.r.Candidates[candName], c); ok {
 return best, candName, nil
 }
 }
 }
 }

 return metadata.PackageRecord{}, "", pkgerrors.New(pkgerrors.NotFound, "unresolvable %s", name)
}

// providesName reports whether rec's install kind or declared identity
// also advertises itself under name — e.g. a package that provides its
// own name, or a virtual/alias capability
// carried in Description-free metadata. Since PackageRecord itself does
// not carry a Provides list (that lives in the database once installed,
// ProvidesRow), a not-yet-installed candidate can only
// provide its own name at resolution time.
func providesName(rec metadata.PackageRecord, name string) bool {
 return rec.Name == name
}

func bestMatching(versions []metadata.PackageRecord, c version.Range) (metadata.PackageRecord, bool) {
 var best metadata.PackageRecord
 found := false
 for _, rec := range versions {
 if !c.IsAny() && !version.Satisfies(rec.Version, c) {
 continue
 }
 if !found || rec.Version.Greater(best.Version) {
 best = rec
 found = true
 }
 }
 return best, found
}

// CalculateRemovalImpact returns the transitive closure of reverse
// dependencies of name: every installed package that would be left with an
// unsatisfied dependency if name were removed. The caller decides whether
// removal proceeds.
func CalculateRemovalImpact(db InstalledQuery, name string) ([]string, error) {
	seen := map[string]bool{}
 var out []string
 queue := []string{name}
 for len(queue) > 0 {
 cur := queue[0]
 queue = queue[1:]
 rdeps, err := db.GetReverseDependencies(cur)
 if err != nil {
 return nil, err
 }
 for _, d := range rdeps {
 if seen[d] {
 continue
 }
 seen[d] = true
 out = append(out, d)
 queue = append(queue, d)
 }
 }
 return out, nil
}
