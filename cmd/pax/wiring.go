package main

import (
 "bufio"
 "context"
 "os"
 "os/exec"
 "strings"
 "time"

 "pax/internal/catalog"
 "pax/internal/db"
 "pax/internal/lock"
 "pax/internal/metadata"
 "pax/internal/pkgerrors"
 "pax/internal/resolve"
 "pax/internal/txn"
 "pax/internal/version"
)

// httpTimeout is the total-time budget of every catalog and download
// network call. Downloads pair it with connectTimeout; catalog requests
// have no separate connect timeout.
const httpTimeout = 30 * time.Second

// connectTimeout bounds dial+TLS handshake for download.Manager, kept
// shorter than httpTimeout so a dead origin fails fast rather than tying up
// a slot for the whole request timeout.
const connectTimeout = 10 * time.Second

// downloadConcurrency bounds download.Manager.FetchAll's fan-out, per
// "parallel fan-out for multiple URLs, bounded by a configured
// concurrency cap".
const downloadConcurrency = 4

// openDB opens the installed-state database at its configured path.
func openDB(ctx *appContext) (*db.DB, error) {
 return db.Open(ctx.Paths.DatabasePath())
}

// buildCatalog wires one NativeOrigin per configured endpoint.
// Origin-format selection is a repository-configuration detail; a real
// deployment
// would pair each endpoint with its declared format in endpoints.txt, so
// this wiring layer defaults every endpoint to the native format, the one
// format every other origin's grammar was built to interoperate with.
func buildCatalog(ctx *appContext) (*catalog.Client, error) {
 endpoints, err := ctx.Paths.LoadEndpoints()
 if err != nil {
 return nil, err
 }
 origins := make([]catalog.Origin, 0, len(endpoints))
 for i, url := range endpoints {
 origins = append(origins, catalog.NewNativeOrigin(namedOrigin(i, url), url, httpTimeout))
 }
 return catalog.New(origins...), nil
}

func namedOrigin(i int, url string) string {
 return url
}

// withTransaction acquires the process lock (rolling back any orphaned
// journal left by a crashed prior run first), runs fn
// against a fresh Transaction, and commits on success or rolls back on
// failure, releasing the lock in every case.
func withTransaction(ctx *appContext, database *db.DB, store rollbackStore, fn func(*txn.Transaction) error) error {
 if orphan, ok, err := txn.LoadOrphan(ctx.Paths.JournalPath(), ctx.Logger); err != nil {
 return err
 } else if ok {
 ctx.Logger.Warn("found an uncommitted transaction from a previous run, rolling it back")
 if err := orphan.Rollback(txn.Rollback{DB: database, Store: store}); err != nil {
 return err
 }
 }

 l := lock.New(ctx.Paths.LockPath())
 if err := l.Acquire(); err != nil {
 return err
 }
 defer l.Release()

 tx := txn.New(ctx.Paths.JournalPath(), ctx.Logger)
 defer tx.WarnIfDropped()
 if err := fn(tx); err != nil {
 if rbErr := tx.Rollback(txn.Rollback{DB: database, Store: store}); rbErr != nil {
 ctx.Logger.Error("rollback also failed: %v", rbErr)
 }
 return err
 }
 return tx.Commit()
}

// rollbackStore narrows *store.Store to what txn.Rollback needs (the same
// one-method shape as txn.Rollback.Store), so this file's signature does
// not need the store package.
type rollbackStore = interface {
 Remove(hash string) error
}

// defaultHostProbe answers resolve.HostProbe by checking PATH, the same
// "can the shell find it" test original_source/src/provides uses for a
// volatile dependency satisfied by the host rather than a package.
func defaultHostProbe(name string) (bool, error) {
 _, err := exec.LookPath(name)
 return err == nil, nil
}

// candidateKey identifies one (name, version) candidate across the catalog
// lookup and the later install step that needs its Origin back to resolve a
// payload URL, since resolve.Step.Record.Origin is the descriptor's tagged
// Origin struct, not the catalog.Origin that served it.
func candidateKey(name string, v version.Version) string {
 return name + "@" + v.String()
}

// populateCandidates walks roots and their transitive non-volatile
// dependencies, asking every configured origin (in priority order) for
// versions of each name and stopping at the first origin that has any, per
// catalog.Client.ResolveBest's own priority semantics. Every version found
// is registered with resolver via AddCandidate; the returned index maps
// candidateKey(name, version) back to the Origin that served it, since a
// later install step needs that Origin's PayloadURL and the resolver's own
// Candidates map only carries the parsed PackageRecord.
func populateCandidates(ctx context.Context, client *catalog.Client, resolver *resolve.Resolver, roots []string) (map[string]catalog.Origin, error) {
 origins := map[string]catalog.Origin{}
 seen := map[string]bool{}
 queue := append([]string{}, roots...)

 for len(queue) > 0 {
 name := queue[0]
 queue = queue[1:]
 if seen[name] {
 continue
 }
 seen[name] = true

 var picked catalog.Origin
 var versions []version.Version
 for _, o := range client.Origins() {
 vs, err := o.ListVersions(ctx, name)
 if err != nil {
 continue
 }
 if len(vs) > 0 {
 picked, versions = o, vs
 break
 }
 }
 if picked == nil {
 continue // the resolver reports NotFound if nothing else satisfies name
 }

 for _, v := range versions {
 rec, err := picked.FetchDescriptor(ctx, name, v)
 if err != nil {
 continue
 }
 resolver.AddCandidate(rec)
 origins[candidateKey(name, v)] = picked

 for _, dep := range append(append([]metadata.DependencySpec{}, rec.BuildDependencies...), rec.RuntimeDependencies...) {
 if dep.Kind != metadata.DepVolatile && !seen[dep.Name] {
 queue = append(queue, dep.Name)
 }
 }
 }
 }
 return origins, nil
}

// parsePackageRequests turns CLI positional arguments into resolve.Requests,
// honoring the --specific flag's "positional arguments are name version
// pairs" contract shared by install/remove/upgrade.
func parsePackageRequests(args []string, specific bool) ([]resolve.Request, error) {
	if !specific {
 reqs := make([]resolve.Request, len(args))
 for i, name := range args {
 reqs[i] = resolve.Request{Name: name}
 }
 return reqs, nil
 }

 if len(args)%2 != 0 {
 return nil, pkgerrors.New(pkgerrors.Input, "--specific requires name/version pairs")
 }
 reqs := make([]resolve.Request, 0, len(args)/2)
 for i := 0; i < len(args); i += 2 {
 v, err := version.Parse(args[i+1])
 if err != nil {
 return nil, err
 }
 r, err := version.ParseConstraint("==" + v.String())
 if err != nil {
 return nil, err
 }
 reqs = append(reqs, resolve.Request{Name: args[i], Constraint: r})
 }
 return reqs, nil
}

// requireRoot rejects state-mutating commands (install/remove/upgrade/
// update/clean) when the process isn't running as root, matching
// original_source's is_root()/PostAction::Elevate checks across those same
// commands. --root sandboxes paths for tests and deliberately bypasses
// this check, since a sandboxed run never touches real system state.
func requireRoot(ctx *appContext) error {
 if ctx.Sandboxed {
 return nil
 }
 if os.Geteuid() != 0 {
 return pkgerrors.New(pkgerrors.Permission, "this operation requires root; re-run with sudo")
 }
 return nil
}

// confirm prompts on stdout and reads a y/N answer from stdin, short
// circuiting to true when --yes was passed, matching
// original_source/src/clean and src/remove's "Continue?"/"[y/N]" prompts.
func confirm(ctx *appContext, prompt string) bool {
 if ctx.Yes {
 return true
 }
 ctx.Out.Printf("%s [y/N] ", prompt)
 line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
 line = strings.ToLower(strings.TrimSpace(line))
 return line == "y" || line == "yes"
}
