// Resolution and installation, grounded on original_source/src/install/mod.rs's
// flow (resolve -> confirm -> fetch -> verify -> extract -> activate).
package main

import (
 "context"
 "flag"
 "fmt"
 "io"
 "os"
 "path/filepath"
 "time"

 "pax/internal/activation"
 "pax/internal/catalog"
 "pax/internal/db"
 "pax/internal/download"
 "pax/internal/metadata"
 "pax/internal/pkgerrors"
 "pax/internal/resolve"
 "pax/internal/scripts"
 "pax/internal/store"
 "pax/internal/trust"
 "pax/internal/txn"
)

type installCommand struct {
 specific bool
}

func (c *installCommand) Name() string { return "install" }
func (c *installCommand) Args() string { return "<pkg...>" }
func (c *installCommand) ShortHelp() string { return "resolve and install one or more packages" }
func (c *installCommand) LongHelp() string {
 return "Resolves a dependency plan for the named packages and installs every step in dependency order."
}
func (c *installCommand) Register(fs *flag.FlagSet) {
 fs.BoolVar(&c.specific, "specific", false, "treat positional arguments as name/version pairs")
}

func (c *installCommand) Run(ctx *appContext, args []string) error {
 if err := requireRoot(ctx); err != nil {
 return err
 }
 reqs, err := parsePackageRequests(args, c.specific)
 if err != nil {
 return err
 }
 if len(reqs) == 0 {
 return pkgerrors.New(pkgerrors.Input, "usage: pax install [--specific] <pkg...>")
 }
 requested := map[string]bool{}
 for _, r := range reqs {
 requested[r.Name] = true
 }

 if err := ctx.Paths.MkdirAll(); err != nil {
 return err
 }

 database, err := openDB(ctx)
 if err != nil {
 return err
 }
 defer database.Close()

 client, err := buildCatalog(ctx)
 if err != nil {
 return err
 }

 resolver := resolve.New(database, defaultHostProbe)
 rootCtx := context.Background()
 names := make([]string, len(reqs))
 for i, r := range reqs {
 names[i] = r.Name
 }
 originIndex, err := populateCandidates(rootCtx, client, resolver, names)
 if err != nil {
 return err
 }

 plan, err := resolver.Resolve(reqs)
 if err != nil {
 return err
 }
 if len(plan.Steps) == 0 {
 ctx.Out.Println("nothing to do")
 return nil
 }

 ctx.Out.Println("The following package(s) will be installed:")
 for _, step := range plan.Steps {
 mark := ""
 if !requested[step.Name] {
 mark = " (dependency)"
 }
 ctx.Out.Printf(" %s %s%s", step.Name, step.Version, mark)
 }
 if !confirm(ctx, "Continue?") {
 ctx.Out.Println("aborted")
 return nil
 }

 st := store.New(ctx.Paths.StoreRoot())
 dl := download.New(ctx.Paths.CacheRoot(), connectTimeout, httpTimeout, downloadConcurrency)
 trustStore := trust.NewStore(ctx.Paths.TrustedKeysDir())
 layer := activation.New(ctx.Paths.LinksRoot(), database)

 return withTransaction(ctx, database, st, func(tx *txn.Transaction) error {
 for _, step := range plan.Steps {
 origin, ok := originIndex[candidateKey(step.Name, step.Version)]
 if !ok {
 return pkgerrors.New(pkgerrors.State, "no origin recorded for %s %s", step.Name, step.Version)
 }
 installedBy := ""
 if requested[step.Name] {
 installedBy = "user"
 }
 if err := installStep(ctx, tx, database, st, dl, trustStore, layer, origin, step, !requested[step.Name], installedBy); err != nil {
 return pkgerrors.WithPackage(err, step.Name, step.Version.String())
 }
 ctx.Out.Printf("installed %s %s", step.Name, step.Version)
 }
 return nil
 })
}

// installStep fetches, verifies, extracts, and activates a single resolved
// step, recording every durable action it takes on tx so a failure midway
// can be rolled back.
func installStep(
 ctx *appContext,
 tx *txn.Transaction,
 database *db.DB,
 st *store.Store,
 dl *download.Manager,
 trustStore *trust.Store,
 layer *activation.Layer,
 origin catalog.Origin,
 step resolve.Step,
 dependent bool,
 installedBy string,
) error {
 linksRoot := ctx.Paths.LinksRoot()
 rec := step.Record
 ctx.Logger.Info("installing %s %s", step.Name, step.Version)

 payloadURL, err := origin.PayloadURL(step.Name, step.Version)
 if err != nil {
 return err
 }
 destName := fmt.Sprintf("%s-%s.pkg", step.Name, step.Version)

 dctx := context.Background()
 path, err := dl.Download(dctx, payloadURL, destName)
 if err != nil {
 return err
 }
 if err := tx.RecordDownload(path); err != nil {
 return err
 }

 if ok, err := trust.VerifyHash(path, rec.Hash); err != nil {
 return err
 } else if !ok {
 return pkgerrors.New(pkgerrors.Integrity, "payload hash does not match the descriptor's declared hash")
 }

 // original_source/src/download/mod.rs fetches the signature from its
 // own URL; the catalog.Origin interface only exposes one URL per
 // package, so the signature is conventionally the payload URL with a
 // ".sig" suffix.
 sigPath, err := dl.DownloadSignature(dctx, payloadURL+".sig", destName)
 if err != nil {
 return err
 }
 if err := tx.RecordDownload(sigPath); err != nil {
 return err
 }
 signature, err := os.ReadFile(sigPath)
 if err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "read signature file")
 }
 if ok, err := trustStore.VerifyAgainstTrustStore(path, signature); err != nil {
 return err
 } else if !ok {
 return pkgerrors.New(pkgerrors.Trust, "signature does not verify against any trusted key")
 }

 f, err := os.Open(path)
 if err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "open downloaded payload")
 }
 defer f.Close()
 if err := st.Add(dctx, f, rec.Hash); err != nil {
 return err
 }
 if err := tx.RecordStoreAdd(rec.Hash); err != nil {
 return err
 }

 var fileRows []db.FileRow
 var links []activation.Link
 var size int64

 switch rec.InstallKind.Tag {
 case metadata.Compilable:
 if err := scripts.Run(dctx, rec.InstallKind.BuildScript, scripts.DefaultGracePeriod, ctx.Logger); err != nil {
 return err
 }
 default: // PreBuilt
 payloadRoot := st.PathOf(rec.Hash)
 rows, ls, sz, err := buildPreBuiltManifest(payloadRoot, rec.InstallKind)
 if err != nil {
 return err
 }
 fileRows, links, size = rows, ls, sz
 if err := installConfigFiles(ctx, payloadRoot, rec.InstallKind.ConfigPaths); err != nil {
 return err
 }
 }

 installedRec := db.InstalledRecord{
 PackageRecord: rec,
 Dependent: dependent,
 InstalledBy: installedBy,
 InstallDate: time.Now(),
 Size: size,
 }
 if err := database.InsertPackage(installedRec); err != nil {
 return err
 }
 if err := tx.RecordDBInsert("packages", step.Name); err != nil {
 return err
 }

 for _, row := range fileRows {
 if err := database.InsertFile(step.Name, row); err != nil {
 return err
 }
 }

 deps := append(append([]metadata.DependencySpec{}, rec.BuildDependencies...), rec.RuntimeDependencies...)
 for _, dep := range deps {
 constraint := ""
 if !dep.Constraint.IsAny() {
 constraint = dep.Constraint.String()
 }
 if err := database.InsertDependency(step.Name, db.DependencyRow{
 DependsOnName: dep.Name,
 Kind: dep.Kind,
 VersionConstraint: constraint,
 }); err != nil {
 return err
 }
 }
 if err := database.InsertProvide(step.Name, db.ProvidesRow{
 ProvideName: step.Name,
 ProvideVersion: step.Version.String(),
 ProvideType: "package",
 }); err != nil {
 return err
 }

 if len(links) > 0 {
 if err := layer.Activate(step.Name, links); err != nil {
 return err
 }
 for _, l := range links {
 if err := tx.RecordSymlink(filepath.Join(linksRoot, l.Path)); err != nil {
 return err
 }
 }
 }

 if rec.InstallKind.Tag == metadata.Compilable {
 if err := scripts.Run(dctx, rec.InstallKind.InstallScript, scripts.DefaultGracePeriod, ctx.Logger); err != nil {
 return err
 }
 }

 return nil
}

// buildPreBuiltManifest walks the declared CriticalPaths and ConfigPaths of
// a freshly extracted store entry, building the file rows that record what
// pax owns and the symlinks that expose the critical ones. Only paths a
// descriptor actually declares are tracked; an extracted tree may carry
// other files (READMEs, build artifacts) that aren't part of the installed
// surface.
func buildPreBuiltManifest(payloadRoot string, ik metadata.InstallKind) ([]db.FileRow, []activation.Link, int64, error) {
 var rows []db.FileRow
 var links []activation.Link
 var size int64

 for _, rel := range ik.CriticalPaths {
 full := filepath.Join(payloadRoot, rel)
 fi, err := os.Lstat(full)
 if err != nil {
 return nil, nil, 0, pkgerrors.Wrap(pkgerrors.Input, err, "critical path "+rel+" missing from payload")
 }
 size += fi.Size()
 rows = append(rows, db.FileRow{Path: rel, Type: db.FileSymlink})
 links = append(links, activation.Link{Path: rel, Target: full})
 }

 for _, rel := range ik.ConfigPaths {
 full := filepath.Join(payloadRoot, rel)
 fi, err := os.Lstat(full)
 if err != nil {
 return nil, nil, 0, pkgerrors.Wrap(pkgerrors.Input, err, "config path "+rel+" missing from payload")
 }
 size += fi.Size()
 rows = append(rows, db.FileRow{Path: rel, Type: db.FileRegular})
 }
 return rows, links, size, nil
}

// installConfigFiles copies a package's declared config paths into the
// link root, rather than symlinking them into the immutable store, so a
// user's edits survive reinstalls and upgrades. A destination that already
// exists is left untouched.
func installConfigFiles(ctx *appContext, payloadRoot string, configPaths []string) error {
 for _, rel := range configPaths {
 dest := filepath.Join(ctx.Paths.LinksRoot(), rel)
 if _, err := os.Stat(dest); err == nil {
 continue
 }
 src := filepath.Join(payloadRoot, rel)
 if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "create parent directory for config "+rel)
 }
 if err := copyFile(src, dest); err != nil {
 return pkgerrors.Wrap(pkgerrors.IO, err, "install config file "+rel)
 }
 }
 return nil
}

func copyFile(src, dest string) error {
 in, err := os.Open(src)
 if err != nil {
 return err
 }
 defer in.Close()
 out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
 if err != nil {
 return err
 }
 defer out.Close()
 _, err = io.Copy(out, in)
 return err
}
