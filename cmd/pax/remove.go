// Uninstallation, grounded on original_source/src/remove/mod.rs's
// run(states, args, purge) and on
// metadata/src/versioning::Specific::remove's purge-vs-uninstall dispatch.
//
// Unlike the original, this does not cascade into removing a target's own
// now-unused dependencies: removal only requires refusing (or warning)
// when other installed packages still depend on the target, which
// resolve.CalculateRemovalImpact already answers. Orphaned dependencies are
// not removed by any command: "pax clean" only sweeps links, store entries
// and the download cache.
package main

import (
 "context"
 "flag"
 "os"
 "path/filepath"

 "pax/internal/activation"
 "pax/internal/db"
 "pax/internal/metadata"
 "pax/internal/pkgerrors"
 "pax/internal/resolve"
 "pax/internal/scripts"
 "pax/internal/store"
 "pax/internal/txn"
)

type removeCommand struct {
 specific bool
 purge bool
}

func (c *removeCommand) Name() string { return "remove" }
func (c *removeCommand) Args() string { return "<pkg...>" }
func (c *removeCommand) ShortHelp() string { return "uninstall one or more packages" }
func (c *removeCommand) LongHelp() string {
 return "Deactivates and uninstalls the named packages after checking for dependents."
}
func (c *removeCommand) Register(fs *flag.FlagSet) {
 fs.BoolVar(&c.specific, "specific", false, "treat positional arguments as name/version pairs")
 fs.BoolVar(&c.purge, "purge", false, "also remove configuration and data files")
}

func (c *removeCommand) Run(ctx *appContext, args []string) error {
 if err := requireRoot(ctx); err != nil {
 return err
 }
 reqs, err := parsePackageRequests(args, c.specific)
 if err != nil {
 return err
 }
 if len(reqs) == 0 {
 return pkgerrors.New(pkgerrors.Input, "usage: pax remove [--purge] <pkg...>")
 }

 database, err := openDB(ctx)
 if err != nil {
 return err
 }
 defer database.Close()

 names := make([]string, len(reqs))
 for i, r := range reqs {
 names[i] = r.Name
 installed, err := database.IsInstalled(r.Name)
 if err != nil {
 return err
 }
 if !installed {
 return pkgerrors.New(pkgerrors.NotFound, "%s is not installed", r.Name)
 }
 }

 impacted := map[string]bool{}
 var dependents []string
 for _, name := range names {
 affected, err := resolve.CalculateRemovalImpact(database, name)
 if err != nil {
 return err
 }
 for _, a := range affected {
 if impacted[a] || contains(names, a) {
 continue
 }
 impacted[a] = true
 dependents = append(dependents, a)
 }
 }

 verb := "REMOVED"
 if c.purge {
 verb = "PURGED"
 }
 ctx.Out.Printf("The following package(s) will be %s: %v", verb, names)
 if len(dependents) > 0 {
 ctx.Out.Printf("The following installed package(s) depend on them and may break: %v", dependents)
 }
 if !confirm(ctx, "Continue?") {
 ctx.Out.Println("aborted")
 return nil
 }

 st := store.New(ctx.Paths.StoreRoot())
 layer := activation.New(ctx.Paths.LinksRoot(), database)

 return withTransaction(ctx, database, st, func(tx *txn.Transaction) error {
 for _, name := range names {
 if err := removeOne(ctx, database, layer, name, c.purge); err != nil {
 ctx.Logger.Error("=== %s MAY HAVE BROKEN PACKAGES ===", name)
 return pkgerrors.WithPackage(err, name, "")
 }
 ctx.Out.Printf("%s %s", verb, name)
 }
 return nil
 })
}

func removeOne(ctx *appContext, database *db.DB, layer *activation.Layer, name string, purge bool) error {
 rec, ok, err := database.GetPackage(name)
 if err != nil {
 return err
 }
 if !ok {
 return pkgerrors.New(pkgerrors.NotFound, "%s is not installed", name)
 }

 rows, err := database.GetFiles(name)
 if err != nil {
 return err
 }

 if err := layer.Deactivate(name); err != nil {
 return err
 }

 switch rec.InstallKind.Tag {
 case metadata.Compilable:
 script, label := rec.InstallKind.UninstallScript, "remove"
 if purge {
 script, label = rec.InstallKind.PurgeScript, "purge"
 }
 ctx.Logger.Info("running %s script for %s", label, name)
 if err := scripts.Run(context.Background(), script, scripts.DefaultGracePeriod, ctx.Logger); err != nil {
 return err
 }
 default: // PreBuilt has no uninstall/purge script; config files are handled below.
 }

 if purge {
 for _, row := range rows {
 if row.Type != db.FileRegular {
 continue
 }
 path := filepath.Join(ctx.Paths.LinksRoot(), row.Path)
 if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
 return pkgerrors.Wrap(pkgerrors.IO, err, "remove config file "+row.Path)
 }
 }
 }

 return database.RemovePackage(name)
}

func contains(haystack []string, needle string) bool {
 for _, s := range haystack {
 if s == needle {
 return true
 }
 }
 return false
}
