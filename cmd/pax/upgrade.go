// Upgrades, grounded on original_source/src/upgrade/mod.rs's
// upgrade_all/upgrade_only split: with
// no positional arguments every installed package is re-resolved against
// the catalog for a newer version; named arguments narrow that set.
package main

import (
	"context"
	"flag"

	"pax/internal/activation"
	"pax/internal/download"
	"pax/internal/pkgerrors"
	"pax/internal/resolve"
	"pax/internal/store"
	"pax/internal/trust"
	"pax/internal/txn"
)

type upgradeCommand struct {
	specific bool
}

func (c *upgradeCommand) Name() string      { return "upgrade" }
func (c *upgradeCommand) Args() string      { return "[pkg...]" }
func (c *upgradeCommand) ShortHelp() string { return "upgrade installed packages to their latest satisfying version" }
func (c *upgradeCommand) LongHelp() string {
	return "Re-resolves the named installed packages (or every installed package, if none are named) against the configured origins and installs any newer version found."
}
func (c *upgradeCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.specific, "specific", false, "treat positional arguments as name/version pairs")
}

func (c *upgradeCommand) Run(ctx *appContext, args []string) error {
	if err := requireRoot(ctx); err != nil {
		return err
	}

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	var reqs []resolve.Request
	if len(args) == 0 {
		installed, err := database.ListPackages()
		if err != nil {
			return err
		}
		for _, rec := range installed {
			reqs = append(reqs, resolve.Request{Name: rec.Name})
		}
	} else {
		reqs, err = parsePackageRequests(args, c.specific)
		if err != nil {
			return err
		}
	}
	if len(reqs) == 0 {
		ctx.Out.Println("nothing installed to upgrade")
		return nil
	}

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

	var upgrades []resolve.Step
	for _, step := range plan.Steps {
		current, ok, err := database.GetPackage(step.Name)
		if err != nil {
			return err
		}
		if !ok || current.Version.Less(step.Version) {
			upgrades = append(upgrades, step)
		}
	}
	if len(upgrades) == 0 {
		ctx.Out.Println("everything is up to date")
		return nil
	}

	ctx.Out.Println("The following package(s) will be upgraded:")
	for _, step := range upgrades {
		ctx.Out.Printf("  %s -> %s", step.Name, step.Version)
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
		for _, step := range upgrades {
			origin, ok := originIndex[candidateKey(step.Name, step.Version)]
			if !ok {
				return pkgerrors.New(pkgerrors.State, "no origin recorded for %s %s", step.Name, step.Version)
			}
			if _, ok, err := database.GetPackage(step.Name); err != nil {
				return err
			} else if ok {
				if err := removeOne(ctx, database, layer, step.Name, false); err != nil {
					return pkgerrors.WithPackage(err, step.Name, step.Version.String())
				}
			}
			if err := installStep(ctx, tx, database, st, dl, trustStore, layer, origin, step, false, "user"); err != nil {
				return pkgerrors.WithPackage(err, step.Name, step.Version.String())
			}
			ctx.Out.Printf("upgraded %s to %s", step.Name, step.Version)
		}
		return nil
	})
}
