// Catalog metadata refresh, grounded on original_source/src/update/mod.rs's
// "Downloads the upgrade metadata for non-phased packages": re-queries every
// configured origin for each installed package's versions and reports what
// is upgradable, without installing anything (that's what "pax upgrade" is
// for).
package main

import (
	"context"
	"flag"

	"pax/internal/version"
)

type updateCommand struct{}

func (c *updateCommand) Name() string      { return "update" }
func (c *updateCommand) Args() string      { return "" }
func (c *updateCommand) ShortHelp() string { return "refresh catalog metadata and report available upgrades" }
func (c *updateCommand) LongHelp() string {
	return "Re-queries every configured origin for each installed package's versions and reports which packages have a newer version available."
}
func (c *updateCommand) Register(fs *flag.FlagSet) {}

func (c *updateCommand) Run(ctx *appContext, args []string) error {
	if err := requireRoot(ctx); err != nil {
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
	client.Update()

	installed, err := database.ListPackages()
	if err != nil {
		return err
	}

	rootCtx := context.Background()
	var upgradable int
	for _, rec := range installed {
		best, _, err := client.ResolveBest(rootCtx, rec.Name, version.Range{})
		if err != nil {
			continue
		}
		if rec.Version.Less(best) {
			upgradable++
			ctx.Out.Printf("%s: %s -> %s", rec.Name, rec.Version, best)
		}
	}

	if upgradable == 0 {
		ctx.Out.Println("everything is up to date")
	} else {
		ctx.Out.Printf("%d package(s) can be upgraded; run 'pax upgrade' to install them", upgradable)
	}
	return nil
}
