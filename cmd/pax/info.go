// Package details, grounded on original_source/src/info/mod.rs's dual path:
// an installed package shows local bookkeeping (install date, size, files);
// an uninstalled one shows what the catalog would install.
package main

import (
	"context"
	"flag"

	"pax/internal/db"
	"pax/internal/pkgerrors"
	"pax/internal/version"
)

type infoCommand struct{}

func (c *infoCommand) Name() string      { return "info" }
func (c *infoCommand) Args() string      { return "<pkg>" }
func (c *infoCommand) ShortHelp() string { return "show details about a package" }
func (c *infoCommand) LongHelp() string {
	return "Shows installed details for a package, or catalog details if it is not installed."
}
func (c *infoCommand) Register(fs *flag.FlagSet) {}

func (c *infoCommand) Run(ctx *appContext, args []string) error {
	if len(args) != 1 {
		return pkgerrors.New(pkgerrors.Input, "usage: pax info <pkg>")
	}
	name := args[0]

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	rec, ok, err := database.GetPackage(name)
	if err != nil {
		return err
	}
	if ok {
		return showInstalledInfo(ctx, database, rec)
	}
	return showCatalogInfo(ctx, name)
}

func showInstalledInfo(ctx *appContext, database *db.DB, rec db.InstalledRecord) error {
	ctx.Out.Printf("Package: %s", rec.Name)
	ctx.Out.Printf("Version: %s", rec.Version)
	if rec.Description != "" {
		ctx.Out.Printf("Description: %s", rec.Description)
	}
	ctx.Out.Printf("Origin: %s", rec.Origin.String())
	ctx.Out.Println("Status: installed")
	ctx.Out.Printf("Installed Size: %.2f MB", float64(rec.Size)/(1024*1024))
	ctx.Out.Printf("Install Date: %s", rec.InstallDate.Format("2006-01-02 15:04:05"))
	ctx.Out.Printf("Hash: %s", rec.Hash)

	deps, err := database.GetDependencies(rec.Name)
	if err != nil {
		return err
	}
	if len(deps) > 0 {
		ctx.Out.Println("Dependencies:")
		for _, d := range deps {
			constraint := d.VersionConstraint
			if constraint == "" {
				ctx.Out.Printf("  %s", d.DependsOnName)
			} else {
				ctx.Out.Printf("  %s (%s)", d.DependsOnName, constraint)
			}
		}
	}

	files, err := database.GetFiles(rec.Name)
	if err != nil {
		return err
	}
	ctx.Out.Printf("Files: %d", len(files))
	if len(files) > 0 && len(files) <= 20 {
		for _, f := range files {
			ctx.Out.Printf("  %s", f.Path)
		}
	} else if len(files) > 20 {
		ctx.Out.Println("  (use 'pax info' output above; file listing omitted past 20 entries)")
	}
	return nil
}

func showCatalogInfo(ctx *appContext, name string) error {
	client, err := buildCatalog(ctx)
	if err != nil {
		return err
	}

	best, origin, err := client.ResolveBest(context.Background(), name, version.Range{})
	if err != nil {
		return err
	}
	rec, err := origin.FetchDescriptor(context.Background(), name, best)
	if err != nil {
		return err
	}

	ctx.Out.Printf("Package: %s", rec.Name)
	ctx.Out.Printf("Version: %s", rec.Version)
	if rec.Description != "" {
		ctx.Out.Printf("Description: %s", rec.Description)
	}
	ctx.Out.Printf("Repository: %s", origin.Name())
	ctx.Out.Println("Status: not installed")
	if rec.Homepage != "" {
		ctx.Out.Printf("Homepage: %s", rec.Homepage)
	}
	if len(rec.BuildDependencies) > 0 {
		ctx.Out.Println("Build Dependencies:")
		for _, d := range rec.BuildDependencies {
			ctx.Out.Printf("  %s", d.Name)
		}
	}
	if len(rec.RuntimeDependencies) > 0 {
		ctx.Out.Println("Runtime Dependencies:")
		for _, d := range rec.RuntimeDependencies {
			ctx.Out.Printf("  %s", d.Name)
		}
	}
	ctx.Out.Printf("Hash: %s", rec.Hash)
	ctx.Out.Printf("Install with: pax install %s", name)
	return nil
}
