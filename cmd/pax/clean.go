// Garbage collection, grounded on original_source/src/clean/mod.rs's
// sequence: sweep orphaned symlinks, sweep unreferenced store entries,
// report the download cache size, and (with --all) clear it after
// confirmation.
package main

import (
	"flag"

	"pax/internal/activation"
	"pax/internal/download"
	"pax/internal/store"
)

type cleanCommand struct {
	all bool
}

func (c *cleanCommand) Name() string      { return "clean" }
func (c *cleanCommand) Args() string      { return "" }
func (c *cleanCommand) ShortHelp() string { return "remove orphaned links, unreferenced store entries, and (with --all) the download cache" }
func (c *cleanCommand) LongHelp() string {
	return "Sweeps orphaned activation links and store entries no installed package references, then reports the download cache size. --all additionally clears the download cache."
}
func (c *cleanCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.all, "all", false, "also clear the download cache")
}

func (c *cleanCommand) Run(ctx *appContext, args []string) error {
	if err := requireRoot(ctx); err != nil {
		return err
	}

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	layer := activation.New(ctx.Paths.LinksRoot(), database)
	orphans, err := layer.CleanupOrphaned()
	if err != nil {
		return err
	}
	ctx.Out.Printf("Removed %d orphaned link(s)", len(orphans))
	for _, o := range orphans {
		ctx.Out.Printf("  %s", o)
	}

	installed, err := database.ListPackages()
	if err != nil {
		return err
	}
	live := map[string]bool{}
	for _, rec := range installed {
		live[rec.Hash] = true
	}
	st := store.New(ctx.Paths.StoreRoot())
	removedHashes, err := st.GarbageCollect(live)
	if err != nil {
		return err
	}
	ctx.Out.Printf("Removed %d unreferenced store entr(y/ies)", len(removedHashes))
	for _, h := range removedHashes {
		ctx.Out.Printf("  %s", truncate(h, 16))
	}

	dl := download.New(ctx.Paths.CacheRoot(), connectTimeout, httpTimeout, downloadConcurrency)
	size, err := dl.CacheSize()
	if err != nil {
		return err
	}
	ctx.Out.Printf("Download cache: %.2f MB", float64(size)/(1024*1024))

	if c.all {
		if confirm(ctx, "Clear download cache?") {
			if err := dl.ClearCache(); err != nil {
				return err
			}
			ctx.Out.Println("Download cache cleared")
		}
	}

	ctx.Out.Println("\x1b[32mCleanup complete!\x1b[0m")
	return nil
}
