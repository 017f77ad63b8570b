// Listing installed packages, grounded on original_source/src/list/mod.rs's
// output format (colored name, truncated description, per-package origin
// line, total size footer).
package main

import (
	"flag"
)

type listCommand struct{}

func (c *listCommand) Name() string      { return "list" }
func (c *listCommand) Args() string      { return "" }
func (c *listCommand) ShortHelp() string { return "list installed packages" }
func (c *listCommand) LongHelp() string  { return "Lists every installed package with its version, size, and origin." }
func (c *listCommand) Register(fs *flag.FlagSet) {}

func (c *listCommand) Run(ctx *appContext, args []string) error {
	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	installed, err := database.ListPackages()
	if err != nil {
		return err
	}
	if len(installed) == 0 {
		ctx.Out.Println("No packages installed")
		return nil
	}

	ctx.Out.Println("\x1b[36mInstalled Packages:\x1b[0m")
	ctx.Out.Println()
	var totalBytes int64
	for _, rec := range installed {
		desc := truncate(rec.Description, 70)
		sizeMB := float64(rec.Size) / (1024 * 1024)
		ctx.Out.Printf("\x1b[33m%s\x1b[0m %s (%.2f MB)", rec.Name, rec.Version, sizeMB)
		if desc != "" {
			ctx.Out.Printf("  %s", desc)
		}
		ctx.Out.Printf("  Origin: %s", rec.Origin.String())
		ctx.Out.Println()
		totalBytes += rec.Size
	}
	ctx.Out.Printf("\x1b[36mTotal:\x1b[0m %d packages (%.2f MB)", len(installed), float64(totalBytes)/(1024*1024))
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max < 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
