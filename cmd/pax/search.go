// Searching the catalog, grounded on original_source/src/search/mod.rs's
// merge-by-origin output and its "[installed]" tag for hits already present
// in the local database.
package main

import (
	"context"
	"flag"

	"pax/internal/catalog"
	"pax/internal/pkgerrors"
)

type searchCommand struct{}

func (c *searchCommand) Name() string      { return "search" }
func (c *searchCommand) Args() string      { return "<pattern>" }
func (c *searchCommand) ShortHelp() string { return "search configured origins for a package name or description" }
func (c *searchCommand) LongHelp() string {
	return "Searches every configured origin for pattern and reports matches, tagging ones that are already installed."
}
func (c *searchCommand) Register(fs *flag.FlagSet) {}

func (c *searchCommand) Run(ctx *appContext, args []string) error {
	if len(args) != 1 {
		return pkgerrors.New(pkgerrors.Input, "usage: pax search <pattern>")
	}
	pattern := args[0]

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	client, err := buildCatalog(ctx)
	if err != nil {
		return err
	}

	results, err := client.Search(context.Background(), pattern)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		ctx.Out.Println("No packages found")
		return nil
	}

	var total int
	for originName, briefs := range results {
		catalog.SortBriefsByName(briefs)
		ctx.Out.Printf("\x1b[36m%s:\x1b[0m", originName)
		for _, b := range briefs {
			tag := ""
			if installed, err := database.IsInstalled(b.Name); err == nil && installed {
				tag = " \x1b[32m[installed]\x1b[0m"
			}
			ctx.Out.Printf("  \x1b[33m%s\x1b[0m%s - %s", b.Name, tag, b.Description)
			total++
		}
	}
	ctx.Out.Printf("Found %d package(s)", total)
	return nil
}
