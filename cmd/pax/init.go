package main

import "flag"

type initCommand struct{}

func (c *initCommand) Name() string      { return "init" }
func (c *initCommand) Args() string      { return "" }
func (c *initCommand) ShortHelp() string { return "create the config, state, cache, run, and log roots" }
func (c *initCommand) LongHelp() string {
	return "Creates every directory pax needs (config, state, cache, run, log roots) if absent."
}
func (c *initCommand) Register(*flag.FlagSet) {}

func (c *initCommand) Run(ctx *appContext, args []string) error {
	if err := ctx.Paths.MkdirAll(); err != nil {
		return err
	}
	ctx.Out.Printf("initialized pax under %s", ctx.Paths.ConfigRoot)
	return nil
}
