package main

import (
	"flag"
	"strings"

	"pax/internal/pkgerrors"
)

type configureCommand struct {
	set string
}

func (c *configureCommand) Name() string      { return "configure" }
func (c *configureCommand) Args() string      { return "--set key=value" }
func (c *configureCommand) ShortHelp() string { return "configure internal pax settings" }
func (c *configureCommand) LongHelp() string {
	return "Persists a key=value setting to the TOML settings file."
}
func (c *configureCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.set, "set", "", `key=value, e.g. --set exec=/usr/bin/pax-hook`)
}

func (c *configureCommand) Run(ctx *appContext, args []string) error {
	if c.set == "" {
		return pkgerrors.New(pkgerrors.Input, "missing --set key=value")
	}
	key, value, ok := strings.Cut(c.set, "=")
	if !ok {
		return pkgerrors.New(pkgerrors.Input, "invalid syntax, expected key=value, got %q", c.set)
	}
	if err := ctx.Paths.Set(key, value); err != nil {
		return err
	}
	ctx.Out.Printf("set %s = %s", key, value)
	return nil
}
