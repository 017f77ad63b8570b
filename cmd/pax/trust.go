package main

import (
	"encoding/hex"
	"flag"

	"pax/internal/pkgerrors"
	"pax/internal/trust"
)

type trustCommand struct{}

func (c *trustCommand) Name() string      { return "trust" }
func (c *trustCommand) Args() string      { return "{add|remove|list} [label] [hex-public-key]" }
func (c *trustCommand) ShortHelp() string { return "manage the trusted-keys store" }
func (c *trustCommand) LongHelp() string {
	return "add/remove/list the Ed25519 public keys pax verifies package signatures against."
}
func (c *trustCommand) Register(*flag.FlagSet) {}

func (c *trustCommand) Run(ctx *appContext, args []string) error {
	store := trust.NewStore(ctx.Paths.TrustedKeysDir())
	if len(args) == 0 {
		return pkgerrors.New(pkgerrors.Input, "usage: pax trust {add|remove|list}")
	}

	switch args[0] {
	case "list":
		keys, err := store.List()
		if err != nil {
			return err
		}
		for _, k := range keys {
			ctx.Out.Printf("%s\t%s", k.Label, k.Fingerprint())
		}
		return nil

	case "add":
		if len(args) != 3 {
			return pkgerrors.New(pkgerrors.Input, "usage: pax trust add <label> <hex-public-key>")
		}
		raw, err := hex.DecodeString(args[2])
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.Input, err, "public key must be hex-encoded")
		}
		if err := store.Add(args[1], raw); err != nil {
			return err
		}
		ctx.Out.Printf("trusted %s", args[1])
		return nil

	case "remove":
		if len(args) != 2 {
			return pkgerrors.New(pkgerrors.Input, "usage: pax trust remove <label>")
		}
		if err := store.Remove(args[1]); err != nil {
			return err
		}
		ctx.Out.Printf("removed trust for %s", args[1])
		return nil

	default:
		return pkgerrors.New(pkgerrors.Input, "unrecognized trust subcommand %q", args[0])
	}
}
