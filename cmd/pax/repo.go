package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"pax/internal/pkgerrors"
)

type repoCommand struct{}

func (c *repoCommand) Name() string      { return "repo" }
func (c *repoCommand) Args() string      { return "{list|test <url>}" }
func (c *repoCommand) ShortHelp() string { return "list or test configured catalog origins" }
func (c *repoCommand) LongHelp() string {
	return "list prints the configured endpoints; test checks that a URL answers before adding it."
}
func (c *repoCommand) Register(*flag.FlagSet) {}

func (c *repoCommand) Run(ctx *appContext, args []string) error {
	if len(args) == 0 {
		return pkgerrors.New(pkgerrors.Input, "usage: pax repo {list|test <url>}")
	}

	switch args[0] {
	case "list":
		endpoints, err := ctx.Paths.LoadEndpoints()
		if err != nil {
			return err
		}
		if len(endpoints) == 0 {
			ctx.Out.Println("no endpoints configured")
			return nil
		}
		for _, e := range endpoints {
			ctx.Out.Println(e)
		}
		return nil

	case "test":
		if len(args) != 2 {
			return pkgerrors.New(pkgerrors.Input, "usage: pax repo test <url>")
		}
		client := &http.Client{Timeout: 10 * time.Second}
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, args[1], nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.Input, err, "build request")
		}
		resp, err := client.Do(req)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.Network, err, "reach "+args[1])
		}
		resp.Body.Close()
		ctx.Out.Printf("%s: %s", args[1], resp.Status)
		return nil

	default:
		return pkgerrors.New(pkgerrors.Input, "unrecognized repo subcommand %q", args[0])
	}
}
