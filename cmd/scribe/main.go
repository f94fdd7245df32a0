package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/inkpress/scribe/cmd/scribe/commands"
)

var version = "dev"

const banner = "◜ s c r i b e ◝  ink • eternal"

func main() {
	fmt.Println(banner)

	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("scribe"),
		kong.Description("A minimal static site generator with backlinks, illuminated initials, and IPFS publishing."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
	)
	err := ctx.Run(&commands.Global{}, &cli)
	ctx.FatalIfErrorf(err)
}
