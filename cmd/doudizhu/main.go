package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  ServerCmd        `cmd:"" help:"Run the game server"`
	Client  ClientCmd        `cmd:"" help:"Connect as an interactive client"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("doudizhu"),
		kong.Description("Three-player Landlord (Dou Dizhu) card game server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
