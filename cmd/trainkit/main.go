// Command trainkit inspects checkpoint directories and recorded metrics.
package main

import (
	"os"

	"github.com/alecthomas/kong"

	"github.com/randalmurphal/trainkit/cmd/trainkit/commands"
)

var version = "dev"

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("trainkit"),
		kong.Description("Inspect training checkpoints and recorded metrics."),
		kong.UsageOnError(),
		kong.Vars{
			"version":     version,
			"config_file": commands.DefaultConfigFile,
		},
	)
	err := ctx.Run(&commands.Global{Out: os.Stdout}, &cli)
	ctx.FatalIfErrorf(err)
}
