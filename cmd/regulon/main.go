// Command regulon is the CLI for the Regulon query orchestrator.
//
// Usage:
//
//	regulon serve --config config.yaml
//	regulon serve --llm-provider anthropic --llm-model claude-sonnet-4-20250514
//	regulon validate config.yaml
package main

import (
	"fmt"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/regulon-ai/regulon/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP query server."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`

	Config string `short:"c" help:"Path to config file." type:"path"`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run(cli *CLI) error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("regulon version %s\n", version)
	return nil
}

func main() {
	config.LoadDotEnv()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("regulon"),
		kong.Description("Regulon - Hybrid-RAG query orchestrator for building regulations"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
