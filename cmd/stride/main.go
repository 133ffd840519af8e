// Package main is the entry point for the stride CLI.
package main

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func init() {
	// Load .env for API keys and the like. Existing env vars win.
	_ = godotenv.Load()
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("stride"),
		kong.Description("Event-sourced autonomous task execution engine"),
		kong.UsageOnError(),
		kongVars(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}

// Run implements the version command.
func (c *VersionCmd) Run() error {
	fmt.Printf("stride version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return nil
}
