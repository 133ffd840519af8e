// Package main defines the CLI structure using kong.
package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	Run      RunCmd      `cmd:"" help:"Run a goal to completion"`
	Replay   ReplayCmd   `cmd:"" help:"Replay a session for forensic analysis"`
	Sessions SessionsCmd `cmd:"" help:"List recorded sessions"`
	Summary  SummaryCmd  `cmd:"" help:"Summarize a session's outcome"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

// RunCmd executes a goal.
type RunCmd struct {
	Goal       string `arg:"" help:"Goal to accomplish"`
	Config     string `help:"Config file path"`
	Plan       string `help:"Execute a prepared YAML plan instead of asking the planner"`
	MaxActions int    `help:"Iteration ceiling (overrides config)"`
	Quiet      bool   `short:"q" help:"Suppress the summary, print only the session ID"`
}

// ReplayCmd replays a session's event log.
type ReplayCmd struct {
	Session string `arg:"" help:"Session ID to replay"`
	Config  string `help:"Config file path"`
	Verbose bool   `short:"v" help:"Show payload detail for every event"`
	NoPager bool   `help:"Disable pager for output"`
	Follow  bool   `short:"f" help:"Live mode: refresh while the session is still running"`
	Stats   bool   `help:"Append per-tool timing statistics"`
}

// SessionsCmd lists recorded sessions.
type SessionsCmd struct {
	Config string `help:"Config file path"`
}

// SummaryCmd prints a session's synthesized outcome.
type SummaryCmd struct {
	Session string `arg:"" help:"Session ID to summarize"`
	Config  string `help:"Config file path"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
