// Package main is the entry point for the hostprep CLI.
//
// hostprep prepares a freshly created Linux host over SSH: it mounts a data
// disk, creates folders, syncs keys, clones repositories and installs
// packages, docker, terraform and the AWS CLI, as described by a TOML or
// YAML document of named stages. Every step can also be checked without
// changing the host.
//
// For detailed usage information, run:
//
//	hostprep --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/imamik/hostprep/cmd/hostprep/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
