// Package flags defines the beacon node specific command line flags.
package flags

import (
	"github.com/urfave/cli/v2"
)

var (
	// InMemoryFlag keeps the chain store in memory instead of on disk.
	InMemoryFlag = &cli.BoolFlag{
		Name:  "in-memory",
		Usage: "Keep the chain store in memory. Nothing is written to the data directory.",
	}
	// DemoValidatorsFlag starts a chain with the demo config and generated
	// validators when no chain config file is given.
	DemoValidatorsFlag = &cli.IntFlag{
		Name:  "demo-validators",
		Usage: "Number of generated validators to start a demo chain with, if no chain config file is set",
	}
)
