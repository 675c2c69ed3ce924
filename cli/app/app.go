package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/TKONIY/gmpt/cli/trie"
	"github.com/TKONIY/gmpt/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "gmpt\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates a gmpt instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "gmpt"
	ctl.Version = config.Version
	ctl.Usage = "Parallel Ethereum Merkle Patricia Trie builder"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, trie.NewCommands()...)
	return ctl
}
