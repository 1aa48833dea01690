package main

import (
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"
)

var configCommand = cli.Command{
	Name:      "config",
	Usage:     "Write the effective configuration to a file",
	ArgsUsage: "path",
	Description: "Writes the built-in defaults merged with the loaded config file,\n" +
		"   a starting point for a new raptor.toml.",
	Action: runConfig,
}

func runConfig(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("expected exactly one path", 2)
	}
	path := ctx.Args().First()
	err := configFrom(ctx).Save(path)
	if err != nil {
		return errors.Wrapf(err, "failed to write %v", path)
	}
	log.Info("config written", "path", path)
	return nil
}
