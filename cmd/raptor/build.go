package main

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/raptor-search/go-raptor/index"
	"gopkg.in/urfave/cli.v1"
)

var buildCommand = cli.Command{
	Name:      "build",
	Usage:     "Build the index from a text file",
	ArgsUsage: "[input]",
	Description: "Reads lines in the form \"key<TAB>id,id,...\" from the input file\n" +
		"   (or standard input) and writes map.fst and values.vecs to the index directory.",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "index", Usage: "path to the index directory (default from config)"},
		cli.BoolFlag{Name: "lowercase", Usage: "lower-case keys before indexing"},
	},
	Action: runBuild,
}

func runBuild(ctx *cli.Context) error {
	cfg := configFrom(ctx)
	path := cfg.Index.Dir
	if ctx.IsSet("index") {
		path = ctx.String("index")
	}

	var input io.Reader = os.Stdin
	if ctx.NArg() > 0 {
		file, err := os.Open(ctx.Args().First())
		if err != nil {
			return errors.Wrap(err, "failed to open input")
		}
		defer file.Close()
		input = file
	}

	entries, err := ReadEntries(input, ctx.Bool("lowercase"))
	if err != nil {
		return err
	}
	log.Info("read input", "keys", len(entries))

	dir, err := index.OpenDir(path, true)
	if err != nil {
		return errors.Wrap(err, "failed to open the index directory")
	}

	stats, err := index.Build(dir, index.NewEntrySliceReader(entries))
	if err != nil {
		return errors.Wrap(err, "build failed")
	}
	log.Info("done", "keys", stats.NumKeys, "values", stats.NumValues, "duration", stats.Duration)
	return nil
}
