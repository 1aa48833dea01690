package main

import (
	"bufio"

	"github.com/pkg/errors"
	"github.com/raptor-search/go-raptor/search"
	"github.com/raptor-search/go-raptor/server"
	"gopkg.in/urfave/cli.v1"
)

var lookupCommand = cli.Command{
	Name:      "lookup",
	Usage:     "Look up keys in the index without starting the server",
	ArgsUsage: "query...",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "index", Usage: "path to the index directory (default from config)"},
		cli.BoolFlag{Name: "exact", Usage: "only return the key itself"},
	},
	Action: runLookup,
}

func runLookup(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return cli.NewExitError("no query given", 2)
	}

	cfg := configFrom(ctx)
	path := cfg.Index.Dir
	if ctx.IsSet("index") {
		path = ctx.String("index")
	}

	idx, err := openIndex(path)
	if err != nil {
		return err
	}
	defer idx.Close()

	searcher, err := search.NewSearcher(idx)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(ctx.App.Writer)
	defer out.Flush()

	var buf []byte
	for _, query := range ctx.Args() {
		if ctx.Bool("exact") {
			key, err := search.Normalize(query)
			if err != nil {
				return err
			}
			if values, ok := idx.Get(key); ok {
				buf = server.AppendMatch(buf[:0], key, values, cfg.Server.MaxValues)
				out.Write(append(buf, '\n'))
			}
			continue
		}

		it, err := searcher.Lookup(query)
		if err != nil {
			return errors.Wrapf(err, "lookup of %q failed", query)
		}
		for it.Next() {
			buf = server.AppendMatch(buf[:0], it.Key(), it.Values(), cfg.Server.MaxValues)
			out.Write(append(buf, '\n'))
		}
		err = it.Err()
		it.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
