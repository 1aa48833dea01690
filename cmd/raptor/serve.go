package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/raptor-search/go-raptor/index"
	"github.com/raptor-search/go-raptor/metrics"
	"github.com/raptor-search/go-raptor/search"
	"github.com/raptor-search/go-raptor/server"
	"golang.org/x/sync/errgroup"
	"gopkg.in/urfave/cli.v1"
)

var serveCommand = cli.Command{
	Name:  "serve",
	Usage: "Run the lookup service",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "addr", Usage: "address on which to listen (default from config)"},
		cli.StringFlag{Name: "index", Usage: "path to the index directory (default from config)"},
		cli.StringFlag{Name: "metrics-addr", Usage: "address of the metrics listener, empty to disable (default from config)"},
	},
	Action: runServe,
}

func openIndex(path string) (*index.Index, error) {
	dir, err := index.OpenDir(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open the index directory")
	}
	log.Info("loading index", "dir", dir)
	idx, err := index.Open(dir)
	if err != nil {
		if index.IsNotExist(err) {
			return nil, errors.Wrapf(err, "no index in %v, run \"raptor build\" first", dir)
		}
		return nil, errors.Wrap(err, "failed to load the index")
	}
	log.Info("index loaded", "keys", idx.Len(), "values", idx.NumValues())
	return idx, nil
}

func runServe(ctx *cli.Context) error {
	cfg := configFrom(ctx)
	if ctx.IsSet("addr") {
		cfg.Server.Addr = ctx.String("addr")
	}
	if ctx.IsSet("index") {
		cfg.Index.Dir = ctx.String("index")
	}
	if ctx.IsSet("metrics-addr") {
		cfg.Metrics.Addr = ctx.String("metrics-addr")
	}

	idx, err := openIndex(cfg.Index.Dir)
	if err != nil {
		return err
	}
	defer idx.Close()

	searcher, err := search.NewSearcher(idx)
	if err != nil {
		return err
	}

	m := metrics.New()
	m.IndexKeys.Set(float64(idx.Len()))
	m.IndexValues.Set(float64(idx.NumValues()))

	opts := server.Options{
		MaxValues:  cfg.Server.MaxValues,
		MaxMatches: cfg.Server.MaxMatches,
	}
	handler := server.Handler(searcher, opts, m)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Server.Addr)
		srv := server.NewServer(cfg.Server.Addr, handler, cfg.Server.ReadTimeout.Duration, cfg.Server.WriteTimeout.Duration)
		return server.Run(gctx, srv)
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			r := mux.NewRouter()
			r.Handle("/metrics", m.Handler())
			log.Info("serving metrics", "addr", cfg.Metrics.Addr)
			srv := server.NewServer(cfg.Metrics.Addr, r, cfg.Server.ReadTimeout.Duration, cfg.Server.WriteTimeout.Duration)
			return server.Run(gctx, srv)
		})
	}

	err = g.Wait()
	log.Info("stopped")
	return err
}
