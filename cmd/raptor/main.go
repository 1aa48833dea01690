package main

import (
	"os"
	"runtime/pprof"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/raptor-search/go-raptor/config"
	"gopkg.in/urfave/cli.v1"
)

var version = ""

const configKey = "config"

func main() {
	app := cli.NewApp()

	app.Name = "raptor"
	app.HelpName = "raptor"
	app.Usage = "Raptor - fuzzy key lookup server"
	app.Version = version

	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Value: "raptor.toml", Usage: "path to the config file"},
		cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		cli.StringFlag{Name: "cpuprofile", Usage: "write cpu profile to file", Hidden: true},
	}

	app.Commands = []cli.Command{
		serveCommand,
		buildCommand,
		lookupCommand,
		configCommand,
	}

	app.Before = func(ctx *cli.Context) error {
		cfg, err := config.Load(ctx.GlobalString("config"))
		if err != nil {
			return err
		}
		ctx.App.Metadata = map[string]interface{}{configKey: cfg}
		setupLogging(cfg.Log.Level, ctx.GlobalBool("debug"))

		if ctx.GlobalIsSet("cpuprofile") {
			file, err := os.Create(ctx.GlobalString("cpuprofile"))
			if err != nil {
				return errors.Wrap(err, "unable to create file for cpu profile")
			}
			pprof.StartCPUProfile(file)
		}
		return nil
	}

	app.After = func(ctx *cli.Context) error {
		if ctx.GlobalIsSet("cpuprofile") {
			pprof.StopCPUProfile()
		}
		return nil
	}

	app.RunAndExitOnError()
}

func setupLogging(level string, debug bool) {
	log.SetReportTimestamp(true)
	log.SetTimeFormat("2006-01-02 15:04:05.000")
	if debug {
		log.SetLevel(log.DebugLevel)
		return
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warn("invalid log level, using info", "level", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

func configFrom(ctx *cli.Context) *config.Config {
	if cfg, ok := ctx.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.DefaultConfig()
}
