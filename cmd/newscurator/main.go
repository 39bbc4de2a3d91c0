package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"NewsCurator/internal/app"
	"NewsCurator/internal/config"
	"NewsCurator/internal/logging"
)

type Globals struct {
	Config   string `help:"Path to the YAML config file (defaults to $NEWS_CURATOR_CONFIG)." type:"path" short:"c"`
	LogLevel string `help:"Override the configured log level (debug, info, warn, error)." name:"log-level"`
}

type cli struct {
	Globals

	Run      runCmd      `cmd:"" default:"1" help:"Collect articles, offer drafts and publish the pick once."`
	Schedule scheduleCmd `cmd:"" help:"Repeat the pipeline on the configured interval."`
}

type runEnv struct {
	ctx     context.Context
	Globals Globals
}

func (r *runEnv) application() (*app.Application, error) {
	cfg := config.Load(r.Globals.Config)
	if r.Globals.LogLevel != "" {
		cfg.Logging.Level = r.Globals.LogLevel
	}
	logger := logging.New(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration rejected", "err", err)
		return nil, err
	}
	return app.New(r.ctx, cfg, logger)
}

type runCmd struct{}

func (runCmd) Run(rt *runEnv) error {
	application, err := rt.application()
	if err != nil {
		return err
	}
	defer application.Close()

	return ignoreCancel(application.Run(rt.ctx))
}

type scheduleCmd struct{}

func (scheduleCmd) Run(rt *runEnv) error {
	application, err := rt.application()
	if err != nil {
		return err
	}
	defer application.Close()

	return ignoreCancel(application.Schedule(rt.ctx))
}

// ignoreCancel treats a signal-driven shutdown as a clean exit.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("newscurator"),
		kong.Description("Curates AI news into LinkedIn drafts and publishes the operator's pick."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := kctx.Run(&runEnv{ctx: ctx, Globals: c.Globals})
	stop()
	kctx.FatalIfErrorf(err)
}
