package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/iwmon/internal/api"
	"github.com/dmdmdm-nz/iwmon/internal/assoc"
	"github.com/dmdmdm-nz/iwmon/internal/hooks"
	"github.com/dmdmdm-nz/iwmon/internal/iwevent"
	"github.com/dmdmdm-nz/iwmon/internal/runtime"
	"github.com/dmdmdm-nz/iwmon/pkg/cli"
)

func main() {
	if err := cli.NewRootCommand(run).Execute(); err != nil {
		log.WithError(err).Error("iwmon failed")
		os.Exit(1)
	}
}

func run(cfg *cli.Config) error {
	// Configure logging
	setLogLevel(cfg.LogLevel)
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FullTimestamp:   true,
	})

	log.Infof("Config: %s", cfg)

	hs, err := buildHooks(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	assocSvc := assoc.NewService(cfg.MonitorConfig(), hooks.Options(hs)...)

	super := runtime.NewSupervisor()
	super.Add("assoc", assocSvc.Start, assocSvc.Close)

	if cfg.API {
		apiSvc := api.NewService(cfg.Host, cfg.Port)
		apiSvc.AttachAssoc(assocSvc)
		super.Add("api", apiSvc.Start, apiSvc.Close)
	}

	if err := super.Start(ctx); err != nil {
		return err
	}
	return super.Wait(ctx)
}

func buildHooks(cfg *cli.Config) ([]hooks.Hook, error) {
	var hs []hooks.Hook
	add := func(kind iwevent.EventKind, cmdlines []string) error {
		for _, line := range cmdlines {
			h, err := hooks.Parse(kind, line, cfg.HookTimeout)
			if err != nil {
				return err
			}
			hs = append(hs, h)
		}
		return nil
	}
	if err := add(iwevent.AssociationNew, cfg.OnNew); err != nil {
		return nil, err
	}
	if err := add(iwevent.AssociationLost, cfg.OnLost); err != nil {
		return nil, err
	}
	return hs, nil
}

func setLogLevel(level string) {
	switch level {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}
