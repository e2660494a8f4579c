// Command trackerd runs the multi-target tracking engine as a standalone
// process. Shape grounded on IvaAMarinova-nad-navigation's cmd/nad/main.go
// (flag-configured entrypoint delegating immediately to a constructed
// service) and the original main.cpp.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/LdDl/ckf-tracker/applog"
	"github.com/LdDl/ckf-tracker/config"
	"github.com/LdDl/ckf-tracker/service"
)

func main() {
	configPath := flag.String("config", "trackerd.yaml", "path to the YAML configuration file")
	flag.Parse()

	var bootLog *applog.Logger
	cfg := config.Load(*configPath, func(format string, args ...any) {
		if bootLog != nil {
			bootLog.Printf(format, args...)
		} else {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	})

	log := applog.New(applog.Config{
		Path:       cfg.Logging.Path,
		Level:      cfg.Logging.Level,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	bootLog = log
	defer log.Close()

	svc, err := service.New(cfg, log)
	if err != nil {
		log.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	if err := svc.Run(context.Background()); err != nil {
		log.Error("service exited with error", "error", err)
		os.Exit(1)
	}
}
