// Command pocketlintd runs a self-hosted photo-journal sync server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"github.com/pocketlint/pocketlint"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	verbose := flag.Bool("v", false, "enable debug logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pocketlintd %s\n", version)
		return
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	var cfg pocketlint.Config
	if *configPath != "" {
		var err error
		cfg, err = pocketlint.LoadConfig(*configPath)
		if err != nil {
			logger.Error("loading config", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = os.Getenv("POCKETLINT_SESSION_SECRET")
	}

	app := pocketlint.New(cfg, pocketlint.WithLogger(logger))
	defer app.Close()

	logger.Info("starting pocketlintd", slog.String("version", version))
	if err := app.Start(); err != nil {
		logger.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
