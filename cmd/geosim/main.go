// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

// Package main implements the geosim service and its gpsd feed clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/wneessen/geosim/internal/config"
	"github.com/wneessen/geosim/internal/i18n"
	"github.com/wneessen/geosim/internal/logger"
	"github.com/wneessen/geosim/internal/service"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `usage: geosim [-config path] [-addr host:port] [run|poll|watch]

  run    simulate a vehicle and publish its position (default)
  poll   print a single fix of a running gpsd feed
  watch  print every fix of a running gpsd feed until interrupted
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGKILL,
		syscall.SIGABRT, os.Interrupt)
	defer cancel()

	// Initialize Logger
	log := logger.New(slog.LevelError)

	// Read config
	confRead := false
	confPath := flag.String("config", "", "path to the config file")
	feedAddr := flag.String("addr", "", "address of the gpsd feed for poll and watch")
	flag.Usage = func() { _, _ = fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	// Read default config
	conf, err := config.New()
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}

	// If config file was specified, read it
	if *confPath != "" {
		file := filepath.Base(*confPath)
		path := filepath.Dir(*confPath)
		conf, err = config.NewFromFile(path, file)
		if err != nil {
			log.Error("failed to load config from file", logger.Err(err))
			os.Exit(1)
		}
		confRead = true
	}

	// Check if we have a config file in the default location
	if path, file := findConfigFile(); !confRead && (path != "" && file != "") {
		conf, err = config.NewFromFile(path, file)
		if err != nil {
			log.Error("failed to load config from file", logger.Err(err))
			os.Exit(1)
		}
	}

	log = logger.New(conf.LogLevel)
	addr := conf.Feed.Address
	if *feedAddr != "" {
		addr = *feedAddr
	}

	switch command := flag.Arg(0); command {
	case "", "run":
		run(ctx, conf, log)
	case "poll":
		if err = poll(ctx, addr, os.Stdout); err != nil {
			log.Error("failed to poll gpsd feed", slog.String("address", addr), logger.Err(err))
			os.Exit(1)
		}
	case "watch":
		if err = watch(ctx, addr, os.Stdout); err != nil {
			log.Error("failed to watch gpsd feed", slog.String("address", addr), logger.Err(err))
			os.Exit(1)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func run(ctx context.Context, conf *config.Config, log *logger.Logger) {
	t, err := i18n.New(conf.Locale)
	if err != nil {
		log.Error("failed to initialize localizer", logger.Err(err))
		os.Exit(1)
	}

	// Initialize the service
	serv, err := service.New(conf, log, t, version)
	if err != nil {
		log.Error("failed to initialize geosim service", logger.Err(err))
		os.Exit(1)
	}

	// Start the service loop
	log.Info("starting geosim service", slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date))
	if err = serv.Run(ctx); err != nil {
		log.Error("failed to start geosim service", logger.Err(err))
	}
	log.Info("shutting down geosim service")
}

func findConfigFile() (string, string) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}
	exts := []string{"toml", "yaml", "yml", "json"}
	for _, ext := range exts {
		path := filepath.Join(homedir, ".config", "geosim", "config."+ext)
		if _, err = os.Stat(path); err == nil {
			return filepath.Dir(path), filepath.Base(path)
		}
	}
	return "", ""
}
