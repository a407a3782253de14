package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/vax-r/KMLdrv/internal/config"
	"github.com/vax-r/KMLdrv/internal/logger"
	"github.com/vax-r/KMLdrv/services/watch"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	logPath := flag.String("log", "", "write logs to this file; the terminal belongs to the UI")
	skipMenu := flag.Bool("y", false, "skip the settings menu")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var w io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	log := logger.New(
		logger.WithWriter(w),
		logger.WithLevel(cfg.Log.Level),
		logger.WithJSON(cfg.Log.Format == "json"),
	)

	svc := watch.New(cfg, log)
	if !*skipMenu {
		ok, err := svc.Configure()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if !ok {
			return
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := svc.Play(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
