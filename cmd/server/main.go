package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vax-r/KMLdrv/internal/config"
	"github.com/vax-r/KMLdrv/internal/logger"
	"github.com/vax-r/KMLdrv/services/kmldrv"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New().Error("load config", "err", err)
		os.Exit(1)
	}

	log := logger.New(
		logger.WithLevel(cfg.Log.Level),
		logger.WithJSON(cfg.Log.Format == "json"),
	)

	if err := run(cfg, log); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := kmldrv.New(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	h := kmldrv.HTTPHandler(svc)
	handler := rootHandler("/kmldrv/v1", h)

	middlewares := []func(http.Handler) http.Handler{
		logger.NewMiddleware(log),
	}

	slices.Reverse(middlewares)
	for _, mw := range middlewares {
		handler = mw(handler)
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening on", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func rootHandler(root string, h http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(root+"/", http.StripPrefix(root, h))
	return mux
}
