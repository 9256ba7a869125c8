package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/content-studio/pkg/studio/api"
	"github.com/tendant/content-studio/pkg/studio/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("studio server failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "", "optional YAML config file, applied before environment variables")
	corsOrigins := flag.String("cors", "", "comma separated CORS origins, '*' for any")
	flag.Parse()

	var opts []config.Option
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	opts = append(opts, config.WithEnv())

	serverConfig, err := config.Load(opts...)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := serverConfig.Logger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := serverConfig.BuildService(ctx, logger)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer cleanup()

	handlerOpts := []api.HandlerOption{api.WithLogger(logger)}
	if *corsOrigins != "" {
		handlerOpts = append(handlerOpts, api.WithCORS(splitComma(*corsOrigins)...))
	}
	handler := api.NewHandler(svc, handlerOpts...)

	r := handler.Routes()
	if err := mountFiles(r, serverConfig, logger); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + serverConfig.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sc := svc.Config()
		logger.Info("studio server starting",
			"port", serverConfig.Port,
			"environment", serverConfig.Environment,
			"project_id", sc.ProjectID,
			"dataset", sc.Dataset,
			"database", serverConfig.DatabaseType,
			"storage", serverConfig.DefaultStorageBackend,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exiting")
	return nil
}

// mountFiles serves each filesystem backend's directory at the path of its
// url_prefix, so the download URLs it hands out resolve.
func mountFiles(r chi.Router, cfg *config.ServerConfig, logger *slog.Logger) error {
	mounts, err := cfg.FileMounts()
	if err != nil {
		return fmt.Errorf("mount files: %w", err)
	}
	for _, m := range mounts {
		r.Handle(m.Path+"/*", http.StripPrefix(m.Path+"/", http.FileServer(http.Dir(m.Dir))))
		logger.Info("serving filesystem assets", "backend", m.Backend, "dir", m.Dir, "path", m.Path+"/")
	}
	return nil
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
