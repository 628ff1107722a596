package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inferd/internal/alloc"
	"inferd/internal/backend"
	"inferd/internal/config"
	"inferd/internal/core"
	"inferd/internal/httpapi"
	"inferd/internal/registry"
	"inferd/internal/server"
)

const version = "0.1.0"

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "inferd",
		Short:         "Model inference serving daemon",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var (
		configPath string
		addr       string
		repoPaths  []string
		logLevel   string
	)
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve models from the repository over HTTP",
		Example: "  inferd serve --model-repository /srv/models\n" +
			"  inferd serve --config /etc/inferd/inferd.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config{}
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cfg = loaded
			}
			// Flags override the file.
			if addr != "" {
				cfg.Addr = addr
			}
			if len(repoPaths) > 0 {
				cfg.ModelRepositoryPaths = repoPaths
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			cfg.Defaults()
			return serve(cfg)
		},
	}
	serveCmd.Flags().StringVar(&configPath, "config", "", "Path to a yaml/json/toml configuration file")
	serveCmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8000")
	serveCmd.Flags().StringSliceVar(&repoPaths, "model-repository", nil, "Model repository path (repeatable)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error")
	root.AddCommand(serveCmd)

	return root
}

func serve(cfg config.Config) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
	core.SetLogger(log)
	httpapi.SetLogger(log)

	controlMode, err := server.ParseModelControlMode(cfg.ModelControlMode)
	if err != nil {
		return err
	}

	reg := registry.New(cfg.ModelRepositoryPaths, backend.IdentityFactory{}, log)
	srv, err := server.New(reg, server.Options{
		ID:              cfg.ServerID,
		Version:         version,
		ExitTimeout:     time.Duration(cfg.ExitTimeoutSeconds) * time.Second,
		StrictReadiness: cfg.StrictReadiness,
		ControlMode:     controlMode,
		StartupModels:   cfg.StartupModels,
		Allocator:       alloc.NewPool(cfg.PinnedPoolByteSize),
		Log:             log,
	})
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	httpSrv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(srv)}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Strs("repositories", cfg.ModelRepositoryPaths).Msg("inferd listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	if err := srv.Stop(); err != nil {
		log.Error().Err(err).Msg("drain failed")
	}
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ExitTimeoutSeconds)*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
