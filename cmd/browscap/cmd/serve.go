package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/browscap/internal/core/api"
	"github.com/solatis/browscap/internal/core/auth"
	"github.com/solatis/browscap/internal/core/config"
	"github.com/solatis/browscap/internal/core/server"
	"github.com/solatis/browscap/internal/matcher"
	"github.com/solatis/browscap/internal/telemetry"
	"github.com/solatis/browscap/internal/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve lookups over gRPC and HTTP",
	Long: `serve answers lookups from the dataset published in the store and follows
new publications every server.reload_interval. With --update the configured
source is compiled and published before serving.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "listen host")
	serveCmd.Flags().Int("grpc-port", 50051, "gRPC port")
	serveCmd.Flags().Int("http-port", 8080, "HTTP port")
	serveCmd.Flags().Bool("update", false, "publish the configured source before serving")
	addUpdateFlags(serveCmd.Flags())
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("grpc-port") {
		cfg.Server.GRPCPort, _ = cmd.Flags().GetInt("grpc-port")
	}
	if cmd.Flags().Changed("http-port") {
		cfg.Server.HTTPPort, _ = cmd.Flags().GetInt("http-port")
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	telemetry.Init()

	s, release, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	if doUpdate, _ := cmd.Flags().GetBool("update"); doUpdate {
		if _, err := update(cmd, cfg, s, cfg.Source.URL); err != nil && !errors.Is(err, types.ErrUpToDate) {
			return err
		}
	}

	var authenticator *auth.Authenticator
	if cfg.Server.RequireAuth {
		secrets, err := config.HMACSecrets()
		if err != nil {
			return fmt.Errorf("failed to load HMAC secrets: %w", err)
		}
		if len(secrets) == 0 {
			return fmt.Errorf("no HMAC secrets configured (set %s_HMAC_SECRET environment variable)", config.EnvPrefix)
		}
		database, queries, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Close()
		authenticator = auth.NewAuthenticator(secrets, queries)
	}

	service, err := api.NewLookupService(s, slog.Default(), matcher.WithRegexpCache(cfg.Matcher.RegexpCacheSize))
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(&cfg.Server, service, authenticator)
	if err != nil {
		return fmt.Errorf("failed to create grpc server: %w", err)
	}
	var guard func(http.Handler) http.Handler
	if authenticator != nil {
		guard = authenticator.Middleware
	}
	httpServer, err := server.NewHTTPServer(&cfg.Server, service.Router(cfg.Server.RequestTimeout, guard))
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	service.OnLoad(func(types.Metadata) { grpcServer.SetServing(true) })
	if _, err := service.Reload(ctx); err != nil {
		// Keep serving health checks until a dataset is published
		slog.Warn("no dataset loaded yet", "error", err)
	}
	go service.Run(ctx, cfg.Server.ReloadInterval)

	slog.Info("starting browscap server", "version", Version,
		"host", cfg.Server.Host, "grpc_port", cfg.Server.GRPCPort, "http_port", cfg.Server.HTTPPort,
		"backend", cfg.Store.Backend, "auth", authenticator != nil)

	errChan := make(chan error, 2)
	go func() { errChan <- grpcServer.Start(ctx) }()
	go func() { errChan <- httpServer.Start(ctx) }()

	select {
	case err = <-errChan:
		stop()
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
	}

	// ctx is done at this point
	shutdownCtx := context.WithoutCancel(ctx)
	return errors.Join(err, grpcServer.Shutdown(shutdownCtx), httpServer.Shutdown(shutdownCtx))
}
