// Command otu-sync serves the offline-first sync push endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opentutorials-org/otu-sync/internal/cache"
	rediscache "github.com/opentutorials-org/otu-sync/internal/cache/redis"
	"github.com/opentutorials-org/otu-sync/internal/config"
	"github.com/opentutorials-org/otu-sync/internal/logging"
	"github.com/opentutorials-org/otu-sync/internal/migrate"
	"github.com/opentutorials-org/otu-sync/internal/repository/postgres"
	"github.com/opentutorials-org/otu-sync/internal/server/grpchealth"
	"github.com/opentutorials-org/otu-sync/internal/server/httpapi"
	"github.com/opentutorials-org/otu-sync/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:          "otu-sync",
		Short:        "Sync push server",
		Version:      version + " (" + buildDate + ")",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(v)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
	if err := config.BindFlags(root.PersistentFlags(), v); err != nil {
		panic(err)
	}

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(v)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if err := migrate.Up(cmd.Context(), cfg.DSN, log); err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			log.Info("migrations applied")
			return nil
		},
	})
	return root
}

func setup(v *viper.Viper) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// serve runs migrations, wires the push stack and blocks until ctx is done.
func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	log.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("mode", string(cfg.Runtime.Mode)),
		zap.Duration("embedding_delay", cfg.Runtime.EmbeddingDelay),
	)

	if err := migrate.Up(ctx, cfg.DSN, log); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer db.Close()

	var shareCache cache.ShareCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		rc, err := rediscache.New(ctx, rediscache.Options{Addr: cfg.RedisAddr})
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()
		shareCache = rc
	}

	push := service.NewPushService(service.Stores{
		Pages:   postgres.NewPageRepo(db),
		Folders: postgres.NewFolderRepo(db),
		Alarms:  postgres.NewAlarmRepo(db),
		Jobs:    postgres.NewJobRepo(db),
	}, shareCache, cfg.Runtime, log)
	auth := service.NewTokenAuth([]byte(cfg.JWTKey), 0)

	var health *grpchealth.Server
	var healthLis net.Listener
	if cfg.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			return fmt.Errorf("listen grpc health: %w", err)
		}
		health, healthLis = grpchealth.New(log), lis
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(log, cfg.Runtime, auth, push),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if health != nil {
		health.SetServing(true)
		g.Go(func() error { return health.Serve(healthLis) })
	}

	g.Go(func() error {
		<-gctx.Done()
		if health != nil {
			health.SetServing(false)
		}
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		if health != nil {
			health.Stop()
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", zap.Error(err))
		return err
	}
	log.Info("shutdown complete")
	return nil
}
