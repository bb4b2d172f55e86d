// Command openclawctl runs the control plane's HTTP edge and stale-bot
// sweeper, or applies pending database migrations, grounded on the
// teacher's cmd/server/main.go urfave/cli structure.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/conorholds/openclaw-control-plane/internal/config"
	"github.com/conorholds/openclaw-control-plane/internal/httpapi"
	"github.com/conorholds/openclaw-control-plane/internal/iaas"
	"github.com/conorholds/openclaw-control-plane/internal/lifecycle"
	"github.com/conorholds/openclaw-control-plane/internal/logger"
	"github.com/conorholds/openclaw-control-plane/internal/provisioning"
	"github.com/conorholds/openclaw-control-plane/internal/secrets"
	"github.com/conorholds/openclaw-control-plane/internal/store"
)

func main() {
	app := &cli.App{
		Name:    "openclawctl",
		Usage:   "Openclaw Control Plane - manage a fleet of trading-bot worker VMs",
		Version: "0.1.0",
		Commands: []*cli.Command{
			{
				Name:   "server",
				Usage:  "Start the control plane HTTP server and stale-bot sweeper",
				Action: runServer,
			},
			{
				Name:  "migrate",
				Usage: "Apply pending database migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "migrations-dir",
						Usage:   "Path to the migration files",
						Value:   "internal/store/migrations",
						EnvVars: []string{"OPENCLAW_MIGRATIONS_DIR"},
					},
				},
				Action: runMigrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(c *cli.Context) error {
	log := logger.NewLoggerFromEnv()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutdown signal received")
		cancel()
	}()

	pool, err := store.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()
	st := store.New(pool)

	enc, err := secrets.New(cfg.EncryptionKey, log)
	if err != nil {
		return fmt.Errorf("building secrets encryptor: %w", err)
	}

	cloud, err := iaas.New(cfg.DigitalOceanToken)
	if err != nil {
		return fmt.Errorf("building iaas client: %w", err)
	}

	saga := provisioning.New(st, cloud, enc, cfg, log)
	lc := lifecycle.New(st)

	heartbeatTimeout := time.Duration(cfg.StaleBotTimeoutSeconds) * time.Second
	sweeper := lifecycle.NewSweeper(lc, heartbeatTimeout, log)
	sweeper.SetInterval(time.Duration(cfg.SweepIntervalSeconds) * time.Second)
	sweeper.SetDropletSyncer(saga)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	api := httpapi.New(st, saga, lc, cfg, log)
	addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("control plane listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	log.Info("shutting down http server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", zap.Error(err))
	}

	return nil
}

func runMigrate(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := store.RunMigrations(cfg.DatabaseURL, c.String("migrations-dir")); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	fmt.Println("migrations applied")
	return nil
}
