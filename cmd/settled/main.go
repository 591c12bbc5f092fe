// Command settled serves the settlement engine over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/xraph/settlement"
	"github.com/xraph/settlement/api"
	audithook "github.com/xraph/settlement/audit_hook"
	"github.com/xraph/settlement/config"
	"github.com/xraph/settlement/lock/redislock"
	"github.com/xraph/settlement/observability"
	"github.com/xraph/settlement/store"
	"github.com/xraph/settlement/store/memory"
	"github.com/xraph/settlement/store/postgres"
	"github.com/xraph/settlement/transfer"
	ledgermem "github.com/xraph/settlement/transfer/memory"
	"github.com/xraph/settlement/transfer/stellar"
)

func main() {
	if err := run(); err != nil {
		slog.Error("settled: fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	ledger, err := openLedger(cfg, logger)
	if err != nil {
		_ = st.Close()
		return err
	}

	reg := prometheus.NewRegistry()
	opts := []settlement.Option{
		settlement.WithLogger(logger),
		settlement.WithLotteryCooldown(cfg.LotteryCooldown),
		settlement.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))),
		settlement.WithPlugin(audithook.New(audithook.RecorderFunc(func(_ context.Context, ev *audithook.AuditEvent) error {
			logger.Info("audit",
				"action", ev.Action,
				"resource", ev.Resource,
				"resource_id", ev.ResourceID,
				"outcome", ev.Outcome,
			)
			return nil
		}), audithook.WithLogger(logger))),
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = st.Close()
			return fmt.Errorf("redis: %w", err)
		}
		opts = append(opts, settlement.WithLocker(redislock.New(rdb, redislock.WithLogger(logger))))
	}

	engine := settlement.New(st, ledger, opts...)
	if err := engine.Start(ctx); err != nil {
		_ = st.Close()
		return err
	}
	defer func() {
		if err := engine.Stop(); err != nil {
			logger.Error("settled: stop engine", "error", err)
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(engine, cfg.JWTSecret, logger)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      c.Handler(router),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("settled: listening",
			"addr", srv.Addr,
			"store", cfg.StoreDriver,
			"ledger", cfg.LedgerDriver,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("settled: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return memory.New(), nil
	}
}

func openLedger(cfg *config.Config, logger *slog.Logger) (transfer.Ledger, error) {
	if cfg.LedgerDriver != config.LedgerStellar {
		return ledgermem.New(), nil
	}
	keys, err := stellar.NewStaticKeyring(cfg.StellarKeys)
	if err != nil {
		return nil, err
	}
	return stellar.Dial(cfg.HorizonURL, keys, cfg.NetworkPassphrase, stellar.WithLogger(logger)), nil
}
