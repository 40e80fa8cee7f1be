package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/envidicy/insights/internal/config"
	"github.com/envidicy/insights/internal/httpx"
	"github.com/envidicy/insights/internal/ingest"
	"github.com/envidicy/insights/internal/metrics"
	"github.com/envidicy/insights/internal/store"
	"github.com/envidicy/insights/internal/telemetry"
)

func main() {
	fs := pflag.NewFlagSet("server", pflag.ExitOnError)
	cfgPath := fs.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "YAML config file")
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*cfgPath, fs)
	if err != nil {
		slog.Error("config", slog.String("err", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	tm := telemetry.New()
	st, closeStore, err := openStore(cfg.Store, tm)
	if err != nil {
		logger.Error("store", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	cl := ingest.NewImportClient(cfg.HTTPTimeout, cfg.ImportHosts)
	ing := ingest.NewIngestor(cl, st, logger, cfg, tm)
	mSvc := metrics.NewService(st)

	r := httpx.NewRouter(logger, cfg, ing, mSvc, tm)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	logger.Info("starting server", slog.String("port", cfg.Port), slog.String("store", cfg.Store.Driver))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func openStore(c config.StoreConfig, tm *telemetry.Metrics) (store.Store, func(), error) {
	if c.Driver != "redis" {
		st := store.NewMemoryStore(c.TTL)
		tm.TrackSessions(st.Sessions)
		return st, func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, err
	}
	return store.NewRedisStore(rdb, c.TTL), func() { rdb.Close() }, nil
}
