package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/splitfair/splitfair/internal/api"
	"github.com/splitfair/splitfair/internal/auth"
	"github.com/splitfair/splitfair/internal/config"
	"github.com/splitfair/splitfair/internal/db"
	"github.com/splitfair/splitfair/internal/logger"
	"github.com/splitfair/splitfair/internal/metrics"
	"github.com/splitfair/splitfair/internal/repository/postgres"
	"github.com/splitfair/splitfair/internal/services"
	"github.com/splitfair/splitfair/internal/worker"
)

func main() {
	cfg := config.Load()

	fs := ff.NewFlagSet("splitfair")
	var (
		port    = fs.StringLong("port", cfg.HTTPPort, "HTTP server port")
		dbURL   = fs.StringLong("database-url", cfg.DatabaseURL, "Postgres connection string")
		env     = fs.StringLong("env", cfg.Env, "Environment: dev or prod")
		rateRPS = fs.IntLong("rate-rps", cfg.RateRPS, "Per-client requests per second")
	)
	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SPLITFAIR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	cfg.HTTPPort = *port
	cfg.DatabaseURL = *dbURL
	cfg.Env = *env
	cfg.RateRPS = *rateRPS

	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Migrate {
		if err := db.RunMigrations(pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(4)
	defer wp.Stop()

	tokens := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:         cfg,
		Tokens:      tokens,
		Users:       services.NewUserService(repos.Users),
		Groups:      services.NewGroupService(repos.Groups, repos.Users, repos.Expenses),
		Expenses:    services.NewExpenseService(repos.Expenses, repos.Splits, repos.Groups, repos.AuditLogs, wp),
		Settlements: services.NewSettlementService(repos.Splits, repos.Expenses, repos.AuditLogs, wp),
		Balances:    services.NewBalanceService(repos.Expenses),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
