package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"takkeh/internal/auth"
	"takkeh/internal/config"
	"takkeh/internal/database"
	"takkeh/internal/domain"
	"takkeh/internal/infrastructure/revocation"
	"takkeh/internal/repo"
	"takkeh/internal/server"
	"takkeh/internal/service"
	"takkeh/internal/telemetry"
	"takkeh/internal/worker"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const serviceName = "takkeh"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := telemetry.NewLogger(telemetry.LoggerOptions{
		Service: serviceName,
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, serviceName, cfg.AppEnv, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			logger.Warn("tracer shutdown", "err", err)
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.DB.DSN(), cfg.DB.MaxOpenConns)
	if err != nil {
		return err
	}
	dbService := database.New(db, cfg.DB.Database)
	defer func() {
		if err := dbService.Close(); err != nil {
			logger.Warn("database close", "err", err)
		}
	}()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	var denylist auth.Denylist
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		rd := revocation.NewRedisDenylist(client, serviceName)
		if err := rd.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		denylist = rd
		logger.Info("token denylist backed by redis", "addr", cfg.Redis.Addr)
	} else {
		md := revocation.NewMemoryDenylist()
		g.Go(func() error {
			md.Run(ctx, time.Minute)
			return nil
		})
		denylist = md
		logger.Info("token denylist kept in memory")
	}

	tokens, err := auth.NewTokens([]byte(cfg.Auth.Secret), auth.TTLs{
		domain.KindUser:   cfg.Auth.UserTTL,
		domain.KindShop:   cfg.Auth.ShopTTL,
		domain.KindDriver: cfg.Auth.DriverTTL,
	}, auth.WithDenylist(denylist))
	if err != nil {
		return err
	}
	hasher := auth.NewHasher(auth.HashParams{
		Memory:  cfg.Auth.HashMemory,
		Time:    cfg.Auth.HashTime,
		Threads: cfg.Auth.HashThreads,
	})

	orderRepo := repo.NewOrderRepo(db)
	catalogRepo := repo.NewCatalogRepo(db)
	shopRepo := repo.NewShopRepo(db)
	accountRepo := repo.NewAccountRepo(db)
	socialRepo := repo.NewSocialRepo(db)

	srv := server.New(server.Options{
		Port:        cfg.HTTPPort,
		CORSOrigins: cfg.CORSOrigins,
		Production:  cfg.IsProduction(),
	}, server.Deps{
		DB:       dbService,
		Tokens:   tokens,
		Accounts: service.NewAccountService(accountRepo, shopRepo, hasher, tokens, logger),
		Orders:   service.NewOrderService(dbService, orderRepo, catalogRepo, shopRepo, logger, cfg.DB.StorageTimeout),
		Catalog:  service.NewCatalogService(dbService, catalogRepo, logger),
		Social:   service.NewSocialService(dbService, socialRepo, shopRepo, logger),
		Logger:   logger,
	})
	httpServer := srv.HTTPServer()

	reconciler := worker.NewReconciliationWorker(dbService, shopRepo, cfg.Worker.ReconcileInterval, logger)
	g.Go(func() error { return reconciler.Run(ctx) })

	g.Go(func() error {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(sctx)
	})

	return g.Wait()
}
