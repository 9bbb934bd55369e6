package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/tokengate/middleware/pkg/app/http"
	"github.com/tokengate/middleware/pkg/auth"
	"github.com/tokengate/middleware/pkg/config"
	gateservice "github.com/tokengate/middleware/pkg/gate/service"
	"github.com/tokengate/middleware/pkg/gate/store/pg"
	"github.com/tokengate/middleware/pkg/nonce"
	"github.com/tokengate/middleware/pkg/pgutil"
	"github.com/tokengate/middleware/pkg/price"
	"github.com/tokengate/middleware/pkg/solana"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting gate server",
		zap.String("config", *configPath),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database))

	gateStore := pg.NewStore(db)
	nonceStore := nonce.NewPgStore(db)

	var priceCache price.Cache
	if cfg.Redis.Enabled {
		redisCache, err := price.NewRedisCache(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisCache.Close()
		logger.Info("Using redis price cache", zap.String("addr", cfg.Redis.Addr))
		priceCache = redisCache
	} else {
		priceCache = price.NewMemoryCache()
	}

	prices := price.NewService(
		price.NewCoinGecko(&cfg.Pricing),
		priceCache,
		cfg.Pricing.CacheTTL,
		logger,
	)
	balances := solana.NewClient(&cfg.Solana)
	sessions := auth.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	svc := gateservice.NewLog(
		gateservice.NewService(gateStore, gateStore, balances, prices, logger),
		logger,
	)
	handler := gateservice.NewHTTP(svc, nonceStore, sessions, cfg.Auth.NonceTTL, cfg.Auth.AdminToken, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	handler.RegisterRoutes(r)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			apphttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	if err := apphttp.ServeAndWait(ctx, r, logger, &cfg.Server); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
