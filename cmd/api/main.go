package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"metatradex/internal/admin"
	"metatradex/internal/approval"
	"metatradex/internal/assets"
	"metatradex/internal/auth"
	"metatradex/internal/config"
	"metatradex/internal/db"
	"metatradex/internal/funding"
	"metatradex/internal/health"
	"metatradex/internal/history"
	"metatradex/internal/httpserver"
	"metatradex/internal/marketdata"
	"metatradex/internal/trading"
)

func main() {
	startedAt := time.Now().UTC()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	market := marketdata.NewStore(pool)
	historyStore := history.NewStore(pool)
	assetSvc := assets.NewService(pool, market, historyStore)
	tradingSvc := trading.NewService(pool, assetSvc, historyStore, cfg.SettleInterval)
	fundingSvc := funding.NewService(pool, assetSvc)
	authSvc := auth.NewService(pool, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)

	approver := approval.NewApprover(pool, assetSvc, cfg.ApproveEndpointURL)
	approveEndpoint := approval.NewEndpoint(approver, cfg.InternalToken, []byte(cfg.JWTSecret),
		func(ctx context.Context, userID string) bool {
			ok, err := authSvc.IsAdmin(ctx, userID)
			return err == nil && ok
		})

	quoteWS := marketdata.NewQuoteWS(cfg.WebSocketOrigin, market, cfg.QuoteInterval)
	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:     auth.NewHandler(authSvc),
		AssetsHandler:   assets.NewHandler(assetSvc),
		TradingHandler:  trading.NewHandler(tradingSvc),
		FundingHandler:  funding.NewHandler(fundingSvc),
		HistoryHandler:  history.NewHandler(historyStore),
		MarketHandler:   marketdata.NewHandler(market),
		AdminHandler:    admin.NewHandler(pool, cfg.JWTSecret, approver),
		HealthHandler:   health.NewHandler(pool, startedAt, cfg.AppMode, cfg.HTTPAddr, cfg.InternalToken),
		ApproveEndpoint: approveEndpoint,
		AuthService:     authSvc,
		JWTSecret:       cfg.JWTSecret,
		QuoteWS:         quoteWS,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	market.StartPublisher(ctx, cfg.QuoteInterval)
	go tradingSvc.StartSettlementWorker(ctx)

	log.Printf("server listening on %s", cfg.HTTPAddr)
	log.Printf("health endpoint: http://localhost%s/health", cfg.HTTPAddr)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
