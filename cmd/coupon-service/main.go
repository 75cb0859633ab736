package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"couponverify/internal/api"
	"couponverify/internal/config"
	"couponverify/pkg/db"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.Load()
	dbCfg := db.LoadPostgresConfig()

	conn, err := db.NewPostgresConnection(dbCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect")
	}
	defer conn.Close()

	// schema bootstrap + seed data, idempotent across restarts
	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(initCtx, conn); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("schema bootstrap")
	}
	if err := db.Seed(initCtx, conn, cfg.BcryptCost); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("seed data")
	}
	cancel()

	handler := api.NewRouter(conn, cfg, logger)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown")
		}
		close(idleConnsClosed)
	}()

	logger.Info().Str("addr", cfg.Addr).Msg("starting coupon-service")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("listen")
	}

	<-idleConnsClosed
	logger.Info().Msg("server stopped")
}
