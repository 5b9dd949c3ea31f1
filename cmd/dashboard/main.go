package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	budgetrepo "github.com/mgiraudo/gastosbot/internal/budget/repository"
	budgetsvc "github.com/mgiraudo/gastosbot/internal/budget/service"
	"github.com/mgiraudo/gastosbot/internal/dashboard/handler"
	ledgerrepo "github.com/mgiraudo/gastosbot/internal/ledger/repository"
	ledgersvc "github.com/mgiraudo/gastosbot/internal/ledger/service"
	"github.com/mgiraudo/gastosbot/internal/pkg/config"
	"github.com/mgiraudo/gastosbot/internal/pkg/crypto"
	"github.com/mgiraudo/gastosbot/internal/pkg/database"
	"github.com/mgiraudo/gastosbot/internal/pkg/logger"
	recurringrepo "github.com/mgiraudo/gastosbot/internal/recurring/repository"
	recurringsvc "github.com/mgiraudo/gastosbot/internal/recurring/service"
	"go.uber.org/zap"
)

func main() {
	cfg := &config.Config{}
	config.MustLoadConfig(cfg)

	log := logger.MustNew(cfg.LogLevel)
	defer log.Sync()

	log.Info("Starting dashboard server", zap.String("port", cfg.Dashboard.HTTPPort))

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Postgres.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	cipher, err := crypto.New(cfg.Crypto.EncryptionKey)
	if err != nil {
		log.Fatal("Failed to init cipher", zap.Error(err))
	}

	ledgerRepo := ledgerrepo.NewRepository(pool, cipher, log)
	ledgerService := ledgersvc.NewService(ledgerRepo, log)
	budgetRepo := budgetrepo.NewRepository(pool, log)
	budgetService := budgetsvc.NewService(budgetRepo, ledgerRepo, log)
	recurringRepo := recurringrepo.NewRepository(pool, cipher, log)
	recurringService := recurringsvc.NewService(recurringRepo, ledgerService, log)

	h := handler.NewHandler(ledgerService, budgetService, recurringService, cfg.Dashboard.JWTSecret, log)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Dashboard.HTTPPort),
		Handler: r,
	}

	log.Info("Dashboard server is running", zap.String("address", srv.Addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down dashboard server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
}
