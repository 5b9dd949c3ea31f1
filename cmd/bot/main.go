package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mgiraudo/gastosbot/internal/ai"
	analystsvc "github.com/mgiraudo/gastosbot/internal/analyst/service"
	"github.com/mgiraudo/gastosbot/internal/bot/handler"
	budgetrepo "github.com/mgiraudo/gastosbot/internal/budget/repository"
	budgetsvc "github.com/mgiraudo/gastosbot/internal/budget/service"
	ledgerrepo "github.com/mgiraudo/gastosbot/internal/ledger/repository"
	ledgersvc "github.com/mgiraudo/gastosbot/internal/ledger/service"
	"github.com/mgiraudo/gastosbot/internal/pkg/config"
	"github.com/mgiraudo/gastosbot/internal/pkg/crypto"
	"github.com/mgiraudo/gastosbot/internal/pkg/database"
	"github.com/mgiraudo/gastosbot/internal/pkg/logger"
	recurringrepo "github.com/mgiraudo/gastosbot/internal/recurring/repository"
	recurringsvc "github.com/mgiraudo/gastosbot/internal/recurring/service"
	"github.com/mgiraudo/gastosbot/internal/report"
	"github.com/mgiraudo/gastosbot/internal/statement"
	usercache "github.com/mgiraudo/gastosbot/internal/user/cache"
	userrepo "github.com/mgiraudo/gastosbot/internal/user/repository"
	usersvc "github.com/mgiraudo/gastosbot/internal/user/service"
)

func main() {
	cfg := &config.Config{}
	config.MustLoadConfig(cfg)

	log := logger.MustNew(cfg.LogLevel)
	defer log.Sync()

	log.Info("Starting Bot Service", zap.String("env", cfg.Env))

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

	cache, err := usercache.NewCache(cfg.Redis.Addr, log)
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer cache.Close()

	userRepo := userrepo.NewRepository(pool, log)
	userService := usersvc.NewService(userRepo, cache, log)

	ledgerRepo := ledgerrepo.NewRepository(pool, cipher, log)
	ledgerService := ledgersvc.NewService(ledgerRepo, log)

	budgetRepo := budgetrepo.NewRepository(pool, log)
	budgetService := budgetsvc.NewService(budgetRepo, ledgerRepo, log)

	recurringRepo := recurringrepo.NewRepository(pool, cipher, log)
	recurringService := recurringsvc.NewService(recurringRepo, ledgerService, log)

	aiClient := ai.NewClient(cfg.AI, log)
	analystService := analystsvc.NewService(aiClient, ledgerService, recurringService, budgetService, log)
	statementParser := statement.NewParser(aiClient, log)
	reportGenerator := report.NewGenerator(ledgerService, budgetService, log)

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.Fatal("Failed to create bot", zap.Error(err))
	}

	bot.Debug = false
	log.Info("Authorized", zap.String("bot_username", bot.Self.UserName))

	h := handler.NewHandler(bot, handler.Deps{
		Users:        userService,
		Ledger:       ledgerService,
		Budgets:      budgetService,
		Recurring:    recurringService,
		Analyst:      analystService,
		AI:           aiClient,
		Statements:   statementParser,
		Reports:      reportGenerator,
		DashboardURL: cfg.Dashboard.BaseURL,
		JWTSecret:    cfg.Dashboard.JWTSecret,
	}, log)

	sweeper := cron.New()
	_, err = sweeper.AddFunc(cfg.Bot.RecurringCron, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		created, err := recurringService.ProcessDue(sweepCtx, time.Now())
		if err != nil {
			log.Error("Recurring sweep failed", zap.Error(err))
			return
		}
		if created > 0 {
			log.Info("Recurring sweep done", zap.Int("created", created))
		}
	})
	if err != nil {
		log.Fatal("Invalid recurring cron spec", zap.Error(err))
	}
	sweeper.Start()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := bot.GetUpdatesChan(u)

	log.Info("Bot is running and waiting for updates")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case update := <-updates:
			go h.HandleUpdate(ctx, update)
		case <-quit:
			log.Info("Shutting down Bot Service")
			bot.StopReceivingUpdates()
			<-sweeper.Stop().Done()
			log.Info("Bot Service stopped")
			return
		}
	}
}
