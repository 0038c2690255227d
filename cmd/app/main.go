package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-notify-relay/internal/config"
	"telegram-notify-relay/internal/domain/ports/adapter"
	"telegram-notify-relay/internal/domain/ports/repository"
	tele "telegram-notify-relay/internal/infra/adapters/telegram"
	"telegram-notify-relay/internal/infra/api"
	pg "telegram-notify-relay/internal/infra/db/postgres"
	"telegram-notify-relay/internal/infra/logging"
	"telegram-notify-relay/internal/infra/metrics"
	red "telegram-notify-relay/internal/infra/redis"
	"telegram-notify-relay/internal/infra/sched"
	"telegram-notify-relay/internal/infra/worker"
	"telegram-notify-relay/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop bot, relaxed validation)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema setup failed")
	}
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Repositories ----
	var serviceRepo repository.ServiceRepository = pg.NewPostgresServiceRepo(pool)
	chatRepo := pg.NewPostgresChatRepo(pool)
	eventRepo := pg.NewPostgresEventRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Redis (optional): key-lookup cache + notify rate limiter ----
	var limit usecase.RateLimit
	if cfg.Redis.URL != "" {
		client, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		defer client.Close()
		serviceRepo = pg.NewServiceRepoCacheDecorator(serviceRepo, client, cfg.Redis.TTL)
		if cfg.RateLimit.Enabled {
			limit = usecase.RateLimit{
				Limiter: red.NewRateLimiter(client),
				Limit:   cfg.RateLimit.Limit,
				Window:  cfg.RateLimit.Window,
			}
		}
	}

	// ---- Telegram ----
	var tgClient adapter.TelegramClient
	if cfg.Runtime.Dev && cfg.Bot.Token == "" {
		tgClient = tele.NewNoopClient(logger)
	} else {
		tgClient, err = tele.NewBotClient(&cfg.Bot, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram client failed")
		}
	}
	if info, err := tgClient.BotInfo(ctx); err == nil {
		logger.Info().Str("bot", info.Username).Msg("bot authenticated")
	} else {
		logger.Warn().Err(err).Msg("bot identity check failed")
	}

	// ---- Send pool ----
	pool2 := worker.NewPool(cfg.Bot.SendWorkers)
	pool2.Start(ctx)

	// ---- Use cases ----
	resolver := usecase.NewPermissionResolver(serviceRepo)
	dispatcher := usecase.NewNotifyDispatcher(resolver, chatRepo, eventRepo, tgClient, pool2, limit, logger)
	serviceUC := usecase.NewServiceUseCase(serviceRepo, chatRepo, tm, logger)
	chatUC := usecase.NewChatUseCase(chatRepo, tgClient, logger)
	eventUC := usecase.NewEventUseCase(eventRepo)

	// ---- Background discovery ----
	if cfg.Discovery.Interval > 0 {
		dw := sched.NewDiscoveryWorker(cfg.Discovery.Interval, chatUC, logger)
		go func() { _ = dw.Run(ctx) }()
	}

	// ---- HTTP server ----
	auth := api.NewAdminAuth(&cfg.Admin)
	srv := api.NewServer(dispatcher, serviceUC, chatUC, eventUC, tgClient, auth, cfg, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
	pool2.Wait()
}
