package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartephone/internal/config"
	"smartephone/internal/handler"
	"smartephone/internal/infra/catalog"
	"smartephone/internal/infra/db"
	"smartephone/internal/infra/paymongo"
	infraRepo "smartephone/internal/infra/repository"
	"smartephone/internal/infra/token"
	"smartephone/internal/job"
	"smartephone/internal/server"
	"smartephone/internal/usecase"
	"smartephone/internal/validator"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	sweepBatchSize  = 100
	shutdownTimeout = 10 * time.Second
)

func main() {
	config.LoadDotEnv(".env", "../.env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	setupLogger(cfg)
	log.Info().Str("env", cfg.GoEnv).Msg("smartephone api starting")

	//DB接続
	gormDB, err := db.Connect(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	products, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load catalog")
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	eventRepo := infraRepo.NewOrderEventGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//usecaseに渡す部品
	clock := usecase.SystemClock{}
	hasher := usecase.NewBcryptPasswordHasher(12)
	issuer, err := token.NewJWTIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("jwt issuer")
	}
	payments := paymongo.NewClient(cfg.PaymongoBaseURL, cfg.PaymongoSecretKey, 30*time.Second)
	webhookParser := paymongo.NewWebhookParser(cfg.PaymongoWebhookSecret)
	if cfg.PaymongoWebhookSecret == "" {
		log.Warn().Msg("PAYMONGO_WEBHOOK_SECRET is empty, webhook signatures are not verified")
	}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, cartRepo, validator.NewAuthValidator(userRepo), hasher, issuer, clock)
	productUC := usecase.NewProductUsecase(products)
	cartUC := usecase.NewCartUsecase(cartRepo, products)
	checkoutUC := usecase.NewCheckoutUsecase(txm, cartRepo, products, payments, usecase.ShortOrderRefGenerator{}, clock)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, clock, cfg.PaymentTimeout)
	webhookUC := usecase.NewPaymentWebhookUsecase(txm, orderRepo, webhookParser, clock, cfg.PaymentTimeout)
	adminOrderUC := usecase.NewAdminOrderUsecase(orderRepo, eventRepo, clock, cfg.PaymentTimeout)

	e := server.New(cfg, log.Logger, userRepo, server.Handlers{
		Auth:       handler.NewAuthHandler(authUC),
		Product:    handler.NewProductHandler(productUC),
		Cart:       handler.NewCartHandler(cartUC),
		Checkout:   handler.NewCheckoutHandler(checkoutUC),
		Order:      handler.NewOrderHandler(orderUC),
		Webhook:    handler.NewWebhookHandler(webhookUC),
		AdminOrder: handler.NewAdminOrderHandler(adminOrderUC),
	})

	//未払い注文の自動キャンセル
	scheduler := job.NewScheduler(log.Logger, time.Minute)
	if err := scheduler.Add(cfg.SweepSchedule, job.NewCancelUnpaidOrdersJob(orderUC, sweepBatchSize)); err != nil {
		log.Fatal().Err(err).Msg("schedule sweep")
	}
	scheduler.Start()

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := server.Start(e, addr); err != nil {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx, e); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	scheduler.Stop(ctx)

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("stopped")
}

// devは読みやすいconsole出力、prodはJSON
func setupLogger(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if !cfg.IsProd() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", "smartephone-api").Logger()

	//contextにloggerが無いとき（jobなど）はこれを使う
	zerolog.DefaultContextLogger = &log.Logger
}
