package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/arvelin/class-booking/internal/config"
	"github.com/arvelin/class-booking/internal/database"
	"github.com/arvelin/class-booking/internal/handler"
	"github.com/arvelin/class-booking/internal/middleware"
	"github.com/arvelin/class-booking/internal/model"
	"github.com/arvelin/class-booking/internal/queue"
	"github.com/arvelin/class-booking/internal/repository"
	"github.com/arvelin/class-booking/internal/router"
	"github.com/arvelin/class-booking/internal/service"
	"github.com/arvelin/class-booking/internal/worker"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Env == "dev" {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	store := repository.NewStore(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	var notifier service.Notifier
	if cfg.AMQPURL != "" {
		notifier = service.NewAMQPNotifier(cfg.AMQPURL)
	}
	bank := &service.StaticBankInfo{Account: model.BankAccount{
		BankName:      cfg.BankName,
		AccountName:   cfg.BankAcctName,
		AccountNumber: cfg.BankAcctNumber,
	}}

	svc := service.NewRegistrationService(store, notifier, bank, cfg.HoldTTL, cfg.PaymentTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background expiry sweeps: lapsed holds and missed payment deadlines.
	reaper := worker.NewReaper(svc, cfg.ReaperInterval)
	go reaper.Start(ctx)

	// Consume confirmation events and hand them to the notification sink.
	if cfg.AMQPURL != "" {
		go queue.StartConsumer(cfg.AMQPURL, &queue.LogSender{})
	}

	e := echo.New()
	e.HideBanner = true

	// Redis backs rate limiting and the browse cache; both degrade to
	// disabled when the connection fails.
	rdb := config.NewRedisClient()
	var cacheMW echo.MiddlewareFunc
	if rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
		cacheMW = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	} else {
		logrus.Warn("redis unavailable, rate limiting and caching disabled")
	}

	authH := handler.NewAuthHandler(cfg, users, tokens)
	publicH := handler.NewPublicHandler(store.Classes, store.Templates)
	regH := handler.NewRegistrationHandler(svc)
	adminClassH := handler.NewAdminClassHandler(store.Templates, store.Classes)
	adminRegH := handler.NewAdminRegistrationHandler(svc)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, cacheMW)
	router.RegisterClient(e, regH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminClassH, adminRegH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("server starting")

	go func() {
		if err := e.Start(addr); err != nil {
			logrus.WithError(err).Info("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("shutdown failed")
	}
}
