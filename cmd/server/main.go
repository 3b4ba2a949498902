package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/roommate-booking/internal/config"
	"github.com/iliyamo/roommate-booking/internal/database"
	"github.com/iliyamo/roommate-booking/internal/handler"
	"github.com/iliyamo/roommate-booking/internal/middleware"
	"github.com/iliyamo/roommate-booking/internal/notify"
	"github.com/iliyamo/roommate-booking/internal/repository"
	"github.com/iliyamo/roommate-booking/internal/router"
	"github.com/iliyamo/roommate-booking/internal/service"
)

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.IsProd() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg := config.Load()
	log := newLogger(cfg)

	db, err := database.Open(database.Options{
		User:        cfg.DBUser,
		Pass:        cfg.DBPass,
		Host:        cfg.DBHost,
		Port:        cfg.DBPort,
		Name:        cfg.DBName,
		LockWaitSec: cfg.DBLockWaitSec,
	})
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("schema migration failed")
		}
		log.Info("schema applied")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unreachable; rate limiting and availability cache disabled")
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// notifications
	qcfg := config.LoadQueueConfig()
	var pub notify.Publisher = notify.LogPublisher{Log: log}
	if qcfg.Enabled {
		amqpPub := notify.NewAMQPPublisher(qcfg.URL, qcfg.Queue)
		defer amqpPub.Close()
		pub = amqpPub
		if qcfg.ConsumerEnabled {
			consumer := &notify.Consumer{URL: qcfg.URL, Queue: qcfg.Queue, LogPath: qcfg.LogPath, Log: log}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Error("notification consumer stopped")
				}
			}()
		}
	}
	dispatcher := notify.NewDispatcher(pub, log, qcfg.DispatchTimeout)

	// repositories and services
	tx := database.NewTransactor(db)
	seatRepo := repository.NewSeatRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	propertyRepo := repository.NewPropertyRepo(db)

	allocator := service.NewSeatAllocator(seatRepo, log)
	bookingSvc := service.NewBookingService(tx, bookingRepo, propertyRepo, allocator, dispatcher, log)
	propertySvc := service.NewPropertyService(tx, propertyRepo, seatRepo, allocator, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e, router.Deps{
		JWTSecret:  cfg.JWTSecret,
		Auth:       handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), log),
		Bookings:   handler.NewBookingHandler(bookingSvc),
		Properties: handler.NewPropertyHandler(propertySvc),
		Health:     handler.Health(db),
		RateLimit:  middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		Cache:      middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log),
	})

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	dispatcher.Wait()
	log.Info("bye")
}
