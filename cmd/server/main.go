package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/farmmarket/internal/cart"
	"github.com/Skotchmaster/farmmarket/internal/checkout"
	"github.com/Skotchmaster/farmmarket/internal/config"
	"github.com/Skotchmaster/farmmarket/internal/es"
	"github.com/Skotchmaster/farmmarket/internal/handlers"
	"github.com/Skotchmaster/farmmarket/internal/images"
	"github.com/Skotchmaster/farmmarket/internal/logging"
	loggingmw "github.com/Skotchmaster/farmmarket/internal/middleware/logging"
	"github.com/Skotchmaster/farmmarket/internal/middleware/metrics"
	"github.com/Skotchmaster/farmmarket/internal/mykafka"
	"github.com/Skotchmaster/farmmarket/internal/notify"
	"github.com/Skotchmaster/farmmarket/internal/service/token"
	httpserver "github.com/Skotchmaster/farmmarket/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	var cartStore cart.Store
	if configuration.REDIS_ADDR != "" {
		store, err := cart.NewRedisStore(configuration.REDIS_ADDR, configuration.REDIS_PASSWORD)
		if err != nil {
			log.Fatalf("redis init error: %v", err)
		}
		cartStore = store
	} else {
		cartStore = cart.NewMemoryStore()
		logger.Warn("REDIS_ADDR not set, carts are held in process memory")
	}
	cartService := &cart.Service{DB: db, Store: cartStore}

	var producer *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			log.Fatalf("kafka init error: %v", err)
		}
	} else {
		logger.Warn("KAFKA_ADDRESS not set, domain events disabled")
	}

	var sender notify.Sender
	if configuration.SMTP_HOST != "" {
		sender, err = notify.NewSMTPSender(
			configuration.SMTP_HOST,
			configuration.SMTP_PORT,
			configuration.SMTP_USER,
			configuration.SMTP_PASSWORD,
			configuration.MAIL_FROM,
		)
		if err != nil {
			log.Fatalf("smtp init error: %v", err)
		}
	} else {
		sender = &notify.LogSender{Logger: logger}
	}
	notifier := notify.NewDispatcher(sender, logger, 4, 256)

	checkoutService := &checkout.Service{
		DB:       db,
		Cart:     cartService,
		Notifier: notifier,
		Producer: producer,
		Logger:   logger,
	}

	imageStore := &images.Store{Dir: configuration.UPLOAD_DIR}

	deps := httpserver.Deps{
		AuthHandler: &handlers.AuthHandler{
			DB:            db,
			JWTSecret:     jwtSecret,
			RefreshSecret: refreshSecret,
			Notifier:      notifier,
			Producer:      producer,
		},
		CatalogHandler: &handlers.CatalogHandler{DB: db},
		ProductHandler: &handlers.ProductHandler{DB: db, Images: imageStore, Producer: producer},
		CartHandler:    &handlers.CartHandler{Cart: cartService, Producer: producer},
		OrderHandler:   &handlers.OrderHandler{DB: db, Service: checkoutService},
		AdminHandler:   &handlers.AdminHandler{DB: db, Notifier: notifier},
		TokenService:   &token.TokenService{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret},
	}

	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		deps.ProductHandler.ES = esClient
		deps.ProductHandler.Index = "products"
		deps.SearchHandler = &handlers.SearchHandler{ES: esClient, Index: "products"}
	} else {
		logger.Warn("ES_URL not set, /search disabled")
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(metrics.Middleware())
	e.Static("/uploads", configuration.UPLOAD_DIR)

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "addr", srv.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	notifier.Close()

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
