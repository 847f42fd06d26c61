package main

import (
	"log"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/andrevks/qrdine/internal/cache"
	"github.com/andrevks/qrdine/internal/config"
	"github.com/andrevks/qrdine/internal/es"
	"github.com/andrevks/qrdine/internal/events"
	"github.com/andrevks/qrdine/internal/handlers"
	"github.com/andrevks/qrdine/internal/logging"
	"github.com/andrevks/qrdine/internal/mykafka"
	"github.com/andrevks/qrdine/internal/service/token"
	httpserver "github.com/andrevks/qrdine/internal/transport/http"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}

	var producer *mykafka.Producer
	if cfg.KAFKA_ADDRESS != "" {
		producer, err = mykafka.NewProducer([]string{cfg.KAFKA_ADDRESS})
		if err != nil {
			logger.Warn("kafka disabled", "error", err)
		} else {
			defer producer.Close()
		}
	}

	var restaurantCache *cache.RestaurantCache
	if cfg.REDIS_ADDR != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.REDIS_ADDR})
		restaurantCache = cache.NewRestaurantCache(rdb, 10*time.Minute)
	}

	menuHandler := &handlers.MenuHandler{
		DB:       db,
		Cache:    restaurantCache,
		Producer: producer,
		ESIndex:  cfg.ES_MENU_INDEX,
	}
	if cfg.ES_URL != "" {
		client, err := es.NewClient(cfg)
		if err != nil {
			logger.Warn("elasticsearch disabled", "error", err)
		} else {
			menuHandler.ES = client
		}
	}

	hub := events.NewHub()
	tokenService := &token.TokenService{
		DB:            db,
		JWTSecret:     []byte(cfg.JWT_SECRET),
		RefreshSecret: []byte(cfg.REFRESH_SECRET),
	}

	deps := &httpserver.Deps{
		AuthHandler: &handlers.AuthHandler{
			DB:            db,
			JWTSecret:     []byte(cfg.JWT_SECRET),
			RefreshSecret: []byte(cfg.REFRESH_SECRET),
			Producer:      producer,
		},
		RestaurantHandler: &handlers.RestaurantHandler{
			DB:            db,
			Cache:         restaurantCache,
			Producer:      producer,
			PublicBaseURL: cfg.PUBLIC_BASE_URL,
		},
		MenuHandler: menuHandler,
		CartHandler: &handlers.CartHandler{DB: db, Producer: producer},
		OrderHandler: &handlers.OrderHandler{
			DB:       db,
			Cache:    restaurantCache,
			Producer: producer,
			Hub:      hub,
		},
		KPIHandler:   &handlers.KPIHandler{DB: db},
		TokenService: tokenService,
	}

	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
			)
			return nil
		},
	}))

	httpserver.Register(e, deps)

	e.Logger.Fatal(e.Start(":" + cfg.PORT))
}
