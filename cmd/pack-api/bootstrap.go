package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/PackBox/config"
	"github.com/BearBump/PackBox/internal/api/httpapi"
	"github.com/BearBump/PackBox/internal/broker/kafka"
	"github.com/BearBump/PackBox/internal/cache/rediscache"
	"github.com/BearBump/PackBox/internal/integrations/tracking"
	"github.com/BearBump/PackBox/internal/integrations/tracking/aftershiphttp"
	"github.com/BearBump/PackBox/internal/integrations/tracking/fake"
	"github.com/BearBump/PackBox/internal/services/packages"
	"github.com/BearBump/PackBox/internal/services/users"
	"github.com/BearBump/PackBox/internal/services/webhooks"
	"github.com/BearBump/PackBox/internal/storage/pgpackages"
)

type packAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     packAPIOpts
	api      *httpapi.API
	webhooks *webhooks.Service
	consumer *kafka.Consumer
	producer *kafka.Producer
	closeDB  func()
}

func mustBootstrapPackAPI() *packAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config: %v", err))
	}

	httpAddr := cfg.PackBox.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.PackBox.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "pack-api"
	}
	topic := cfg.Kafka.StatusUpdatedTopicName
	if topic == "" {
		topic = "package.status.updated"
	}

	jwtSecret := cfg.PackBox.JWTSecret
	if jwtSecret == "" {
		panic("packbox.jwt_secret is required")
	}
	tokenTTL := time.Duration(cfg.PackBox.JWTTTLSeconds) * time.Second
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	cacheTTL := time.Duration(cfg.PackBox.PackageCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	loginLimit := int64(cfg.PackBox.LoginRateLimitPerMinute)
	if loginLimit <= 0 {
		loginLimit = 10
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	limiter := rediscache.NewRateLimiter(redisAddr, loginLimit, time.Minute)

	var provider tracking.Provider
	switch cfg.AfterShip.Mode {
	case "", "aftership":
		provider = aftershiphttp.New(cfg.AfterShip.BaseURL, cfg.AfterShip.APIKey)
	case "fake":
		provider = fake.New()
	default:
		panic(fmt.Sprintf("unknown aftership.mode: %q", cfg.AfterShip.Mode))
	}

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)
	consumer := kafka.NewConsumer(brokers, topic, consumerGroup)

	packagesSvc := packages.New(st, provider, rc, cacheTTL, log)
	usersSvc := users.New(st, jwtSecret, tokenTTL, log)
	webhooksSvc := webhooks.New(st, rc, producer, topic, log)

	api := httpapi.New(packagesSvc, usersSvc, webhooksSvc, limiter, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &packAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: packAPIOpts{
			httpAddr:      httpAddr,
			swaggerPath:   swaggerPath,
			topic:         topic,
			consumerGroup: consumerGroup,
		},
		api:      api,
		webhooks: webhooksSvc,
		consumer: consumer,
		producer: producer,
		closeDB:  st.Close,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgpackages.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgpackages.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *packAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.producer != nil {
		_ = a.producer.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *packAPIApp) Run() error {
	return runPackAPI(a.ctx, a.opts, a.api, a.webhooks, a.consumer)
}
