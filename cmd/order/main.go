package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/The-Hawkeye/go-ecommerce/internal/client"
	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
	"github.com/The-Hawkeye/go-ecommerce/internal/inventory"
	"github.com/The-Hawkeye/go-ecommerce/internal/repository"
	"github.com/The-Hawkeye/go-ecommerce/internal/service"
	transportHTTP "github.com/The-Hawkeye/go-ecommerce/internal/transport/http"
	"github.com/The-Hawkeye/go-ecommerce/internal/transport/http/handler"
	transportKafka "github.com/The-Hawkeye/go-ecommerce/internal/transport/kafka"
	"github.com/The-Hawkeye/go-ecommerce/pkg/config"
	"github.com/The-Hawkeye/go-ecommerce/pkg/db"
	pkgKafka "github.com/The-Hawkeye/go-ecommerce/pkg/kafka"
	"github.com/The-Hawkeye/go-ecommerce/pkg/mylogger"
	outboxRepository "github.com/The-Hawkeye/go-ecommerce/pkg/outbox/repository"
	"github.com/The-Hawkeye/go-ecommerce/pkg/outbox/worker"
	"github.com/The-Hawkeye/go-ecommerce/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := utils.InitTracer(ctx, "order-fulfillment")
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	pool, err := db.NewPostgresDB(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}

	logger, err := config.NewLogger(config.LoggerConfig{Level: "Info", Env: cfg.Env})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})

	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	reservationRepo := repository.NewReservationRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)
	outboxRepo := outboxRepository.NewOutboxRepository(pool, logger)

	catalog := client.NewCachedCatalogClient(
		client.NewCatalogClient(cfg.Services.ProductBaseURL, cfg.Services.CallTimeout, logger),
		redisClient,
		logger,
	)
	addresses := client.NewAddressClient(cfg.Services.UserBaseURL, cfg.Services.CallTimeout, logger)

	committer := inventory.NewCommitter(catalog, logger)
	gateway := service.NewSandboxGateway(logger)

	pricing := domain.Pricing{
		TaxRateBasisPoints: cfg.Checkout.TaxRateBasisPoints,
		ShippingFee:        cfg.Checkout.ShippingFee,
		Discount:           cfg.Checkout.Discount,
	}

	cartService := service.NewCartService(cartRepo, catalog, logger)
	checkoutService := service.NewCheckoutService(pool, cartRepo, orderRepo, catalog, addresses, pricing, logger)
	orderService := service.NewOrderService(orderRepo, logger)
	paymentService := service.NewPaymentService(pool, orderRepo, reservationRepo, paymentRepo, outboxRepo, committer, gateway, logger)

	reaper := service.NewReaper(
		pool,
		orderRepo,
		reservationRepo,
		outboxRepo,
		cfg.Reservation.PendingTimeout,
		cfg.Reservation.SweepInterval,
		int32(cfg.Reservation.SweepBatchSize),
		logger,
	)
	go reaper.Start(ctx)

	kafkaProducer, err := pkgKafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("error creating kafka producer: %v", err)
	}

	outboxProcessor := worker.NewOutboxProcessor(pool, outboxRepo, kafkaProducer, logger)
	go outboxProcessor.Start(ctx)

	consumer := transportKafka.NewConsumer(pool, paymentService, cfg.Kafka.GroupID, logger)
	go consumer.Start(ctx, cfg.Kafka.Brokers)

	app := fiber.New(fiber.Config{
		ReadTimeout: cfg.HTTP.Timeout,
		IdleTimeout: time.Minute,
	})

	transportHTTP.RegisterRoutes(app, &transportHTTP.Handlers{
		Cart:    handler.NewCartHandler(cartService, logger),
		Order:   handler.NewOrderHandler(checkoutService, orderService, logger),
		Payment: handler.NewPaymentHandler(paymentService, logger),
	})

	go func() {
		mylogger.Info(ctx, logger, "HTTP server listening", zap.String("port", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("error serving http: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.Background(), time.Second*5)
	defer exit()

	mylogger.Info(shutdownCtx, logger, "Shutting down order fulfillment service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down http server", zap.Error(err))
	}

	if err := kafkaProducer.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close kafka producer", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close redis client", zap.Error(err))
	}

	pool.Close()
}
