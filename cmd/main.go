package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/shop-api/internal/auth"
	"github.com/fjod/go_cart/shop-api/internal/cache"
	"github.com/fjod/go_cart/shop-api/internal/config"
	grpcserver "github.com/fjod/go_cart/shop-api/internal/grpc"
	h "github.com/fjod/go_cart/shop-api/internal/http"
	"github.com/fjod/go_cart/shop-api/internal/logger"
	"github.com/fjod/go_cart/shop-api/internal/publisher"
	"github.com/fjod/go_cart/shop-api/internal/seed"
	"github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/fjod/go_cart/shop-api/internal/store"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	s := store.New()
	if cfg.SeedData {
		if _, err := seed.NewLoader(zl).Load(ctx, s); err != nil {
			zl.Fatal("failed to load seed data", zap.Error(err))
		}
	}

	cartCache, closeCache := setupCache(ctx, cfg, zl)
	defer closeCache()

	pub := setupPublisher(cfg, zl)
	defer pub.Close()

	// Services
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	products := service.NewProductService(s, zl)
	orders := service.NewOrderService(s, zl)
	carts := service.NewCartService(s, orders, cartCache, zl)
	users := service.NewUserService(s, tokens, zl).WithCarts(carts)
	categories := service.NewCategoryService(s, products, zl)
	reviews := service.NewReviewService(s, zl)
	gateway := service.NewSimulatedGateway(approvalSource(cfg.PaymentApprovalRate))
	payments := service.NewPaymentService(s, gateway, zl)
	shipping := service.NewShippingService(s, zl)
	analytics := service.NewAnalyticsService(s)

	router := h.NewRouter(h.Handlers{
		Products:   h.NewProductHandler(products, zl),
		Users:      h.NewUserHandler(users, zl),
		Orders:     h.NewOrderHandler(orders, zl),
		Cart:       h.NewCartHandler(carts, zl),
		Categories: h.NewCategoryHandler(categories, zl),
		Reviews:    h.NewReviewHandler(reviews, zl),
		Payments:   h.NewPaymentHandler(payments, zl),
		Shipping:   h.NewShippingHandler(shipping, zl),
		Analytics:  h.NewAnalyticsHandler(analytics, zl),
	}, h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}, zl)

	srv := newHTTPServer(cfg, router)

	go func() {
		zl.Info("shop api starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		zl.Fatal("failed to listen", zap.String("port", cfg.GRPCPort), zap.Error(err))
	}
	healthServer := grpcserver.NewServer(zl)
	go func() {
		if err := healthServer.Serve(lis); err != nil {
			zl.Error("grpc server stopped", zap.Error(err))
		}
	}()
	healthServer.SetServing(true)

	poller := publisher.NewOutboxPoller(s, pub, cfg.OutboxTick, zl)
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		poller.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server...")
	healthServer.SetServing(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}

	stop()
	<-pollerDone
	healthServer.Shutdown()

	zl.Info("server exited")
}

// setupCache returns a Redis backed cart cache when REDIS_ADDR is set.
func setupCache(ctx context.Context, cfg *config.Config, zl *zap.Logger) (cache.CartCache, func()) {
	if cfg.RedisAddr == "" {
		zl.Info("redis not configured, cart cache disabled")
		return cache.NopCache{}, func() {}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		zl.Warn("redis ping failed, cart cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = redisClient.Close()
		return cache.NopCache{}, func() {}
	}
	zl.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	c := cache.NewRedisCache(redisClient, cache.RedisOptions{
		KeyPrefix: cfg.CartKeyPrefix,
		TTL:       cfg.CartCacheTTL,
	})
	return c, func() { _ = redisClient.Close() }
}

// newHTTPServer leaves the handler timeout room to write its 504 before the
// connection's write deadline passes.
func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// approvalSource approves every charge unless a lower rate is configured to
// exercise the decline path.
func approvalSource(rate float64) service.ApprovalSource {
	if rate >= 1 {
		return service.AlwaysApprove{}
	}
	return service.RandomApproval{Rate: rate}
}

func setupPublisher(cfg *config.Config, zl *zap.Logger) publisher.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		zl.Info("kafka not configured, events are logged")
		return publisher.NewLogPublisher(zl)
	}
	zl.Info("publishing events to kafka",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic))
	return publisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, zl)
}
