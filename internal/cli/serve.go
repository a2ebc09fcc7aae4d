package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/config"
	h "github.com/fjod/go_shop/internal/http"
	"github.com/fjod/go_shop/internal/notification"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const healthCheckInterval = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API and the gRPC health endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func sqlCredentials(cfg *config.Config) *repository.Credentials {
	return &repository.Credentials{
		Driver:            cfg.DBDriver,
		DSN:               cfg.DBDSN,
		MigrationsDirPath: cfg.MigrationsPath,
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log.Println("shop starting...")

	// Database setup
	creds := sqlCredentials(cfg)
	store, err := repository.NewSQLStore(creds)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RunMigrations(creds); err != nil {
		return err
	}
	log.Println("Database migrations completed")

	connectCtx, cancelConnect := context.WithTimeout(ctx, 10*time.Second)
	defer cancelConnect()

	mongoDB, err := repository.ConnectMongoDB(connectCtx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			log.Printf("error disconnecting from MongoDB: %v", err)
		}
	}()
	log.Printf("Connected to MongoDB: %s", cfg.MongoDBName)

	cartRepo := repository.NewMongoCartRepository(mongoDB)
	if err := cartRepo.CreateIndexes(connectCtx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(connectCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Printf("Connected to Redis: %s", cfg.RedisAddr)

	pricedCarts := cache.NewRedisCache(redisClient, cfg.CartCacheTTL)
	sessions := h.NewRedisTokenVerifier(redisClient)

	var notifier notification.Notifier = notification.NoopNotifier{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := notification.NewKafkaNotifier(cfg.KafkaBrokers...)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	} else {
		log.Println("KAFKA_BROKERS not set, order notifications are disabled")
	}
	dispatcher := notification.NewDispatcher(notifier, cfg.NotificationTimeout)

	carts := service.NewCartService(cartRepo, store, store, pricedCarts)
	orders := service.NewOrderService(carts, store, store, store, dispatcher)
	offers := service.NewOfferService(store, pricedCarts)
	products := service.NewProductService(store, nil)

	check := dependencyCheck(store, mongoDB, redisClient)

	router := h.NewRouter(h.Handlers{
		Cart:     h.NewCartHandler(carts, cfg.RequestTimeout),
		Orders:   h.NewOrdersHandler(orders, cfg.RequestTimeout),
		Offers:   h.NewOfferHandler(offers, cfg.RequestTimeout),
		Products: h.NewProductHandler(products, cfg.RequestTimeout),
		Health:   check,
	}, sessions, h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	errCh := make(chan error, 2)
	go func() {
		log.Printf("HTTP API listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()
	go func() {
		log.Printf("gRPC health listening on :%s", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server error: %w", err)
		}
	}()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go watchHealth(watchCtx, healthServer, check, healthCheckInterval)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case <-quit:
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	log.Println("shutting down server...")
	stopWatch()
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	grpcServer.GracefulStop()

	if err := dispatcher.Wait(shutdownCtx); err != nil {
		log.Printf("notifications still in flight at shutdown: %v", err)
	}

	log.Println("server exited")
	return runErr
}

type pinger interface {
	Ping(ctx context.Context) error
}

func dependencyCheck(store pinger, mongoDB *mongo.Database, redisClient *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if err := mongoDB.Client().Ping(ctx, nil); err != nil {
			return fmt.Errorf("mongodb: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}
}

// watchHealth mirrors check into the gRPC health service until ctx ends.
func watchHealth(ctx context.Context, hs *health.Server, check func(ctx context.Context) error, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		status := healthpb.HealthCheckResponse_SERVING
		checkCtx, cancel := context.WithTimeout(ctx, every/2)
		if err := check(checkCtx); err != nil {
			log.Printf("health check failed: %v", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		cancel()
		hs.SetServingStatus("", status)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
