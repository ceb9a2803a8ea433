/**
 * @description
 * This is the main entry point for the api-service. It is responsible for
 * initializing all components of the service, including configuration,
 * database connection, the payment-processor client, the message broker
 * producer, repositories, the core application services, and the HTTP server.
 * It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Rate-limiter backend.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages.
 * - pkg/processorclient, pkg/rabbitmq, pkg/servicetoken: Outbound clients.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/vaultpay/payments-backend/internal/api"
	"github.com/vaultpay/payments-backend/internal/app"
	"github.com/vaultpay/payments-backend/internal/config"
	"github.com/vaultpay/payments-backend/internal/store"
	"github.com/vaultpay/payments-backend/pkg/processorclient"
	"github.com/vaultpay/payments-backend/pkg/rabbitmq"
	"github.com/vaultpay/payments-backend/pkg/servicetoken"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.SessionSecretKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"session secret must be configured\" env=SESSION_SECRET_KEY")
	}
	if strings.TrimSpace(cfg.InternalSecretKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal secret must be configured\" env=INTERNAL_SECRET_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting api-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.MaxConns = 50
	poolConfig.MinConns = 10
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer for payment lifecycle events. A broker
	// outage degrades to log-only event delivery rather than blocking boot.
	var events rabbitmq.Publisher
	producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		events = &rabbitmq.FallbackProducer{}
	} else {
		defer producer.Close()
		events = producer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the payment-processor client with its token issuer.
	tokenIssuer := servicetoken.NewIssuer(
		cfg.InternalSecretKey,
		cfg.JWTAlgorithm,
		cfg.ServiceTokenIssuer,
		cfg.ServiceTokenAudience,
		cfg.ServiceTokenScope,
		time.Duration(cfg.ServiceTokenTTLSeconds)*time.Second,
	)
	processorClient := processorclient.NewClient(cfg.ProcessorURL, cfg.ServiceTokenIssuer, tokenIssuer)

	// Optional Redis client for payment-creation rate limiting.
	var redisClient *redis.Client
	if cfg.PaymentRateLimitPerMinute > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; payment rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; payment rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; payment rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application services with their dependencies.
	userService := app.NewUserService(repository, cfg.SessionSecretKey, time.Duration(cfg.SessionExpireMinutes)*time.Minute)
	profileService := app.NewProfileService(repository)
	cardService := app.NewCardService(repository)
	paymentService := app.NewPaymentService(repository, processorClient, events)
	if redisClient != nil {
		paymentService.SetRateLimiter(
			app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			cfg.PaymentRateLimitPerMinute,
		)
	}

	// Initialize the API handlers and router.
	handlers := api.NewHandlers(userService, profileService, cardService, paymentService)
	router := api.Routes(handlers, cfg.SessionSecretKey)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
