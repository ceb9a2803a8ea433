/**
 * @description
 * This is the main entry point for the payment-processor. It initializes the
 * configuration, the decision engine, the service-token verifier, and the
 * HTTP server, then runs until interrupted.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - internal/processor/api, internal/processor/app, internal/processor/config: Internal packages.
 * - pkg/servicetoken: Shared claim rules for internal tokens.
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

	"github.com/vaultpay/payments-backend/internal/processor/api"
	"github.com/vaultpay/payments-backend/internal/processor/app"
	"github.com/vaultpay/payments-backend/internal/processor/config"
	"github.com/vaultpay/payments-backend/pkg/servicetoken"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.InternalSecretKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal secret must be configured\" env=INTERNAL_SECRET_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting payment-processor\" port=%s approval_rate=%.2f", cfg.ServerPort, cfg.ApprovalRate)

	engine := app.NewDecisionEngine(cfg.ApprovalRate)
	verifier := servicetoken.NewVerifier(
		cfg.InternalSecretKey,
		cfg.JWTAlgorithm,
		cfg.ExpectedIssuer,
		cfg.ExpectedAudience,
		cfg.ExpectedScope,
	)

	handlers := api.NewProcessorHandlers(engine)
	router := api.Routes(handlers, verifier)

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
