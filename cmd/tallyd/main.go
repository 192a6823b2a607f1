package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/auth"
	"tally/internal/backend"
	"tally/internal/config"
	"tally/internal/events"
	apphttp "tally/internal/http"
	"tally/internal/log"
	"tally/internal/prefs"
	"tally/internal/store"
)

func main() {
	// Load .env for local development; absent in production is fine.
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentApp})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	factory := backend.NewFactory(logger.Logger)
	be, err := factory.Create(ctx, cfg.BackendConfig())
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer be.Close()

	var pub store.Publisher
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", "error", err, "url", cfg.AMQPURL)
			os.Exit(1)
		}
		defer client.Close()
		pub = client
		logger.Info("Change events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Change events disabled, no AMQP_URL provided")
	}

	prefStore, err := prefs.Open(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open preferences store", "error", err, "dir", cfg.DataDir)
		os.Exit(1)
	}

	verifier := auth.NewVerifier(cfg.JWTSecret)

	// A development convenience: mint a ready-to-use token for the
	// configured default user so local clients can talk to the API
	// without a separate login service.
	if cfg.DefaultUser != "" {
		token, err := verifier.IssueToken(cfg.DefaultUser, "", cfg.SessionTTL)
		if err != nil {
			logger.Error("Failed to issue default user token", "error", err)
			os.Exit(1)
		}
		// The token is a credential, so it goes to stdout rather than the
		// log stream, which may be shipped to an aggregator.
		fmt.Printf("default user token: %s\n", token)
		logger.Info("Issued token for default user", "user_id", cfg.DefaultUser)
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:            ":" + cfg.Port,
		Backend:         be,
		Verifier:        verifier,
		Publisher:       pub,
		Prefs:           prefStore,
		Logger:          logger.WithComponent(log.ComponentHTTP),
		BudgetCacheSize: cfg.BudgetCacheSize,
		BudgetCacheTTL:  cfg.BudgetCacheTTL,
		TrustedProxies:  cfg.TrustedProxies,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting tally server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
