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

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"teamchat/auth"
	"teamchat/infrastructure/httpapi"
	"teamchat/internal"
	"teamchat/observability"
	"teamchat/repositories"
	"teamchat/runtime"
	"teamchat/runtime/workers"
	"teamchat/services"
	"teamchat/sink"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanups always execute
// before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Core wiring: registry, rooms, orchestrator, service
	monitor := observability.NewMonitor()
	registry := runtime.NewRegistry()
	rooms := runtime.NewRoomManager(registry)
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	teamRepository := repositories.NewTeamRepository(db, log)

	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	supervisor.Add(workers.NewHealthWorker(log, monitor, config.MetricInterval))

	orchestrator := runtime.NewOrchestrator(log, supervisor, rooms,
		messageRepository, config.BufferSize, config.SinkTimeout)
	orchestrator.Add(sink.NewMonitorSink(monitor))

	chatService := services.NewChatService(log, registry, rooms, orchestrator,
		teamRepository, monitor)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start the engine
	orchestrator.Start(ctx)

	// 6. Protocol surface
	authenticator := auth.NewTokenAuthenticator(config.JWTSecret, config.JWTIssuer)
	gateway := httpapi.NewGateway(log, authenticator, chatService, monitor,
		config.ConnectionBufferSize)
	handler := httpapi.NewMessageHandler(log, chatService, monitor)
	router := httpapi.NewRouter(gateway, handler, authenticator)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for stop or error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
