package main

import (
	"context"
	"log"

	"notification-hub-be/internal/bootstrap"
	"notification-hub-be/internal/config"
	"notification-hub-be/internal/server"
	"notification-hub-be/internal/tracer"
	"notification-hub-be/pkg/database"
)

func main() {
	// 0. Tracing (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Configuration
	cfg := config.Load()

	// 2. Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Dependency container
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Background workers: dispatch bus consumer and event ingest
	if err := container.Dispatcher.Dispatch(context.Background()); err != nil {
		log.Fatalf("Failed to start dispatcher: %v", err)
	}
	if container.Ingest != nil {
		go container.Ingest.Start()
	}

	// 5. HTTP server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
