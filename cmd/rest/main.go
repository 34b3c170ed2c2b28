package main

import (
	"context"
	"log"
	"time"

	"car-rental-assistant-be/internal/bootstrap"
	"car-rental-assistant-be/internal/config"
	"car-rental-assistant-be/internal/server"
	"car-rental-assistant-be/internal/tracer"
	"car-rental-assistant-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	if container.Publisher != nil {
		defer container.Publisher.Close()
	}

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting reindex consumer...")
		if err := container.IndexingService.ConsumeReindexRequests(context.Background()); err != nil {
			log.Printf("Background reindex consumer error: %v", err)
		}
	}()
	if container.Subscriber != nil {
		defer container.Subscriber.Close()
		if err := container.IndexingService.BridgeCarUpdateEvents(container.Subscriber); err != nil {
			log.Printf("Background car update bridge error: %v", err)
		}
	}
	go func() {
		flowIdle := time.Duration(cfg.Assistant.FlowIdleMinutes) * time.Minute
		ticker := time.NewTicker(flowIdle)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := container.ChatService.CleanupStaleFlows(context.Background(), flowIdle); err != nil {
				log.Printf("Background flow cleanup error: %v", err)
			}
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
