package main

import (
	"context"
	"flag"
	"log"
	"os"

	"car-rental-assistant-be/internal/config"
	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/internal/repository/unitofwork"
	"car-rental-assistant-be/internal/service"
	"car-rental-assistant-be/pkg/database"
	"car-rental-assistant-be/pkg/embedding"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/fatih/color"
)

// Offline indexing runner. Rebuilds the car and document embedding tables
// without going through the HTTP surface.
func main() {
	cars := flag.Bool("cars", false, "index the active car fleet")
	docs := flag.Bool("docs", false, "rebuild the document chunk index")
	force := flag.Bool("force", false, "re-embed cars even when their content hash is unchanged")
	flag.Parse()

	if !*cars && !*docs {
		*cars = true
		*docs = true
	}

	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		color.Red("✗ Unable to connect to database: %v", err)
		os.Exit(1)
	}

	uowFactory := unitofwork.NewRepositoryFactory(db)
	embeddingProvider := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))

	indexingService := service.NewIndexingService(
		uowFactory,
		embeddingProvider,
		pubSub,
		cfg.Assistant.ReindexCarTopic,
		nil, // no event bus for one-shot runs
		logger.NewZapLogger(cfg.App.LogFilePath, false),
	)

	ctx := context.Background()

	if *cars {
		color.Cyan("Indexing active cars...")
		result, err := indexingService.IndexAllCars(ctx, *force)
		if err != nil {
			color.Red("✗ Car indexing failed: %v", err)
			os.Exit(1)
		}
		color.Green("✓ Cars indexed: %d new/updated, %d unchanged, %d failed", result.Indexed, result.Skipped, result.Failed)
		for _, msg := range result.Errors {
			color.Yellow("  ! %s", msg)
		}
	}

	if *docs {
		color.Cyan("Rebuilding document index...")
		result, err := indexingService.IndexDocuments(ctx)
		if err != nil {
			color.Red("✗ Document indexing failed: %v", err)
			os.Exit(1)
		}
		color.Green("✓ Documents indexed: %d documents, %d chunks", result.Documents, result.Chunks)
	}

	log.Println("Done")
}
