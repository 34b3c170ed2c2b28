package service

import (
	"context"
	"encoding/json"
	"fmt"

	"car-rental-assistant-be/internal/dto"
	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/internal/repository/specification"
	"car-rental-assistant-be/internal/repository/unitofwork"
	"car-rental-assistant-be/pkg/embedding"
	"car-rental-assistant-be/pkg/events"
	"car-rental-assistant-be/pkg/indexer"
	"car-rental-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// indexedDocTypes are the master document families served to retrieval.
var indexedDocTypes = []string{"terms", "faq", "privacy", "help", "about"}

// reviewsForDescription caps how many recent review comments flow into a
// car's indexed description.
const reviewsForDescription = 2

type IIndexingService interface {
	IndexAllCars(ctx context.Context, force bool) (*dto.IndexCarsResponse, error)
	IndexCar(ctx context.Context, carId uuid.UUID) error
	IndexDocuments(ctx context.Context) (*dto.IndexDocumentsResponse, error)

	// ConsumeReindexRequests drains the single-car reindex topic in the
	// background until ctx is cancelled.
	ConsumeReindexRequests(ctx context.Context) error

	// BridgeCarUpdateEvents forwards CAR_UPDATED events from the platform's
	// NATS stream onto the in-process reindex topic.
	BridgeCarUpdateEvents(subscriber *nats.Subscriber) error
}

type indexingService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	pubSub            *gochannel.GoChannel
	reindexTopic      string
	publisher         *nats.Publisher
	log               logger.ILogger
}

func NewIndexingService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	pubSub *gochannel.GoChannel,
	reindexTopic string,
	publisher *nats.Publisher,
	log logger.ILogger,
) IIndexingService {
	return &indexingService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		pubSub:            pubSub,
		reindexTopic:      reindexTopic,
		publisher:         publisher,
		log:               log,
	}
}

// IndexAllCars refreshes the car embedding table from the active fleet. A
// car whose composed description is unchanged (by content hash) is skipped
// unless force is set; per-car failures are collected so one bad row never
// aborts the run.
func (s *indexingService) IndexAllCars(ctx context.Context, force bool) (*dto.IndexCarsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	cars, err := uow.CarRepository().FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active cars: %w", err)
	}

	response := &dto.IndexCarsResponse{}
	for _, car := range cars {
		indexed, err := s.indexCar(ctx, uow, car, force)
		if err != nil {
			response.Failed++
			response.Errors = append(response.Errors, fmt.Sprintf("%s: %v", car.Id, err))
			s.log.Error("indexing_service", "car indexing failed", map[string]interface{}{
				"car_id": car.Id.String(),
				"error":  err.Error(),
			})
			continue
		}
		if indexed {
			response.Indexed++
		} else {
			response.Skipped++
		}
	}

	s.log.Info("indexing_service", "car indexing run finished", map[string]interface{}{
		"indexed": response.Indexed,
		"skipped": response.Skipped,
		"failed":  response.Failed,
	})

	if s.publisher != nil {
		event := events.NewCarsIndexed(response.Indexed, response.Skipped, response.Failed)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.log.Warn("indexing_service", "index event publish failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return response, nil
}

// IndexCar refreshes a single car's embedding regardless of status, used by
// the reindex consumer after a car changes.
func (s *indexingService) IndexCar(ctx context.Context, carId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	car, err := uow.CarRepository().FindOne(ctx, specification.ByID{ID: carId})
	if err != nil {
		return fmt.Errorf("load car: %w", err)
	}
	if car == nil {
		// Car deleted since the reindex was requested. Drop its embedding.
		if err := uow.CarEmbeddingRepository().DeleteByCarId(ctx, carId); err != nil {
			return fmt.Errorf("remove deleted car embedding: %w", err)
		}
		return nil
	}

	if car.Status != entity.CarStatusActive {
		if err := uow.CarEmbeddingRepository().DeleteByCarId(ctx, carId); err != nil {
			return fmt.Errorf("remove inactive car embedding: %w", err)
		}
		s.log.Info("indexing_service", "inactive car removed from index", map[string]interface{}{
			"car_id": carId.String(),
			"status": string(car.Status),
		})
		return nil
	}

	if _, err := s.indexCar(ctx, uow, car, false); err != nil {
		return err
	}
	return nil
}

func (s *indexingService) indexCar(ctx context.Context, uow unitofwork.UnitOfWork, car *entity.Car, force bool) (bool, error) {
	carRepo := uow.CarRepository()

	reviews, err := carRepo.ReviewSummary(ctx, car.Id, reviewsForDescription)
	if err != nil {
		return false, fmt.Errorf("review summary: %w", err)
	}

	var location *entity.Location
	if car.LocationId != nil {
		location, err = carRepo.FindLocation(ctx, *car.LocationId)
		if err != nil {
			return false, fmt.Errorf("find location: %w", err)
		}
	}

	description := indexer.ComposeCarDescription(car, location, reviews)
	hash := indexer.ContentHash(description)

	embeddingRepo := uow.CarEmbeddingRepository()
	existing, err := embeddingRepo.FindByCarId(ctx, car.Id)
	if err != nil {
		return false, fmt.Errorf("find existing embedding: %w", err)
	}
	if existing != nil && !force {
		if prior, ok := existing.Metadata["content_hash"].(string); ok && prior == hash {
			return false, nil
		}
	}

	embedded, err := s.embeddingProvider.Generate(description, "RETRIEVAL_DOCUMENT")
	if err != nil {
		return false, fmt.Errorf("embed description: %w", err)
	}

	metadata := indexer.BuildCarMetadata(car, location, reviews)
	metadata["content_hash"] = hash

	row := &entity.CarEmbedding{
		Id:             uuid.New(),
		CarId:          car.Id,
		Content:        description,
		EmbeddingValue: embedded.Embedding.Values,
		Metadata:       metadata,
	}
	if existing != nil {
		row.Id = existing.Id
		row.SearchCount = existing.SearchCount
		row.LastSearchedAt = existing.LastSearchedAt
	}

	if err := embeddingRepo.Upsert(ctx, row); err != nil {
		return false, fmt.Errorf("upsert embedding: %w", err)
	}
	return true, nil
}

// IndexDocuments rebuilds the document embedding table generation-style: all
// chunks are staged under a fresh refresh batch, then the swap deletes every
// older generation in one statement. Retrieval never observes a half-built
// index.
func (s *indexingService) IndexDocuments(ctx context.Context) (*dto.IndexDocumentsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	batch := uuid.New()
	response := &dto.IndexDocumentsResponse{}

	for _, docType := range indexedDocTypes {
		doc, err := uow.MasterDocumentRepository().FindActiveByType(ctx, docType)
		if err != nil {
			return nil, fmt.Errorf("load %s document: %w", docType, err)
		}
		if doc == nil {
			s.log.Debug("indexing_service", "no active document for type", map[string]interface{}{
				"doc_type": docType,
			})
			continue
		}

		chunks := indexer.ChunkMasterDocument(doc)
		if len(chunks) == 0 {
			continue
		}

		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Content
		}
		embedded, err := s.embeddingProvider.GenerateBatch(texts, "RETRIEVAL_DOCUMENT")
		if err != nil {
			return nil, fmt.Errorf("embed %s chunks: %w", docType, err)
		}
		if len(embedded) != len(chunks) {
			return nil, fmt.Errorf("embed %s chunks: got %d vectors for %d chunks", docType, len(embedded), len(chunks))
		}

		rows := make([]*entity.DocumentEmbedding, len(chunks))
		for i, chunk := range chunks {
			rows[i] = &entity.DocumentEmbedding{
				Id:             uuid.New(),
				DocId:          chunk.DocId,
				DocType:        chunk.DocType,
				Title:          chunk.Title,
				Content:        chunk.Content,
				ChunkIndex:     chunk.ChunkIndex,
				EmbeddingValue: embedded[i].Embedding.Values,
				Metadata:       chunk.Metadata,
				RefreshBatch:   batch,
			}
		}

		if err := uow.DocumentEmbeddingRepository().CreateBulk(ctx, rows); err != nil {
			return nil, fmt.Errorf("stage %s chunks: %w", docType, err)
		}

		response.Documents++
		response.Chunks += len(chunks)
	}

	if err := uow.DocumentEmbeddingRepository().SwapRefreshBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("swap refresh batch: %w", err)
	}

	s.log.Info("indexing_service", "document indexing run finished", map[string]interface{}{
		"documents":     response.Documents,
		"chunks":        response.Chunks,
		"refresh_batch": batch.String(),
	})

	if s.publisher != nil {
		event := events.NewDocumentsIndexed(response.Documents, response.Chunks)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.log.Warn("indexing_service", "index event publish failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return response, nil
}

func (s *indexingService) ConsumeReindexRequests(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.reindexTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processReindexMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *indexingService) processReindexMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ReindexCarRequest
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.log.Error("indexing_service", "invalid reindex payload", map[string]interface{}{
			"error": err.Error(),
		})
		// Ack malformed messages, redelivery cannot fix them.
		msg.Ack()
		return
	}

	if err := s.IndexCar(ctx, payload.CarId); err != nil {
		s.log.Error("indexing_service", "car reindex failed", map[string]interface{}{
			"car_id": payload.CarId.String(),
			"error":  err.Error(),
		})
		msg.Nack()
		return
	}

	s.log.Info("indexing_service", "car reindexed", map[string]interface{}{
		"car_id": payload.CarId.String(),
	})
	msg.Ack()
}

func (s *indexingService) BridgeCarUpdateEvents(subscriber *nats.Subscriber) error {
	if subscriber == nil {
		return fmt.Errorf("nats subscriber is not connected")
	}

	subject := fmt.Sprintf("events.%s", events.TypeCarUpdated)
	return subscriber.Subscribe(subject, "assistant-reindex", func(ctx context.Context, event events.Event) error {
		rawId, ok := event.Payload()["car_id"].(string)
		if !ok {
			s.log.Warn("indexing_service", "car update event missing car_id", map[string]interface{}{
				"payload": event.Payload(),
			})
			return nil
		}
		carId, err := uuid.Parse(rawId)
		if err != nil {
			s.log.Warn("indexing_service", "car update event has invalid car_id", map[string]interface{}{
				"car_id": rawId,
			})
			return nil
		}

		payload, err := json.Marshal(dto.ReindexCarRequest{CarId: carId})
		if err != nil {
			return err
		}
		return s.pubSub.Publish(s.reindexTopic, message.NewMessage(watermill.NewUUID(), payload))
	})
}
