package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/repository/unitofwork"
	"car-rental-assistant-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.CarRepository())
	assert.NotNil(t, uow.CarEmbeddingRepository())
	assert.NotNil(t, uow.DocumentEmbeddingRepository())
	assert.NotNil(t, uow.BookingRepository())
	assert.NotNil(t, uow.ChatSessionRepository())

	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)

	t.Run("Check Car Repository", func(t *testing.T) {
		count, err := uow.CarRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("Car count: %d", count)
	})

	t.Run("Check Car Embedding Repository", func(t *testing.T) {
		count, err := uow.CarEmbeddingRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("CarEmbedding count: %d", count)
	})

	t.Run("Check Chat Session Round Trip", func(t *testing.T) {
		userId := uuid.New()
		sessionId := uuid.NewString()
		repo := uow.ChatSessionRepository()

		err := repo.Create(context.Background(), &entity.ChatSession{
			Id:        uuid.New(),
			SessionId: sessionId,
			ThreadId:  sessionId,
			UserId:    userId,
			Title:     "integration test session",
			IsActive:  true,
		})
		assert.NoError(t, err)

		found, err := repo.FindBySessionId(context.Background(), sessionId, userId)
		assert.NoError(t, err)
		if assert.NotNil(t, found) {
			assert.Equal(t, "integration test session", found.Title)
		}

		assert.NoError(t, repo.Delete(context.Background(), sessionId, userId))
	})
}
