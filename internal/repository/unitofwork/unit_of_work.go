package unitofwork

import (
	"context"

	"car-rental-assistant-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	CarRepository() contract.CarRepository
	CarEmbeddingRepository() contract.CarEmbeddingRepository
	DocumentEmbeddingRepository() contract.DocumentEmbeddingRepository
	BookingRepository() contract.BookingRepository
	ChatSessionRepository() contract.ChatSessionRepository
	MasterDocumentRepository() contract.MasterDocumentRepository
	RawQueryRepository() contract.RawQueryRepository
}
