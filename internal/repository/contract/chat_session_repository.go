package contract

import (
	"context"

	"car-rental-assistant-be/internal/entity"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	FindBySessionId(ctx context.Context, sessionId string, userId uuid.UUID) (*entity.ChatSession, error)
	FindByUser(ctx context.Context, userId uuid.UUID, limit int) ([]*entity.ChatSession, error)

	// Touch bumps updated_at so "last activity" ordering stays correct.
	Touch(ctx context.Context, sessionId string) error

	Delete(ctx context.Context, sessionId string, userId uuid.UUID) error
}
