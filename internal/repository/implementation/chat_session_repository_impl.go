package implementation

import (
	"context"
	"errors"
	"time"

	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/mapper"
	"car-rental-assistant-be/internal/model"
	"car-rental-assistant-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatSessionMapper
}

func NewChatSessionRepository(db *gorm.DB) contract.ChatSessionRepository {
	return &ChatSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatSessionMapper(),
	}
}

func (r *ChatSessionRepositoryImpl) Create(ctx context.Context, session *entity.ChatSession) error {
	m := r.mapper.ToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.ToEntity(m)
	return nil
}

func (r *ChatSessionRepositoryImpl) FindBySessionId(ctx context.Context, sessionId string, userId uuid.UUID) (*entity.ChatSession, error) {
	var m model.ChatSession
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionId, userId).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ChatSessionRepositoryImpl) FindByUser(ctx context.Context, userId uuid.UUID, limit int) ([]*entity.ChatSession, error) {
	if limit <= 0 {
		limit = 20
	}
	var models []*model.ChatSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("updated_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ChatSessionRepositoryImpl) Touch(ctx context.Context, sessionId string) error {
	return r.db.WithContext(ctx).
		Model(&model.ChatSession{}).
		Where("session_id = ?", sessionId).
		Update("updated_at", time.Now().UTC()).Error
}

func (r *ChatSessionRepositoryImpl) Delete(ctx context.Context, sessionId string, userId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionId, userId).
		Delete(&model.ChatSession{}).Error
}
