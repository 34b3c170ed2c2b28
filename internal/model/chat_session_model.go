package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatSession struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId string    `gorm:"type:varchar(100);uniqueIndex;not null"` // external handle, session_<uuid>
	ThreadId  string    `gorm:"type:varchar(100);not null"`             // checkpoint key, equals SessionId today
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`               // ownership for data isolation
	Title     string    `gorm:"type:text;not null"`
	IsActive  bool      `gorm:"default:true"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
