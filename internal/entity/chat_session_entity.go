package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id        uuid.UUID
	SessionId string
	ThreadId  string
	UserId    uuid.UUID
	Title     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt *time.Time
	IsDeleted bool
}
