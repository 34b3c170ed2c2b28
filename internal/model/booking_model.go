package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Booking struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BookedBy         uuid.UUID `gorm:"type:uuid;not null;index"`
	CarId            uuid.UUID `gorm:"type:uuid;not null;index"`
	StartTime        time.Time `gorm:"not null;index"`
	EndTime          time.Time `gorm:"not null;index"`
	Status           string    `gorm:"type:varchar(50);not null;index"` // CONFIRMED, DELIVERED, RETURNED, CANCELLED...
	TotalAmount      float64
	PickupLocationId *uuid.UUID     `gorm:"type:uuid"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (Booking) TableName() string {
	return "bookings"
}

type Payment struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BookingId uuid.UUID `gorm:"type:uuid;not null;index"`
	Amount    float64   `gorm:"not null"`
	Status    string    `gorm:"type:varchar(50);not null"` // PENDING, PAID, REFUNDED, FAILED
	Method    string    `gorm:"type:varchar(50)"`
	PaidAt    *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}

type BookingFreeze struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BookingId   uuid.UUID `gorm:"type:uuid;not null;index"`
	FrozenFrom  time.Time `gorm:"not null"`
	FrozenUntil *time.Time
	Reason      string    `gorm:"type:text"`
	Status      string    `gorm:"type:varchar(50);not null"` // ACTIVE, RELEASED, EXPIRED
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (BookingFreeze) TableName() string {
	return "booking_freezes"
}
