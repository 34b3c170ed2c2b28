package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Car struct {
	Id                    uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CarNo                 string    `gorm:"type:varchar(32);uniqueIndex;not null"` // registration plate
	Brand                 string    `gorm:"type:varchar(100);not null"`
	Model                 string    `gorm:"type:varchar(100);not null"`
	Year                  int       `gorm:"not null"`
	Category              string    `gorm:"type:varchar(50);index"` // SUV, Sedan, Hatchback, EV...
	Seats                 int       `gorm:"default:5"`
	FuelType              string    `gorm:"type:varchar(50)"`
	Transmission          string    `gorm:"type:varchar(50)"`
	Color                 string    `gorm:"type:varchar(50)"`
	Mileage               float64   // km per litre
	PricePerHour          float64   `gorm:"not null"`
	KilometerLimitPerHour float64
	Status                string                      `gorm:"type:varchar(50);not null;default:'ACTIVE';index"`
	Features              datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	ImageURL              *string                     `gorm:"type:text"`
	LocationId            *uuid.UUID                  `gorm:"type:uuid;index"`
	LastServicedAt        *time.Time
	InsuranceValidUntil   *time.Time
	PollutionValidUntil   *time.Time
	CreatedAt             time.Time      `gorm:"autoCreateTime"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime"`
	DeletedAt             gorm.DeletedAt `gorm:"index"`
}

func (Car) TableName() string {
	return "cars"
}

type Location struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Address   string    `gorm:"type:text"`
	City      string    `gorm:"type:varchar(100);index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Location) TableName() string {
	return "locations"
}

type Review struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CarId     uuid.UUID `gorm:"type:uuid;not null;index"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Rating    int       `gorm:"not null"` // 1..5
	Comment   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Review) TableName() string {
	return "reviews"
}
