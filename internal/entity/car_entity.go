package entity

import (
	"time"

	"github.com/google/uuid"
)

type CarStatus string

const (
	CarStatusActive      CarStatus = "ACTIVE"
	CarStatusMaintenance CarStatus = "MAINTENANCE"
	CarStatusRetired     CarStatus = "RETIRED"
)

type Car struct {
	Id                    uuid.UUID
	CarNo                 string
	Brand                 string
	Model                 string
	Year                  int
	Category              string
	Seats                 int
	FuelType              string
	Transmission          string
	Color                 string
	Mileage               float64
	PricePerHour          float64
	KilometerLimitPerHour float64
	Status                CarStatus
	Features              []string
	ImageURL              *string
	LocationId            *uuid.UUID
	LastServicedAt        *time.Time
	InsuranceValidUntil   *time.Time
	PollutionValidUntil   *time.Time
	CreatedAt             time.Time
	UpdatedAt             *time.Time
	IsDeleted             bool
}

type Review struct {
	Id        uuid.UUID
	CarId     uuid.UUID
	UserId    uuid.UUID
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// ReviewSummary aggregates a car's reviews for description/metadata building.
type ReviewSummary struct {
	AverageRating float64
	TotalReviews  int
	Breakdown     map[int]int // rating -> count
	Recent        []Review
}

type Location struct {
	Id      uuid.UUID
	Name    string
	Address string
	City    string
}
