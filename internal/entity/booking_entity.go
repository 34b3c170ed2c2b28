package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusDelivered BookingStatus = "DELIVERED"
	BookingStatusReturned  BookingStatus = "RETURNED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type Booking struct {
	Id               uuid.UUID
	BookedBy         uuid.UUID
	CarId            uuid.UUID
	StartTime        time.Time
	EndTime          time.Time
	Status           BookingStatus
	TotalAmount      float64
	PickupLocationId *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}
