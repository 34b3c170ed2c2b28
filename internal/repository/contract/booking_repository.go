package contract

import (
	"context"
	"time"

	"car-rental-assistant-be/internal/entity"

	"github.com/google/uuid"
)

type BookingRepository interface {
	// RecentByUser returns the user's most recent bookings by created_at desc.
	RecentByUser(ctx context.Context, userId uuid.UUID, limit int) ([]*entity.Booking, error)

	// BookedCarIdsByUser returns every car id the user has ever booked.
	BookedCarIdsByUser(ctx context.Context, userId uuid.UUID) ([]uuid.UUID, error)

	// ActiveCarIdsByUser returns car ids of bookings that are still in flight
	// (status not in DELIVERED, CANCELLED, RETURNED).
	ActiveCarIdsByUser(ctx context.Context, userId uuid.UUID) ([]uuid.UUID, error)

	// CarIdsBookedBetween returns car ids with a booking or active freeze
	// overlapping the window. Used by the availability check.
	CarIdsBookedBetween(ctx context.Context, start, end time.Time) ([]uuid.UUID, error)

	// NextAvailableTime returns when the car's latest live booking ends,
	// nil when nothing currently occupies it.
	NextAvailableTime(ctx context.Context, carId uuid.UUID) (*time.Time, error)
}
