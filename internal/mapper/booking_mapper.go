package mapper

import (
	"time"

	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/model"
)

type BookingMapper struct{}

func NewBookingMapper() *BookingMapper {
	return &BookingMapper{}
}

func (m *BookingMapper) ToEntity(b *model.Booking) *entity.Booking {
	if b == nil {
		return nil
	}

	var updatedAt *time.Time
	if !b.UpdatedAt.IsZero() {
		t := b.UpdatedAt
		updatedAt = &t
	}

	return &entity.Booking{
		Id:               b.Id,
		BookedBy:         b.BookedBy,
		CarId:            b.CarId,
		StartTime:        b.StartTime,
		EndTime:          b.EndTime,
		Status:           entity.BookingStatus(b.Status),
		TotalAmount:      b.TotalAmount,
		PickupLocationId: b.PickupLocationId,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        updatedAt,
	}
}

func (m *BookingMapper) ToEntities(bookings []*model.Booking) []*entity.Booking {
	entities := make([]*entity.Booking, len(bookings))
	for i, b := range bookings {
		entities[i] = m.ToEntity(b)
	}
	return entities
}
