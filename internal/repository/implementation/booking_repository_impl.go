package implementation

import (
	"context"
	"time"

	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/mapper"
	"car-rental-assistant-be/internal/model"
	"car-rental-assistant-be/internal/repository/contract"
	"car-rental-assistant-be/internal/repository/scope"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Statuses that no longer occupy a car.
var settledBookingStatuses = []string{
	string(entity.BookingStatusDelivered),
	string(entity.BookingStatusCancelled),
	string(entity.BookingStatusReturned),
}

type BookingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.BookingMapper
}

func NewBookingRepository(db *gorm.DB) contract.BookingRepository {
	return &BookingRepositoryImpl{
		db:     db,
		mapper: mapper.NewBookingMapper(),
	}
}

func (r *BookingRepositoryImpl) RecentByUser(ctx context.Context, userId uuid.UUID, limit int) ([]*entity.Booking, error) {
	if limit <= 0 {
		limit = 5
	}
	var models []*model.Booking
	err := r.db.WithContext(ctx).
		Where("booked_by = ?", userId).
		Scopes(scope.OrderByCreatedDesc).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *BookingRepositoryImpl) BookedCarIdsByUser(ctx context.Context, userId uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Distinct("car_id").
		Where("booked_by = ?", userId).
		Pluck("car_id", &ids).Error
	return ids, err
}

func (r *BookingRepositoryImpl) ActiveCarIdsByUser(ctx context.Context, userId uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Distinct("car_id").
		Where("booked_by = ?", userId).
		Where("status NOT IN ?", settledBookingStatuses).
		Pluck("car_id", &ids).Error
	return ids, err
}

// CarIdsBookedBetween treats a car as occupied when a live booking overlaps
// the window, or when an active freeze on one of its bookings does.
func (r *BookingRepositoryImpl) CarIdsBookedBetween(ctx context.Context, start, end time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Distinct("car_id").
		Where("status NOT IN ?", settledBookingStatuses).
		Where("start_time < ? AND end_time > ?", end, start).
		Pluck("car_id", &ids).Error
	if err != nil {
		return nil, err
	}

	var frozenIds []uuid.UUID
	err = r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Distinct("bookings.car_id").
		Joins("JOIN booking_freezes ON booking_freezes.booking_id = bookings.id").
		Where("booking_freezes.status = ?", "ACTIVE").
		Where("booking_freezes.frozen_from < ?", end).
		Where("booking_freezes.frozen_until IS NULL OR booking_freezes.frozen_until > ?", start).
		Pluck("bookings.car_id", &frozenIds).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	for _, id := range frozenIds {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
			seen[id] = struct{}{}
		}
	}
	return ids, nil
}

func (r *BookingRepositoryImpl) NextAvailableTime(ctx context.Context, carId uuid.UUID) (*time.Time, error) {
	var next *time.Time
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Select("MAX(end_time)").
		Where("car_id = ?", carId).
		Where("status NOT IN ?", settledBookingStatuses).
		Where("end_time > ?", time.Now().UTC()).
		Scan(&next).Error
	if err != nil {
		return nil, err
	}
	return next, nil
}
