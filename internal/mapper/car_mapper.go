package mapper

import (
	"time"

	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CarMapper struct{}

func NewCarMapper() *CarMapper {
	return &CarMapper{}
}

func (m *CarMapper) ToEntity(c *model.Car) *entity.Car {
	if c == nil {
		return nil
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.Car{
		Id:                    c.Id,
		CarNo:                 c.CarNo,
		Brand:                 c.Brand,
		Model:                 c.Model,
		Year:                  c.Year,
		Category:              c.Category,
		Seats:                 c.Seats,
		FuelType:              c.FuelType,
		Transmission:          c.Transmission,
		Color:                 c.Color,
		Mileage:               c.Mileage,
		PricePerHour:          c.PricePerHour,
		KilometerLimitPerHour: c.KilometerLimitPerHour,
		Status:                entity.CarStatus(c.Status),
		Features:              []string(c.Features),
		ImageURL:              c.ImageURL,
		LocationId:            c.LocationId,
		LastServicedAt:        c.LastServicedAt,
		InsuranceValidUntil:   c.InsuranceValidUntil,
		PollutionValidUntil:   c.PollutionValidUntil,
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             updatedAt,
		IsDeleted:             c.DeletedAt.Valid,
	}
}

func (m *CarMapper) ToModel(c *entity.Car) *model.Car {
	if c == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if c.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.Car{
		Id:                    c.Id,
		CarNo:                 c.CarNo,
		Brand:                 c.Brand,
		Model:                 c.Model,
		Year:                  c.Year,
		Category:              c.Category,
		Seats:                 c.Seats,
		FuelType:              c.FuelType,
		Transmission:          c.Transmission,
		Color:                 c.Color,
		Mileage:               c.Mileage,
		PricePerHour:          c.PricePerHour,
		KilometerLimitPerHour: c.KilometerLimitPerHour,
		Status:                string(c.Status),
		Features:              datatypes.NewJSONSlice(c.Features),
		ImageURL:              c.ImageURL,
		LocationId:            c.LocationId,
		LastServicedAt:        c.LastServicedAt,
		InsuranceValidUntil:   c.InsuranceValidUntil,
		PollutionValidUntil:   c.PollutionValidUntil,
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             updatedAt,
		DeletedAt:             deletedAt,
	}
}

func (m *CarMapper) ToEntities(cars []*model.Car) []*entity.Car {
	entities := make([]*entity.Car, len(cars))
	for i, c := range cars {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

type ReviewMapper struct{}

func NewReviewMapper() *ReviewMapper {
	return &ReviewMapper{}
}

func (m *ReviewMapper) ToEntity(r *model.Review) *entity.Review {
	if r == nil {
		return nil
	}
	return &entity.Review{
		Id:        r.Id,
		CarId:     r.CarId,
		UserId:    r.UserId,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func (m *ReviewMapper) ToEntities(reviews []*model.Review) []*entity.Review {
	entities := make([]*entity.Review, len(reviews))
	for i, r := range reviews {
		entities[i] = m.ToEntity(r)
	}
	return entities
}
