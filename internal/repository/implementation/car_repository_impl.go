package implementation

import (
	"context"
	"errors"

	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/mapper"
	"car-rental-assistant-be/internal/model"
	"car-rental-assistant-be/internal/repository/contract"
	"car-rental-assistant-be/internal/repository/scope"
	"car-rental-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CarRepositoryImpl struct {
	db           *gorm.DB
	mapper       *mapper.CarMapper
	reviewMapper *mapper.ReviewMapper
}

func NewCarRepository(db *gorm.DB) contract.CarRepository {
	return &CarRepositoryImpl{
		db:           db,
		mapper:       mapper.NewCarMapper(),
		reviewMapper: mapper.NewReviewMapper(),
	}
}

func (r *CarRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CarRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Car, error) {
	var m model.Car
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CarRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Car, error) {
	var models []*model.Car
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CarRepositoryImpl) FindByIds(ctx context.Context, ids []uuid.UUID) ([]*entity.Car, error) {
	if len(ids) == 0 {
		return []*entity.Car{}, nil
	}
	var models []*model.Car
	query := r.applySpecifications(r.db.WithContext(ctx), specification.ByIDs{IDs: ids})
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CarRepositoryImpl) FindActive(ctx context.Context) ([]*entity.Car, error) {
	var models []*model.Car
	query := r.applySpecifications(r.db.WithContext(ctx), specification.Filter("status", string(entity.CarStatusActive)))
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CarRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Car{}).Count(&count).Error
	return count, err
}

func (r *CarRepositoryImpl) ReviewSummary(ctx context.Context, carId uuid.UUID, recentLimit int) (*entity.ReviewSummary, error) {
	if recentLimit <= 0 {
		recentLimit = 5
	}

	type aggRow struct {
		Rating int
		Count  int
	}
	var agg []aggRow
	err := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Select("rating, count(*) as count").
		Where("car_id = ?", carId).
		Group("rating").
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}

	summary := &entity.ReviewSummary{Breakdown: make(map[int]int)}
	var total, weighted int
	for _, row := range agg {
		summary.Breakdown[row.Rating] = row.Count
		total += row.Count
		weighted += row.Rating * row.Count
	}
	summary.TotalReviews = total
	if total > 0 {
		summary.AverageRating = float64(weighted) / float64(total)
	}

	var recent []*model.Review
	err = r.db.WithContext(ctx).
		Where("car_id = ?", carId).
		Scopes(scope.OrderByCreatedDesc).
		Limit(recentLimit).
		Find(&recent).Error
	if err != nil {
		return nil, err
	}
	for _, rv := range recent {
		summary.Recent = append(summary.Recent, *r.reviewMapper.ToEntity(rv))
	}

	return summary, nil
}

func (r *CarRepositoryImpl) FindLocation(ctx context.Context, id uuid.UUID) (*entity.Location, error) {
	var m model.Location
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity.Location{
		Id:      m.Id,
		Name:    m.Name,
		Address: m.Address,
		City:    m.City,
	}, nil
}
