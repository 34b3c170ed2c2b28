package contract

import (
	"context"

	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
)

type CarRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Car, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Car, error)
	FindByIds(ctx context.Context, ids []uuid.UUID) ([]*entity.Car, error)
	FindActive(ctx context.Context) ([]*entity.Car, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// ReviewSummary aggregates ratings plus the most recent reviews for
	// description/metadata building.
	ReviewSummary(ctx context.Context, carId uuid.UUID, recentLimit int) (*entity.ReviewSummary, error)

	FindLocation(ctx context.Context, id uuid.UUID) (*entity.Location, error)
}
