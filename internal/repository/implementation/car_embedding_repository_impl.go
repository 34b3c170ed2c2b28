package implementation

import (
	"context"
	"errors"
	"time"

	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/mapper"
	"car-rental-assistant-be/internal/model"
	"car-rental-assistant-be/internal/repository/contract"
	"car-rental-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CarEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CarEmbeddingMapper
}

func NewCarEmbeddingRepository(db *gorm.DB) contract.CarEmbeddingRepository {
	return &CarEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewCarEmbeddingMapper(),
	}
}

func (r *CarEmbeddingRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CarEmbeddingRepositoryImpl) Upsert(ctx context.Context, embedding *entity.CarEmbedding) error {
	m := r.mapper.ToModel(embedding)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "car_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"content", "embedding_value", "metadata", "updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*embedding = *r.mapper.ToEntity(m)
	return nil
}

func (r *CarEmbeddingRepositoryImpl) FindByCarId(ctx context.Context, carId uuid.UUID) (*entity.CarEmbedding, error) {
	var m model.CarEmbedding
	err := r.db.WithContext(ctx).Where("car_id = ?", carId).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CarEmbeddingRepositoryImpl) FindByCarIds(ctx context.Context, carIds []uuid.UUID) ([]*entity.CarEmbedding, error) {
	var models []*model.CarEmbedding
	err := r.db.WithContext(ctx).Where("car_id IN ?", carIds).Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CarEmbeddingRepositoryImpl) DeleteByCarId(ctx context.Context, carId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("car_id = ?", carId).Delete(&model.CarEmbedding{}).Error
}

func (r *CarEmbeddingRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.CarEmbedding{}).Count(&count).Error
	return count, err
}

// SearchSimilarWithScore computes cosine similarity as 1 - (embedding_value <=> vector),
// filters by threshold and any metadata specifications, and orders best-first.
func (r *CarEmbeddingRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64, specs ...specification.Specification) ([]*contract.ScoredCarEmbedding, error) {
	if limit <= 0 {
		limit = 10
	}

	type result struct {
		model.CarEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("car_embeddings").
		Select("car_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("car_embeddings.deleted_at IS NULL").
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold)

	query = r.applySpecifications(query, specs...)

	err := query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredCarEmbedding, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredCarEmbedding{
			Embedding:  r.mapper.ToEntity(&res.CarEmbedding),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}

func (r *CarEmbeddingRepositoryImpl) FindPopular(ctx context.Context, limit int) ([]*entity.CarEmbedding, error) {
	if limit <= 0 {
		limit = 7
	}
	var models []*model.CarEmbedding
	err := r.db.WithContext(ctx).
		Where("lower(metadata->>'status') = 'active'").
		Order("search_count DESC").
		Order("last_searched_at DESC NULLS LAST").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CarEmbeddingRepositoryImpl) IncrementSearchStats(ctx context.Context, carIds []uuid.UUID) error {
	if len(carIds) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&model.CarEmbedding{}).
		Where("car_id IN ?", carIds).
		Updates(map[string]interface{}{
			"search_count":     gorm.Expr("search_count + 1"),
			"last_searched_at": now,
		}).Error
}
