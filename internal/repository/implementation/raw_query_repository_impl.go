package implementation

import (
	"context"
	"fmt"
	"time"

	"car-rental-assistant-be/internal/repository/contract"

	"gorm.io/gorm"
)

type RawQueryRepositoryImpl struct {
	db *gorm.DB
}

func NewRawQueryRepository(db *gorm.DB) contract.RawQueryRepository {
	return &RawQueryRepositoryImpl{db: db}
}

func (r *RawQueryRepositoryImpl) QueryRows(ctx context.Context, query string) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	if err := r.db.WithContext(ctx).Raw(query).Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		for k, v := range row {
			row[k] = jsonSafe(v)
		}
	}
	return rows, nil
}

// jsonSafe coerces driver values into types that survive json.Marshal:
// timestamps to ISO strings, byte slices to strings, everything scalar as-is.
func jsonSafe(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case []byte:
		return string(val)
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
