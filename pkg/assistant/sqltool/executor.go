package sqltool

import (
	"context"
	"fmt"

	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/internal/repository/contract"
)

// ToolName is the function name offered to the model by the booking handler.
const ToolName = "execute_sql_query"

// Executor validates and runs model-authored SQL. Rejections are logged with
// the offending statement so prompt regressions are visible in one place.
type Executor struct {
	validator *Validator
	rawRepo   contract.RawQueryRepository
	logger    logger.ILogger
}

func NewExecutor(validator *Validator, rawRepo contract.RawQueryRepository, log logger.ILogger) *Executor {
	return &Executor{
		validator: validator,
		rawRepo:   rawRepo,
		logger:    log,
	}
}

// Execute returns JSON-safe row maps for a statement that passed validation.
func (e *Executor) Execute(ctx context.Context, query, explanation string) ([]map[string]interface{}, error) {
	sanitized, err := e.validator.Validate(query)
	if err != nil {
		e.logger.Warn("sql-tool", "query rejected", map[string]interface{}{
			"error":       err.Error(),
			"query":       query,
			"explanation": explanation,
		})
		return nil, fmt.Errorf("query validation failed: %w", err)
	}

	rows, err := e.rawRepo.QueryRows(ctx, sanitized)
	if err != nil {
		e.logger.Error("sql-tool", "query execution failed", map[string]interface{}{
			"error": err.Error(),
			"query": sanitized,
		})
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	e.logger.Info("sql-tool", "query executed", map[string]interface{}{
		"rows":        len(rows),
		"explanation": explanation,
	})
	return rows, nil
}
