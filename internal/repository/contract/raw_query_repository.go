package contract

import "context"

// RawQueryRepository executes an already-validated read-only statement and
// returns row maps with JSON-safe values. Only the safety-constrained query
// tool may call this.
type RawQueryRepository interface {
	QueryRows(ctx context.Context, query string) ([]map[string]interface{}, error)
}
