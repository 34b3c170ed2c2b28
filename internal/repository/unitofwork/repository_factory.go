package unitofwork

import "context"

// RepositoryFactory hands out per-request units of work.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
