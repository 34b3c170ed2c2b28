package contract

import (
	"context"

	"car-rental-assistant-be/internal/entity"
)

type MasterDocumentRepository interface {
	// FindActiveByType assembles the active document of the given type with
	// its sections and contents in sort order. Returns nil when none exists.
	FindActiveByType(ctx context.Context, docType string) (*entity.MasterDocument, error)
}
