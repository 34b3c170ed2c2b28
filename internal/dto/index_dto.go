package dto

import "github.com/google/uuid"

type ReindexCarRequest struct {
	CarId uuid.UUID `json:"car_id" validate:"required"`
}

type IndexCarsResponse struct {
	Indexed int      `json:"indexed"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

type IndexDocumentsResponse struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}
