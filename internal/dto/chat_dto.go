package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendQueryRequest struct {
	SessionId      string                 `json:"session_id,omitempty"`
	Query          string                 `json:"query" validate:"required"`
	BookingContext *BookingContextRequest `json:"booking_context,omitempty"`
}

// BookingContextRequest carries details the client already knows about the
// booking being discussed, so the assistant does not have to ask again.
type BookingContextRequest struct {
	CarId          *uuid.UUID `json:"car_id,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	PickupLocation string     `json:"pickup_location,omitempty"`
}

type SessionResponse struct {
	Id        uuid.UUID  `json:"id"`
	SessionId string     `json:"session_id"`
	Title     string     `json:"title"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type SessionMessageResponse struct {
	Id      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SessionMessagesResponse struct {
	SessionId string                   `json:"session_id"`
	Summary   string                   `json:"summary,omitempty"`
	Total     int                      `json:"total"`
	Returned  int                      `json:"returned"`
	Messages  []SessionMessageResponse `json:"messages"`
}
