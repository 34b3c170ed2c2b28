package assistant

// SearchFilter is a typed conjunction over listing metadata. An unset field
// imposes no constraint.
type SearchFilter struct {
	Category     *string `json:"category,omitempty"`
	Brand        *string `json:"brand,omitempty"`
	Model        *string `json:"model,omitempty"`
	FuelType     *string `json:"fuel_type,omitempty"`
	Transmission *string `json:"transmission,omitempty"`
	Color        *string `json:"color,omitempty"`

	PricePerHourMin *float64 `json:"price_per_hour_min,omitempty"`
	PricePerHourMax *float64 `json:"price_per_hour_max,omitempty"`
	PricePerDayMin  *float64 `json:"price_per_day_min,omitempty"`
	PricePerDayMax  *float64 `json:"price_per_day_max,omitempty"`

	SeatsMin *int `json:"seats_min,omitempty"`
	SeatsMax *int `json:"seats_max,omitempty"`
	YearMin  *int `json:"year_min,omitempty"`
	YearMax  *int `json:"year_max,omitempty"`

	MileageMin *float64 `json:"mileage_min,omitempty"`
	MileageMax *float64 `json:"mileage_max,omitempty"`

	Features []string `json:"features,omitempty"`
	UseCases []string `json:"use_cases,omitempty"`

	// Status defaults to active-only in the retrieval engine when unset.
	Status *string `json:"status,omitempty"`

	MinRating  *float64 `json:"min_rating,omitempty"`
	MinReviews *int     `json:"min_reviews,omitempty"`

	LastServicedDaysAgoMax *float64 `json:"last_serviced_days_ago_max,omitempty"`
	InsuranceValid         *bool    `json:"insurance_valid,omitempty"`
	PollutionValid         *bool    `json:"pollution_valid,omitempty"`

	// Document-type hints for documents/hybrid searches.
	DocTypes []string `json:"doc_types,omitempty"`

	// Hybrid apportioning, both in [0,1] and summing to 1 when set.
	CarPercent *float64 `json:"car_percent,omitempty"`
	DocPercent *float64 `json:"doc_percent,omitempty"`
}
