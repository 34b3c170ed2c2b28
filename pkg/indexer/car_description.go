package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"car-rental-assistant-be/internal/entity"
)

// ContentHash fingerprints the text that was embedded. Re-indexing compares
// hashes and skips rows whose content did not change, which keeps bulk runs
// cheap and idempotent.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ComposeCarDescription renders the natural-language passage that gets
// embedded for a listing. Everything a renter might phrase a query around
// belongs in here; the vector is only as good as this text.
func ComposeCarDescription(car *entity.Car, location *entity.Location, reviews *entity.ReviewSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d %s %s", car.Year, car.Brand, car.Model)
	if car.Category != "" {
		fmt.Fprintf(&b, ", a %d-seater %s", car.Seats, strings.ToLower(car.Category))
	} else {
		fmt.Fprintf(&b, " with %d seats", car.Seats)
	}
	if car.Color != "" {
		fmt.Fprintf(&b, " in %s", strings.ToLower(car.Color))
	}
	b.WriteString(". ")

	if car.Transmission != "" || car.FuelType != "" {
		details := []string{}
		if car.Transmission != "" {
			details = append(details, strings.ToLower(car.Transmission)+" transmission")
		}
		if car.FuelType != "" {
			details = append(details, strings.ToLower(car.FuelType)+" engine")
		}
		fmt.Fprintf(&b, "It has a %s. ", strings.Join(details, " and a "))
	}
	if car.Mileage > 0 {
		fmt.Fprintf(&b, "Mileage is about %.0f km per liter. ", car.Mileage)
	}

	fmt.Fprintf(&b, "Rental price is %.0f rupees per hour", car.PricePerHour)
	if car.KilometerLimitPerHour > 0 {
		fmt.Fprintf(&b, " with a limit of %.0f km per hour", car.KilometerLimitPerHour)
	}
	b.WriteString(". ")

	if len(car.Features) > 0 {
		fmt.Fprintf(&b, "Features: %s. ", strings.Join(car.Features, ", "))
	}
	if location != nil {
		fmt.Fprintf(&b, "Available at %s", location.Name)
		if location.City != "" {
			fmt.Fprintf(&b, " in %s", location.City)
		}
		b.WriteString(". ")
	}
	if reviews != nil && reviews.TotalReviews > 0 {
		fmt.Fprintf(&b, "Rated %.1f out of 5 by %d renters. ", reviews.AverageRating, reviews.TotalReviews)
		for i, review := range reviews.Recent {
			if i >= 2 || review.Comment == "" {
				break
			}
			fmt.Fprintf(&b, "A renter said: \"%s\". ", review.Comment)
		}
	}

	if useCases := InferUseCases(car); len(useCases) > 0 {
		readable := make([]string, len(useCases))
		for i, uc := range useCases {
			readable[i] = strings.ReplaceAll(uc, "_", " ")
		}
		fmt.Fprintf(&b, "Well suited for %s.", strings.Join(readable, ", "))
	}

	return strings.TrimSpace(b.String())
}

// InferUseCases derives searchable trip labels from the car's shape. Users
// ask for "a car for a family trip", not for seat counts.
func InferUseCases(car *entity.Car) []string {
	seen := map[string]struct{}{}
	var useCases []string
	add := func(uc string) {
		if _, ok := seen[uc]; ok {
			return
		}
		seen[uc] = struct{}{}
		useCases = append(useCases, uc)
	}

	if car.Seats >= 7 {
		add("family_trip")
		add("group_travel")
	}

	switch strings.ToLower(car.Category) {
	case "suv", "muv":
		add("road_trip")
		add("family_trip")
	case "hatchback":
		add("city_commute")
		add("budget_friendly")
	case "sedan":
		add("city_commute")
		add("business_travel")
	case "luxury":
		add("wedding")
		add("business_travel")
	}

	if strings.EqualFold(car.FuelType, "electric") {
		add("eco_friendly")
		add("city_commute")
	}
	if car.PricePerHour > 0 && car.PricePerHour <= 100 {
		add("budget_friendly")
	}

	for _, feature := range car.Features {
		lower := strings.ToLower(feature)
		if strings.Contains(lower, "4x4") || strings.Contains(lower, "awd") || strings.Contains(lower, "four wheel") {
			add("off_road")
		}
		if strings.Contains(lower, "child seat") || strings.Contains(lower, "isofix") {
			add("family_trip")
		}
	}

	return useCases
}

// BuildCarMetadata assembles the JSONB filter surface for a listing. Keys
// here must stay in sync with the filter translation in the retrieval
// engine.
func BuildCarMetadata(car *entity.Car, location *entity.Location, reviews *entity.ReviewSummary) map[string]interface{} {
	metadata := map[string]interface{}{
		"car_no":         car.CarNo,
		"brand":          car.Brand,
		"model":          car.Model,
		"year":           car.Year,
		"category":       car.Category,
		"seats":          car.Seats,
		"fuel_type":      car.FuelType,
		"transmission":   car.Transmission,
		"color":          car.Color,
		"mileage":        car.Mileage,
		"price_per_hour": car.PricePerHour,
		"price_per_day":  car.PricePerHour * 24,
		"status":         string(car.Status),
		"use_cases":      InferUseCases(car),
	}

	features := make([]string, len(car.Features))
	for i, f := range car.Features {
		features[i] = strings.ToLower(f)
	}
	metadata["features"] = features

	if location != nil {
		metadata["location"] = location.Name
		metadata["city"] = location.City
	}
	if reviews != nil {
		metadata["reviews"] = map[string]interface{}{
			"average_rating": reviews.AverageRating,
			"total_reviews":  reviews.TotalReviews,
		}
	}
	if car.LastServicedAt != nil {
		metadata["last_serviced_at"] = car.LastServicedAt.UTC().Format("2006-01-02")
	}
	if car.InsuranceValidUntil != nil {
		metadata["insurance_valid_until"] = car.InsuranceValidUntil.UTC().Format("2006-01-02")
	}
	if car.PollutionValidUntil != nil {
		metadata["pollution_valid_until"] = car.PollutionValidUntil.UTC().Format("2006-01-02")
	}

	return metadata
}
