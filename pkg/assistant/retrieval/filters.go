package retrieval

import (
	"time"

	"car-rental-assistant-be/internal/repository/specification"
	"car-rental-assistant-be/pkg/assistant"
)

// Metadata keys carried on every car embedding row. The indexer writes them,
// the filter translation below reads them.
const (
	metaKeyStatus       = "status"
	metaKeyBrand        = "brand"
	metaKeyModel        = "model"
	metaKeyCategory     = "category"
	metaKeyFuelType     = "fuel_type"
	metaKeyTransmission = "transmission"
	metaKeyColor        = "color"
	metaKeySeats        = "seats"
	metaKeyYear         = "year"
	metaKeyMileage      = "mileage"
	metaKeyPricePerHour = "price_per_hour"
	metaKeyPricePerDay  = "price_per_day"
	metaKeyFeatures     = "features"
	metaKeyUseCases     = "use_cases"

	metaKeyInsuranceValidUntil = "insurance_valid_until"
	metaKeyPollutionValidUntil = "pollution_valid_until"
	metaKeyLastServicedAt      = "last_serviced_at"
)

// SpecsForFilter translates a typed filter set into SQL-side specifications.
// Listings are restricted to active status unless the filter says otherwise.
// Date-dependent predicates are not translated here; they are evaluated
// post-query by ApplyDateFilters since they depend on the current time.
func SpecsForFilter(filter *assistant.SearchFilter) []specification.Specification {
	specs := []specification.Specification{}

	status := "ACTIVE"
	if filter != nil && filter.Status != nil {
		status = *filter.Status
	}
	specs = append(specs, specification.MetadataEquals{Key: metaKeyStatus, Value: status})

	if filter == nil {
		return specs
	}

	stringKeys := []struct {
		key   string
		value *string
	}{
		{metaKeyBrand, filter.Brand},
		{metaKeyModel, filter.Model},
		{metaKeyCategory, filter.Category},
		{metaKeyFuelType, filter.FuelType},
		{metaKeyTransmission, filter.Transmission},
		{metaKeyColor, filter.Color},
	}
	for _, sk := range stringKeys {
		if sk.value != nil && *sk.value != "" {
			specs = append(specs, specification.MetadataEquals{Key: sk.key, Value: *sk.value})
		}
	}

	numericMins := []struct {
		key   string
		value *float64
	}{
		{metaKeyPricePerHour, filter.PricePerHourMin},
		{metaKeyPricePerDay, filter.PricePerDayMin},
		{metaKeyMileage, filter.MileageMin},
	}
	for _, nm := range numericMins {
		if nm.value != nil {
			specs = append(specs, specification.MetadataNumericMin{Key: nm.key, Value: *nm.value})
		}
	}
	numericMaxes := []struct {
		key   string
		value *float64
	}{
		{metaKeyPricePerHour, filter.PricePerHourMax},
		{metaKeyPricePerDay, filter.PricePerDayMax},
		{metaKeyMileage, filter.MileageMax},
	}
	for _, nm := range numericMaxes {
		if nm.value != nil {
			specs = append(specs, specification.MetadataNumericMax{Key: nm.key, Value: *nm.value})
		}
	}

	if filter.SeatsMin != nil {
		specs = append(specs, specification.MetadataNumericMin{Key: metaKeySeats, Value: float64(*filter.SeatsMin)})
	}
	if filter.SeatsMax != nil {
		specs = append(specs, specification.MetadataNumericMax{Key: metaKeySeats, Value: float64(*filter.SeatsMax)})
	}
	if filter.YearMin != nil {
		specs = append(specs, specification.MetadataNumericMin{Key: metaKeyYear, Value: float64(*filter.YearMin)})
	}
	if filter.YearMax != nil {
		specs = append(specs, specification.MetadataNumericMax{Key: metaKeyYear, Value: float64(*filter.YearMax)})
	}

	if filter.MinRating != nil {
		specs = append(specs, specification.MetadataPathMin{Path: []string{"reviews", "average_rating"}, Value: *filter.MinRating})
	}
	if filter.MinReviews != nil {
		specs = append(specs, specification.MetadataPathMin{Path: []string{"reviews", "total_reviews"}, Value: float64(*filter.MinReviews)})
	}

	if len(filter.Features) > 0 {
		specs = append(specs, specification.MetadataContainsAny{Key: metaKeyFeatures, Values: filter.Features})
	}
	if len(filter.UseCases) > 0 {
		specs = append(specs, specification.MetadataContainsAny{Key: metaKeyUseCases, Values: filter.UseCases})
	}

	return specs
}

// ApplyDateFilters evaluates the time-relative predicates against each
// evidence row's metadata. Rows without the relevant key pass through when
// the predicate is unset and are dropped when it is demanded.
func ApplyDateFilters(results []assistant.CarEvidence, filter *assistant.SearchFilter, now time.Time) []assistant.CarEvidence {
	if filter == nil {
		return results
	}
	noDateDemands := filter.InsuranceValid == nil && filter.PollutionValid == nil && filter.LastServicedDaysAgoMax == nil
	if noDateDemands {
		return results
	}

	kept := results[:0]
	for _, r := range results {
		if filter.InsuranceValid != nil && *filter.InsuranceValid {
			until := metaTime(r.Metadata, metaKeyInsuranceValidUntil)
			if until == nil || until.Before(now) {
				continue
			}
		}
		if filter.PollutionValid != nil && *filter.PollutionValid {
			until := metaTime(r.Metadata, metaKeyPollutionValidUntil)
			if until == nil || until.Before(now) {
				continue
			}
		}
		if filter.LastServicedDaysAgoMax != nil {
			serviced := metaTime(r.Metadata, metaKeyLastServicedAt)
			if serviced == nil {
				continue
			}
			ageDays := now.Sub(*serviced).Hours() / 24
			if ageDays > *filter.LastServicedDaysAgoMax {
				continue
			}
		}
		kept = append(kept, r)
	}
	return kept
}

func metaString(metadata map[string]interface{}, key string) string {
	if metadata == nil {
		return ""
	}
	if s, ok := metadata[key].(string); ok {
		return s
	}
	return ""
}

func metaFloat(metadata map[string]interface{}, key string) float64 {
	if metadata == nil {
		return 0
	}
	switch v := metadata[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func metaTime(metadata map[string]interface{}, key string) *time.Time {
	s := metaString(metadata, key)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
