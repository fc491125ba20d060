package ledger

import (
	"fmt"
	"math"

	"herbledger/pkg/domain"
)

func validateLocation(field string, loc domain.Location) error {
	if math.IsNaN(loc.Latitude) || math.IsInf(loc.Latitude, 0) ||
		math.IsNaN(loc.Longitude) || math.IsInf(loc.Longitude, 0) {
		return domain.ValidationError{Field: field, Reason: "coordinates must be finite"}
	}
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return domain.ValidationError{Field: field, Reason: fmt.Sprintf("latitude %v out of range", loc.Latitude)}
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return domain.ValidationError{Field: field, Reason: fmt.Sprintf("longitude %v out of range", loc.Longitude)}
	}
	return nil
}

func validateRegistration(reg Registration) error {
	if reg.BatchID == "" {
		return domain.ValidationError{Field: "batch_id", Reason: "must not be empty"}
	}
	if reg.ProducerID == "" {
		return domain.ValidationError{Field: "producer_id", Reason: "must not be empty"}
	}
	if reg.HerbType == "" {
		return domain.ValidationError{Field: "herb_type", Reason: "must not be empty"}
	}
	if math.IsNaN(reg.Quantity) || math.IsInf(reg.Quantity, 0) || reg.Quantity <= 0 {
		return domain.ValidationError{Field: "quantity", Reason: "must be a positive finite number"}
	}
	if reg.HarvestDate.IsZero() {
		return domain.ValidationError{Field: "harvest_date", Reason: "must be set"}
	}
	return validateLocation("location", reg.Location)
}
