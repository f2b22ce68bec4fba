package validation

import (
	"errors"
)

// ValidateCoordinates checks that a lat/lon pair is on the globe.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return errors.New("latitude must be between -90 and 90")
	}

	if lon < -180 || lon > 180 {
		return errors.New("longitude must be between -180 and 180")
	}

	return nil
}
