package validation

import (
	"errors"
	"math"

	"github.com/kjstillabower/weatherview/internal/models"
)

// ErrLatitudeOutOfRange is returned when latitude is outside [-90, 90].
var ErrLatitudeOutOfRange = errors.New("latitude out of range")

// ErrLongitudeOutOfRange is returned when longitude is outside [-180, 180].
var ErrLongitudeOutOfRange = errors.New("longitude out of range")

// ErrCoordinateNotFinite is returned when either coordinate is NaN or infinite.
var ErrCoordinateNotFinite = errors.New("coordinate is not a finite number")

// ValidateCoordinates checks that a position is a usable point on earth.
// Locators run every acquired position through it before handing it to the
// weather client.
func ValidateCoordinates(pos models.Position) error {
	if !isFinite(pos.Latitude) || !isFinite(pos.Longitude) {
		return ErrCoordinateNotFinite
	}
	if pos.Latitude < -90 || pos.Latitude > 90 {
		return ErrLatitudeOutOfRange
	}
	if pos.Longitude < -180 || pos.Longitude > 180 {
		return ErrLongitudeOutOfRange
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
